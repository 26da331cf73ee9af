package uri

import "testing"

func TestParseOriginForm(t *testing.T) {
	u, ok := Parse("/a/b?x=1#frag")
	if !ok {
		t.Fatalf("expected valid parse")
	}
	if u.Path != "/a/b" || u.RawQuery != "x=1" || u.Fragment != "frag" {
		t.Fatalf("got %+v", u)
	}
}

func TestParseAbsoluteForm(t *testing.T) {
	u, ok := Parse("http://example.com:8080/x")
	if !ok {
		t.Fatalf("expected valid parse")
	}
	if u.Scheme != "http" || u.Host != "example.com" || u.Port != 8080 || u.Path != "/x" {
		t.Fatalf("got %+v", u)
	}
}

func TestParseInvalidPort(t *testing.T) {
	if _, ok := Parse("http://example.com:99999/x"); ok {
		t.Fatalf("expected invalid port to fail parse")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, ok := Parse(""); ok {
		t.Fatalf("expected empty target to fail parse")
	}
}

func TestDecodePathNoPlus(t *testing.T) {
	if got := DecodePath("/a+b"); got != "/a+b" {
		t.Fatalf("+ must not decode to space in path, got %q", got)
	}
}

func TestDecodeQueryPlus(t *testing.T) {
	if got := DecodeQuery("a+b"); got != "a b" {
		t.Fatalf("+ must decode to space in query, got %q", got)
	}
}

func TestDecodeRoundTripASCII(t *testing.T) {
	cases := []string{"/hello", "/a/b/c", "/foo%20bar"}
	for _, c := range cases {
		got := DecodePath(c)
		if c == "/foo%20bar" && got != "/foo bar" {
			t.Fatalf("got %q", got)
		}
		if c != "/foo%20bar" && got != c {
			t.Fatalf("unencoded ASCII path %q changed on decode: %q", c, got)
		}
	}
}

func TestDecodeInvalidEscapePassesThrough(t *testing.T) {
	if got := DecodePath("/100%"); got != "/100%" {
		t.Fatalf("got %q", got)
	}
	if got := DecodePath("/100%2"); got != "/100%2" {
		t.Fatalf("got %q", got)
	}
}

func TestHasTraversal(t *testing.T) {
	truthy := []string{"..", "../x", "/x/..", "/x/../y", "/../"}
	for _, p := range truthy {
		if !HasTraversal(p) {
			t.Errorf("expected traversal for %q", p)
		}
	}
	falsy := []string{"/", "/x", "/x/.", "/x.y/..z", "/..hidden"}
	for _, p := range falsy {
		if HasTraversal(p) {
			t.Errorf("expected no traversal for %q", p)
		}
	}
}

func TestHasTraversalEncodedForms(t *testing.T) {
	if !HasTraversal(DecodePath("%2e%2e")) {
		t.Fatalf("expected %%2e%%2e to decode to traversal")
	}
	if !HasTraversal(DecodePath("%2e%2e/secret")) {
		t.Fatalf("expected %%2e%%2e/secret prefix to trip traversal")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	cases := []string{"/a/./b/../c", "/a/b/", "/../a", "/a//b"}
	for _, c := range cases {
		n1 := Normalize(c)
		n2 := Normalize(n1)
		if n1 != n2 {
			t.Errorf("normalize not idempotent for %q: %q != %q", c, n1, n2)
		}
	}
}

func TestNormalizeClampsAtRoot(t *testing.T) {
	if got := Normalize("/../../a"); got != "/a" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeEmptyBecomesRoot(t *testing.T) {
	if got := Normalize(""); got != "/" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizePreservesTrailingSlash(t *testing.T) {
	if got := Normalize("/a/b/"); got != "/a/b/" {
		t.Fatalf("got %q", got)
	}
}
