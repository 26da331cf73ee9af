package mimetype

import "testing"

func TestForPathKnownExtension(t *testing.T) {
	if got := ForPath("/a/b/c.html"); got != "text/html; charset=utf-8" {
		t.Fatalf("got %q", got)
	}
}

func TestForPathUnknownExtension(t *testing.T) {
	if got := ForPath("/a/b/c.xyz123"); got != DefaultType {
		t.Fatalf("got %q", got)
	}
}

func TestForPathNoExtension(t *testing.T) {
	if got := ForPath("/a/b/README"); got != DefaultType {
		t.Fatalf("got %q", got)
	}
}

func TestForPathDotInDirNotExtension(t *testing.T) {
	if got := ForPath("/a.b/c"); got != DefaultType {
		t.Fatalf("got %q", got)
	}
}

func TestExtensionForType(t *testing.T) {
	ext, ok := ExtensionForType("text/plain; charset=utf-8")
	if !ok || ext != ".txt" {
		t.Fatalf("got %q %v", ext, ok)
	}
}

func TestExtensionForTypeUnknown(t *testing.T) {
	if _, ok := ExtensionForType("application/x-nonexistent"); ok {
		t.Fatalf("expected no match")
	}
}
