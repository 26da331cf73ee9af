// Package uri parses HTTP request-targets (origin-form or absolute-form),
// percent-decodes them, and detects path traversal on the decoded path.
package uri

import (
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// URI is the parsed form of a request-target.
type URI struct {
	Scheme   string
	Host     string
	Port     int // 0 means unspecified
	Path     string
	RawQuery string
	Fragment string
}

// Parse parses a raw request-target in origin-form ("/path?q") or
// absolute-form ("http://host:port/path?q#frag"). It returns ok=false
// if the target is structurally invalid (bad port, empty target).
func Parse(target string) (URI, bool) {
	if target == "" {
		return URI{}, false
	}

	var u URI
	rest := target

	if strings.HasPrefix(rest, "/") {
		// origin-form: no scheme/host.
	} else if idx := strings.Index(rest, "://"); idx > 0 {
		u.Scheme = rest[:idx]
		rest = rest[idx+3:]

		authEnd := strings.IndexAny(rest, "/?#")
		var authority string
		if authEnd == -1 {
			authority = rest
			rest = ""
		} else {
			authority = rest[:authEnd]
			rest = rest[authEnd:]
		}
		if authority == "" {
			return URI{}, false
		}

		host := authority
		if ci := strings.LastIndex(authority, ":"); ci != -1 {
			host = authority[:ci]
			portStr := authority[ci+1:]
			port, err := strconv.Atoi(portStr)
			if err != nil || port < 0 || port > 65535 {
				return URI{}, false
			}
			u.Port = port
		}
		normalizedHost, err := idna.Lookup.ToASCII(host)
		if err == nil {
			host = normalizedHost
		}
		u.Host = host

		if rest == "" {
			rest = "/"
		}
	} else {
		return URI{}, false
	}

	// Split fragment, then query, then path.
	if fi := strings.IndexByte(rest, '#'); fi != -1 {
		u.Fragment = rest[fi+1:]
		rest = rest[:fi]
	}
	if qi := strings.IndexByte(rest, '?'); qi != -1 {
		u.RawQuery = rest[qi+1:]
		rest = rest[:qi]
	}
	u.Path = rest

	if u.Path == "" {
		return URI{}, false
	}

	return u, true
}

// DecodePath percent-decodes a path component. '+' is NOT treated as
// space in a path (only in query/cookie contexts); invalid %-escapes
// pass through literally.
func DecodePath(s string) string {
	return percentDecode(s, false)
}

// DecodeQuery percent-decodes a query or cookie-value component, where
// '+' decodes to space.
func DecodeQuery(s string) string {
	return percentDecode(s, true)
}

func percentDecode(s string, plusAsSpace bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(hexVal(s[i+1])<<4 | hexVal(s[i+2]))
			i += 2
		case s[i] == '+' && plusAsSpace:
			b.WriteByte(' ')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// HasTraversal reports whether the decoded path attempts to escape its
// root via ".." segments. This is the sole traversal check; it is
// defined on the already-decoded path so encoded forms (%2e%2e, mixed
// case, etc.) are caught after decoding.
func HasTraversal(decodedPath string) bool {
	switch {
	case decodedPath == "..":
		return true
	case strings.HasPrefix(decodedPath, "../"):
		return true
	case strings.HasSuffix(decodedPath, "/.."):
		return true
	case strings.Contains(decodedPath, "/../"):
		return true
	}
	return false
}

// Normalize decodes, removes "." segments, resolves ".." segments
// (clamped at root), and rejoins, preserving a trailing slash. Callers
// that need a canonical path (not the raw matching path) use this;
// it is not used for the traversal check, which operates on the
// decoded-but-unresolved path.
func Normalize(rawPath string) string {
	decoded := DecodePath(rawPath)
	trailingSlash := strings.HasSuffix(decoded, "/") && decoded != "/"

	segments := strings.Split(decoded, "/")
	var stack []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}

	result := "/" + strings.Join(stack, "/")
	if trailingSlash && result != "/" {
		result += "/"
	}
	if result == "" {
		result = "/"
	}
	return result
}
