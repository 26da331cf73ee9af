package route

import (
	"os"
	"path"
	"strings"

	"github.com/cameriere-di-rete/webserv/internal/config"
	"github.com/cameriere-di-rete/webserv/internal/uri"
)

// Resolved is the outcome of resolving a request path against an
// effective location's filesystem root.
type Resolved struct {
	// FSPath is the filesystem path ultimately selected: the resolved
	// target itself, or its chosen index file when the target is a
	// directory serving one.
	FSPath string

	// IsDir reports whether the resolved target is a directory for which
	// no index file was selected; a directory served through an index
	// file reports false.
	IsDir bool

	// DirWithoutIndex reports a directory resolved target with no usable
	// index file found; callers decide per dispatch priority (autoindex,
	// 403, or directory-upload handling) what to do with it.
	DirWithoutIndex bool
}

// Resolve implements spec.md §4.7 path resolution for a single effective
// location and decoded request path.
func Resolve(eff config.Effective, requestPath string) (Resolved, Outcome) {
	root := eff.Root
	if eff.CGI != nil && eff.CGI.Root != "" {
		root = eff.CGI.Root
	}
	if root == "" {
		return Resolved{}, Outcome{Status: 500}
	}

	decoded := uri.DecodePath(requestPath)
	rel := strings.TrimPrefix(decoded, eff.Path)
	if rel == "" {
		rel = "/"
	}

	target := joinSeam(root, rel)

	info, err := os.Stat(target)
	if err != nil {
		if strings.HasSuffix(decoded, "/") {
			return Resolved{}, Outcome{Status: 404}
		}
		return Resolved{FSPath: target}, ok()
	}

	if !info.IsDir() {
		if strings.HasSuffix(decoded, "/") {
			return Resolved{}, Outcome{Status: 404}
		}
		return Resolved{FSPath: target}, ok()
	}

	for _, idx := range eff.Index {
		candidate := joinSeam(target, idx)
		if ci, err := os.Stat(candidate); err == nil && ci.Mode().IsRegular() {
			return Resolved{FSPath: candidate}, ok()
		}
	}

	return Resolved{FSPath: target, IsDir: true, DirWithoutIndex: true}, ok()
}

// joinSeam concatenates a root and a relative path, normalizing to
// exactly one slash at the seam.
func joinSeam(root, rel string) string {
	if root == "" {
		return rel
	}
	return path.Join(root, rel)
}
