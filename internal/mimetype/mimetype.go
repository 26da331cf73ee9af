// Package mimetype maps filename extensions to content-type strings and
// back. It is a pure, read-only lookup table.
package mimetype

import "strings"

var extToType = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".mjs":  "application/javascript; charset=utf-8",
	".json": "application/json",
	".txt":  "text/plain; charset=utf-8",
	".xml":  "application/xml",
	".csv":  "text/csv; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".wasm": "application/wasm",
	".woff": "font/woff",
	".woff2": "font/woff2",
}

// DefaultType is used for unrecognized extensions.
const DefaultType = "application/octet-stream"

// ForPath returns the content-type for a filesystem or URI path, based
// on its extension, falling back to DefaultType.
func ForPath(path string) string {
	ext := extOf(path)
	if t, ok := extToType[ext]; ok {
		return t
	}
	return DefaultType
}

// ExtensionForType reverse-maps a Content-Type (ignoring parameters
// like charset) to a filename extension. ok=false means no extension
// is known for that type, and callers should use a generic fallback.
func ExtensionForType(contentType string) (ext string, ok bool) {
	base := contentType
	if si := strings.IndexByte(base, ';'); si != -1 {
		base = base[:si]
	}
	base = strings.TrimSpace(base)
	for e, t := range extToType {
		tBase, _, _ := strings.Cut(t, ";")
		if strings.EqualFold(strings.TrimSpace(tBase), base) {
			return e, true
		}
	}
	return "", false
}

func extOf(path string) string {
	dot := strings.LastIndexByte(path, '.')
	slash := strings.LastIndexByte(path, '/')
	if dot == -1 || dot < slash {
		return ""
	}
	return strings.ToLower(path[dot:])
}
