package httpmsg

import (
	"strconv"
	"strings"

	"github.com/cameriere-di-rete/webserv/internal/httperr"
	"github.com/cameriere-di-rete/webserv/internal/uri"
)

// Request is a fully or partially parsed HTTP request message.
type Request struct {
	Method  string
	Target  string // raw request-target as received
	Version string
	URI     uri.URI
	URIOk   bool // false if the request-target failed to parse
	Headers Headers
	Cookies map[string]string
	Body    []byte
}

// ParseStartAndHeaders parses the start line and header lines from the
// CRLF-split (tolerating lone LF) header region of a request. It does
// not touch the body.
func ParseStartAndHeaders(headerLines []string) (Request, bool) {
	var req Request
	if len(headerLines) == 0 {
		return req, false
	}

	parts := strings.SplitN(headerLines[0], " ", 3)
	if len(parts) != 3 {
		return req, false
	}
	req.Method = parts[0]
	req.Target = parts[1]
	req.Version = parts[2]

	req.URI, req.URIOk = uri.Parse(req.Target)

	for _, line := range headerLines[1:] {
		if line == "" {
			continue
		}
		name, value, ok := ParseLine(line)
		if !ok {
			continue
		}
		req.Headers.Add(name, value)
		if strings.EqualFold(name, "Cookie") {
			req.Cookies = parseCookieHeader(value, req.Cookies)
		}
	}
	return req, true
}

func parseCookieHeader(value string, into map[string]string) map[string]string {
	if into == nil {
		into = make(map[string]string)
	}
	for _, part := range strings.Split(value, ";") {
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		name := strings.TrimSpace(part[:eq])
		val := strings.TrimSpace(part[eq+1:])
		into[name] = val // last occurrence wins
	}
	return into
}

// ContentLength parses the Content-Length header, if present.
// present=false means no header. err != nil means malformed (non-numeric
// or negative).
func (r Request) ContentLength() (n int64, present bool, err error) {
	v, ok := r.Headers.Get("Content-Length")
	if !ok {
		return 0, false, nil
	}
	n, convErr := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if convErr != nil {
		return 0, true, convErr
	}
	if n < 0 {
		return 0, true, httperr.NewParseError("content-length", "negative Content-Length", nil)
	}
	return n, true, nil
}

// SplitHeaderLines splits the header-region bytes on CRLF, tolerating a
// lone LF, dropping a single trailing empty element (the blank line
// before the body).
func SplitHeaderLines(headerRegion []byte) []string {
	s := string(headerRegion)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
