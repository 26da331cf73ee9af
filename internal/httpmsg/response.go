package httpmsg

import (
	"fmt"
	"strconv"
)

// Response is a response message under construction by a handler.
// It is default-empty until a handler populates it.
type Response struct {
	Status  int
	Reason  string
	Headers Headers
	Body    []byte
}

// SetContentLength sets the Content-Length header to n.
func (r *Response) SetContentLength(n int64) {
	r.Headers.Set("Content-Length", strconv.FormatInt(n, 10))
}

// StatusLine renders "HTTP/1.1 200 OK".
func (r Response) StatusLine(version string) string {
	return fmt.Sprintf("%s %d %s", version, r.Status, r.Reason)
}

// Serialize renders the full wire representation: start line, headers,
// blank line, body. If no Connection header was set by a handler, this
// appends "Connection: close" — the core never implements persistent
// connections.
func (r Response) Serialize(version string) []byte {
	if !r.Headers.Has("Connection") {
		r.Headers.Set("Connection", "close")
	}

	var out []byte
	out = append(out, r.StatusLine(version)...)
	out = append(out, "\r\n"...)
	out = append(out, r.Headers.Serialize()...)
	out = append(out, "\r\n"...)
	out = append(out, r.Body...)
	return out
}
