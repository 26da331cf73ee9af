package handler

import (
	"html"
	"os"
	"strings"

	"github.com/cameriere-di-rete/webserv/internal/conn"
	"github.com/cameriere-di-rete/webserv/internal/constants"
)

// AutoindexHandler generates a directory listing, linking to entries by
// request-URI path rather than by filesystem path (spec.md §4.9: "the
// filesystem location is never exposed").
type AutoindexHandler struct {
	DirPath    string // filesystem directory to list
	RequestURI string // the URI path the listing is served under

	body   []byte
	offset int
}

func (h *AutoindexHandler) Start(c *conn.Connection) conn.Result {
	entries, err := os.ReadDir(h.DirPath)
	if err != nil {
		return writeDefaultError(c, 403)
	}

	base := h.RequestURI
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>Index of ")
	b.WriteString(html.EscapeString(base))
	b.WriteString("</title></head><body>\n<h1>Index of ")
	b.WriteString(html.EscapeString(base))
	b.WriteString("</h1>\n<ul>\n")

	for _, e := range entries {
		if e.Name() == "." {
			continue
		}
		name := e.Name()
		href := name
		label := name
		if e.IsDir() {
			href += "/"
			label += "/"
		}
		b.WriteString(`<li><a href="`)
		b.WriteString(html.EscapeString(base + href))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(label))
		b.WriteString("</a></li>\n")
	}
	b.WriteString("</ul>\n</body></html>\n")

	h.body = []byte(b.String())

	c.Response.Status = 200
	c.Response.Reason = ReasonPhrase(200)
	c.Response.Headers.Set("Content-Type", "text/html; charset=utf-8")
	c.Response.SetContentLength(int64(len(h.body)))

	if len(h.body) <= constants.FileStreamChunk {
		c.Response.Body = h.body
		c.QueueResponse()
		return conn.ResultDone
	}

	c.QueueResponse()
	h.offset = 0
	return h.streamChunk(c)
}

func (h *AutoindexHandler) Resume(c *conn.Connection) conn.Result {
	if h.offset >= len(h.body) {
		return conn.ResultDone
	}
	return h.streamChunk(c)
}

func (h *AutoindexHandler) streamChunk(c *conn.Connection) conn.Result {
	end := h.offset + constants.FileStreamChunk
	if end > len(h.body) {
		end = len(h.body)
	}
	c.AppendToWriteBuffer(h.body[h.offset:end])
	h.offset = end
	if h.offset >= len(h.body) {
		return conn.ResultDone
	}
	return conn.ResultWouldBlock
}

func (h *AutoindexHandler) MonitorFD() int                       { return -1 }
func (h *AutoindexHandler) CheckTimeout(c *conn.Connection) bool { return false }
