package handler

import (
	"os"

	"github.com/cameriere-di-rete/webserv/internal/conn"
	"github.com/cameriere-di-rete/webserv/internal/constants"
	"github.com/cameriere-di-rete/webserv/internal/mimetype"
)

// ErrorFileHandler streams a configured custom error page for Status.
// If the file cannot be opened, it falls back to the default inline
// HTML page rather than failing the connection (spec.md §4.9).
type ErrorFileHandler struct {
	Path   string
	Status int

	file      *os.File
	remaining int64
}

func (h *ErrorFileHandler) Start(c *conn.Connection) conn.Result {
	f, err := os.Open(h.Path)
	if err != nil {
		return writeDefaultError(c, h.Status)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return writeDefaultError(c, h.Status)
	}

	c.Response.Status = h.Status
	c.Response.Reason = ReasonPhrase(h.Status)
	c.Response.Headers.Set("Content-Type", mimetype.ForPath(h.Path))
	c.Response.SetContentLength(info.Size())
	c.QueueResponse()

	h.file = f
	h.remaining = info.Size()
	return h.streamChunk(c)
}

func (h *ErrorFileHandler) Resume(c *conn.Connection) conn.Result {
	if h.file == nil {
		return conn.ResultDone
	}
	return h.streamChunk(c)
}

func (h *ErrorFileHandler) streamChunk(c *conn.Connection) conn.Result {
	if h.remaining <= 0 {
		h.close()
		return conn.ResultDone
	}
	want := int64(constants.FileStreamChunk)
	if want > h.remaining {
		want = h.remaining
	}
	buf := make([]byte, want)
	n, err := h.file.Read(buf)
	if n > 0 {
		c.AppendToWriteBuffer(buf[:n])
		h.remaining -= int64(n)
	}
	if err != nil || h.remaining <= 0 {
		h.close()
		return conn.ResultDone
	}
	return conn.ResultWouldBlock
}

func (h *ErrorFileHandler) close() {
	if h.file != nil {
		h.file.Close()
		h.file = nil
	}
}

func (h *ErrorFileHandler) MonitorFD() int                       { return -1 }
func (h *ErrorFileHandler) CheckTimeout(c *conn.Connection) bool { return false }

// PrepareErrorResponse implements the connection's error-page
// preparation (spec.md §7): if a custom page is configured for status,
// install an ErrorFileHandler; otherwise queue the default inline page
// directly and report Done (no handler needs to remain active).
func PrepareErrorResponse(c *conn.Connection, status int) conn.Result {
	if path, ok := c.ErrorPages[status]; ok && path != "" {
		h := &ErrorFileHandler{Path: path, Status: status}
		c.SetHandler(h)
		return h.Start(c)
	}
	return writeDefaultError(c, status)
}
