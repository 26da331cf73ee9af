package handler

import "github.com/cameriere-di-rete/webserv/internal/conn"

// RedirectHandler implements the location `redirect` directive: always
// completes synchronously.
type RedirectHandler struct {
	Status int
	Target string
}

func (h *RedirectHandler) Start(c *conn.Connection) conn.Result {
	c.Response.Status = h.Status
	c.Response.Reason = ReasonPhrase(h.Status)
	c.Response.Headers.Set("Location", h.Target)
	c.Response.SetContentLength(0)
	c.QueueResponse()
	return conn.ResultDone
}

func (h *RedirectHandler) Resume(c *conn.Connection) conn.Result { return conn.ResultDone }
func (h *RedirectHandler) MonitorFD() int                        { return -1 }
func (h *RedirectHandler) CheckTimeout(c *conn.Connection) bool  { return false }
