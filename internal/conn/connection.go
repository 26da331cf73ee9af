// Package conn models a single accepted socket: its read/write buffers,
// the request being parsed off it, the response being built for it, and
// the handler currently responsible for completing it.
package conn

import (
	"github.com/cameriere-di-rete/webserv/internal/constants"
	"github.com/cameriere-di-rete/webserv/internal/httperr"
	"github.com/cameriere-di-rete/webserv/internal/httpmsg"
	"github.com/cameriere-di-rete/webserv/internal/timing"
)

// Result is the outcome of a Handler's Start/Resume call.
type Result int

const (
	// ResultDone means the response is fully materialized in the write buffer.
	ResultDone Result = iota
	// ResultWouldBlock means partial progress; resume on the next readiness event.
	ResultWouldBlock
	// ResultError means the handler failed; the caller installs a 500
	// unless the handler already replaced itself with another handler.
	ResultError
)

// Handler is the uniform contract every response-producing strategy
// implements: redirect, static file, autoindex, CGI, error file.
type Handler interface {
	// Start begins producing a response for conn. It may transfer
	// ownership of conn to a different handler (e.g. a CGI timeout
	// installing an error-page file streamer); callers must re-read
	// conn's active handler after Start returns rather than assume it
	// is still the one they invoked.
	Start(c *Connection) Result

	// Resume continues a WOULD_BLOCK'd handler after a readiness event
	// on the connection's socket or on MonitorFD.
	Resume(c *Connection) Result

	// MonitorFD returns an auxiliary FD the event loop should watch for
	// readability (a CGI stdout pipe), or -1 if none.
	MonitorFD() int

	// CheckTimeout reports whether this handler's own wall-clock budget
	// has been exceeded (only CGI has one); false for all other handlers.
	CheckTimeout(c *Connection) bool
}

// Connection is per-socket state. Exactly one handler owns completion
// of any one request; when cleared, the connection is inert and ready
// for its socket to be closed.
type Connection struct {
	FD         int
	ListenFD   int // the listening socket that accepted this connection
	RemoteAddr string
	TraceID    string

	readBuf       []byte
	HeadersParsed bool

	Request  httpmsg.Request
	Response httpmsg.Response

	writeBuf []byte
	writeOff int

	ActiveHandler Handler
	ErrorPages    map[int]string
	MaxBody       int64

	Phase timing.Phase

	// HTTPVersion is copied from Request.Version once parsed; serialization
	// uses it even after the handler clears other Request state.
	HTTPVersion string
}

// New creates a Connection for a freshly accepted socket, starting its
// read-phase timer.
func New(fd, listenFD int, remoteAddr string) *Connection {
	return &Connection{
		FD:          fd,
		ListenFD:    listenFD,
		RemoteAddr:  remoteAddr,
		MaxBody:     constants.BodyUnset,
		Phase:       timing.NewPhase(),
		HTTPVersion: "HTTP/1.1",
	}
}

// AppendRead feeds newly-read bytes into the connection: into the raw
// header buffer before headers are parsed, directly into the request
// body afterward.
func (c *Connection) AppendRead(p []byte) {
	if c.HeadersParsed {
		c.Request.Body = append(c.Request.Body, p...)
		return
	}
	c.readBuf = append(c.readBuf, p...)
}

// BufferedBodyLen returns how many body bytes have been buffered so far.
func (c *Connection) BufferedBodyLen() int {
	return len(c.Request.Body)
}

// TryParseHeaders looks for the header-section terminator (CRLFCRLF,
// tolerating a lone LF) in the raw buffer and, once found, parses the
// start line and headers and moves any already-buffered body bytes
// into the request. Returns true once headers are parsed; idempotent
// after the first success. Returns ok=false, err=non-nil on a malformed
// start line.
func (c *Connection) TryParseHeaders() (ok bool, err error) {
	if c.HeadersParsed {
		return true, nil
	}
	end, termLen, found := findHeaderTerminator(c.readBuf)
	if !found {
		return false, nil
	}

	headerRegion := c.readBuf[:end]
	lines := httpmsg.SplitHeaderLines(headerRegion)
	req, parsed := httpmsg.ParseStartAndHeaders(lines)
	if !parsed {
		return false, httperr.NewParseError("start-line", "malformed request start line", nil)
	}

	leftover := c.readBuf[end+termLen:]
	req.Body = append(req.Body, leftover...)

	c.Request = req
	c.HTTPVersion = req.Version
	c.HeadersParsed = true
	c.readBuf = nil
	return true, nil
}

// findHeaderTerminator returns the offset of the start of the blank
// line separating headers from body, and the terminator's length (4
// for CRLFCRLF, 3 for CRLF followed by a lone LF, 2 for a lone LFLF).
func findHeaderTerminator(buf []byte) (end, termLen int, ok bool) {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == '\n' && buf[i+1] == '\n' {
			// Lone-LF doubled blank line; back up over a trailing CR if present.
			if i > 0 && buf[i-1] == '\r' {
				return i - 1, 3, true
			}
			return i, 2, true
		}
		if i+3 < len(buf) && buf[i] == '\r' && buf[i+1] == '\n' && buf[i+2] == '\r' && buf[i+3] == '\n' {
			return i, 4, true
		}
	}
	return 0, 0, false
}

// QueueResponse serializes Response onto the write buffer and starts
// the write-phase timer.
func (c *Connection) QueueResponse() {
	c.writeBuf = c.Response.Serialize(c.HTTPVersion)
	c.writeOff = 0
	c.Phase.StartWrite()
}

// PendingWrite returns the not-yet-written tail of the write buffer.
func (c *Connection) PendingWrite() []byte {
	if c.writeOff >= len(c.writeBuf) {
		return nil
	}
	return c.writeBuf[c.writeOff:]
}

// Advance records n more bytes written.
func (c *Connection) Advance(n int) {
	c.writeOff += n
}

// WriteDone reports whether the entire write buffer has been flushed.
func (c *Connection) WriteDone() bool {
	return c.writeOff >= len(c.writeBuf)
}

// BytesWritten returns the total bytes written to the socket so far,
// for access logging.
func (c *Connection) BytesWritten() int {
	return c.writeOff
}

// AppendToWriteBuffer appends streamed bytes directly (used by handlers
// that produce output incrementally, e.g. file, error-page or autoindex
// streaming).
func (c *Connection) AppendToWriteBuffer(p []byte) {
	c.writeBuf = append(c.writeBuf, p...)
}

// SetHandler installs h as the active handler.
func (c *Connection) SetHandler(h Handler) {
	c.ActiveHandler = h
}

// ClearHandler detaches the active handler without invoking any cleanup;
// callers that need cleanup (closing a monitor FD) must do so first.
func (c *Connection) ClearHandler() {
	c.ActiveHandler = nil
}
