package server

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/cameriere-di-rete/webserv/internal/config"
	"github.com/cameriere-di-rete/webserv/internal/conn"
	"github.com/cameriere-di-rete/webserv/internal/constants"
	"github.com/cameriere-di-rete/webserv/internal/eventloop"
	"github.com/cameriere-di-rete/webserv/internal/handler"
	"github.com/cameriere-di-rete/webserv/internal/route"
	"github.com/cameriere-di-rete/webserv/internal/uri"
)

// listenerEntry is one bound, listening socket and the server block it serves.
type listenerEntry struct {
	fd  int
	cfg config.ServerConfig
}

// connEntry is the server-side bookkeeping kept alongside a Connection:
// which listener accepted it and, once headers are parsed, the location
// matched against its request.
type connEntry struct {
	c         *conn.Connection
	srv       *config.ServerConfig
	eff       config.Effective
	effDone   bool
	monitorFD int // the CGI FD currently registered on this connection's behalf, or -1
}

// ServerManager owns the readiness multiplexer, every listening and
// accepted socket, and the three independent timeout sweeps of
// spec.md §5. It is single-threaded: Run never spawns a goroutine.
type ServerManager struct {
	loop   *eventloop.Loop
	listen []listenerEntry
	root   config.Root
	log    zerolog.Logger

	byFD        map[int]*connEntry // socket fd -> connection
	listenSet   map[int]bool
	monitorToFD map[int]int // CGI monitor fd -> owning connection's socket fd

	stopping bool
}

// New binds a listening socket for every server block in root and
// constructs the idle ServerManager. Call Run to start serving.
func New(root config.Root, log zerolog.Logger) (*ServerManager, error) {
	loop, err := eventloop.New(constants.MaxEpollEvents, constants.EventLoopTick)
	if err != nil {
		return nil, err
	}

	m := &ServerManager{
		loop:        loop,
		root:        root,
		log:         log,
		byFD:        make(map[int]*connEntry),
		listenSet:   make(map[int]bool),
		monitorToFD: make(map[int]int),
	}

	for _, srv := range root.Servers {
		fd, err := listen(srv.Listen)
		if err != nil {
			m.Close()
			return nil, err
		}
		if err := loop.Add(fd, eventloop.InterestRead); err != nil {
			m.Close()
			return nil, err
		}
		m.listen = append(m.listen, listenerEntry{fd: fd, cfg: srv})
		m.listenSet[fd] = true
		log.Info().Str("addr", srv.Listen.String()).Msg("listening")
	}

	return m, nil
}

// Close releases every socket and the multiplexer itself.
func (m *ServerManager) Close() {
	for fd := range m.byFD {
		unix.Close(fd)
	}
	for _, l := range m.listen {
		unix.Close(l.fd)
	}
	if m.loop != nil {
		m.loop.Close()
	}
}

// Run drives the event loop until SIGINT/SIGTERM is observed on the
// multiplexer's signalfd.
func (m *ServerManager) Run() error {
	for !m.stopping {
		if err := m.runTick(); err != nil {
			return err
		}
	}
	m.log.Info().Msg("shutdown signal received, closing listeners")
	return nil
}

// runTick waits for one batch of readiness events, processes each, and
// runs the timeout sweep. Split out from Run so tests can drive the
// loop deterministically without a signal-triggered exit.
func (m *ServerManager) runTick() error {
	events, err := m.loop.Wait()
	if err != nil {
		return err
	}
	for _, ev := range events {
		m.dispatchEvent(ev)
	}
	m.sweepTimeouts()
	return nil
}

func (m *ServerManager) dispatchEvent(ev eventloop.Event) {
	switch {
	case ev.FD == m.loop.SignalFD():
		m.drainSignal()
	case m.listenSet[ev.FD]:
		m.acceptLoop(ev.FD)
	default:
		if ownerFD, ok := m.monitorToFD[ev.FD]; ok {
			m.handleCGIReadable(ownerFD)
			return
		}
		entry, ok := m.byFD[ev.FD]
		if !ok {
			return
		}
		if ev.HangupErr {
			m.teardown(entry, "hangup")
			return
		}
		if ev.Readable {
			m.handleReadable(entry)
		}
		if ev.Writable {
			if e, stillOpen := m.byFD[ev.FD]; stillOpen {
				m.processWritable(e)
			}
		}
	}
}

func (m *ServerManager) drainSignal() {
	buf := make([]byte, unix.SizeofSignalfdSiginfo)
	if _, err := unix.Read(m.loop.SignalFD(), buf); err != nil && err != unix.EAGAIN {
		m.log.Warn().Err(err).Msg("error reading signalfd")
	}
	m.stopping = true
}

func (m *ServerManager) acceptLoop(listenFD int) {
	var srv *config.ServerConfig
	for i := range m.listen {
		if m.listen[i].fd == listenFD {
			srv = &m.listen[i].cfg
			break
		}
	}
	for {
		fd, sa, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK)
		if err != nil {
			if err != unix.EAGAIN {
				m.log.Warn().Err(err).Msg("accept failed")
			}
			return
		}
		remote := remoteAddrString(sa)
		c := conn.New(fd, listenFD, remote)
		if err := m.loop.Add(fd, eventloop.InterestRead); err != nil {
			unix.Close(fd)
			continue
		}
		m.byFD[fd] = &connEntry{c: c, srv: srv, monitorFD: -1}
	}
}

func (m *ServerManager) handleReadable(entry *connEntry) {
	if entry.c.ActiveHandler != nil {
		// A handler already owns this request; further readability
		// on the socket (e.g. the peer closing early) is not progress.
		return
	}

	buf := make([]byte, constants.FileStreamChunk)
	n, err := unix.Read(entry.c.FD, buf)
	if n == 0 && err == nil {
		m.teardown(entry, "peer closed")
		return
	}
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		m.teardown(entry, "read error")
		return
	}
	entry.c.AppendRead(buf[:n])

	if !entry.c.HeadersParsed {
		ok, perr := entry.c.TryParseHeaders()
		if perr != nil {
			entry.c.ErrorPages = entry.srv.ErrorPages
			m.installError(entry, 400)
			return
		}
		if !ok {
			return
		}
		m.resolveLocation(entry)
	}

	m.advanceRequest(entry)
}

// resolveLocation matches the parsed request against its server's
// locations exactly once, wiring the connection's MaxBody and
// ErrorPages from the result (spec.md §4.5, §4.6).
func (m *ServerManager) resolveLocation(entry *connEntry) {
	if entry.effDone {
		return
	}
	if !entry.c.Request.URIOk {
		entry.c.ErrorPages = entry.srv.ErrorPages
		entry.effDone = true
		return
	}
	decoded := uri.DecodePath(entry.c.Request.URI.Path)
	eff := config.SelectLocation(*entry.srv, decoded)
	eff.MaxBody = config.EffectiveMaxBody(eff.MaxBody, entry.srv.MaxBody, m.root.GlobalMaxBody, constants.DefaultMaxBody)
	entry.eff = eff
	entry.effDone = true
	entry.c.ErrorPages = eff.ErrorPages
	entry.c.MaxBody = eff.MaxBody
}

// advanceRequest re-validates the request against its resolved location
// every time more body bytes arrive, dispatching once the request body
// (if any) is fully buffered (spec.md §4.6 steps 5-6, §4.8).
func (m *ServerManager) advanceRequest(entry *connEntry) {
	if entry.c.ActiveHandler != nil {
		return
	}
	if !entry.c.Request.URIOk {
		m.installError(entry, 400)
		return
	}

	outcome := route.Validate(entry.c, entry.eff)
	if outcome.Status != 0 {
		if outcome.Status == 405 {
			entry.c.Response.Headers.Set("Allow", strings.Join(outcome.Allow, ", "))
		}
		m.installError(entry, outcome.Status)
		return
	}

	if cl, present, _ := entry.c.Request.ContentLength(); present {
		if int64(entry.c.BufferedBodyLen()) < cl {
			return // more body bytes still to arrive
		}
	}

	res := handler.Dispatch(entry.c, entry.eff, entry.srv.Listen.Port)
	m.afterHandlerStep(entry, res)
}

func (m *ServerManager) installError(entry *connEntry, status int) {
	res := handler.PrepareErrorResponse(entry.c, status)
	m.afterHandlerStep(entry, res)
}

// afterHandlerStep reacts to a Start/Resume result: registers a CGI
// monitor FD and flips the socket to write-interest once a response is
// queued; on any result other than WouldBlock it also clears the
// handler and its monitor FD. The connection itself is finished later,
// by processWritable, once the write buffer drains.
func (m *ServerManager) afterHandlerStep(entry *connEntry, res conn.Result) {
	if h := entry.c.ActiveHandler; h != nil {
		if fd := h.MonitorFD(); fd >= 0 && fd != entry.monitorFD {
			if entry.monitorFD >= 0 {
				m.loop.Remove(entry.monitorFD)
				delete(m.monitorToFD, entry.monitorFD)
			}
			if err := m.loop.Add(fd, eventloop.InterestRead); err == nil {
				entry.monitorFD = fd
				m.monitorToFD[fd] = entry.c.FD
			}
		}
	}

	if res == conn.ResultWouldBlock {
		// Waiting on either the CGI monitor FD or a future Resume call
		// triggered by socket writability; nothing queued yet either way.
		if len(entry.c.PendingWrite()) > 0 {
			m.loop.Modify(entry.c.FD, eventloop.InterestWrite)
		}
		return
	}

	entry.c.ClearHandler()
	m.clearMonitor(entry)
	m.loop.Modify(entry.c.FD, eventloop.InterestWrite)
}

func (m *ServerManager) handleCGIReadable(socketFD int) {
	entry, ok := m.byFD[socketFD]
	if !ok || entry.c.ActiveHandler == nil {
		return
	}
	res := entry.c.ActiveHandler.Resume(entry.c)
	m.afterHandlerStep(entry, res)
}

func (m *ServerManager) processWritable(entry *connEntry) {
	for {
		pending := entry.c.PendingWrite()
		if len(pending) > 0 {
			n, err := unix.Write(entry.c.FD, pending)
			if err != nil {
				if err == unix.EAGAIN {
					return
				}
				m.teardown(entry, "write error")
				return
			}
			entry.c.Advance(n)
			if n < len(pending) {
				return // partial write, wait for the next writable event
			}
			continue
		}

		if entry.c.ActiveHandler == nil {
			m.finishResponse(entry)
			return
		}
		if entry.c.ActiveHandler.MonitorFD() >= 0 {
			return // further progress arrives via the CGI monitor FD
		}

		res := entry.c.ActiveHandler.Resume(entry.c)
		if res == conn.ResultDone {
			entry.c.ClearHandler()
			m.finishResponse(entry)
			return
		}
		if len(entry.c.PendingWrite()) == 0 {
			return
		}
	}
}

func (m *ServerManager) clearMonitor(entry *connEntry) {
	if entry.monitorFD >= 0 {
		m.loop.Remove(entry.monitorFD)
		delete(m.monitorToFD, entry.monitorFD)
		entry.monitorFD = -1
	}
}

// finishResponse logs the completed exchange and closes the connection;
// this server never keeps a connection alive past one response
// (spec.md §4 Non-goals: no persistent connections).
func (m *ServerManager) finishResponse(entry *connEntry) {
	m.logAccess(entry)
	m.teardown(entry, "")
}

func (m *ServerManager) teardown(entry *connEntry, reason string) {
	m.clearMonitor(entry)
	m.loop.Remove(entry.c.FD)
	unix.Close(entry.c.FD)
	delete(m.byFD, entry.c.FD)
	if reason != "" {
		m.log.Debug().Str("remote", entry.c.RemoteAddr).Str("reason", reason).Msg("connection closed")
	}
}

func (m *ServerManager) logAccess(entry *connEntry) {
	m.log.Info().
		Str("remote", entry.c.RemoteAddr).
		Str("method", entry.c.Request.Method).
		Str("target", entry.c.Request.Target).
		Str("version", entry.c.Request.Version).
		Int("status", entry.c.Response.Status).
		Int("bytes", entry.c.BytesWritten()).
		Msg("request")
}

// sweepTimeouts enforces the three independent timeout budgets of
// spec.md §5 once per tick, outside event processing so a timed-out
// connection's teardown never mutates the event slice mid-iteration. A
// CGI timeout kills the child, drops its monitor FD and installs a 504;
// a read timeout with no response queued yet gets a 408 instead of a
// bare close (spec.md §5, §7); a write timeout has no well-formed
// response left to send and just tears the connection down.
func (m *ServerManager) sweepTimeouts() {
	var timedOut []*connEntry
	var readTimedOut []*connEntry
	for _, entry := range m.byFD {
		switch {
		case entry.c.ActiveHandler != nil && entry.c.ActiveHandler.CheckTimeout(entry.c):
			if killer, ok := entry.c.ActiveHandler.(interface{ Kill() }); ok {
				killer.Kill()
			}
			entry.c.ClearHandler()
			m.clearMonitor(entry)
			m.installError(entry, 504)
		case entry.c.ActiveHandler == nil && !entry.c.Phase.WriteStarted() && entry.c.Phase.ReadElapsed() > constants.DefaultReadTimeout:
			readTimedOut = append(readTimedOut, entry)
		case entry.c.Phase.WriteStarted() && entry.c.Phase.WriteElapsed() > constants.DefaultWriteTimeout:
			timedOut = append(timedOut, entry)
		}
	}
	for _, entry := range readTimedOut {
		m.installError(entry, 408)
	}
	for _, entry := range timedOut {
		m.teardown(entry, "timeout")
	}
}

func remoteAddrString(sa unix.Sockaddr) string {
	inet4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "unknown"
	}
	a := inet4.Addr
	return fmt.Sprintf("%d.%d.%d.%d:%d", a[0], a[1], a[2], a[3], inet4.Port)
}
