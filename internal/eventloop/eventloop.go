// Package eventloop wraps epoll and signalfd into a single readiness
// multiplexer, modeled on the update_events / epoll_wait loop shape
// (spec.md §5's single-threaded, readiness-driven scheduling model).
// Registrations are level-triggered: EPOLLET is never set.
package eventloop

import (
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cameriere-di-rete/webserv/internal/httperr"
)

// Interest is the readiness a registered FD is watched for.
type Interest uint32

const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

func (i Interest) toEpollMask() uint32 {
	var mask uint32
	if i&InterestRead != 0 {
		mask |= unix.EPOLLIN
	}
	if i&InterestWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	return mask
}

// Event is one readiness notification returned from a Wait call.
type Event struct {
	FD        int
	Readable  bool
	Writable  bool
	HangupErr bool
}

// Loop owns the epoll instance and the signalfd used for SIGINT/SIGTERM
// delivery (spec.md §5: "all wake-ups routed through the multiplexer").
type Loop struct {
	epfd      int
	signalFD  int
	tickEvery time.Duration
	events    []unix.EpollEvent
}

// New creates an epoll instance, blocks SIGINT/SIGTERM at process scope,
// opens a signalfd for them, and ignores SIGPIPE so failed writes
// surface as EPIPE rather than terminating the process.
func New(maxEvents int, tick time.Duration) (*Loop, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, httperr.NewIOError("epoll_create1", err)
	}

	var mask unix.Sigset_t
	mask.Val[0] = sigmask(unix.SIGINT) | sigmask(unix.SIGTERM)
	if err := unix.SigprocMask(unix.SIG_BLOCK, &mask, nil); err != nil {
		unix.Close(epfd)
		return nil, httperr.NewIOError("sigprocmask", err)
	}

	sigFD, err := unix.Signalfd(-1, &mask, unix.SFD_NONBLOCK|unix.SFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, httperr.NewIOError("signalfd", err)
	}

	signal.Ignore(syscall.SIGPIPE)

	l := &Loop{
		epfd:      epfd,
		signalFD:  sigFD,
		tickEvery: tick,
		events:    make([]unix.EpollEvent, maxEvents),
	}
	if err := l.addFD(sigFD, InterestRead); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// SignalFD returns the signalfd this loop registered, so callers can
// recognize it among readiness events and read+interpret it themselves.
func (l *Loop) SignalFD() int { return l.signalFD }

func (l *Loop) addFD(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: interest.toEpollMask(), Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return httperr.NewIOError("epoll_ctl add", err)
	}
	return nil
}

// Add registers fd for the given interest. Mirrors update_events'
// add-or-modify behavior by trying MOD first would require tracking
// membership; this server always calls Add exactly once per live fd.
func (l *Loop) Add(fd int, interest Interest) error {
	return l.addFD(fd, interest)
}

// Modify changes the interest set for an already-registered fd.
func (l *Loop) Modify(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: interest.toEpollMask(), Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return httperr.NewIOError("epoll_ctl mod", err)
	}
	return nil
}

// Remove deregisters fd. Safe to call on an fd already removed by the
// kernel (e.g. because it was closed) — ENOENT is not an error here.
func (l *Loop) Remove(fd int) error {
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && err != unix.ENOENT {
		return httperr.NewIOError("epoll_ctl del", err)
	}
	return nil
}

// Wait blocks for up to tickEvery (spec.md §5: at most 1 second, so
// timeout sweeps run even on an idle server) and returns the ready
// events, translated out of the kernel's bitmask representation.
func (l *Loop) Wait() ([]Event, error) {
	n, err := unix.EpollWait(l.epfd, l.events, int(l.tickEvery/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, httperr.NewIOError("epoll_wait", err)
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		e := l.events[i]
		out = append(out, Event{
			FD:        int(e.Fd),
			Readable:  e.Events&unix.EPOLLIN != 0,
			Writable:  e.Events&unix.EPOLLOUT != 0,
			HangupErr: e.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0,
		})
	}
	return out, nil
}

// Close releases the epoll and signalfd descriptors.
func (l *Loop) Close() error {
	unix.Close(l.signalFD)
	return unix.Close(l.epfd)
}

func sigmask(sig unix.Signal) uint64 {
	return 1 << (uint(sig) - 1)
}
