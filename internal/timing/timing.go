// Package timing provides phase-timestamp tracking for connections and
// CGI subprocesses, used by the event loop's timeout sweep.
package timing

import "time"

// Phase tracks the three independent timers spec.md §5 requires: read
// phase (from accept), write phase (from first queued byte), and CGI
// phase (from CGI start). A zero time.Time means the phase has not begun.
type Phase struct {
	readStart  time.Time
	writeStart time.Time
	cgiStart   time.Time
}

// NewPhase returns a Phase with the read phase started now, matching
// connection-accept semantics.
func NewPhase() Phase {
	return Phase{readStart: time.Now()}
}

// StartWrite marks the beginning of the write phase, if not already started.
func (p *Phase) StartWrite() {
	if p.writeStart.IsZero() {
		p.writeStart = time.Now()
	}
}

// StartCGI marks the beginning of the CGI phase.
func (p *Phase) StartCGI() {
	p.cgiStart = time.Now()
}

// ReadElapsed returns time since the read phase began.
func (p Phase) ReadElapsed() time.Duration {
	if p.readStart.IsZero() {
		return 0
	}
	return time.Since(p.readStart)
}

// WriteElapsed returns time since the write phase began, or 0 if unstarted.
func (p Phase) WriteElapsed() time.Duration {
	if p.writeStart.IsZero() {
		return 0
	}
	return time.Since(p.writeStart)
}

// CGIElapsed returns time since the CGI phase began, or 0 if unstarted.
func (p Phase) CGIElapsed() time.Duration {
	if p.cgiStart.IsZero() {
		return 0
	}
	return time.Since(p.cgiStart)
}

// WriteStarted reports whether a write phase has begun.
func (p Phase) WriteStarted() bool {
	return !p.writeStart.IsZero()
}
