package eventloop

import (
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	l, err := New(16, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestWaitReportsReadability(t *testing.T) {
	l := newTestLoop(t)

	r, w, err := unix.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(r)
	defer unix.Close(w)

	if err := l.Add(r, InterestRead); err != nil {
		t.Fatalf("Add: %v", err)
	}

	unix.Write(w, []byte("x"))

	events, err := l.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	found := false
	for _, ev := range events {
		if ev.FD == r {
			found = true
			if !ev.Readable {
				t.Fatalf("expected readable event, got %+v", ev)
			}
		}
	}
	if !found {
		t.Fatalf("expected an event for fd %d, got %+v", r, events)
	}
}

func TestRemoveStopsReporting(t *testing.T) {
	l := newTestLoop(t)

	r, w, err := unix.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(r)
	defer unix.Close(w)

	if err := l.Add(r, InterestRead); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := l.Remove(r); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	unix.Write(w, []byte("x"))

	events, err := l.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	for _, ev := range events {
		if ev.FD == r {
			t.Fatalf("removed fd still reported: %+v", ev)
		}
	}
}

func TestWaitTicksWithoutAnyReadyFD(t *testing.T) {
	l := newTestLoop(t)

	start := time.Now()
	events, err := l.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Wait blocked far longer than its tick bound")
	}
	if len(events) != 0 {
		t.Fatalf("expected no events on an idle loop, got %+v", events)
	}
}

func TestSignalFDReceivesBlockedSignal(t *testing.T) {
	l := newTestLoop(t)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("kill: %v", err)
	}

	events, err := l.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	found := false
	for _, ev := range events {
		if ev.FD == l.SignalFD() {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected signalfd event, got %+v", events)
	}

	buf := make([]byte, unix.SizeofSignalfdSiginfo)
	if _, err := unix.Read(l.SignalFD(), buf); err != nil {
		t.Fatalf("read signalfd: %v", err)
	}
}
