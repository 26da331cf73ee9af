package iobuf

import (
	"io"
	"testing"
)

func TestBufferMemoryLimit(t *testing.T) {
	buf := New(10)
	defer buf.Close()

	if _, err := buf.Write([]byte("small")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.IsSpilled() {
		t.Fatalf("expected data in memory")
	}
	if buf.Bytes() == nil {
		t.Fatalf("expected data in memory")
	}

	data2 := []byte("this is much larger data that exceeds the limit")
	if _, err := buf.Write(data2); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !buf.IsSpilled() {
		t.Fatalf("expected data to spill to disk")
	}
	if buf.Bytes() != nil {
		t.Fatalf("expected no data in memory after spill")
	}

	want := int64(len("small") + len(data2))
	if buf.Size() != want {
		t.Fatalf("expected size %d, got %d", want, buf.Size())
	}
}

func TestBufferReader(t *testing.T) {
	buf := New(1024)
	defer buf.Close()

	want := []byte("test data for reader")
	if _, err := buf.Write(want); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	r, err := buf.Reader()
	if err != nil {
		t.Fatalf("reader failed: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBufferCloseIdempotent(t *testing.T) {
	buf := New(1)
	if _, err := buf.Write([]byte("spills past one byte")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := buf.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := buf.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if _, err := buf.Write([]byte("x")); err == nil {
		t.Fatalf("expected write after close to fail")
	}
}
