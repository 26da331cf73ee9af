// Package iobuf provides memory-efficient byte accumulation with disk
// spilling, used for CGI stdout accumulation. Request bodies are not
// held in it; they stay in an in-memory byte slice.
package iobuf

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/cameriere-di-rete/webserv/internal/httperr"
)

// DefaultMemoryLimit is the default threshold before spilling to disk.
const DefaultMemoryLimit = 4 * 1024 * 1024 // 4MB

// Buffer stores data in memory until a configured limit, then spools
// the remainder to a temp file. Single-threaded callers (the event
// loop) don't need the locking, but the type stays safe for the rare
// case a handler's cleanup runs from a deferred goroutine.
type Buffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	file   *os.File
	path   string
	size   int64
	limit  int64
	closed bool
}

// New creates a Buffer with the given memory limit; limit <= 0 uses
// DefaultMemoryLimit.
func New(limit int64) *Buffer {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &Buffer{limit: limit}
}

// Write appends p, spilling to a temp file once the memory limit is exceeded.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, httperr.NewIOError("write", nil)
	}

	b.size += int64(len(p))

	if b.file == nil && int64(b.buf.Len()+len(p)) <= b.limit {
		return b.buf.Write(p)
	}

	if b.file == nil {
		tmp, err := os.CreateTemp("", "webserv-buffer-*.tmp")
		if err != nil {
			return 0, httperr.NewIOError("create temp file", err)
		}
		b.file = tmp
		b.path = tmp.Name()

		if b.buf.Len() > 0 {
			if _, err := tmp.Write(b.buf.Bytes()); err != nil {
				b.closeLocked()
				return 0, httperr.NewIOError("write temp file", err)
			}
		}
		b.buf.Reset()
	}

	n, err := b.file.Write(p)
	if err != nil {
		return n, httperr.NewIOError("write temp file", err)
	}
	return n, nil
}

// Bytes returns the in-memory data; nil once spilled.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil {
		return nil
	}
	return b.buf.Bytes()
}

// Size returns the total number of bytes written.
func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// IsSpilled reports whether the buffer spilled to disk.
func (b *Buffer) IsSpilled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file != nil
}

// Reader returns a fresh reader over the stored data.
func (b *Buffer) Reader() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, httperr.NewIOError("reader", nil)
	}

	if b.file != nil {
		if err := b.file.Sync(); err != nil {
			return nil, httperr.NewIOError("sync temp file", err)
		}
		f, err := os.Open(b.path)
		if err != nil {
			return nil, httperr.NewIOError("open temp file", err)
		}
		return f, nil
	}
	return io.NopCloser(bytes.NewReader(b.buf.Bytes())), nil
}

// Close releases the backing temp file, if any. Idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

func (b *Buffer) closeLocked() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.file != nil {
		err := b.file.Close()
		if removeErr := os.Remove(b.path); removeErr != nil && err == nil {
			err = httperr.NewIOError("remove temp file", removeErr)
		}
		b.file = nil
		b.path = ""
		if err != nil {
			return httperr.NewIOError("close temp file", err)
		}
	}
	return nil
}
