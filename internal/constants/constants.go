// Package constants defines magic numbers and default values used throughout webserv.
package constants

import "time"

// Connection lifecycle timeouts.
const (
	// DefaultReadTimeout bounds how long the read phase may last, measured
	// from accept regardless of how much data arrives in the meantime.
	DefaultReadTimeout = 60 * time.Second

	// DefaultWriteTimeout bounds how long the write phase may last,
	// measured from the first queued response byte.
	DefaultWriteTimeout = 60 * time.Second

	// DefaultCGITimeout bounds the wall-clock lifetime of a CGI child,
	// from start() to the first check_timeout() that trips it.
	DefaultCGITimeout = 5 * time.Second

	// EventLoopTick is the maximum time epoll_wait blocks per iteration,
	// so timeout sweeps run even on an idle server.
	EventLoopTick = 1 * time.Second
)

// Buffer and I/O limits.
const (
	// DefaultMaxBody is the built-in max request body size, used only
	// when no location, server, or global directive sets one.
	DefaultMaxBody = 1 * 1024 * 1024 // 1MB

	// BodyUnset is the sentinel distinguishing "inherit from the next
	// level" from an explicit max-body of zero.
	BodyUnset int64 = -1

	// DefaultBodyMemLimit is the in-memory threshold before buffered CGI
	// output spills to a temp file.
	DefaultBodyMemLimit = 4 * 1024 * 1024 // 4MB

	// FileStreamChunk bounds a single read during file, error-page and
	// autoindex streaming, and a single read() from a client socket.
	FileStreamChunk = 64 * 1024

	// CGIReadChunk bounds a single read() from a CGI stdout pipe.
	CGIReadChunk = 4096

	// ListenBacklog is the backlog passed to listen(2).
	ListenBacklog = 128

	// MaxEpollEvents bounds how many ready events epoll_wait reports per tick.
	MaxEpollEvents = 256
)

// UploadFallbackExt is used for POST-to-directory uploads when the
// request carries no Content-Type the MIME table can reverse-map.
const UploadFallbackExt = ".bin"

// ServerIdentity is always sent as the CGI SERVER_NAME; GatewayInterface
// is the CGI GATEWAY_INTERFACE value.
const (
	ServerIdentity  = "webserv"
	GatewayInterface = "CGI/1.1"
)
