// Package server implements ServerManager: the readiness multiplexer
// owner that accepts connections, drives the request pipeline, and
// enforces the three independent timeout sweeps of spec.md §5.
package server

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/cameriere-di-rete/webserv/internal/config"
	"github.com/cameriere-di-rete/webserv/internal/constants"
	"github.com/cameriere-di-rete/webserv/internal/httperr"
)

// listen creates a non-blocking IPv4 TCP listening socket bound to
// addr, with SO_REUSEADDR set for quick restart (spec.md §6).
func listen(addr config.ListenAddress) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, httperr.NewIOError("socket", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, httperr.NewIOError("setsockopt SO_REUSEADDR", err)
	}

	sa, err := sockaddrFor(addr)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, httperr.NewIOError("bind "+addr.String(), err)
	}
	if err := unix.Listen(fd, constants.ListenBacklog); err != nil {
		unix.Close(fd)
		return -1, httperr.NewIOError("listen", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, httperr.NewIOError("set_nonblock listen fd", err)
	}
	return fd, nil
}

func sockaddrFor(addr config.ListenAddress) (unix.Sockaddr, error) {
	sa := &unix.SockaddrInet4{Port: addr.Port}
	ip, err := parseIPv4(addr.IP)
	if err != nil {
		return nil, err
	}
	sa.Addr = ip
	return sa, nil
}

func parseIPv4(s string) ([4]byte, error) {
	var out [4]byte
	if s == "" || s == "0.0.0.0" {
		return out, nil
	}
	var a, b, c, d int
	n, err := fmt.Sscanf(s, "%d.%d.%d.%d", &a, &b, &c, &d)
	if err != nil || n != 4 {
		return out, httperr.NewConfigError("invalid listen IP " + s)
	}
	out[0], out[1], out[2], out[3] = byte(a), byte(b), byte(c), byte(d)
	return out, nil
}
