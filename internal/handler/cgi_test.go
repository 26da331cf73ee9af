package handler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cameriere-di-rete/webserv/internal/conn"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

// runToDone drives a handler's Resume loop until it reports Done,
// simulating the event loop without an actual epoll instance.
func runToDone(t *testing.T, c *conn.Connection, h conn.Handler, first conn.Result) {
	t.Helper()
	res := first
	for i := 0; res == conn.ResultWouldBlock && i < 100000; i++ {
		res = h.Resume(c)
	}
	if res != conn.ResultDone {
		t.Fatalf("handler never completed, last result %v", res)
	}
}

func TestCgiHandlerEchoesHeadersAndBody(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "echo.sh", "#!/bin/sh\nprintf 'Content-Type: text/plain\\r\\n\\r\\nHELLO\\n'\n")

	c := newConn()
	c.Request.Method = "GET"
	h := &CgiHandler{
		ScriptPath: script,
		Extensions: map[string]bool{".sh": true},
		Method:     "GET",
		RequestURI: "/cgi-bin/echo.sh",
	}
	res := h.Start(c)
	if res != conn.ResultWouldBlock {
		t.Fatalf("expected WouldBlock after fork, got %v", res)
	}
	runToDone(t, c, h, res)

	if c.Response.Status != 200 {
		t.Fatalf("got status %d", c.Response.Status)
	}
	out := string(drain(c))
	if !strings.Contains(out, "HELLO") {
		t.Fatalf("got %q", out)
	}
}

func TestCgiHandlerStatusHeaderOverridesCode(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fail.sh", "#!/bin/sh\nprintf 'Status: 404 Not Found\\r\\nContent-Type: text/plain\\r\\n\\r\\nmissing\\n'\n")

	c := newConn()
	h := &CgiHandler{
		ScriptPath: script,
		Extensions: map[string]bool{".sh": true},
		Method:     "GET",
		RequestURI: "/cgi-bin/fail.sh",
	}
	res := h.Start(c)
	runToDone(t, c, h, res)

	if c.Response.Status != 404 {
		t.Fatalf("got status %d", c.Response.Status)
	}
}

func TestCgiHandlerBodyOnlyOutputDefaultsPlainText(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "raw.sh", "#!/bin/sh\nprintf 'just body, no headers'\n")

	c := newConn()
	h := &CgiHandler{
		ScriptPath: script,
		Extensions: map[string]bool{".sh": true},
		Method:     "GET",
		RequestURI: "/cgi-bin/raw.sh",
	}
	res := h.Start(c)
	runToDone(t, c, h, res)

	if c.Response.Status != 200 {
		t.Fatalf("got status %d", c.Response.Status)
	}
	ct, _ := c.Response.Headers.Get("Content-Type")
	if ct != "text/plain; charset=utf-8" {
		t.Fatalf("got content-type %q", ct)
	}
}

func TestCgiHandlerRejectsDisallowedExtension(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "x.py", "#!/usr/bin/env python3\nprint('hi')\n")

	c := newConn()
	h := &CgiHandler{
		ScriptPath: script,
		Extensions: map[string]bool{".sh": true},
		Method:     "GET",
	}
	res := h.Start(c)
	if res != conn.ResultDone {
		t.Fatalf("expected immediate Done for disallowed extension, got %v", res)
	}
	if c.Response.Status != 403 {
		t.Fatalf("got status %d", c.Response.Status)
	}
}

func TestCgiHandlerReceivesRequestBodyOnStdin(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "cat.sh", "#!/bin/sh\nprintf 'Content-Type: text/plain\\r\\n\\r\\n'\ncat\n")

	c := newConn()
	h := &CgiHandler{
		ScriptPath: script,
		Extensions: map[string]bool{".sh": true},
		Method:     "POST",
		RequestURI: "/cgi-bin/cat.sh",
		Body:       []byte("echoed-body"),
		HasCL:      true,
	}
	res := h.Start(c)
	runToDone(t, c, h, res)

	out := string(drain(c))
	if !strings.Contains(out, "echoed-body") {
		t.Fatalf("got %q", out)
	}
}
