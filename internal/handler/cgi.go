package handler

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/cameriere-di-rete/webserv/internal/conn"
	"github.com/cameriere-di-rete/webserv/internal/constants"
	"github.com/cameriere-di-rete/webserv/internal/iobuf"
	"github.com/cameriere-di-rete/webserv/internal/uri"
)

// cgiState is where a CgiHandler is in its lifecycle: not yet started,
// running with its stdout pipe monitored, or done (reaped and parsed,
// or killed).
type cgiState int

const (
	cgiNew cgiState = iota
	cgiRunning
	cgiDone
)

// CgiHandler forks a CGI/1.1 script, drains its merged stdout/stderr
// through the event loop's readiness mechanism, and parses the result
// into a response. The hardest handler: see spec.md §4.10.
type CgiHandler struct {
	ScriptPath  string
	Extensions  map[string]bool
	Method      string
	RequestURI  string // raw request-target, used for REQUEST_URI/PATH_INFO
	QueryString string
	ServerPort  int
	Body        []byte
	ContentType string
	HasCL       bool

	state    cgiState
	proc     *os.Process
	stdoutFD int // -1 when not monitoring
	out      *iobuf.Buffer
}

// Start validates the extension allowlist, forks the script, writes the
// request body to its stdin, and begins monitoring its stdout.
func (h *CgiHandler) Start(c *conn.Connection) conn.Result {
	if !h.extensionAllowed() {
		return writeDefaultError(c, 403)
	}

	absScript, err := filepath.Abs(h.ScriptPath)
	if err != nil {
		return writeDefaultError(c, 500)
	}
	dir := filepath.Dir(absScript)

	stdinR, stdinW, err := unix.Pipe()
	if err != nil {
		return writeDefaultError(c, 500)
	}
	stdoutR, stdoutW, err := unix.Pipe()
	if err != nil {
		unix.Close(stdinR)
		unix.Close(stdinW)
		return writeDefaultError(c, 500)
	}

	unix.CloseOnExec(stdinW)
	unix.CloseOnExec(stdoutR)

	childStdin := os.NewFile(uintptr(stdinR), "cgi-stdin")
	childStdout := os.NewFile(uintptr(stdoutW), "cgi-stdout")
	defer childStdin.Close()
	defer childStdout.Close()

	proc, err := os.StartProcess(absScript, []string{filepath.Base(absScript)}, &os.ProcAttr{
		Dir:   dir,
		Env:   h.buildEnv(c),
		Files: []*os.File{childStdin, childStdout, childStdout},
	})
	if err != nil {
		unix.Close(stdinW)
		unix.Close(stdoutR)
		return writeDefaultError(c, 500)
	}

	// The body is bounded by max-body; a single write covers the common
	// case. A script that stalls before draining a large body could
	// block this write; resolving that needs a second monitored FD for
	// stdin-writability, which the single-monitor-FD handler contract
	// here does not carry.
	if len(h.Body) > 0 {
		writeAll(stdinW, h.Body)
	}
	unix.Close(stdinW)

	if err := unix.SetNonblock(stdoutR, true); err != nil {
		unix.Close(stdoutR)
		proc.Kill()
		proc.Wait()
		return writeDefaultError(c, 500)
	}

	h.proc = proc
	h.stdoutFD = stdoutR
	h.state = cgiRunning
	h.out = iobuf.New(constants.DefaultBodyMemLimit)
	c.Phase.StartCGI()
	return conn.ResultWouldBlock
}

// Resume drains whatever is currently available on stdoutFD. Returns
// WouldBlock while the script is still running, Done once EOF is seen
// and the child has been reaped and its output parsed.
func (h *CgiHandler) Resume(c *conn.Connection) conn.Result {
	if h.state != cgiRunning {
		return conn.ResultDone
	}

	buf := make([]byte, constants.CGIReadChunk)
	for {
		n, err := unix.Read(h.stdoutFD, buf)
		if n > 0 {
			h.out.Write(buf[:n])
		}
		if err == unix.EAGAIN {
			return conn.ResultWouldBlock
		}
		if n == 0 || err != nil {
			return h.finish(c)
		}
	}
}

// finish is reached on EOF (or a terminal read error): deregister the
// pipe, reap the child, and parse its output into a response.
func (h *CgiHandler) finish(c *conn.Connection) conn.Result {
	unix.Close(h.stdoutFD)
	h.stdoutFD = -1
	h.state = cgiDone
	defer h.out.Close()

	state, waitErr := h.proc.Wait()
	if waitErr != nil || !state.Success() {
		if h.out.Size() == 0 {
			return writeDefaultError(c, 500)
		}
		// Non-zero exit with output: still attempt to surface it,
		// matching a CGI script that writes an error page and a
		// non-zero status.
	}

	return h.writeParsedOutput(c)
}

// CheckTimeout reports whether the CGI wall-clock budget has elapsed.
func (h *CgiHandler) CheckTimeout(c *conn.Connection) bool {
	return h.state == cgiRunning && c.Phase.CGIElapsed() > constants.DefaultCGITimeout
}

// MonitorFD returns the stdout pipe FD while the script is running.
func (h *CgiHandler) MonitorFD() int {
	if h.state == cgiRunning {
		return h.stdoutFD
	}
	return -1
}

// Kill is invoked by the event loop's CGI timeout sweep: it tears down
// the child and the pipe without attempting to parse partial output.
func (h *CgiHandler) Kill() {
	if h.state != cgiRunning {
		return
	}
	if h.stdoutFD >= 0 {
		unix.Close(h.stdoutFD)
		h.stdoutFD = -1
	}
	if h.proc != nil {
		h.proc.Kill()
		h.proc.Wait()
	}
	if h.out != nil {
		h.out.Close()
	}
	h.state = cgiDone
}

// readOutput materializes the accumulated CGI output for parsing; the
// CGI/1.1 meta-header format requires scanning for the blank line that
// separates headers from body, which needs the whole output in hand
// regardless of whether it stayed in memory or spilled to disk.
func (h *CgiHandler) readOutput() []byte {
	r, err := h.out.Reader()
	if err != nil {
		return nil
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	return data
}

// pathInfo derives PATH_INFO from the raw request-target: the decoded
// path before any "?", or the whole decoded path when there is no
// query.
func (h *CgiHandler) pathInfo() string {
	target := h.RequestURI
	if qi := strings.IndexByte(target, '?'); qi != -1 {
		target = target[:qi]
	}
	return uri.DecodePath(target)
}

func (h *CgiHandler) extensionAllowed() bool {
	for ext := range h.Extensions {
		if strings.HasSuffix(h.ScriptPath, ext) {
			return true
		}
	}
	return false
}

func (h *CgiHandler) buildEnv(c *conn.Connection) []string {
	env := []string{
		"PATH=/usr/bin:/bin",
		"REQUEST_METHOD=" + h.Method,
		"REQUEST_URI=" + h.RequestURI,
		"SERVER_PROTOCOL=" + c.HTTPVersion,
		"GATEWAY_INTERFACE=" + constants.GatewayInterface,
		"SERVER_NAME=" + constants.ServerIdentity,
		"SERVER_PORT=" + strconv.Itoa(h.ServerPort),
		"SCRIPT_NAME=" + h.ScriptPath,
		"QUERY_STRING=" + h.QueryString,
		"PATH_INFO=" + h.pathInfo(),
	}
	if h.ContentType != "" {
		env = append(env, "CONTENT_TYPE="+h.ContentType)
	}
	if h.HasCL {
		env = append(env, "CONTENT_LENGTH="+strconv.Itoa(len(h.Body)))
	} else if len(h.Body) > 0 {
		env = append(env, "CONTENT_LENGTH="+strconv.Itoa(len(h.Body)))
	}
	return env
}

// writeParsedOutput implements spec.md §4.10 step 8: headers until a
// blank line, then body; a recognized "Status:" meta-header sets the
// response status; absent any parseable header block, the whole output
// is returned as text/plain with status 200.
func (h *CgiHandler) writeParsedOutput(c *conn.Connection) conn.Result {
	status, headerLines, body := splitCGIOutput(h.readOutput())

	c.Response.Status = status
	c.Response.Reason = ReasonPhrase(status)
	hasContentType := false
	for _, line := range headerLines {
		name, value, ok := headerNameValue(line)
		if !ok {
			continue
		}
		if strings.EqualFold(name, "Status") {
			continue
		}
		if strings.EqualFold(name, "Content-Type") {
			hasContentType = true
		}
		c.Response.Headers.Add(name, value)
	}
	if !hasContentType {
		c.Response.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	}
	c.Response.Body = body
	c.Response.SetContentLength(int64(len(body)))
	c.QueueResponse()
	return conn.ResultDone
}

// splitCGIOutput separates a CGI script's raw output into status,
// header lines, and body. If no blank-line-terminated header block is
// found, the whole output is treated as the body with status 200.
func splitCGIOutput(out []byte) (status int, headerLines []string, body []byte) {
	status = 200
	s := strings.ReplaceAll(string(out), "\r\n", "\n")

	sep := strings.Index(s, "\n\n")
	if sep == -1 {
		return status, nil, out
	}

	headerRegion := s[:sep]
	bodyRegion := s[sep+2:]
	lines := strings.Split(headerRegion, "\n")

	for _, line := range lines {
		name, value, ok := headerNameValue(line)
		if !ok {
			continue
		}
		if strings.EqualFold(name, "Status") {
			if code, ok := parseStatusValue(value); ok {
				status = code
			}
		}
	}

	return status, lines, []byte(bodyRegion)
}

func headerNameValue(line string) (name, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func parseStatusValue(v string) (int, bool) {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return n, true
}

func writeAll(fd int, data []byte) {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil || n <= 0 {
			return
		}
		data = data[n:]
	}
}
