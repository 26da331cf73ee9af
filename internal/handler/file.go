package handler

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/cameriere-di-rete/webserv/internal/conn"
	"github.com/cameriere-di-rete/webserv/internal/constants"
	"github.com/cameriere-di-rete/webserv/internal/mimetype"
)

// FileHandler implements the five filesystem-backed methods of
// spec.md §4.9: GET, HEAD, PUT, POST-to-directory, DELETE.
type FileHandler struct {
	Path        string // resolved filesystem path (file, or directory for POST)
	Method      string
	IsDirTarget bool   // true for POST/PUT uploading into a directory
	RequestURI  string // request URI path, used to build the Location header on POST

	file      *os.File
	remaining int64
}

func (h *FileHandler) Start(c *conn.Connection) conn.Result {
	if h.IsDirTarget {
		// Both POST and PUT to a directory target use the same
		// choose-a-filename upload path (spec.md §4.8 priority 3).
		return h.doPostUpload(c)
	}
	switch h.Method {
	case "GET", "HEAD":
		return h.startRead(c)
	case "PUT":
		return h.doPut(c)
	case "POST":
		return h.doPostUpload(c)
	case "DELETE":
		return h.doDelete(c)
	default:
		return h.fail(c, 500)
	}
}

func (h *FileHandler) Resume(c *conn.Connection) conn.Result {
	if h.file == nil {
		return conn.ResultDone
	}
	return h.streamChunk(c)
}

func (h *FileHandler) MonitorFD() int                       { return -1 }
func (h *FileHandler) CheckTimeout(c *conn.Connection) bool { return false }

func (h *FileHandler) fail(c *conn.Connection, status int) conn.Result {
	return writeDefaultError(c, status)
}

func (h *FileHandler) startRead(c *conn.Connection) conn.Result {
	f, err := os.Open(h.Path)
	if err != nil {
		return h.fail(c, 404)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return h.fail(c, 500)
	}
	size := info.Size()
	contentType := mimetype.ForPath(h.Path)

	rangeHeader, hasRange := c.Request.Headers.Get("Range")
	if hasRange {
		rg, ok := parseRange(rangeHeader, size)
		if !ok {
			f.Close()
			c.Response.Status = 416
			c.Response.Reason = ReasonPhrase(416)
			c.Response.Headers.Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
			c.Response.SetContentLength(0)
			c.QueueResponse()
			return conn.ResultDone
		}
		c.Response.Status = 206
		c.Response.Reason = ReasonPhrase(206)
		c.Response.Headers.Set("Content-Range", rg.ContentRange())
		c.Response.Headers.Set("Content-Type", contentType)
		c.Response.SetContentLength(rg.Len())
		c.QueueResponse()

		if h.Method == "HEAD" {
			f.Close()
			return conn.ResultDone
		}
		if _, err := f.Seek(rg.Start, io.SeekStart); err != nil {
			f.Close()
			return h.fail(c, 500)
		}
		h.file = f
		h.remaining = rg.Len()
		return h.streamChunk(c)
	}

	c.Response.Status = 200
	c.Response.Reason = ReasonPhrase(200)
	c.Response.Headers.Set("Content-Type", contentType)
	c.Response.SetContentLength(size)
	c.QueueResponse()

	if h.Method == "HEAD" {
		f.Close()
		return conn.ResultDone
	}
	h.file = f
	h.remaining = size
	return h.streamChunk(c)
}

// streamChunk reads up to one FileStreamChunk of the remaining range
// and appends it to the connection's write buffer.
func (h *FileHandler) streamChunk(c *conn.Connection) conn.Result {
	if h.remaining <= 0 {
		h.closeFile()
		return conn.ResultDone
	}

	want := int64(constants.FileStreamChunk)
	if want > h.remaining {
		want = h.remaining
	}
	buf := make([]byte, want)
	n, err := h.file.Read(buf)
	if n > 0 {
		c.AppendToWriteBuffer(buf[:n])
		h.remaining -= int64(n)
	}
	if err != nil || h.remaining <= 0 {
		h.closeFile()
		return conn.ResultDone
	}
	return conn.ResultWouldBlock
}

func (h *FileHandler) closeFile() {
	if h.file != nil {
		h.file.Close()
		h.file = nil
	}
}

func (h *FileHandler) doPut(c *conn.Connection) conn.Result {
	parentInfo, err := os.Stat(filepath.Dir(h.Path))
	if err != nil || !parentInfo.IsDir() {
		return h.fail(c, 404)
	}

	_, statErr := os.Stat(h.Path)
	existed := statErr == nil

	if err := writeFileAtomic(h.Path, c.Request.Body); err != nil {
		return h.fail(c, 500)
	}

	status := 201
	if existed {
		status = 200
	}
	c.Response.Status = status
	c.Response.Reason = ReasonPhrase(status)
	c.Response.SetContentLength(0)
	c.QueueResponse()
	return conn.ResultDone
}

func (h *FileHandler) doPostUpload(c *conn.Connection) conn.Result {
	ext := constants.UploadFallbackExt
	if ct, ok := c.Request.Headers.Get("Content-Type"); ok {
		if e, ok := mimetype.ExtensionForType(ct); ok {
			ext = e
		}
	}

	name := uuid.NewString() + ext
	target := filepath.Join(h.Path, name)

	if err := writeFileAtomic(target, c.Request.Body); err != nil {
		return h.fail(c, 500)
	}

	location := h.RequestURI
	if location == "" || location[len(location)-1] != '/' {
		location += "/"
	}
	location += name

	c.Response.Status = 201
	c.Response.Reason = ReasonPhrase(201)
	c.Response.Headers.Set("Location", location)
	c.Response.SetContentLength(0)
	c.QueueResponse()
	return conn.ResultDone
}

func (h *FileHandler) doDelete(c *conn.Connection) conn.Result {
	if err := os.Remove(h.Path); err != nil {
		if os.IsNotExist(err) {
			return h.fail(c, 404)
		}
		return h.fail(c, 500)
	}
	c.Response.Status = 204
	c.Response.Reason = ReasonPhrase(204)
	c.QueueResponse()
	return conn.ResultDone
}

// writeFileAtomic writes data to path by writing a sibling temp file
// then renaming it into place, so concurrent readers never observe a
// partially-written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".webserv-upload-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
