package handler

import (
	"strconv"
	"strings"
)

// byteRange is a resolved, inclusive [Start, End] byte range into a
// resource of the given total Size.
type byteRange struct {
	Start, End, Size int64
}

// parseRange implements spec.md §4.11: a `Range:` value beginning with
// `bytes=` containing exactly one `-`, in one of three forms:
// "N-M" absolute, "N-" open-ended, "-N" suffix. ok=false means the
// header was absent, unparseable, or semantically invalid (caller
// responds 416 with `Content-Range: bytes */SIZE`).
func parseRange(header string, size int64) (byteRange, bool) {
	if header == "" {
		return byteRange{}, false
	}
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return byteRange{}, false
	}
	if strings.Count(spec, "-") != 1 {
		return byteRange{}, false
	}

	dash := strings.IndexByte(spec, '-')
	startStr, endStr := spec[:dash], spec[dash+1:]

	var start, end int64
	switch {
	case startStr == "" && endStr != "":
		// suffix form: "-N", last N bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n < 0 {
			return byteRange{}, false
		}
		if n > size {
			n = size
		}
		start = size - n
		end = size - 1
	case startStr != "" && endStr == "":
		// open-ended form: "N-".
		n, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || n < 0 {
			return byteRange{}, false
		}
		start = n
		end = size - 1
	case startStr != "" && endStr != "":
		// absolute form: "N-M".
		n, err1 := strconv.ParseInt(startStr, 10, 64)
		m, err2 := strconv.ParseInt(endStr, 10, 64)
		if err1 != nil || err2 != nil || n < 0 || m < 0 {
			return byteRange{}, false
		}
		start, end = n, m
	default:
		return byteRange{}, false
	}

	if start > end || start >= size || size == 0 {
		return byteRange{}, false
	}
	if end >= size {
		end = size - 1
	}

	return byteRange{Start: start, End: end, Size: size}, true
}

// ContentRange renders the `bytes START-END/SIZE` value.
func (r byteRange) ContentRange() string {
	return "bytes " + strconv.FormatInt(r.Start, 10) + "-" +
		strconv.FormatInt(r.End, 10) + "/" + strconv.FormatInt(r.Size, 10)
}

// Len returns the number of bytes the range covers.
func (r byteRange) Len() int64 {
	return r.End - r.Start + 1
}
