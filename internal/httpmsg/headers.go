// Package httpmsg implements the HTTP start-line + header + body message
// model shared by Request and Response, and serializes messages to the wire.
package httpmsg

import "strings"

// Header is a single name/value pair, order-preserved.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered, case-insensitive multi-map of header fields.
type Headers struct {
	items []Header
}

// Add appends a header, preserving any existing values under that name.
func (h *Headers) Add(name, value string) {
	h.items = append(h.items, Header{Name: name, Value: value})
}

// Set replaces all existing values for name with a single value.
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes all headers matching name, case-insensitively.
func (h *Headers) Del(name string) {
	out := h.items[:0]
	for _, it := range h.items {
		if !strings.EqualFold(it.Name, name) {
			out = append(out, it)
		}
	}
	h.items = out
}

// Get returns the first value for name, case-insensitively, and whether
// it was present.
func (h Headers) Get(name string) (string, bool) {
	for _, it := range h.items {
		if strings.EqualFold(it.Name, name) {
			return it.Value, true
		}
	}
	return "", false
}

// GetAll returns every value for name, in insertion order.
func (h Headers) GetAll(name string) []string {
	var out []string
	for _, it := range h.items {
		if strings.EqualFold(it.Name, name) {
			out = append(out, it.Value)
		}
	}
	return out
}

// Has reports whether any header matches name.
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// All returns every header pair in insertion order.
func (h Headers) All() []Header {
	return h.items
}

// ParseLine splits a single header line at the first ':', trimming
// HTAB/SP from both sides. Lines without a colon are not a header.
func ParseLine(line string) (name, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	name = trimHTSP(line[:idx])
	value = trimHTSP(line[idx+1:])
	return name, value, true
}

func trimHTSP(s string) string {
	return strings.Trim(s, " \t")
}

// Serialize writes each header as "Name: Value\r\n" in insertion order.
func (h Headers) Serialize() string {
	var b strings.Builder
	for _, it := range h.items {
		b.WriteString(it.Name)
		b.WriteString(": ")
		b.WriteString(it.Value)
		b.WriteString("\r\n")
	}
	return b.String()
}
