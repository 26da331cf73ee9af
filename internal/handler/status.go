// Package handler implements the five response-producing strategies
// (redirect, static file, autoindex, CGI, error file) and the dispatch
// priority that selects among them.
package handler

import (
	"strconv"

	"github.com/cameriere-di-rete/webserv/internal/conn"
)

// reasonPhrases maps the status codes this server ever emits (spec.md
// §8) to their standard reason phrase.
var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	206: "Partial Content",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	413: "Payload Too Large",
	416: "Range Not Satisfiable",
	500: "Internal Server Error",
	501: "Not Implemented",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// ReasonPhrase returns the standard reason phrase for status, or
// "Error" for any status this server does not otherwise produce.
func ReasonPhrase(status int) string {
	if r, ok := reasonPhrases[status]; ok {
		return r
	}
	return "Error"
}

// defaultErrorBody renders the built-in inline HTML error page.
func defaultErrorBody(status int) []byte {
	reason := ReasonPhrase(status)
	code := strconv.Itoa(status)
	return []byte("<!DOCTYPE html>\n<html><head><title>" + reason +
		"</title></head><body><h1>" + code + " " + reason +
		"</h1></body></html>\n")
}

// writeDefaultError queues the built-in inline HTML error page for
// status onto c's write buffer. Used by any handler that fails outright
// rather than installing a replacement handler (spec.md §4.8 ERROR).
func writeDefaultError(c *conn.Connection, status int) conn.Result {
	body := defaultErrorBody(status)
	c.Response.Status = status
	c.Response.Reason = ReasonPhrase(status)
	c.Response.Headers.Set("Content-Type", "text/html; charset=utf-8")
	c.Response.Body = body
	c.Response.SetContentLength(int64(len(body)))
	c.QueueResponse()
	return conn.ResultDone
}
