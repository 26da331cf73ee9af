package handler

import (
	"github.com/cameriere-di-rete/webserv/internal/config"
	"github.com/cameriere-di-rete/webserv/internal/conn"
	"github.com/cameriere-di-rete/webserv/internal/route"
)

// Dispatch implements the handler-selection priority of spec.md §4.8
// against an already-validated request and its matched location, and
// immediately invokes the chosen handler's Start.
func Dispatch(c *conn.Connection, eff config.Effective, serverPort int) conn.Result {
	if eff.Redirect != nil {
		h := &RedirectHandler{Status: eff.Redirect.Status, Target: eff.Redirect.Target}
		c.SetHandler(h)
		return h.Start(c)
	}

	path := c.Request.URI.Path

	if eff.CGI != nil {
		res, outcome := route.Resolve(eff, path)
		if outcome.Status != 0 {
			return PrepareErrorResponse(c, outcome.Status)
		}
		if res.IsDir {
			return PrepareErrorResponse(c, 403)
		}

		contentType, _ := c.Request.Headers.Get("Content-Type")
		_, hasCL, _ := c.Request.ContentLength()

		h := &CgiHandler{
			ScriptPath:  res.FSPath,
			Extensions:  eff.CGI.Extensions,
			Method:      c.Request.Method,
			RequestURI:  c.Request.Target,
			QueryString: c.Request.URI.RawQuery,
			ServerPort:  serverPort,
			Body:        c.Request.Body,
			ContentType: contentType,
			HasCL:       hasCL,
		}
		c.SetHandler(h)
		return h.Start(c)
	}

	res, outcome := route.Resolve(eff, path)
	if outcome.Status != 0 {
		return PrepareErrorResponse(c, outcome.Status)
	}

	if res.DirWithoutIndex {
		if c.Request.Method == "POST" || c.Request.Method == "PUT" {
			h := &FileHandler{
				Path:        res.FSPath,
				Method:      c.Request.Method,
				IsDirTarget: true,
				RequestURI:  path,
			}
			c.SetHandler(h)
			return h.Start(c)
		}
		if eff.Autoindex {
			h := &AutoindexHandler{DirPath: res.FSPath, RequestURI: path}
			c.SetHandler(h)
			return h.Start(c)
		}
		return PrepareErrorResponse(c, 403)
	}

	h := &FileHandler{Path: res.FSPath, Method: c.Request.Method, RequestURI: path}
	c.SetHandler(h)
	return h.Start(c)
}
