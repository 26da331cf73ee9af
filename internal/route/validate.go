// Package route applies per-request validation and filesystem path
// resolution against a selected location, sitting between conn and
// handler so neither needs to import the other.
package route

import (
	"github.com/cameriere-di-rete/webserv/internal/config"
	"github.com/cameriere-di-rete/webserv/internal/conn"
	"github.com/cameriere-di-rete/webserv/internal/uri"
)

// knownMethods is the set of methods the server recognizes at all,
// independent of what any location allows.
var knownMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
}

// Outcome is the result of validating a request against its effective
// location: either the request passes (Status == 0) or it must be
// answered immediately with Status (and, for 405, Allow).
type Outcome struct {
	Status int
	Allow  []string // populated only for 405
}

// ok reports a passing validation outcome.
func ok() Outcome { return Outcome{} }

// Validate runs the per-request validation cascade of spec.md §4.6 in
// order, failing fast on the first violation.
func Validate(c *conn.Connection, eff config.Effective) Outcome {
	if !c.Request.URIOk {
		return Outcome{Status: 400}
	}
	if c.Request.Version != "HTTP/1.0" && c.Request.Version != "HTTP/1.1" {
		return Outcome{Status: 505}
	}
	if !knownMethods[c.Request.Method] {
		return Outcome{Status: 501}
	}
	if uri.HasTraversal(uri.DecodePath(c.Request.URI.Path)) {
		return Outcome{Status: 403}
	}
	if !eff.AllowMethods[c.Request.Method] {
		return Outcome{Status: 405, Allow: eff.AllowMethods.Allowed()}
	}

	n, present, err := c.Request.ContentLength()
	if present {
		if err != nil {
			return Outcome{Status: 400}
		}
		if n > eff.MaxBody {
			return Outcome{Status: 413}
		}
	}

	if int64(c.BufferedBodyLen()) > eff.MaxBody {
		return Outcome{Status: 413}
	}

	return ok()
}
