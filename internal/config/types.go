// Package config holds the server configuration model consumed by the
// core: listen addresses, server blocks, and location rules, plus the
// inheritance and longest-prefix matching logic operating on them.
//
// The on-disk grammar (lexer/parser/translator in this package) is a
// mechanical collaborator per spec.md §6; only the semantic shape
// below is load-bearing for the rest of the core.
package config

import (
	"fmt"

	"github.com/cameriere-di-rete/webserv/internal/constants"
)

// ListenAddress is an IPv4 address and TCP port.
type ListenAddress struct {
	IP   string
	Port int
}

func (a ListenAddress) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

// AutoIndex is a tri-state flag: unset inherits the parent's value,
// On/Off are explicit and never inherited over.
type AutoIndex int

const (
	AutoUnset AutoIndex = iota
	AutoOn
	AutoOff
)

// Redirect describes a location's redirect rule.
type Redirect struct {
	Status int // one of 301, 302, 303, 307, 308
	Target string
}

// CGIConfig describes a location's CGI configuration. Both fields are
// required together (spec.md §3 invariant).
type CGIConfig struct {
	Root       string
	Extensions map[string]bool // leading-dot, case-sensitive
}

// MethodSet is a set of allowed HTTP methods.
type MethodSet map[string]bool

// DefaultMethods returns the built-in default allow-method set.
func DefaultMethods() MethodSet {
	return MethodSet{"GET": true, "POST": true, "PUT": true, "DELETE": true, "HEAD": true}
}

// Allowed returns the methods in a stable order, for use in an Allow: header.
func (m MethodSet) Allowed() []string {
	order := []string{"GET", "HEAD", "POST", "PUT", "DELETE"}
	var out []string
	for _, meth := range order {
		if m[meth] {
			out = append(out, meth)
		}
	}
	for meth := range m {
		found := false
		for _, o := range out {
			if o == meth {
				found = true
				break
			}
		}
		if !found {
			out = append(out, meth)
		}
	}
	return out
}

// LocationRule configures request handling for a path prefix, with
// unset fields inheriting from the owning ServerConfig.
type LocationRule struct {
	Path string

	Root          *string
	Index         []string
	AllowMethods  MethodSet
	Autoindex     AutoIndex
	Redirect      *Redirect
	CGI           *CGIConfig
	ErrorPages    map[int]string
	MaxBody       int64 // constants.BodyUnset when not set at this level
}

// ServerConfig is one `server` block.
type ServerConfig struct {
	Listen       ListenAddress
	Root         string
	Index        []string
	AllowMethods MethodSet
	Autoindex    bool
	ErrorPages   map[int]string
	MaxBody      int64 // constants.BodyUnset when not set at this level
	Locations    []LocationRule // insertion order; matching is longest-prefix, not order
}

// Root is the top-level configuration: global defaults plus server blocks.
type Root struct {
	GlobalErrorPages map[int]string
	GlobalMaxBody    int64 // constants.BodyUnset when unset
	Servers          []ServerConfig
}

// NewLocationRule returns a LocationRule with every inheritable field unset.
func NewLocationRule(path string) LocationRule {
	return LocationRule{
		Path:    path,
		MaxBody: constants.BodyUnset,
	}
}
