package config

import "strings"

// Effective is the fully-inherited view of a location: every field a
// location left unset has been filled in from its server.
type Effective struct {
	Path         string
	Root         string
	Index        []string
	AllowMethods MethodSet
	Autoindex    bool
	Redirect     *Redirect
	CGI          *CGIConfig
	ErrorPages   map[int]string
	MaxBody      int64
}

// SelectLocation finds the longest-prefix location matching path at a
// segment boundary and returns it merged with its server's defaults.
// If no location matches, a synthesized "/" location with all fields
// unset is used, and inheritance falls through entirely to the server.
func SelectLocation(srv ServerConfig, path string) Effective {
	var best *LocationRule
	bestLen := -1

	for i := range srv.Locations {
		loc := &srv.Locations[i]
		if matchesAtBoundary(loc.Path, path) && len(loc.Path) > bestLen {
			best = loc
			bestLen = len(loc.Path)
		}
	}

	if best == nil {
		synthesized := NewLocationRule("/")
		best = &synthesized
	}

	return mergeWithServer(*best, srv)
}

// matchesAtBoundary reports whether prefix matches path at a
// path-segment boundary: prefix ends in '/', equals path exactly, or
// is followed by '/' in path.
func matchesAtBoundary(prefix, path string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if strings.HasSuffix(prefix, "/") {
		return true
	}
	if len(path) == len(prefix) {
		return true
	}
	return path[len(prefix)] == '/'
}

func mergeWithServer(loc LocationRule, srv ServerConfig) Effective {
	eff := Effective{
		Path:       loc.Path,
		Redirect:   loc.Redirect,
		CGI:        loc.CGI,
		ErrorPages: mergeErrorPages(srv.ErrorPages, loc.ErrorPages),
	}

	if loc.Root != nil {
		eff.Root = *loc.Root
	} else {
		eff.Root = srv.Root
	}

	if loc.Index != nil {
		eff.Index = loc.Index
	} else {
		eff.Index = srv.Index
	}

	if loc.AllowMethods != nil {
		eff.AllowMethods = loc.AllowMethods
	} else {
		eff.AllowMethods = srv.AllowMethods
	}

	switch loc.Autoindex {
	case AutoOn:
		eff.Autoindex = true
	case AutoOff:
		eff.Autoindex = false
	default: // AutoUnset inherits the server's boolean
		eff.Autoindex = srv.Autoindex
	}

	eff.MaxBody = loc.MaxBody // resolved fully by EffectiveMaxBody with the global fallback

	return eff
}

func mergeErrorPages(server, location map[int]string) map[int]string {
	out := make(map[int]string, len(server)+len(location))
	for k, v := range server {
		out[k] = v
	}
	for k, v := range location {
		out[k] = v
	}
	return out
}

// EffectiveMaxBody resolves the max-body inheritance chain:
// location > server > global > built-in default.
func EffectiveMaxBody(locationValue, serverValue, globalValue, builtinDefault int64) int64 {
	if locationValue >= 0 {
		return locationValue
	}
	if serverValue >= 0 {
		return serverValue
	}
	if globalValue >= 0 {
		return globalValue
	}
	return builtinDefault
}
