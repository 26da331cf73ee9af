package config

import (
	"strconv"
	"strings"

	"github.com/cameriere-di-rete/webserv/internal/constants"
	"github.com/cameriere-di-rete/webserv/internal/httperr"
)

// Parse tokenizes and parses raw config file content into a validated Root.
func Parse(content string) (Root, error) {
	tokens := tokenize(content)
	tree, err := parseTokens(tokens)
	if err != nil {
		return Root{}, err
	}
	root, err := translateRoot(tree)
	if err != nil {
		return Root{}, err
	}
	if err := Validate(root); err != nil {
		return Root{}, err
	}
	return root, nil
}

func translateRoot(root blockNode) (Root, error) {
	out := Root{GlobalMaxBody: constants.BodyUnset}

	for _, d := range root.Directives {
		switch d.Name {
		case "error_page":
			pages, err := parseErrorPageArgs(d.Args)
			if err != nil {
				return out, err
			}
			if out.GlobalErrorPages == nil {
				out.GlobalErrorPages = map[int]string{}
			}
			for k, v := range pages {
				out.GlobalErrorPages[k] = v
			}
		case "max_request_body":
			n, err := parseSizeArg(d.Args)
			if err != nil {
				return out, err
			}
			out.GlobalMaxBody = n
		}
	}

	for _, blk := range root.SubBlocks {
		if blk.Type != "server" {
			continue
		}
		srv, err := translateServer(blk)
		if err != nil {
			return out, err
		}
		out.Servers = append(out.Servers, srv)
	}
	return out, nil
}

func translateServer(blk blockNode) (ServerConfig, error) {
	srv := ServerConfig{
		AllowMethods: DefaultMethods(),
		MaxBody:      constants.BodyUnset,
	}

	for _, d := range blk.Directives {
		switch d.Name {
		case "listen":
			if len(d.Args) != 1 {
				return srv, httperr.NewConfigError("listen: expected exactly one argument")
			}
			addr, err := parseListenArg(d.Args[0])
			if err != nil {
				return srv, err
			}
			srv.Listen = addr
		case "root":
			if len(d.Args) != 1 {
				return srv, httperr.NewConfigError("root: expected exactly one argument")
			}
			srv.Root = d.Args[0]
		case "index":
			srv.Index = append([]string{}, d.Args...)
		case "method":
			methods, err := parseMethodArgs(d.Args)
			if err != nil {
				return srv, err
			}
			srv.AllowMethods = methods
		case "autoindex":
			on, err := parseBoolArg(d.Args)
			if err != nil {
				return srv, err
			}
			srv.Autoindex = on
		case "error_page":
			pages, err := parseErrorPageArgs(d.Args)
			if err != nil {
				return srv, err
			}
			if srv.ErrorPages == nil {
				srv.ErrorPages = map[int]string{}
			}
			for k, v := range pages {
				srv.ErrorPages[k] = v
			}
		case "max_request_body":
			n, err := parseSizeArg(d.Args)
			if err != nil {
				return srv, err
			}
			srv.MaxBody = n
		}
	}

	for _, sub := range blk.SubBlocks {
		if sub.Type != "location" {
			continue
		}
		loc, err := translateLocation(sub)
		if err != nil {
			return srv, err
		}
		srv.Locations = append(srv.Locations, loc)
	}

	return srv, nil
}

func translateLocation(blk blockNode) (LocationRule, error) {
	loc := NewLocationRule(blk.Param)
	var cgiRoot string
	var cgiExts []string

	for _, d := range blk.Directives {
		switch d.Name {
		case "root":
			if len(d.Args) != 1 {
				return loc, httperr.NewConfigError("root: expected exactly one argument")
			}
			v := d.Args[0]
			loc.Root = &v
		case "index":
			loc.Index = append([]string{}, d.Args...)
		case "method":
			methods, err := parseMethodArgs(d.Args)
			if err != nil {
				return loc, err
			}
			loc.AllowMethods = methods
		case "autoindex":
			on, err := parseBoolArg(d.Args)
			if err != nil {
				return loc, err
			}
			if on {
				loc.Autoindex = AutoOn
			} else {
				loc.Autoindex = AutoOff
			}
		case "redirect":
			if len(d.Args) < 2 {
				return loc, httperr.NewConfigError("redirect: expected status code and target")
			}
			code, err := strconv.Atoi(d.Args[0])
			if err != nil {
				return loc, httperr.NewConfigError("redirect: invalid status code " + d.Args[0])
			}
			loc.Redirect = &Redirect{Status: code, Target: d.Args[1]}
		case "cgi_root":
			if len(d.Args) != 1 {
				return loc, httperr.NewConfigError("cgi_root: expected exactly one argument")
			}
			cgiRoot = d.Args[0]
		case "cgi_extensions":
			cgiExts = append([]string{}, d.Args...)
		case "error_page":
			pages, err := parseErrorPageArgs(d.Args)
			if err != nil {
				return loc, err
			}
			if loc.ErrorPages == nil {
				loc.ErrorPages = map[int]string{}
			}
			for k, v := range pages {
				loc.ErrorPages[k] = v
			}
		case "max_request_body":
			n, err := parseSizeArg(d.Args)
			if err != nil {
				return loc, err
			}
			loc.MaxBody = n
		}
	}

	if cgiRoot != "" || len(cgiExts) > 0 {
		extSet := map[string]bool{}
		for _, e := range cgiExts {
			extSet[e] = true
		}
		loc.CGI = &CGIConfig{Root: cgiRoot, Extensions: extSet}
	}

	return loc, nil
}

func parseListenArg(arg string) (ListenAddress, error) {
	ip := "0.0.0.0"
	portStr := arg
	if idx := strings.LastIndex(arg, ":"); idx != -1 {
		ip = arg[:idx]
		portStr = arg[idx+1:]
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return ListenAddress{}, httperr.NewConfigError("listen: invalid port " + portStr)
	}
	return ListenAddress{IP: ip, Port: port}, nil
}

func parseBoolArg(args []string) (bool, error) {
	if len(args) != 1 {
		return false, httperr.NewConfigError("expected exactly one argument 'on' or 'off'")
	}
	switch args[0] {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, httperr.NewConfigError("expected on/off, true/false, or 1/0, got " + args[0])
	}
}

func parseMethodArgs(args []string) (MethodSet, error) {
	if len(args) == 0 {
		return nil, httperr.NewConfigError("method: expected at least one HTTP method")
	}
	valid := map[string]bool{"GET": true, "POST": true, "PUT": true, "DELETE": true, "HEAD": true}
	set := MethodSet{}
	for _, m := range args {
		if !valid[m] {
			return nil, httperr.NewConfigError("method: unsupported method " + m)
		}
		set[m] = true
	}
	return set, nil
}

func parseErrorPageArgs(args []string) (map[int]string, error) {
	if len(args) < 2 {
		return nil, httperr.NewConfigError("error_page: expected at least one code and a path")
	}
	path := args[len(args)-1]
	pages := map[int]string{}
	for _, codeStr := range args[:len(args)-1] {
		code, err := strconv.Atoi(codeStr)
		if err != nil {
			return nil, httperr.NewConfigError("error_page: invalid status code " + codeStr)
		}
		pages[code] = path
	}
	return pages, nil
}

func parseSizeArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, httperr.NewConfigError("max_request_body: expected a single numeric value")
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || n < 0 {
		return 0, httperr.NewConfigError("max_request_body: invalid value " + args[0])
	}
	return n, nil
}
