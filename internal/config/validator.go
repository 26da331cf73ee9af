package config

import (
	"fmt"

	"github.com/cameriere-di-rete/webserv/internal/httperr"
)

var validRedirectCodes = map[int]bool{301: true, 302: true, 303: true, 307: true, 308: true}

// Validate enforces the invariants spec.md §3 and §6 require, fatal at
// configuration load: unique listen addresses, mandatory root per
// server, mutually-exclusive redirect/CGI per location, CGI requires a
// non-empty extension set, valid redirect codes, 4xx/5xx error-page codes.
func Validate(root Root) error {
	if len(root.Servers) == 0 {
		return httperr.NewConfigError("no server blocks defined")
	}

	seen := make(map[ListenAddress]bool)
	for i, srv := range root.Servers {
		if seen[srv.Listen] {
			return httperr.NewConfigError(fmt.Sprintf("duplicate listen address %s", srv.Listen))
		}
		seen[srv.Listen] = true

		if srv.Listen.Port < 1 || srv.Listen.Port > 65535 {
			return httperr.NewConfigError(fmt.Sprintf("server #%d: invalid port %d", i, srv.Listen.Port))
		}
		if srv.Root == "" {
			return httperr.NewConfigError(fmt.Sprintf("server #%d: root is mandatory", i))
		}
		if err := validateErrorPages(srv.ErrorPages); err != nil {
			return fmt.Errorf("server #%d: %w", i, err)
		}

		for _, loc := range srv.Locations {
			if err := validateLocation(loc); err != nil {
				return fmt.Errorf("server #%d location %q: %w", i, loc.Path, err)
			}
		}
	}

	if err := validateErrorPages(root.GlobalErrorPages); err != nil {
		return fmt.Errorf("global: %w", err)
	}

	return nil
}

func validateLocation(loc LocationRule) error {
	if loc.Redirect != nil && loc.CGI != nil {
		return httperr.NewConfigError("redirect and cgi are mutually exclusive")
	}
	if loc.Redirect != nil && !validRedirectCodes[loc.Redirect.Status] {
		return httperr.NewConfigError(fmt.Sprintf("invalid redirect status %d", loc.Redirect.Status))
	}
	if loc.CGI != nil {
		if loc.CGI.Root == "" {
			return httperr.NewConfigError("cgi requires cgi_root")
		}
		if len(loc.CGI.Extensions) == 0 {
			return httperr.NewConfigError("cgi requires a non-empty cgi_extensions set")
		}
	}
	return validateErrorPages(loc.ErrorPages)
}

func validateErrorPages(pages map[int]string) error {
	for code := range pages {
		if code < 400 || code > 599 {
			return httperr.NewConfigError(fmt.Sprintf("error_page code %d must be 4xx or 5xx", code))
		}
	}
	return nil
}
