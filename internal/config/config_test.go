package config

import (
	"testing"

	"github.com/cameriere-di-rete/webserv/internal/constants"
)

const sampleConfig = `
error_page 500 /errors/500.html;
max_request_body 2048;

server {
	listen 0.0.0.0:8080;
	root ./www;
	index index.html;
	autoindex off;

	location /api {
		root ./api-root;
		method GET POST;
		autoindex on;
	}

	location /cgi-bin {
		cgi_root ./cgi-bin;
		cgi_extensions .sh .py;
	}

	location /old {
		redirect 301 /new;
	}
}
`

func TestParseSampleConfig(t *testing.T) {
	root, err := Parse(sampleConfig)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(root.Servers) != 1 {
		t.Fatalf("expected 1 server, got %d", len(root.Servers))
	}
	srv := root.Servers[0]
	if srv.Listen.Port != 8080 || srv.Root != "./www" {
		t.Fatalf("got %+v", srv)
	}
	if len(srv.Locations) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(srv.Locations))
	}
	if root.GlobalErrorPages[500] != "/errors/500.html" {
		t.Fatalf("got %+v", root.GlobalErrorPages)
	}
}

func TestValidateRejectsRedirectAndCGITogether(t *testing.T) {
	badLoc := NewLocationRule("/x")
	badLoc.Redirect = &Redirect{Status: 301, Target: "/y"}
	badLoc.CGI = &CGIConfig{Root: "./cgi", Extensions: map[string]bool{".sh": true}}

	root := Root{Servers: []ServerConfig{{
		Listen:       ListenAddress{IP: "0.0.0.0", Port: 80},
		Root:         "./www",
		AllowMethods: DefaultMethods(),
		MaxBody:      constants.BodyUnset,
		Locations:    []LocationRule{badLoc},
	}}}

	if err := Validate(root); err == nil {
		t.Fatalf("expected validation error for redirect+cgi")
	}
}

func TestValidateRejectsDuplicateListen(t *testing.T) {
	mk := func() ServerConfig {
		return ServerConfig{
			Listen:       ListenAddress{IP: "0.0.0.0", Port: 80},
			Root:         "./www",
			AllowMethods: DefaultMethods(),
			MaxBody:      constants.BodyUnset,
		}
	}
	root := Root{Servers: []ServerConfig{mk(), mk()}}
	if err := Validate(root); err == nil {
		t.Fatalf("expected validation error for duplicate listen address")
	}
}

func TestValidateRequiresRoot(t *testing.T) {
	root := Root{Servers: []ServerConfig{{
		Listen:       ListenAddress{IP: "0.0.0.0", Port: 80},
		AllowMethods: DefaultMethods(),
		MaxBody:      constants.BodyUnset,
	}}}
	if err := Validate(root); err == nil {
		t.Fatalf("expected validation error for missing root")
	}
}

func TestValidateRequiresCGIExtensions(t *testing.T) {
	loc := NewLocationRule("/cgi")
	loc.CGI = &CGIConfig{Root: "./cgi"}
	root := Root{Servers: []ServerConfig{{
		Listen:       ListenAddress{IP: "0.0.0.0", Port: 80},
		Root:         "./www",
		AllowMethods: DefaultMethods(),
		MaxBody:      constants.BodyUnset,
		Locations:    []LocationRule{loc},
	}}}
	if err := Validate(root); err == nil {
		t.Fatalf("expected validation error for cgi without extensions")
	}
}

func TestSelectLocationLongestPrefix(t *testing.T) {
	api := NewLocationRule("/api")
	apiV2 := NewLocationRule("/api/v2")
	srv := ServerConfig{
		Root:         "./www",
		AllowMethods: DefaultMethods(),
		Locations:    []LocationRule{api, apiV2},
	}

	eff := SelectLocation(srv, "/api/v2/users")
	if eff.Path != "/api/v2" {
		t.Fatalf("expected longest-prefix match /api/v2, got %q", eff.Path)
	}
}

func TestSelectLocationSegmentBoundary(t *testing.T) {
	docs := NewLocationRule("/doc")
	srv := ServerConfig{Root: "./www", AllowMethods: DefaultMethods(), Locations: []LocationRule{docs}}

	// "/document" must NOT match location "/doc" (no segment boundary).
	eff := SelectLocation(srv, "/document")
	if eff.Path == "/doc" {
		t.Fatalf("matched /doc against /document without a segment boundary")
	}
}

func TestSelectLocationSynthesizesRootWhenNoMatch(t *testing.T) {
	srv := ServerConfig{Root: "./www", AllowMethods: DefaultMethods()}
	eff := SelectLocation(srv, "/anything")
	if eff.Path != "/" || eff.Root != "./www" {
		t.Fatalf("got %+v", eff)
	}
}

func TestSelectLocationAutoindexTriState(t *testing.T) {
	off := NewLocationRule("/off")
	off.Autoindex = AutoOff
	srv := ServerConfig{Root: "./www", AllowMethods: DefaultMethods(), Autoindex: true, Locations: []LocationRule{off}}

	eff := SelectLocation(srv, "/off/x")
	if eff.Autoindex {
		t.Fatalf("explicit location off must win over server-level on")
	}
}

func TestEffectiveMaxBodyInheritanceChain(t *testing.T) {
	cases := []struct {
		loc, srv, global, want int64
	}{
		{10, 20, 30, 10},
		{constants.BodyUnset, 20, 30, 20},
		{constants.BodyUnset, constants.BodyUnset, 30, 30},
		{constants.BodyUnset, constants.BodyUnset, constants.BodyUnset, 99},
	}
	for _, c := range cases {
		got := EffectiveMaxBody(c.loc, c.srv, c.global, 99)
		if got != c.want {
			t.Errorf("EffectiveMaxBody(%d,%d,%d,99) = %d, want %d", c.loc, c.srv, c.global, got, c.want)
		}
	}
}
