// Command httpd runs the single-threaded, epoll-driven HTTP/1.1 origin
// server core against a block-style configuration file (spec.md §6).
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/cameriere-di-rete/webserv/internal/config"
	"github.com/cameriere-di-rete/webserv/internal/httperr"
	"github.com/cameriere-di-rete/webserv/internal/server"
)

const version = "0.1.0"

func main() {
	configPath := pflag.StringP("config", "c", "webserv.conf", "path to the server configuration file")
	showVersion := pflag.BoolP("version", "v", false, "print the version and exit")
	verbose := pflag.BoolP("verbose", "V", false, "enable debug-level logging")
	pflag.Parse()

	if *showVersion {
		fmt.Println("webserv " + version)
		return
	}

	log := newLogger(*verbose)

	content, err := os.ReadFile(*configPath)
	if err != nil {
		log.Error().Err(err).Str("path", *configPath).Msg("failed to read configuration")
		os.Exit(1)
	}

	root, err := config.Parse(string(content))
	if err != nil {
		logConfigError(log, err)
		os.Exit(1)
	}

	mgr, err := server.New(root, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
	defer mgr.Close()

	if err := mgr.Run(); err != nil {
		log.Error().Err(err).Msg("server loop exited with error")
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func logConfigError(log zerolog.Logger, err error) {
	if cfgErr, ok := err.(*httperr.Error); ok {
		log.Error().Str("op", cfgErr.Op).Err(cfgErr.Cause).Msg(cfgErr.Message)
		return
	}
	log.Error().Err(err).Msg("invalid configuration")
}
