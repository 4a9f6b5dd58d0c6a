// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/capturetrack/lib/config"
	"github.com/bureau-foundation/capturetrack/lib/snapshot"
	"github.com/bureau-foundation/capturetrack/lib/version"
)

func main() {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := a.root().execute(os.Args[1:], os.Stderr); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the process-wide outputs so tests can capture them.
type app struct {
	stdout io.Writer
	stderr io.Writer
}

func (a *app) root() *command {
	return &command{
		name:    "capturetrack",
		summary: "Inspect, verify, replay and synthesize capture metadata recordings",
		subcommands: []*command{
			a.inspectCommand(),
			a.dumpCommand(),
			a.verifyCommand(),
			a.replayCommand(),
			a.synthCommand(),
			a.versionCommand(),
		},
	}
}

func (a *app) versionCommand() *command {
	return &command{
		name:    "version",
		summary: "Print build information",
		run: func(args []string) error {
			fmt.Fprintln(a.stdout, version.Info())
			return nil
		},
	}
}

// commonFlags are accepted by every command that touches a recording.
type commonFlags struct {
	configPath string
}

func (c *commonFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.configPath, "config", "", "path to config file (default: $"+config.EnvVar+", then built-in defaults)")
}

// load resolves and validates the configuration and builds the logger
// it describes.
func (c *commonFlags) load(a *app) (*config.Config, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case c.configPath != "":
		cfg, err = config.LoadFile(c.configPath)
	case os.Getenv(config.EnvVar) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(snapshot.KindNames()); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, newLogger(a.stderr, cfg.Logging), nil
}

// newLogger builds the command logger. Format "auto" picks text on a
// terminal and JSON otherwise, so piped output stays machine-readable.
func newLogger(w io.Writer, logging config.LoggingConfig) *slog.Logger {
	options := &slog.HandlerOptions{Level: logging.SlogLevel()}
	format := logging.Format
	if format == "auto" || format == "" {
		format = "json"
		if isTerminal(w) {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("expected %d argument(s), got %d\n\nUsage:\n  %s", n, len(args), usage)
	}
	return nil
}
