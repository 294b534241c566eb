// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command problem-resolve serves the log-analysis agent over A2A.
//
// Usage:
//
//	problem-resolve --config .env --port 8000
//	problem-resolve serve --standalone --reload
//	problem-resolve check
//	problem-resolve card
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/problem-resolve/pkg/config"
	"github.com/kadirpekel/problem-resolve/pkg/model"
	"github.com/kadirpekel/problem-resolve/pkg/preflight"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitMalformed = 2
)

// CLI defines the command-line interface.
type CLI struct {
	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Start the A2A server (default)."`
	Check   CheckCmd   `cmd:"" help:"Resolve configuration and run preflight checks."`
	Card    CardCmd    `cmd:"" help:"Print the agent card as JSON."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config    string  `short:"c" help:"Path to the env file." default:".env"`
	Host      *string `help:"Bind host (default 0.0.0.0)."`
	Port      *int    `help:"Bind port (default 8000, 8001 with --standalone)."`
	Reload    *bool   `help:"Restart the server when the env file changes." negatable:""`
	Workers   *int    `help:"Maximum concurrent agent executions (default 1)."`
	LogLevel  *string `name:"log-level" help:"Log level (DEBUG, INFO, WARNING, ERROR)."`
	LogFormat string  `name:"log-format" help:"Log format (simple, verbose, json). Defaults to LOG_FORMAT or simple."`
	AgentFile string  `name:"agent-file" help:"YAML agent definition overriding the built-in agent." type:"path"`
}

// validate rejects flag values kong accepts by type but the service does not.
func (c *CLI) validate() error {
	if c.LogLevel != nil {
		if _, ok := config.ParseLogLevel(*c.LogLevel); !ok {
			return &config.MalformedArgumentError{
				Flag:   "log-level",
				Value:  *c.LogLevel,
				Reason: "must be one of DEBUG, INFO, WARNING, ERROR",
			}
		}
	}
	if c.Workers != nil && *c.Workers < 1 {
		return &config.MalformedArgumentError{
			Flag:   "workers",
			Value:  fmt.Sprint(*c.Workers),
			Reason: "must be at least 1",
		}
	}
	if c.Port != nil && (*c.Port < 1 || *c.Port > 65535) {
		return &config.MalformedArgumentError{
			Flag:   "port",
			Value:  fmt.Sprint(*c.Port),
			Reason: "must be between 1 and 65535",
		}
	}
	return nil
}

// args converts the flags into resolver input. envFile is the env file that
// was actually loaded, or "".
func (c *CLI) args(envFile string) config.CLIArgs {
	return config.CLIArgs{
		EnvFile:  envFile,
		Host:     c.Host,
		Port:     c.Port,
		Reload:   c.Reload,
		Workers:  c.Workers,
		LogLevel: c.LogLevel,
	}
}

// app carries the process dependencies commands run against.
type app struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer

	environ      func() config.Env
	setenv       func(key, value string) error
	newGenerator func(ctx context.Context, cfg *config.EffectiveConfig) (model.Generator, error)
	checks       []preflight.Check
}

func newApp(ctx context.Context, stdout, stderr io.Writer) *app {
	return &app{
		ctx:          ctx,
		stdout:       stdout,
		stderr:       stderr,
		environ:      config.Environ,
		setenv:       os.Setenv,
		newGenerator: model.New,
		checks: []preflight.Check{
			preflight.GoVersion(),
			preflight.Modules(preflight.RequiredModules),
		},
	}
}

// exitRequest is raised through kong's Exit hook so help and version flags
// unwind back to run instead of terminating the process.
type exitRequest int

func main() {
	os.Exit(run(newApp(context.Background(), os.Stdout, os.Stderr), os.Args[1:]))
}

func run(a *app, args []string) (code int) {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("problem-resolve"),
		kong.Description("Serve the problem analysis agent over the A2A protocol."),
		kong.Writers(a.stdout, a.stderr),
		kong.Exit(func(c int) { panic(exitRequest(c)) }),
		kong.Bind(a),
	)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitFailure
	}

	defer func() {
		if r := recover(); r != nil {
			req, ok := r.(exitRequest)
			if !ok {
				panic(r)
			}
			code = int(req)
		}
	}()

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) && parseErr.Context != nil {
			_ = parseErr.Context.PrintUsage(true)
		}
		return exitMalformed
	}

	if err := cli.validate(); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		_ = kctx.PrintUsage(true)
		return exitMalformed
	}

	if err := kctx.Run(&cli); err != nil {
		reportError(a.stderr, err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var malformed *config.MalformedArgumentError
	if errors.As(err, &malformed) {
		return exitMalformed
	}
	return exitFailure
}

func reportError(w io.Writer, err error) {
	var missing *config.MissingConfigError
	if errors.As(err, &missing) {
		fmt.Fprintf(w, "Error: %v\n", err)
		fmt.Fprintf(w, "Set %s in the env file or the process environment.\n", strings.Join(missing.Missing, ", "))
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
