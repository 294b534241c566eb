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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/kadirpekel/problem-resolve/pkg/agent"
	"github.com/kadirpekel/problem-resolve/pkg/config"
	"github.com/kadirpekel/problem-resolve/pkg/logger"
)

const logFormatKey = "LOG_FORMAT"

// resolve layers the env file under base and resolves the configuration.
// base is not modified.
func resolve(cli *CLI, base config.Env, defaults config.Defaults, required []string) (*config.EffectiveConfig, error) {
	env := base.Clone()
	if env == nil {
		env = config.Env{}
	}

	loaded, err := config.LoadDotEnv(cli.Config, env)
	if err != nil {
		return nil, &config.StartupError{Stage: "load env file", Err: err}
	}

	envFile := ""
	if loaded {
		envFile = cli.Config
	}
	return config.Resolve(cli.args(envFile), env, defaults, required)
}

// loadAgent returns the built-in agent, or the one in cli.AgentFile.
func loadAgent(cli *CLI) (*agent.Spec, error) {
	spec, err := agent.LoadFile(cli.AgentFile)
	if err != nil {
		return nil, &config.StartupError{Stage: "load agent", Err: err}
	}
	if err := spec.Validate(); err != nil {
		return nil, &config.StartupError{Stage: "validate agent", Err: err}
	}
	return spec, nil
}

// initLogger installs the slog default for cfg. The --log-format flag wins
// over LOG_FORMAT.
func initLogger(cli *CLI, cfg *config.EffectiveConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logger.ParseLevel(string(cfg.LogLevel))
	if err != nil {
		return nil, &config.StartupError{Stage: "init logger", Err: err}
	}
	format := cli.LogFormat
	if format == "" {
		format = cfg.Value(logFormatKey)
	}
	return logger.Init(level, w, format), nil
}

// cardURL is the URL advertised on the agent card: A2A_ENDPOINT when it is
// an absolute http(s) URL, otherwise the bind address. A wildcard host is
// advertised as localhost.
func cardURL(cfg *config.EffectiveConfig) string {
	if raw := cfg.Value(config.A2AEndpointKey); raw != "" {
		if u, err := url.Parse(raw); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
			return raw
		}
	}

	host := cfg.ServerHost
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, strconv.Itoa(cfg.ServerPort)))
}

// printSummary writes what the command line asks for before anything is
// resolved. Unset flags show the compiled default.
func printSummary(w io.Writer, cli *CLI, defaults config.Defaults) {
	str := func(p *string, key string) string {
		if p != nil {
			return *p
		}
		return defaults[key]
	}
	num := func(p *int, key string) string {
		if p != nil {
			return strconv.Itoa(*p)
		}
		return defaults[key]
	}
	reload := defaults[config.ServerReloadKey]
	if cli.Reload != nil {
		reload = strconv.FormatBool(*cli.Reload)
	}

	fmt.Fprintln(w, "Starting problem-resolve")
	fmt.Fprintf(w, "   Env file:   %s\n", cli.Config)
	fmt.Fprintf(w, "   Host:       %s\n", str(cli.Host, config.ServerHostKey))
	fmt.Fprintf(w, "   Port:       %s\n", num(cli.Port, config.ServerPortKey))
	fmt.Fprintf(w, "   Workers:    %s\n", num(cli.Workers, config.ServerWorkersKey))
	fmt.Fprintf(w, "   Reload:     %s\n", reload)
	fmt.Fprintf(w, "   Log level:  %s\n", str(cli.LogLevel, config.LogLevelKey))
	if cli.AgentFile != "" {
		fmt.Fprintf(w, "   Agent file: %s\n", cli.AgentFile)
	}
}

// printConfig writes every resolved key in order, masking credentials.
func printConfig(w io.Writer, cfg *config.EffectiveConfig) {
	for _, key := range cfg.Keys() {
		value := cfg.Value(key)
		if config.IsSecret(key) {
			value = config.Mask(value)
		}
		fmt.Fprintf(w, "   %s=%s\n", key, value)
	}
}
