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

// Package config resolves the service's startup configuration.
//
// Configuration is layered, lowest precedence first:
//
//  1. Compiled defaults (see DefaultTable)
//  2. An optional .env file, loaded underneath the process environment
//  3. The process environment
//  4. Command-line flags, for the server fields only (host, port, reload,
//     workers, log level)
//
// Resolve merges the layers into an EffectiveConfig and refuses to return one
// while any required deployment key is absent. The result is read-only and is
// handed to the serving layer by value; nothing below cmd/ reads os.Getenv.
package config

import (
	"maps"
	"net"
	"slices"
	"strconv"
	"strings"
)

// LogLevel is one of the four levels accepted on the command line.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// LogLevels lists the accepted levels in increasing severity.
var LogLevels = []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError}

// ParseLogLevel returns the LogLevel named by s. Matching is exact.
func ParseLogLevel(s string) (LogLevel, bool) {
	for _, l := range LogLevels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// normalizeLogLevel maps an environment value onto the LogLevel vocabulary.
// Case and surrounding space are ignored and WARN is read as WARNING, which
// is what the logger accepts. Unknown names pass through for validation.
func normalizeLogLevel(s string) LogLevel {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARN" {
		return LogLevelWarning
	}
	return LogLevel(s)
}

// EffectiveConfig is the fully merged, validated configuration the service
// starts with. Construct it with Resolve.
type EffectiveConfig struct {
	// CloudProjectID is GOOGLE_CLOUD_PROJECT, used by the model backend.
	CloudProjectID string `env:"GOOGLE_CLOUD_PROJECT"`

	// CloudLocation is GOOGLE_CLOUD_LOCATION.
	CloudLocation string `env:"GOOGLE_CLOUD_LOCATION"`

	// UseManagedInference selects Vertex AI over the Gemini API.
	UseManagedInference bool `env:"GOOGLE_GENAI_USE_VERTEXAI"`

	ServerHost string `env:"SERVER_HOST" validate:"required"`
	ServerPort int    `env:"SERVER_PORT" validate:"min=1,max=65535"`

	// AutoReload restarts the server when the env file changes.
	AutoReload bool `env:"SERVER_RELOAD"`

	// WorkerCount bounds concurrent agent executions.
	WorkerCount int `env:"SERVER_WORKERS" validate:"min=1"`

	LogLevel LogLevel `env:"LOG_LEVEL" validate:"oneof=DEBUG INFO WARNING ERROR"`

	// EnvFile is the env file path when one was found and loaded.
	EnvFile string `env:"ENV_FILE"`

	// RequiredKeys is the set that was checked, sorted.
	RequiredKeys []string

	values map[string]string
}

// Value returns the resolved value for key, or "" when unset.
func (c *EffectiveConfig) Value(key string) string {
	return c.values[key]
}

// Lookup returns the resolved value for key and whether it was set by any
// layer.
func (c *EffectiveConfig) Lookup(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Values returns a copy of every resolved key.
func (c *EffectiveConfig) Values() map[string]string {
	return maps.Clone(c.values)
}

// Keys returns the resolved key names, sorted.
func (c *EffectiveConfig) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Address returns the host:port the server binds to.
func (c *EffectiveConfig) Address() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// Produced environment variables. The serving layer and any child process
// observe the CLI-derived fields through these.
const (
	EnvFileKey       = "ENV_FILE"
	ServerHostKey    = "SERVER_HOST"
	ServerPortKey    = "SERVER_PORT"
	ServerReloadKey  = "SERVER_RELOAD"
	ServerWorkersKey = "SERVER_WORKERS"
	LogLevelKey      = "LOG_LEVEL"
)

// Mirror returns the environment variables derived from the server fields.
// ENV_FILE is included only when an env file was loaded.
func (c *EffectiveConfig) Mirror() map[string]string {
	m := map[string]string{
		ServerHostKey:    c.ServerHost,
		ServerPortKey:    strconv.Itoa(c.ServerPort),
		ServerReloadKey:  strconv.FormatBool(c.AutoReload),
		ServerWorkersKey: strconv.Itoa(c.WorkerCount),
		LogLevelKey:      string(c.LogLevel),
	}
	if c.EnvFile != "" {
		m[EnvFileKey] = c.EnvFile
	}
	return m
}

// ApplyMirror writes Mirror() through setenv in key order. Callers pass
// os.Setenv; tests pass a recorder.
func ApplyMirror(c *EffectiveConfig, setenv func(key, value string) error) error {
	m := c.Mirror()
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if err := setenv(k, m[k]); err != nil {
			return &StartupError{Stage: "mirror " + k, Err: err}
		}
	}
	return nil
}
