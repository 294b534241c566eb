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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env is a snapshot of environment variables.
type Env map[string]string

// Environ snapshots the current process environment.
func Environ() Env {
	return ParseEnviron(os.Environ())
}

// ParseEnviron builds an Env from KEY=VALUE pairs as returned by os.Environ.
// Entries without '=' are ignored.
func ParseEnviron(pairs []string) Env {
	env := make(Env, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Clone returns a copy of e.
func (e Env) Clone() Env {
	return maps.Clone(e)
}

// LoadDotEnv parses the env file at path and adds its keys to env.
//
// Keys already present in env are NOT overwritten, so the process
// environment always wins over the file. A missing file is not an error and
// reports loaded=false. The file is closed on every return path.
func LoadDotEnv(path string, env Env) (loaded bool, err error) {
	if path == "" {
		return false, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Env file not found, skipping", "path", path)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open env file %s: %w", path, err)
	}
	defer f.Close()

	parsed, err := godotenv.Parse(f)
	if err != nil {
		return false, fmt.Errorf("failed to parse env file %s: %w", path, err)
	}

	added := 0
	for k, v := range parsed {
		if _, exists := env[k]; exists {
			continue
		}
		env[k] = v
		added++
	}

	slog.Debug("Loaded environment from env file", "path", path, "keys", len(parsed), "added", added)
	return true, nil
}
