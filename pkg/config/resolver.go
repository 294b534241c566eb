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
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// OptionalKeys are environment-only keys the service reads when present.
// They have no default and are never required.
var OptionalKeys = []string{
	"GOOGLE_API_KEY",
	"GEMINI_API_KEY",
	"LOG_FORMAT",
	"OTEL_TRACES_EXPORTER",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
}

// CLIArgs holds the flags the command line controls. A nil pointer means the
// flag was not given, so lower layers decide the value.
type CLIArgs struct {
	// EnvFile is the env file that was loaded into the environment layer,
	// or "" when none was found.
	EnvFile string

	Host     *string
	Port     *int
	Reload   *bool
	Workers  *int
	LogLevel *string
}

// Resolve merges defaults, env and args into an EffectiveConfig.
//
// Environment values win over defaults; CLI values win over the environment
// for the server fields only. Every key in required must resolve to a
// non-empty value; otherwise a *MissingConfigError listing all of them,
// sorted, is returned. Values that fail to parse or violate a range return
// *InvalidValueError.
//
// Resolve does not touch the process environment. It is deterministic in its
// inputs.
func Resolve(args CLIArgs, env Env, defaults Defaults, required []string) (*EffectiveConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(toAnyMap(defaults), ""), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(confmap.Provider(envLayer(env, defaults, required), ""), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cli, err := cliLayer(args)
	if err != nil {
		return nil, err
	}
	if err := k.Load(confmap.Provider(cli, ""), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	values := make(map[string]string, len(k.Keys()))
	for _, key := range k.Keys() {
		values[key] = k.String(key)
	}

	req := slices.Clone(required)
	slices.Sort(req)
	req = slices.Compact(req)

	var missing []string
	for _, name := range req {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingConfigError{Missing: missing}
	}

	level := normalizeLogLevel(values[LogLevelKey])
	if _, ok := values[LogLevelKey]; ok {
		values[LogLevelKey] = string(level)
	}

	cfg := &EffectiveConfig{
		CloudProjectID: values[GoogleCloudProjectKey],
		CloudLocation:  values[GoogleCloudLocationKey],
		ServerHost:     values[ServerHostKey],
		LogLevel:       level,
		EnvFile:        args.EnvFile,
		RequiredKeys:   req,
		values:         values,
	}

	if cfg.UseManagedInference, err = parseBool(values, GoogleGenAIUseVertexKey); err != nil {
		return nil, err
	}
	if cfg.AutoReload, err = parseBool(values, ServerReloadKey); err != nil {
		return nil, err
	}
	if cfg.ServerPort, err = parseInt(values, ServerPortKey); err != nil {
		return nil, err
	}
	if cfg.WorkerCount, err = parseInt(values, ServerWorkersKey); err != nil {
		return nil, err
	}

	if err := validateStruct(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// unsetWhenEmpty lists the defaulted keys whose default also replaces an
// empty environment value.
var unsetWhenEmpty = map[string]bool{
	GoogleCloudProjectKey:   true,
	GoogleCloudLocationKey:  true,
	GoogleGenAIUseVertexKey: true,
}

// envLayer keeps the environment keys the service knows about: every
// defaulted key, every required key and OptionalKeys. Empty values of
// unsetWhenEmpty keys are dropped so their default applies.
func envLayer(env Env, defaults Defaults, required []string) map[string]any {
	out := make(map[string]any)
	keep := func(key string) {
		v, ok := env[key]
		if !ok || (v == "" && unsetWhenEmpty[key]) {
			return
		}
		out[key] = v
	}
	for key := range defaults {
		keep(key)
	}
	for _, key := range required {
		keep(key)
	}
	for _, key := range OptionalKeys {
		keep(key)
	}
	return out
}

func cliLayer(args CLIArgs) (map[string]any, error) {
	out := make(map[string]any)
	if args.Host != nil {
		out[ServerHostKey] = *args.Host
	}
	if args.Port != nil {
		out[ServerPortKey] = strconv.Itoa(*args.Port)
	}
	if args.Reload != nil {
		out[ServerReloadKey] = strconv.FormatBool(*args.Reload)
	}
	if args.Workers != nil {
		if *args.Workers < 1 {
			return nil, &MalformedArgumentError{
				Flag:   "workers",
				Value:  strconv.Itoa(*args.Workers),
				Reason: "must be at least 1",
			}
		}
		out[ServerWorkersKey] = strconv.Itoa(*args.Workers)
	}
	if args.LogLevel != nil {
		out[LogLevelKey] = *args.LogLevel
	}
	return out, nil
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func parseInt(values map[string]string, key string) (int, error) {
	raw := strings.TrimSpace(values[key])
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &InvalidValueError{Key: key, Value: values[key], Reason: "must be an integer"}
	}
	return n, nil
}

func parseBool(values map[string]string, key string) (bool, error) {
	raw := strings.TrimSpace(values[key])
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &InvalidValueError{Key: key, Value: values[key], Reason: "must be true or false"}
	}
	return b, nil
}
