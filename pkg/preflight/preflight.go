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

// Package preflight runs the dependency checks performed before the server
// starts. A failed check is reported as *config.DependencyUnavailableError.
package preflight

import (
	"context"
	"fmt"
	"go/version"
	"log/slog"
	"runtime"
	"runtime/debug"

	"github.com/kadirpekel/problem-resolve/pkg/config"
)

// MinGoVersion is the oldest toolchain the service is supported on.
const MinGoVersion = "go1.24"

// RequiredModules are the modules the serving layer cannot run without.
var RequiredModules = []string{
	"github.com/a2aproject/a2a-go",
	"google.golang.org/genai",
}

// Check is a named startup check.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is the outcome of one check.
type Result struct {
	Name string
	Err  error
}

// OK reports whether the check passed.
func (r Result) OK() bool { return r.Err == nil }

// Run executes checks in order and stops at the first failure. It returns
// the results of every check that ran and the failing error, if any.
func Run(ctx context.Context, checks ...Check) ([]Result, error) {
	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		err := c.Run(ctx)
		results = append(results, Result{Name: c.Name, Err: err})
		if err != nil {
			slog.Debug("Preflight check failed", "check", c.Name, "error", err)
			return results, err
		}
		slog.Debug("Preflight check passed", "check", c.Name)
	}
	return results, nil
}

// GoVersion checks the running toolchain against MinGoVersion.
func GoVersion() Check {
	return Check{
		Name: "go version",
		Run: func(context.Context) error {
			return CheckGoVersion(runtime.Version(), MinGoVersion)
		},
	}
}

// Modules checks that every module in required is linked into the binary.
func Modules(required []string) Check {
	return Check{
		Name: "modules",
		Run: func(context.Context) error {
			info, ok := debug.ReadBuildInfo()
			return CheckModules(info, ok, required)
		},
	}
}

// CheckGoVersion returns an error when running is older than min. Development
// builds, whose version string is not a release, always pass.
func CheckGoVersion(running, min string) error {
	if !version.IsValid(running) {
		return nil
	}
	if version.Compare(running, min) < 0 {
		return &config.DependencyUnavailableError{
			Name: "go",
			Err:  fmt.Errorf("running %s, need %s or newer", running, min),
		}
	}
	return nil
}

// CheckModules reports the first module in required that info does not list.
// Without build info the check passes.
func CheckModules(info *debug.BuildInfo, ok bool, required []string) error {
	if !ok || info == nil {
		slog.Debug("Build info unavailable, skipping module check")
		return nil
	}

	linked := make(map[string]bool, len(info.Deps)+1)
	linked[info.Main.Path] = true
	for _, dep := range info.Deps {
		linked[dep.Path] = true
	}

	for _, path := range required {
		if !linked[path] {
			return &config.DependencyUnavailableError{
				Name: path,
				Err:  fmt.Errorf("module not linked into %s", info.Path),
			}
		}
	}
	return nil
}
