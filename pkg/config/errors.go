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
	"strings"
)

// MissingConfigError reports every required key that resolved to an absent
// or empty value. Missing is sorted.
type MissingConfigError struct {
	Missing []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}

// InvalidValueError reports a resolved value that does not parse or falls
// outside its allowed range.
type InvalidValueError struct {
	Key    string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Key, e.Reason)
}

// MalformedArgumentError reports a command-line flag that does not parse
// against its declared type or enumeration.
type MalformedArgumentError struct {
	Flag   string
	Value  string
	Reason string
}

func (e *MalformedArgumentError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("--%s: %s", e.Flag, e.Reason)
	}
	return fmt.Sprintf("--%s=%q: %s", e.Flag, e.Value, e.Reason)
}

// DependencyUnavailableError reports an external collaborator that could not
// be located or constructed at startup.
type DependencyUnavailableError struct {
	Name string
	Err  error
}

func (e *DependencyUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("dependency unavailable: %s", e.Name)
	}
	return fmt.Sprintf("dependency unavailable: %s: %v", e.Name, e.Err)
}

func (e *DependencyUnavailableError) Unwrap() error { return e.Err }

// StartupError wraps any other failure while handing off to the serving
// layer. Stage names the step that failed.
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed (%s): %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is a configuration defect: a missing key,
// an invalid value or a malformed flag.
func IsConfigError(err error) bool {
	var missing *MissingConfigError
	var invalid *InvalidValueError
	var malformed *MalformedArgumentError
	return errors.As(err, &missing) || errors.As(err, &invalid) || errors.As(err, &malformed)
}
