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
	"encoding/json"
	"fmt"

	problemresolve "github.com/kadirpekel/problem-resolve"
	"github.com/kadirpekel/problem-resolve/pkg/config"
	"github.com/kadirpekel/problem-resolve/pkg/preflight"
)

// CheckCmd resolves the configuration and runs the preflight checks without
// starting the server.
type CheckCmd struct {
	Standalone bool `help:"Resolve with the standalone agent defaults."`
}

func (c *CheckCmd) Run(cli *CLI, a *app) error {
	defaults := config.DefaultTable(config.DefaultPort)
	if c.Standalone {
		defaults = config.DefaultTable(config.StandaloneAgentPort)
	}
	printSummary(a.stdout, cli, defaults)

	results, err := preflight.Run(a.ctx, a.checks...)
	for _, r := range results {
		status := "ok"
		if !r.OK() {
			status = "FAILED"
		}
		fmt.Fprintf(a.stdout, "   check %-12s %s\n", r.Name, status)
	}
	if err != nil {
		return err
	}

	cfg, err := resolve(cli, a.environ(), defaults, config.RequiredKeys)
	if err != nil {
		return err
	}
	if _, err := loadAgent(cli); err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, "Resolved configuration:")
	printConfig(a.stdout, cfg)
	fmt.Fprintln(a.stdout, "Configuration OK")
	return nil
}

// CardCmd prints the agent card the server would publish. Deployment keys
// are not required.
type CardCmd struct{}

func (c *CardCmd) Run(cli *CLI, a *app) error {
	cfg, err := resolve(cli, a.environ(), config.DefaultTable(config.DefaultPort), nil)
	if err != nil {
		return err
	}
	spec, err := loadAgent(cli)
	if err != nil {
		return err
	}

	card := spec.Card(cardURL(cfg), problemresolve.GetVersion().Version)
	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode agent card: %w", err)
	}
	fmt.Fprintln(a.stdout, string(data))
	return nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	fmt.Fprintln(a.stdout, problemresolve.GetVersion().String())
	return nil
}
