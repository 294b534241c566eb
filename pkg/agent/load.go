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

package agent

import (
	"fmt"
	"log/slog"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadFile reads a YAML agent definition from path on top of the built-in
// agent. Keys the file omits keep their built-in values; lists in the file
// replace the built-in lists. An empty path returns the built-in agent.
func LoadFile(path string) (*Spec, error) {
	base := AnalyzeAndRecommend()
	if path == "" {
		return base, nil
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(base.toMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load built-in agent: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load agent file %s: %w", path, err)
	}

	spec := &Spec{}
	if err := k.UnmarshalWithConf("", spec, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to decode agent file %s: %w", path, err)
	}
	if spec.Tools == nil {
		spec.Tools = []string{}
	}

	slog.Debug("Loaded agent definition", "path", path, "name", spec.Name, "model", spec.Model)
	return spec, nil
}

func (s *Spec) toMap() map[string]any {
	safety := make([]any, 0, len(s.Safety))
	for _, ss := range s.Safety {
		safety = append(safety, map[string]any{
			"category":  ss.Category,
			"threshold": ss.Threshold,
		})
	}
	tools := make([]any, 0, len(s.Tools))
	for _, t := range s.Tools {
		tools = append(tools, t)
	}
	return map[string]any{
		"name":        s.Name,
		"description": s.Description,
		"model":       s.Model,
		"instruction": s.Instruction,
		"tools":       tools,
		"safety":      safety,
	}
}
