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
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"google.golang.org/genai"
)

// GenerateContentConfig projects the agent onto a genai request config. The
// description and instruction become the system instruction.
func (s *Spec) GenerateContentConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	var sys []string
	if s.Description != "" {
		sys = append(sys, s.Description)
	}
	if s.Instruction != "" {
		sys = append(sys, s.Instruction)
	}
	if len(sys) > 0 {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(sys, "\n\n")}},
		}
	}

	for _, ss := range s.Safety {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(ss.Category),
			Threshold: genai.HarmBlockThreshold(ss.Threshold),
		})
	}
	return cfg
}

// Card builds the A2A discovery card served at the well-known path.
func (s *Spec) Card(baseURL, version string) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:               s.Name,
		Description:        s.Description,
		URL:                baseURL,
		Version:            version,
		ProtocolVersion:    "1.0",
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills: []a2a.AgentSkill{{
			ID:          s.Name,
			Name:        s.Name,
			Description: s.Description,
			Tags:        []string{"analysis", "troubleshooting", "logs"},
		}},
		Capabilities: a2a.AgentCapabilities{
			Streaming: true,
		},
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		Provider: &a2a.AgentProvider{
			Org: "Problem Resolve",
			URL: "https://github.com/kadirpekel/problem-resolve",
		},
	}
}
