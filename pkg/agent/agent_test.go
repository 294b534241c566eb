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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/kadirpekel/problem-resolve/pkg/config"
)

func TestAnalyzeAndRecommend(t *testing.T) {
	spec := AnalyzeAndRecommend()

	assert.Equal(t, "analyze_and_recommend", spec.Name)
	assert.Equal(t, "gemini-2.0-flash", spec.Model)
	assert.Contains(t, spec.Description, "MSGID")
	assert.Len(t, strings.Split(spec.Instruction, "\n"), 5)
	assert.Empty(t, spec.Tools)
	assert.Equal(t, []SafetySetting{{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "OFF"}}, spec.Safety)
	require.NoError(t, spec.Validate())
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Spec)
		wantErr string
	}{
		{name: "missing_name", mutate: func(s *Spec) { s.Name = "" }, wantErr: "agent name is required"},
		{name: "missing_model", mutate: func(s *Spec) { s.Model = "" }, wantErr: "agent model is required"},
		{name: "tools_declared", mutate: func(s *Spec) { s.Tools = []string{"search"} }, wantErr: "no tools are available"},
		{name: "unknown_safety_passes", mutate: func(s *Spec) {
			s.Safety = []SafetySetting{{Category: "WHATEVER", Threshold: "SOMETHING"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := AnalyzeAndRecommend()
			tt.mutate(spec)
			err := spec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	var nilSpec *Spec
	assert.Error(t, nilSpec.Validate())
}

func TestSpec_Clone(t *testing.T) {
	orig := AnalyzeAndRecommend()
	c := orig.Clone()
	c.Safety[0].Threshold = "BLOCK_NONE"

	assert.Equal(t, "OFF", orig.Safety[0].Threshold)
}

func TestNewHandoff(t *testing.T) {
	cfg, err := config.Resolve(config.CLIArgs{}, config.Env{
		config.GoogleCloudProjectIDKey: "p1",
		config.MCPEndpointKey:          "e",
		config.MCPAPIKeyKey:            "k",
		config.A2AAgentIDKey:           "a",
		config.A2AEndpointKey:          "ae",
		config.A2ASecretKeyKey:         "s",
	}, config.DefaultTable(config.StandaloneAgentPort), config.RequiredKeys)
	require.NoError(t, err)

	h := NewHandoff(AnalyzeAndRecommend(), cfg)

	assert.Equal(t, "gemini-2.0-flash", h.Model)
	assert.Equal(t, "0.0.0.0", h.Host)
	assert.Equal(t, 8001, h.Port)
	assert.Len(t, h.Safety, 1)
	assert.Empty(t, h.Tools)
}

func TestSpec_GenerateContentConfig(t *testing.T) {
	cfg := AnalyzeAndRecommend().GenerateContentConfig()

	require.NotNil(t, cfg.SystemInstruction)
	require.Len(t, cfg.SystemInstruction.Parts, 1)
	assert.Contains(t, cfg.SystemInstruction.Parts[0].Text, "MSGID")
	assert.Contains(t, cfg.SystemInstruction.Parts[0].Text, "5. ")

	require.Len(t, cfg.SafetySettings, 1)
	assert.Equal(t, genai.HarmCategoryDangerousContent, cfg.SafetySettings[0].Category)
	assert.Equal(t, genai.HarmBlockThresholdOff, cfg.SafetySettings[0].Threshold)
}

func TestSpec_GenerateContentConfigEmpty(t *testing.T) {
	cfg := (&Spec{Name: "n", Model: "m"}).GenerateContentConfig()
	assert.Nil(t, cfg.SystemInstruction)
	assert.Empty(t, cfg.SafetySettings)
}

func TestSpec_Card(t *testing.T) {
	card := AnalyzeAndRecommend().Card("http://localhost:8001/", "1.2.3")

	assert.Equal(t, "analyze_and_recommend", card.Name)
	assert.Equal(t, "http://localhost:8001/", card.URL)
	assert.Equal(t, "1.2.3", card.Version)
	assert.Equal(t, a2a.TransportProtocolJSONRPC, card.PreferredTransport)
	assert.True(t, card.Capabilities.Streaming)
	assert.Equal(t, []string{"text/plain"}, card.DefaultInputModes)
	require.Len(t, card.Skills, 1)
	assert.Equal(t, "analyze_and_recommend", card.Skills[0].ID)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	content := `
name: log_triage
model: gemini-2.5-flash
safety:
  - category: HARM_CATEGORY_HARASSMENT
    threshold: BLOCK_ONLY_HIGH
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	spec, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "log_triage", spec.Name)
	assert.Equal(t, "gemini-2.5-flash", spec.Model)
	assert.Equal(t, AnalyzeAndRecommend().Instruction, spec.Instruction)
	assert.Equal(t, []SafetySetting{{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_ONLY_HIGH"}}, spec.Safety)
	assert.Empty(t, spec.Tools)
	assert.NoError(t, spec.Validate())
}

func TestLoadFile_EmptyPathReturnsBuiltIn(t *testing.T) {
	spec, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, AnalyzeAndRecommend(), spec)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: [unclosed"), 0o600))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}
