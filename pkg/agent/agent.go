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

// Package agent describes the agent the service exposes.
//
// A Spec is plain configuration: model id, instruction, safety policy and
// tool names. It is projected onto the model client (GenerateContentConfig)
// and onto the A2A discovery card (Card) by the serving layer.
package agent

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kadirpekel/problem-resolve/pkg/config"
)

// DefaultModel is the model the built-in agent runs on.
const DefaultModel = "gemini-2.0-flash"

// SafetySetting is one category/threshold pair. Both values are passed to
// the model backend unchanged.
type SafetySetting struct {
	Category  string `yaml:"category"`
	Threshold string `yaml:"threshold"`
}

// Spec is a framework-agnostic agent definition.
type Spec struct {
	Name        string          `yaml:"name" validate:"required"`
	Description string          `yaml:"description"`
	Model       string          `yaml:"model" validate:"required"`
	Instruction string          `yaml:"instruction"`
	Tools       []string        `yaml:"tools"`
	Safety      []SafetySetting `yaml:"safety"`
}

// AnalyzeAndRecommend returns the built-in troubleshooting agent. It reads a
// plan document together with Graylog entries, follows events by MSGID, and
// either concludes or asks for a follow-up query.
func AnalyzeAndRecommend() *Spec {
	return &Spec{
		Name:  "analyze_and_recommend",
		Model: DefaultModel,
		Description: "你是一個分析問題並給出建議的助手，主要是要接收計畫書與graylog的日誌。" +
			"計劃書可以幫助你理解這些graylog資料的意義。" +
			"graylog的日誌主要要根據MSGID來追蹤問題發生順序。",
		Instruction: strings.Join([]string{
			"1. 接收計畫書與graylog的日誌。",
			"2. 分析計畫書與日誌，找出問題發生可能原因。",
			"3. 給出解決建議。",
			"4. 如果需要更多資訊，反饋使用者請他做下一次的查詢計畫。",
			"5. 如果資訊充足，請給出定論。",
		}, "\n"),
		Tools: []string{},
		Safety: []SafetySetting{
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "OFF"},
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the agent can be served. Safety settings are not
// inspected; the model backend rejects values it does not know.
func (s *Spec) Validate() error {
	if s == nil {
		return errors.New("agent spec is nil")
	}
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("agent %s is required", strings.ToLower(verrs[0].Field()))
		}
		return fmt.Errorf("invalid agent spec: %w", err)
	}
	// No tool registry is wired; a named tool could never be called.
	if len(s.Tools) > 0 {
		return fmt.Errorf("agent %q declares tools %v but no tools are available", s.Name, s.Tools)
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Spec) Clone() *Spec {
	c := *s
	c.Tools = slices.Clone(s.Tools)
	c.Safety = slices.Clone(s.Safety)
	return &c
}

// Handoff is what the serving layer receives at startup.
type Handoff struct {
	Model       string
	Instruction string
	Safety      []SafetySetting
	Tools       []string
	Host        string
	Port        int
}

// NewHandoff combines the agent definition with the resolved bind address.
func NewHandoff(s *Spec, cfg *config.EffectiveConfig) Handoff {
	return Handoff{
		Model:       s.Model,
		Instruction: s.Instruction,
		Safety:      slices.Clone(s.Safety),
		Tools:       slices.Clone(s.Tools),
		Host:        cfg.ServerHost,
		Port:        cfg.ServerPort,
	}
}
