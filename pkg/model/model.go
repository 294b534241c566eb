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

// Package model connects the agent to the Gemini family of models through
// google.golang.org/genai, on either the Vertex AI or the Gemini API backend.
package model

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/kadirpekel/problem-resolve/pkg/config"
)

// Environment keys for the Gemini API backend, checked in order.
var apiKeyKeys = []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}

// Generator streams model output. The server depends on this rather than on
// *genai.Client so tests can substitute a fake.
type Generator interface {
	GenerateStream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// ClientConfig selects the backend from cfg. With UseManagedInference the
// Vertex AI backend is used with the cloud project and location; otherwise
// the Gemini API backend is used with the first API key found.
func ClientConfig(cfg *config.EffectiveConfig) *genai.ClientConfig {
	if cfg.UseManagedInference {
		return &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.CloudProjectID,
			Location: cfg.CloudLocation,
		}
	}

	cc := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	for _, key := range apiKeyKeys {
		if v := cfg.Value(key); v != "" {
			cc.APIKey = v
			break
		}
	}
	return cc
}

type genaiGenerator struct {
	client *genai.Client
}

// New constructs a genai-backed Generator. Failure to build the client is
// reported as a *config.DependencyUnavailableError.
func New(ctx context.Context, cfg *config.EffectiveConfig) (Generator, error) {
	cc := ClientConfig(cfg)
	if cc.Backend == genai.BackendGeminiAPI && cc.APIKey == "" {
		return nil, &config.DependencyUnavailableError{
			Name: "genai",
			Err:  fmt.Errorf("Gemini API backend selected but none of %s is set", strings.Join(apiKeyKeys, ", ")),
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &config.DependencyUnavailableError{Name: "genai", Err: err}
	}

	slog.Debug("Model client ready", "backend", backendName(cc.Backend), "project", cc.Project, "location", cc.Location)
	return &genaiGenerator{client: client}, nil
}

func (g *genaiGenerator) GenerateStream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				yield(nil, fmt.Errorf("Gemini streaming error: %w", err))
				return
			}
			if !yield(resp, nil) {
				return
			}
		}
	}
}

// ResponseText returns the text of the first candidate, skipping thought
// parts. It returns "" for responses without text.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func backendName(b genai.Backend) string {
	switch b {
	case genai.BackendVertexAI:
		return "vertex"
	case genai.BackendGeminiAPI:
		return "gemini"
	default:
		return "unspecified"
	}
}
