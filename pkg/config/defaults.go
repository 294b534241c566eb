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
	"maps"
	"strconv"
)

// Consumed environment variables.
const (
	GoogleCloudProjectKey   = "GOOGLE_CLOUD_PROJECT"
	GoogleCloudLocationKey  = "GOOGLE_CLOUD_LOCATION"
	GoogleGenAIUseVertexKey = "GOOGLE_GENAI_USE_VERTEXAI"

	GoogleCloudProjectIDKey = "GOOGLE_CLOUD_PROJECT_ID"
	MCPEndpointKey          = "MCP_ENDPOINT"
	MCPAPIKeyKey            = "MCP_API_KEY"
	A2AAgentIDKey           = "A2A_AGENT_ID"
	A2AEndpointKey          = "A2A_ENDPOINT"
	A2ASecretKeyKey         = "A2A_SECRET_KEY"
)

const (
	// DefaultPort is the port of the service entry point.
	DefaultPort = 8000

	// StandaloneAgentPort is the port the bare agent entry point binds to.
	StandaloneAgentPort = 8001

	DefaultHost            = "0.0.0.0"
	DefaultWorkers         = 1
	DefaultLogLevel        = LogLevelInfo
	DefaultEnvFile         = ".env"
	DefaultCloudProject    = "cloud-sre-poc-465509"
	DefaultCloudLocation   = "us-central1"
	DefaultUseVertexAI     = true
	DefaultSecretMask      = "****"
	defaultMaskVisibleTail = 4
)

// RequiredKeys are the deployment keys with no safe default.
var RequiredKeys = []string{
	GoogleCloudProjectIDKey,
	MCPEndpointKey,
	MCPAPIKeyKey,
	A2AAgentIDKey,
	A2AEndpointKey,
	A2ASecretKeyKey,
}

// Defaults maps keys to their compiled default values.
type Defaults map[string]string

// DefaultTable returns the compiled defaults with the given server port.
// The service entry point passes DefaultPort; the standalone agent passes
// StandaloneAgentPort.
func DefaultTable(port int) Defaults {
	return Defaults{
		GoogleCloudProjectKey:   DefaultCloudProject,
		GoogleCloudLocationKey:  DefaultCloudLocation,
		GoogleGenAIUseVertexKey: strconv.FormatBool(DefaultUseVertexAI),
		ServerHostKey:           DefaultHost,
		ServerPortKey:           strconv.Itoa(port),
		ServerReloadKey:         "false",
		ServerWorkersKey:        strconv.Itoa(DefaultWorkers),
		LogLevelKey:             string(DefaultLogLevel),
	}
}

// With returns a copy of d with key set to value.
func (d Defaults) With(key, value string) Defaults {
	out := maps.Clone(d)
	if out == nil {
		out = Defaults{}
	}
	out[key] = value
	return out
}

// secretKeys are masked when the resolved configuration is printed.
var secretKeys = map[string]bool{
	MCPAPIKeyKey:     true,
	A2ASecretKeyKey:  true,
	"GOOGLE_API_KEY": true,
	"GEMINI_API_KEY": true,
}

// IsSecret reports whether key holds a credential.
func IsSecret(key string) bool {
	return secretKeys[key]
}

// Mask hides all but the last few characters of a secret value.
func Mask(value string) string {
	if len(value) <= defaultMaskVisibleTail*2 {
		return DefaultSecretMask
	}
	return DefaultSecretMask + value[len(value)-defaultMaskVisibleTail:]
}
