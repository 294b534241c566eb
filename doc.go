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

// Package problemresolve serves a log-analysis agent over the A2A protocol.
//
// The service resolves its configuration from compiled defaults, an optional
// .env file, the process environment and command-line flags, fails fast when
// a deployment key is missing, and then hands the agent definition to an
// a2a-go server backed by Gemini.
//
// # Quick Start
//
//	go install github.com/kadirpekel/problem-resolve/cmd/problem-resolve@latest
//
// Provide the required deployment keys in .env or the environment:
//
//	GOOGLE_CLOUD_PROJECT_ID=my-project
//	MCP_ENDPOINT=https://mcp.example.com
//	MCP_API_KEY=...
//	A2A_AGENT_ID=problem-resolve
//	A2A_ENDPOINT=https://agents.example.com/problem-resolve/
//	A2A_SECRET_KEY=...
//
// Then start the server:
//
//	problem-resolve --port 8000 --log-level DEBUG
//
// Other commands:
//
//	problem-resolve check     # resolve configuration and run preflight checks
//	problem-resolve card      # print the agent card
//	problem-resolve version
//
// # Packages
//
//   - pkg/config: configuration resolver and env file handling
//   - pkg/agent: the agent definition and its projections
//   - pkg/model: Gemini client construction
//   - pkg/server: A2A executor and HTTP surface
//   - pkg/observability: metrics and tracing
package problemresolve
