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

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/problem-resolve/pkg/agent"
	"github.com/kadirpekel/problem-resolve/pkg/config"
	"github.com/kadirpekel/problem-resolve/pkg/observability"
)

func newTestServer(t *testing.T, gen *fakeGenerator, opts ...HTTPServerOption) *HTTPServer {
	t.Helper()
	spec := agent.AnalyzeAndRecommend()
	exec := NewExecutor(ExecutorConfig{Agent: spec, Generator: gen})
	return NewHTTPServer("127.0.0.1:0", spec.Card("http://127.0.0.1:8000/", "test"), exec, opts...)
}

func TestHTTPServer_Health(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &fakeGenerator{}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + HealthPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestHTTPServer_AgentCard(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &fakeGenerator{}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + a2asrv.WellKnownAgentCardPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var card a2a.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	assert.Equal(t, agent.AnalyzeAndRecommend().Name, card.Name)
	assert.Equal(t, "http://127.0.0.1:8000/", card.URL)
	assert.True(t, card.Capabilities.Streaming)
}

func TestHTTPServer_MetricsRoute(t *testing.T) {
	t.Run("absent without metrics", func(t *testing.T) {
		ts := httptest.NewServer(newTestServer(t, &fakeGenerator{}).Handler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + MetricsPath)
		require.NoError(t, err)
		resp.Body.Close()
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("served with metrics", func(t *testing.T) {
		m, err := observability.NewMetrics()
		require.NoError(t, err)
		ts := httptest.NewServer(newTestServer(t, &fakeGenerator{}, WithMetrics(m)).Handler())
		defer ts.Close()

		health, err := http.Get(ts.URL + HealthPath)
		require.NoError(t, err)
		health.Body.Close()

		resp, err := http.Get(ts.URL + MetricsPath)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "problem_resolve_requests_total")
	})
}

func TestHTTPServer_MessageSend(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"check the disk"}}
	ts := httptest.NewServer(newTestServer(t, gen).Handler())
	defer ts.Close()

	payload := `{
		"jsonrpc": "2.0",
		"id": 1,
		"method": "message/send",
		"params": {
			"message": {
				"kind": "message",
				"messageId": "m-1",
				"role": "user",
				"parts": [{"kind": "text", "text": "plan: MSGID 42 failed"}]
			}
		}
	}`
	resp, err := http.Post(ts.URL+"/", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "completed")
	assert.Contains(t, string(body), "check the disk")

	require.Len(t, gen.contents, 1)
	assert.Equal(t, "plan: MSGID 42 failed", gen.contents[0].Parts[0].Text)
}

func postJSONRPC(t *testing.T, client *http.Client, url, method string, params any) map[string]any {
	t.Helper()
	body, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Nil(t, out["error"], "%s returned an error", method)
	result, ok := out["result"].(map[string]any)
	require.True(t, ok, "%s returned no result", method)
	return result
}

func TestHTTPServer_TaskCallsWhileGenerating(t *testing.T) {
	gen := newBlockingGenerator()
	spec := agent.AnalyzeAndRecommend()
	exec := NewExecutor(ExecutorConfig{Agent: spec, Generator: gen, Workers: 1})
	srv := NewHTTPServer("127.0.0.1:0", spec.Card("http://127.0.0.1:8000/", "test"), exec)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	task := postJSONRPC(t, client, ts.URL+"/", "message/send", map[string]any{
		"configuration": map[string]any{"blocking": false},
		"message": map[string]any{
			"kind":      "message",
			"messageId": "m-1",
			"role":      "user",
			"parts":     []any{map[string]any{"kind": "text", "text": "plan: MSGID 42 failed"}},
		},
	})
	taskID, _ := task["id"].(string)
	require.NotEmpty(t, taskID)

	select {
	case <-gen.started:
	case <-time.After(2 * time.Second):
		t.Fatal("generation did not start")
	}

	got := postJSONRPC(t, client, ts.URL+"/", "tasks/get", map[string]any{"id": taskID})
	assert.Equal(t, taskID, got["id"])

	canceled := postJSONRPC(t, client, ts.URL+"/", "tasks/cancel", map[string]any{"id": taskID})
	status, _ := canceled["status"].(map[string]any)
	assert.Equal(t, string(a2a.TaskStateCanceled), status["state"])
}

func TestHTTPServer_ServeAndShutdown(t *testing.T) {
	s := newTestServer(t, &fakeGenerator{})
	require.NoError(t, s.Listen())
	addr := s.Addr()
	assert.NotEqual(t, "127.0.0.1:0", addr)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + HealthPath)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestHTTPServer_ListenConflict(t *testing.T) {
	first := newTestServer(t, &fakeGenerator{})
	require.NoError(t, first.Listen())
	defer first.listener.Close()

	second := NewHTTPServer(first.Addr(), first.card, first.executor)
	err := second.Listen()
	require.Error(t, err)

	var startupErr *config.StartupError
	assert.True(t, errors.As(err, &startupErr))
}
