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

package logger

import (
	"bytes"
	"context"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"DEBUG", slog.LevelDebug, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"WARNING", slog.LevelWarn, false},
		{"warn", slog.LevelWarn, false},
		{"ERROR", slog.LevelError, false},
		{" error ", slog.LevelError, false},
		{"TRACE", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInit_SimpleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := Init(slog.LevelInfo, &buf, FormatSimple)

	log.Info("Server starting", "addr", "0.0.0.0:8000", "note", "two words")
	log.Debug("hidden")

	assert.Equal(t, "INFO Server starting addr=0.0.0.0:8000 note=\"two words\"\n", buf.String())
	assert.Same(t, log, slog.Default())
}

func TestInit_VerboseIncludesTime(t *testing.T) {
	var buf bytes.Buffer
	log := Init(slog.LevelDebug, &buf, FormatVerbose)

	log.Debug("tick")

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "DEBUG tick\n"), line)
	assert.Regexp(t, `^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} `, line)
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := Init(slog.LevelInfo, &buf, FormatJSON)

	log.Warn("careful", "n", 3)

	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"msg":"careful"`)
	assert.Contains(t, buf.String(), `"n":3`)
}

func TestTextHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := Init(slog.LevelInfo, &buf, FormatSimple)

	log.With("task", "t1").WithGroup("gen").Info("done", "chunks", 2)

	assert.Equal(t, "INFO done task=t1 gen.chunks=2\n", buf.String())
}

func TestFilteringHandler_DropsForeignRecordsAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	log := Init(slog.LevelInfo, &buf, FormatSimple)

	// PC 0 means the caller is unknown and therefore not this module.
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "third party", 0)
	require.NoError(t, log.Handler().Handle(context.Background(), rec))
	assert.Empty(t, buf.String())

	buf.Reset()
	log = Init(slog.LevelDebug, &buf, FormatSimple)
	require.NoError(t, log.Handler().Handle(context.Background(), rec))
	assert.Equal(t, "INFO third party\n", buf.String())
}

func TestFilteringHandler_KeepsCommandRecords(t *testing.T) {
	var buf bytes.Buffer
	log := Init(slog.LevelInfo, &buf, FormatSimple)

	foreign := reflect.ValueOf(strings.ToUpper).Pointer()
	rec := slog.NewRecord(time.Now(), slog.LevelError, "from strings", foreign)
	require.NoError(t, log.Handler().Handle(context.Background(), rec))
	assert.Empty(t, buf.String())

	own := reflect.ValueOf(ParseLevel).Pointer()
	rec = slog.NewRecord(time.Now(), slog.LevelError, "from logger", own)
	require.NoError(t, log.Handler().Handle(context.Background(), rec))
	assert.Equal(t, "ERROR from logger\n", buf.String())
}

func TestInModule(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		file string
		want bool
	}{
		{name: "package function", fn: "github.com/kadirpekel/problem-resolve/pkg/server.(*Executor).Execute", file: "/src/pkg/server/executor.go", want: true},
		{name: "command function", fn: "main.(*ServeCmd).Run", file: "/build/serve.go", want: true},
		{name: "command closure", fn: "main.run.func1", file: "", want: true},
		{name: "checkout path", fn: "command-line-arguments.run", file: "/home/dev/problem-resolve/cmd/problem-resolve/main.go", want: true},
		{name: "dependency", fn: "github.com/a2aproject/a2a-go/a2asrv.(*handler).OnSendMessage", file: "/go/pkg/mod/github.com/a2aproject/a2a-go@v0.3.0/a2asrv/handler.go", want: false},
		{name: "stdlib", fn: "net/http.(*Server).Serve", file: "/usr/local/go/src/net/http/server.go", want: false},
		{name: "lookalike prefix", fn: "mainline.Run", file: "/go/pkg/mod/mainline@v1/run.go", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inModule(tt.fn, tt.file))
		})
	}
}

func TestGetLogger_InitializesOnce(t *testing.T) {
	defaultLogger = nil
	first := GetLogger()
	assert.NotNil(t, first)
	assert.Same(t, first, GetLogger())
}
