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

// Package server exposes the agent over the A2A protocol.
//
// Executor implements a2asrv.AgentExecutor on top of a model.Generator, and
// HTTPServer mounts the a2a-go JSON-RPC handler and agent card on a chi
// router:
//
//	executor := server.NewExecutor(server.ExecutorConfig{
//	    Agent: spec, Generator: gen, Workers: cfg.WorkerCount,
//	})
//	srv := server.NewHTTPServer(cfg.Address(), spec.Card(url, version), executor)
//	err := srv.Serve(ctx)
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/kadirpekel/problem-resolve/pkg/agent"
	"github.com/kadirpekel/problem-resolve/pkg/model"
	"github.com/kadirpekel/problem-resolve/pkg/observability"
)

// ExecutorConfig contains the configuration for the A2A executor.
type ExecutorConfig struct {
	Agent     *agent.Spec
	Generator model.Generator

	// Workers bounds concurrent generations. Values below 1 mean 1.
	Workers int

	// Metrics and Tracer are optional.
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Executor implements a2asrv.AgentExecutor for a single agent.
//
// Event translation follows these rules:
//   - New task: emit TaskStatusUpdateEvent with TaskStateSubmitted
//   - Wait for a worker slot; the task stays submitted until one frees up
//   - Before generation: emit TaskStatusUpdateEvent with TaskStateWorking
//   - For each streamed chunk with text: emit TaskArtifactUpdateEvent
//   - After the last chunk: emit TaskArtifactUpdateEvent with LastChunk=true
//   - On generation error: emit final TaskStatusUpdateEvent with TaskStateFailed
//   - On success: emit final TaskStatusUpdateEvent with TaskStateCompleted
type Executor struct {
	agent   *agent.Spec
	gen     model.Generator
	genCfg  *genai.GenerateContentConfig
	metrics *observability.Metrics
	tracer  *observability.Tracer
	limiter *workerLimiter
}

// NewExecutor creates a new A2A executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	return &Executor{
		agent:   cfg.Agent,
		gen:     cfg.Generator,
		genCfg:  cfg.Agent.GenerateContentConfig(),
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
		limiter: newWorkerLimiter(cfg.Workers, cfg.Metrics),
	}
}

// Execute implements a2asrv.AgentExecutor.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	if reqCtx.Message == nil {
		return errors.New("message not provided")
	}

	ctx, span := e.tracer.Start(ctx, observability.SpanAgentExecution, trace.WithAttributes(
		attribute.String(observability.AttrAgentName, e.agent.Name),
		attribute.String(observability.AttrTaskID, string(reqCtx.TaskID)),
		attribute.String(observability.AttrContextID, reqCtx.ContextID),
	))
	defer span.End()

	if reqCtx.StoredTask == nil {
		event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)
		if err := queue.Write(ctx, event); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	// The task stays submitted, and can be canceled, while it waits here.
	release, err := e.limiter.acquire(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer release()

	e.metrics.ExecutionStarted()
	state := a2a.TaskStateFailed
	defer func() {
		span.SetAttributes(attribute.String(observability.AttrTaskState, string(state)))
		e.metrics.ExecutionFinished(string(state))
	}()

	contents, err := toGenaiContents(reqCtx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return queue.Write(ctx, toFailedStatusEvent(reqCtx, err))
	}

	if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, nil)); err != nil {
		return fmt.Errorf("failed to write working event: %w", err)
	}

	slog.Debug("Execute: generating", "agent", e.agent.Name, "task", reqCtx.TaskID, "turns", len(contents))

	artifactID, genErr, err := e.generate(ctx, reqCtx, contents, queue)
	if err != nil {
		return err
	}

	if artifactID != "" {
		ev := a2a.NewArtifactUpdateEvent(reqCtx, artifactID)
		ev.LastChunk = true
		if err := queue.Write(ctx, ev); err != nil {
			return fmt.Errorf("failed to write terminal event: %w", err)
		}
	}

	if genErr != nil {
		slog.Warn("Execute: generation failed", "agent", e.agent.Name, "task", reqCtx.TaskID, "error", genErr)
		span.SetStatus(codes.Error, genErr.Error())
		return queue.Write(ctx, toFailedStatusEvent(reqCtx, genErr))
	}

	done := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	done.Final = true
	if err := queue.Write(ctx, done); err != nil {
		return fmt.Errorf("failed to write completed event: %w", err)
	}
	state = a2a.TaskStateCompleted
	return nil
}

// generate streams model output into artifact events. genErr is a model
// failure to report on the task; err is a queue failure that aborts
// execution.
func (e *Executor) generate(ctx context.Context, reqCtx *a2asrv.RequestContext, contents []*genai.Content, queue eventqueue.Queue) (artifactID a2a.ArtifactID, genErr, err error) {
	ctx, span := e.tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(attribute.String(observability.AttrLLMModel, e.agent.Model)))
	defer span.End()

	start := time.Now()
	chunks := 0
	defer func() {
		span.SetAttributes(attribute.Int(observability.AttrChunks, chunks))
		e.metrics.RecordGeneration(ctx, e.agent.Model, time.Since(start), genErr)
	}()

	for resp, streamErr := range e.gen.GenerateStream(ctx, e.agent.Model, contents, e.genCfg) {
		if streamErr != nil {
			return artifactID, fmt.Errorf("agent run failed: %w", streamErr), nil
		}

		text := model.ResponseText(resp)
		if text == "" {
			continue
		}
		chunks++

		var ev *a2a.TaskArtifactUpdateEvent
		if artifactID == "" {
			ev = a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: text})
			artifactID = ev.Artifact.ID
		} else {
			ev = a2a.NewArtifactUpdateEvent(reqCtx, artifactID, a2a.TextPart{Text: text})
		}
		if err := queue.Write(ctx, ev); err != nil {
			return artifactID, nil, fmt.Errorf("failed to write event: %w", err)
		}
	}
	return artifactID, nil, nil
}

// Cancel implements a2asrv.AgentExecutor.
func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	event.Final = true
	return queue.Write(ctx, event)
}

func toFailedStatusEvent(reqCtx *a2asrv.RequestContext, cause error) *a2a.TaskStatusUpdateEvent {
	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: cause.Error()})
	ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, msg)
	ev.Final = true
	return ev
}

// Ensure Executor implements a2asrv.AgentExecutor
var _ a2asrv.AgentExecutor = (*Executor)(nil)
