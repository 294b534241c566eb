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
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/kadirpekel/problem-resolve/pkg/observability"
)

// workerLimiter admits at most n concurrent executions. Only generation
// holds a slot, so task queries and cancellation are never queued behind it.
type workerLimiter struct {
	sem     *semaphore.Weighted
	metrics *observability.Metrics
}

func newWorkerLimiter(n int, metrics *observability.Metrics) *workerLimiter {
	if n < 1 {
		n = 1
	}
	return &workerLimiter{sem: semaphore.NewWeighted(int64(n)), metrics: metrics}
}

// acquire waits for a slot until ctx ends. The returned func releases it.
func (l *workerLimiter) acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		l.metrics.WorkerRejected()
		slog.Warn("No worker available", "error", err)
		return nil, fmt.Errorf("no worker available: %w", err)
	}
	return func() { l.sem.Release(1) }, nil
}
