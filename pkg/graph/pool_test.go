// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aurora-dev/orchestrator/pkg/domain"
)

func TestPoolRunCompletesAllTasksConcurrently(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddTask(newReadyTask(id, 0.5)))
	}

	var ran int32
	pool := &Pool{
		Graph:         g,
		MaxConcurrent: 2,
		PollInterval:  5 * time.Millisecond,
		AgentID:       "pool",
		Work: func(ctx context.Context, t *domain.Task) error {
			atomic.AddInt32(&ran, 1)
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Run(ctx))
	require.EqualValues(t, 3, ran)
	require.True(t, g.Done())
}

func TestPoolRunFailsTaskOnWorkError(t *testing.T) {
	g := New()
	require.NoError(t, g.AddTask(newReadyTask("a", 0.5)))

	pool := &Pool{
		Graph:        g,
		MaxConcurrent: 1,
		PollInterval: 5 * time.Millisecond,
		AgentID:      "pool",
		Work: func(ctx context.Context, t *domain.Task) error {
			return errors.New("boom")
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Run(ctx))

	task, ok := g.Task("a")
	require.True(t, ok)
	require.Equal(t, domain.TaskFailed, task.State)
}

func TestPoolRunHonorsCanTake(t *testing.T) {
	g := New()
	require.NoError(t, g.AddTask(newReadyTask("a", 0.5)))

	var mu sync.Mutex
	allow := false
	pool := &Pool{
		Graph:         g,
		MaxConcurrent: 1,
		PollInterval:  5 * time.Millisecond,
		AgentID:       "pool",
		CanTake: func(t *domain.Task) bool {
			mu.Lock()
			defer mu.Unlock()
			return allow
		},
		Work: func(ctx context.Context, t *domain.Task) error { return nil },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	require.False(t, g.Done(), "task should still be waiting while CanTake refuses it")

	mu.Lock()
	allow = true
	mu.Unlock()

	require.Eventually(t, func() bool { return g.Done() }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
