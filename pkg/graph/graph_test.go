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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/errs"
)

func newReadyTask(id string, complexity float64) *domain.Task {
	t := domain.NewTask(id, "wf-1", id, 3)
	t.ComplexityScore = complexity
	return t
}

func TestAddTaskRejectsUnknownDependency(t *testing.T) {
	g := New()
	task := domain.NewTask("t1", "wf-1", "depends on nothing registered", 3)
	task.Dependencies = []domain.Dependency{{TaskID: "missing", Kind: domain.DependencyHard}}
	err := g.AddTask(task)
	require.Error(t, err)
	require.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestDetectCycleFindsLoopClosedAfterInsertion(t *testing.T) {
	g := New()
	a := domain.NewTask("a", "wf-1", "a", 3)
	require.NoError(t, g.AddTask(a))

	b := domain.NewTask("b", "wf-1", "b", 3)
	b.Dependencies = []domain.Dependency{{TaskID: "a", Kind: domain.DependencyHard}}
	require.NoError(t, g.AddTask(b))

	// Closing the loop: a now depends on b, which depends on a.
	a.Dependencies = []domain.Dependency{{TaskID: "b", Kind: domain.DependencyHard}}
	g.pred["a"]["b"] = true
	g.succ["b"]["a"] = true
	require.True(t, g.detectCycleLocked("a"))
}

func TestAddTaskPromotesToReadyWhenNoDependencies(t *testing.T) {
	g := New()
	task := newReadyTask("t1", 0.5)
	require.NoError(t, g.AddTask(task))
	require.Equal(t, domain.TaskReady, task.State)
}

func TestClaimNextReadyTieBreaksByComplexityThenFIFO(t *testing.T) {
	g := New()

	low := newReadyTask("low", 0.2)
	require.NoError(t, g.AddTask(low))
	time.Sleep(time.Millisecond)
	high := newReadyTask("high", 0.9)
	require.NoError(t, g.AddTask(high))
	time.Sleep(time.Millisecond)
	highLater := newReadyTask("high-later", 0.9)
	require.NoError(t, g.AddTask(highLater))

	// Highest ComplexityScore wins over "low" despite arriving later; between
	// the two 0.9 tasks the one that became ready first goes first.
	claimed, err := g.ClaimNextReady("agent-1", nil)
	require.NoError(t, err)
	require.Equal(t, "high", claimed.ID, "higher complexity score should be claimed first")

	// The remaining 0.9-scored task still outranks "low" (0.2).
	claimed, err = g.ClaimNextReady("agent-1", nil)
	require.NoError(t, err)
	require.Equal(t, "high-later", claimed.ID)

	claimed, err = g.ClaimNextReady("agent-1", nil)
	require.NoError(t, err)
	require.Equal(t, "low", claimed.ID)
}

func TestClaimNextReadySkipsFileLockConflicts(t *testing.T) {
	g := New()
	a := newReadyTask("a", 0.5)
	a.FileWritePaths = []string{"main.go"}
	require.NoError(t, g.AddTask(a))
	b := newReadyTask("b", 0.9)
	b.FileWritePaths = []string{"main.go"}
	require.NoError(t, g.AddTask(b))

	claimed, err := g.ClaimNextReady("agent-1", nil)
	require.NoError(t, err)
	require.Equal(t, "b", claimed.ID, "higher score wins the lock")

	// b now holds the main.go lock; a conflicts and cannot be claimed.
	_, err = g.ClaimNextReady("agent-2", nil)
	require.Error(t, err)
	require.Equal(t, errs.KindTaskExhausted, errs.KindOf(err))
}

func TestCompletePromotesDependents(t *testing.T) {
	g := New()
	parent := newReadyTask("parent", 0.5)
	require.NoError(t, g.AddTask(parent))

	child := domain.NewTask("child", "wf-1", "child", 3)
	child.Dependencies = []domain.Dependency{{TaskID: "parent", Kind: domain.DependencyHard}}
	require.NoError(t, g.AddTask(child))
	require.Equal(t, domain.TaskPending, child.State, "child should not be ready until parent completes")

	_, err := g.ClaimNextReady("agent-1", nil)
	require.NoError(t, err)

	newlyReady, err := g.Complete("parent")
	require.NoError(t, err)
	require.Len(t, newlyReady, 1)
	require.Equal(t, "child", newlyReady[0].ID)
	require.Equal(t, domain.TaskReady, child.State)
}

func TestFailBlocksTransitiveDependents(t *testing.T) {
	g := New()
	root := newReadyTask("root", 0.5)
	require.NoError(t, g.AddTask(root))

	mid := domain.NewTask("mid", "wf-1", "mid", 3)
	mid.Dependencies = []domain.Dependency{{TaskID: "root", Kind: domain.DependencyHard}}
	require.NoError(t, g.AddTask(mid))

	leaf := domain.NewTask("leaf", "wf-1", "leaf", 3)
	leaf.Dependencies = []domain.Dependency{{TaskID: "mid", Kind: domain.DependencyHard}}
	require.NoError(t, g.AddTask(leaf))

	_, err := g.ClaimNextReady("agent-1", nil)
	require.NoError(t, err)

	blocked, err := g.Fail("root", errors.New("boom"), false)
	require.NoError(t, err)
	require.Equal(t, domain.TaskFailed, root.State)

	var blockedIDs []string
	for _, b := range blocked {
		blockedIDs = append(blockedIDs, b.ID)
	}
	require.ElementsMatch(t, []string{"mid", "leaf"}, blockedIDs)
	require.Equal(t, domain.TaskBlocked, mid.State)
	require.Equal(t, domain.TaskBlocked, leaf.State)
}

func TestFailRetriableReentersReadyUnderRetryCap(t *testing.T) {
	g := New()
	task := newReadyTask("t1", 0.5)
	require.NoError(t, g.AddTask(task))
	_, err := g.ClaimNextReady("agent-1", nil)
	require.NoError(t, err)

	blocked, err := g.Fail("t1", errors.New("transient"), true)
	require.NoError(t, err)
	require.Nil(t, blocked, "a retriable failure under the cap blocks nothing yet")
	require.Equal(t, 1, task.RetryCount)
	require.NotEqual(t, domain.TaskFailed, task.State, "task should not be terminal while retries remain")

	require.Eventually(t, func() bool {
		return task.State == domain.TaskReady
	}, 2*time.Second, 10*time.Millisecond, "task should re-enter ready after its backoff delay")
}

func TestFailRetriableCascadesOnceRetryCapExhausted(t *testing.T) {
	g := New()
	task := newReadyTask("t1", 0.5)
	task.RetryCount = DefaultRetryCap // already at the cap
	require.NoError(t, g.AddTask(task))
	_, err := g.ClaimNextReady("agent-1", nil)
	require.NoError(t, err)

	_, err = g.Fail("t1", errors.New("still broken"), true)
	require.NoError(t, err)
	require.Equal(t, domain.TaskFailed, task.State)
}

func TestBackoffDelayDoublesWithJitter(t *testing.T) {
	first := backoffDelay(1)
	second := backoffDelay(2)
	// 1s ±20% vs 2s ±20%: even at their extremes the second retry's floor
	// (1.6s) exceeds the first retry's ceiling (1.2s).
	require.Less(t, first, 1300*time.Millisecond)
	require.Greater(t, second, 1500*time.Millisecond)
}

func TestMarkStuckThenRescheduleReturnsTaskToReady(t *testing.T) {
	g := New()
	task := newReadyTask("t1", 0.5)
	require.NoError(t, g.AddTask(task))
	_, err := g.ClaimNextReady("agent-1", nil)
	require.NoError(t, err)
	task.Transition(domain.TaskRunning)

	stuck, err := g.MarkStuck("t1")
	require.NoError(t, err)
	require.Equal(t, domain.TaskStuck, stuck.State)

	rescheduled, err := g.Reschedule("t1")
	require.NoError(t, err)
	require.Equal(t, domain.TaskReady, rescheduled.State)
	require.Equal(t, 1, rescheduled.RetryCount, "rescheduling counts against the retry cap")
}

func TestDoneReportsFalseUntilEveryTaskIsTerminal(t *testing.T) {
	g := New()
	a := newReadyTask("a", 0.5)
	require.NoError(t, g.AddTask(a))
	require.False(t, g.Done())

	_, err := g.ClaimNextReady("agent-1", nil)
	require.NoError(t, err)
	_, err = g.Complete("a")
	require.NoError(t, err)
	require.True(t, g.Done())
}
