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

package domain

import (
	"sync"
	"time"
)

// TaskState is the lifecycle state of a single Task Graph node.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskReady     TaskState = "ready"
	TaskClaimed   TaskState = "claimed"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
	TaskBlocked   TaskState = "blocked"
	TaskCancelled TaskState = "cancelled"

	// TaskStuck marks a task whose assigned agent missed its heartbeat
	// deadline (spec.md §4.7). The Health Monitor cancels it back to
	// TaskReady (incrementing RetryCount) so another worker can reclaim it.
	TaskStuck TaskState = "stuck"
)

// IsTerminal reports whether s accepts no further transitions.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// DependencyKind distinguishes a hard prerequisite (must complete) from a
// soft one (preferred order, but the scheduler may still release the task
// if the soft dependency fails — spec.md §9 Open Question resolved in
// DESIGN.md: soft dependencies are treated as hard here, see that file).
type DependencyKind string

const (
	DependencyHard DependencyKind = "hard"
	DependencySoft DependencyKind = "soft"
)

// Dependency is one edge of the Task Graph.
type Dependency struct {
	TaskID string
	Kind   DependencyKind
}

// ExecutionState snapshots a task's self-correction loop progress so an
// interrupted attempt can resume without losing partial work.
type ExecutionState struct {
	Attempt        int
	PartialOutput  string
	PendingCommand string
	LastGateFailed string
	Timestamp      time.Time
}

// Task is one node of a Project's Task Graph (spec.md §3/§4.1).
type Task struct {
	ID          string
	WorkflowID  string
	Description string

	Dependencies []Dependency

	// ComplexityScore drives Agent Assignment routing (spec.md §4.3).
	ComplexityScore float64

	// FileWritePaths are the paths this task is declared to write, used
	// by the Task Graph's file-lock table to serialize conflicting writes.
	FileWritePaths []string

	State      TaskState
	AssignedTo string // Agent.ID, empty until claimed
	Attempts   int
	MaxAttempts int

	// RetryCount tracks scheduler-level retries of a retriable failure
	// (spec.md §4.1 fail(..., retriable)), distinct from Attempts, which
	// counts Self-Correction Loop generate/gate cycles within one run.
	RetryCount int

	// ReadyAt records when the task last entered TaskReady, used as the
	// FIFO tie-break in ClaimNextReady once ComplexityScore ties
	// (spec.md §4.1).
	ReadyAt time.Time

	ExecutionState *ExecutionState

	CreatedAt time.Time
	UpdatedAt time.Time

	Version int64

	mu sync.RWMutex
}

// NewTask creates a Task in TaskPending state.
func NewTask(id, workflowID, description string, maxAttempts int) *Task {
	now := time.Now()
	return &Task{
		ID:          id,
		WorkflowID:  workflowID,
		Description: description,
		State:       TaskPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// Transition moves the task to state s, bumping UpdatedAt and Version.
// Callers (pkg/graph) are responsible for validating the transition is
// legal; Transition itself only performs the write atomically.
func (t *Task) Transition(s TaskState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.State = s
	if s == TaskReady {
		t.ReadyAt = time.Now()
	}
	t.UpdatedAt = time.Now()
	t.Version++
}

// Assign records the agent claiming this task.
func (t *Task) Assign(agentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.AssignedTo = agentID
	t.State = TaskClaimed
	t.UpdatedAt = time.Now()
	t.Version++
}

// BeginAttempt increments the attempt counter and reports whether another
// attempt is permitted under MaxAttempts.
func (t *Task) BeginAttempt() (attempt int, allowed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Attempts++
	t.UpdatedAt = time.Now()
	t.Version++
	return t.Attempts, t.Attempts <= t.MaxAttempts
}

// BeginRetry increments RetryCount and reports whether another
// scheduler-level retry is permitted under retryCap (spec.md §4.1's
// fail(task_id, error, retriable), default cap 3). This is distinct from
// BeginAttempt's MaxAttempts, which bounds the Self-Correction Loop's
// generate/gate cycles within a single run.
func (t *Task) BeginRetry(retryCap int) (retry int, allowed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.RetryCount++
	t.UpdatedAt = time.Now()
	t.Version++
	return t.RetryCount, t.RetryCount <= retryCap
}

// SaveExecutionState records mid-attempt progress for crash resumption.
func (t *Task) SaveExecutionState(es *ExecutionState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	es.Timestamp = time.Now()
	t.ExecutionState = es
	t.UpdatedAt = time.Now()
	t.Version++
}

// Snapshot returns a lock-free value copy for persistence/event-bus use.
func (t *Task) Snapshot() TaskSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	deps := make([]Dependency, len(t.Dependencies))
	copy(deps, t.Dependencies)
	paths := make([]string, len(t.FileWritePaths))
	copy(paths, t.FileWritePaths)
	return TaskSnapshot{
		ID:              t.ID,
		WorkflowID:      t.WorkflowID,
		Description:     t.Description,
		Dependencies:    deps,
		ComplexityScore: t.ComplexityScore,
		FileWritePaths:  paths,
		State:           t.State,
		AssignedTo:      t.AssignedTo,
		Attempts:        t.Attempts,
		MaxAttempts:     t.MaxAttempts,
		RetryCount:      t.RetryCount,
		ReadyAt:         t.ReadyAt,
		ExecutionState:  t.ExecutionState,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		Version:         t.Version,
	}
}

// TaskSnapshot is the immutable, serializable view of a Task.
type TaskSnapshot struct {
	ID              string
	WorkflowID      string
	Description     string
	Dependencies    []Dependency
	ComplexityScore float64
	FileWritePaths  []string
	State           TaskState
	AssignedTo      string
	Attempts        int
	MaxAttempts     int
	RetryCount      int
	ReadyAt         time.Time
	ExecutionState  *ExecutionState
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}
