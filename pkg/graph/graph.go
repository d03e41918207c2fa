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

// Package graph implements the Task Graph & Scheduler component: a DAG of
// domain.Task nodes with hard/soft dependency edges, cycle detection, a
// file-lock table serializing conflicting writes, and a worker pool that
// releases ready tasks to claimants (spec.md §4.1).
package graph

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/errs"
)

// DefaultRetryCap is the scheduler-level retry ceiling for a retriable
// failure before it cascades to dependents (spec.md §4.1), distinct from
// the Self-Correction Loop's MaxAttempts.
const DefaultRetryCap = 3

// baseBackoff is the first retry delay; each subsequent retry doubles it
// (1s, 2s, 4s, ...) with ±20% jitter (spec.md §4.1).
const baseBackoff = time.Second

// Graph is a single Project's task dependency graph. All mutation goes
// through a single sync.Mutex guarding the adjacency maps, matching the
// teacher's preference for plain maps over lock-free structures.
type Graph struct {
	mu sync.Mutex

	tasks map[string]*domain.Task
	succ  map[string]map[string]bool // taskID -> dependents
	pred  map[string]map[string]bool // taskID -> dependencies

	// fileLocks maps a declared write path to the task ID currently holding
	// it, serializing tasks whose FileWritePaths overlap.
	fileLocks map[string]string
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		tasks:     make(map[string]*domain.Task),
		succ:      make(map[string]map[string]bool),
		pred:      make(map[string]map[string]bool),
		fileLocks: make(map[string]string),
	}
}

// AddTask inserts t into the graph. Edges named in t.Dependencies must
// already exist in the graph or AddTask returns errs.KindValidation.
func (g *Graph) AddTask(t *domain.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.tasks[t.ID]; exists {
		return errs.New(errs.KindValidation, "task already exists").WithContext("task_id", t.ID)
	}
	for _, dep := range t.Dependencies {
		if _, ok := g.tasks[dep.TaskID]; !ok {
			return errs.New(errs.KindValidation, "unknown dependency").
				WithContext("task_id", t.ID, "dependency_id", dep.TaskID)
		}
	}

	g.tasks[t.ID] = t
	if g.pred[t.ID] == nil {
		g.pred[t.ID] = make(map[string]bool)
	}
	for _, dep := range t.Dependencies {
		g.pred[t.ID][dep.TaskID] = true
		if g.succ[dep.TaskID] == nil {
			g.succ[dep.TaskID] = make(map[string]bool)
		}
		g.succ[dep.TaskID][t.ID] = true
	}

	if g.detectCycleLocked(t.ID) {
		g.removeTaskLocked(t.ID)
		return errs.New(errs.KindCycleDetected, "adding task would introduce a cycle").
			WithContext("task_id", t.ID)
	}

	if g.readyLocked(t) {
		t.Transition(domain.TaskReady)
	}
	return nil
}

func (g *Graph) removeTaskLocked(id string) {
	for dep := range g.pred[id] {
		delete(g.succ[dep], id)
	}
	delete(g.pred, id)
	delete(g.tasks, id)
}

// detectCycleLocked runs a DFS from start over the predecessor edges
// looking for a path back to start. Must be called with g.mu held.
func (g *Graph) detectCycleLocked(start string) bool {
	visited := make(map[string]bool)
	var visit func(id string) bool
	visit = func(id string) bool {
		if id == start && visited[id] {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		for dep := range g.pred[id] {
			if dep == start {
				return true
			}
			if visit(dep) {
				return true
			}
		}
		return false
	}
	for dep := range g.pred[start] {
		if visit(dep) {
			return true
		}
	}
	return false
}

// readyLocked reports whether all of t's hard dependencies (and, per the
// resolved Open Question, soft ones too — see DESIGN.md) are completed.
func (g *Graph) readyLocked(t *domain.Task) bool {
	for _, dep := range t.Dependencies {
		depTask, ok := g.tasks[dep.TaskID]
		if !ok || depTask.State != domain.TaskCompleted {
			return false
		}
	}
	return true
}

// ClaimNextReady finds the highest-priority TaskReady node whose declared
// write paths don't conflict with any currently held file lock, marks it
// TaskClaimed under agentID, and acquires its file locks atomically.
// Priority is higher ComplexityScore first, then FIFO on ReadyAt
// (spec.md §4.1's documented tie-break) — map iteration order itself is
// never relied on.
func (g *Graph) ClaimNextReady(agentID string, canTake func(*domain.Task) bool) (*domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	candidates := make([]*domain.Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		if t.State != domain.TaskReady {
			continue
		}
		if canTake != nil && !canTake(t) {
			continue
		}
		if g.conflictsLocked(t) {
			continue
		}
		candidates = append(candidates, t)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.ComplexityScore != b.ComplexityScore {
			return a.ComplexityScore > b.ComplexityScore
		}
		return a.ReadyAt.Before(b.ReadyAt)
	})

	if len(candidates) == 0 {
		return nil, errs.New(errs.KindTaskExhausted, "no ready task available")
	}
	t := candidates[0]
	g.acquireLocksLocked(t)
	t.Assign(agentID)
	return t, nil
}

func (g *Graph) conflictsLocked(t *domain.Task) bool {
	for _, path := range t.FileWritePaths {
		if holder, held := g.fileLocks[path]; held && holder != t.ID {
			return true
		}
	}
	return false
}

func (g *Graph) acquireLocksLocked(t *domain.Task) {
	for _, path := range t.FileWritePaths {
		g.fileLocks[path] = t.ID
	}
}

func (g *Graph) releaseLocksLocked(t *domain.Task) {
	for _, path := range t.FileWritePaths {
		if g.fileLocks[path] == t.ID {
			delete(g.fileLocks, path)
		}
	}
}

// Complete marks id completed, releases its file locks, and promotes any
// dependent whose remaining dependencies are now all satisfied to
// TaskReady.
func (g *Graph) Complete(id string) ([]*domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tasks[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "task not found").WithContext("task_id", id)
	}
	t.Transition(domain.TaskCompleted)
	g.releaseLocksLocked(t)

	var newlyReady []*domain.Task
	for dependentID := range g.succ[id] {
		dependent := g.tasks[dependentID]
		if dependent.State == domain.TaskPending && g.readyLocked(dependent) {
			dependent.Transition(domain.TaskReady)
			newlyReady = append(newlyReady, dependent)
		}
	}
	return newlyReady, nil
}

// Fail reports that id's execution attempt ended in cause. If retriable
// and the task's scheduler-level retry count is still under
// DefaultRetryCap, the task re-enters TaskReady after an exponential
// backoff (1s, 2s, 4s, ±20% jitter) and Fail returns no blocked
// dependents. Otherwise it marks id TaskFailed, releases its file locks,
// and blocks every transitive dependent since a hard (and, here, soft)
// dependency failure makes downstream work unsatisfiable (spec.md §4.1).
func (g *Graph) Fail(id string, cause error, retriable bool) ([]*domain.Task, error) {
	g.mu.Lock()
	t, ok := g.tasks[id]
	if !ok {
		g.mu.Unlock()
		return nil, errs.New(errs.KindNotFound, "task not found").WithContext("task_id", id)
	}
	g.releaseLocksLocked(t)

	if retriable {
		retry, allowed := t.BeginRetry(DefaultRetryCap)
		if allowed {
			g.mu.Unlock()
			time.AfterFunc(backoffDelay(retry), func() {
				g.mu.Lock()
				defer g.mu.Unlock()
				if cur, ok := g.tasks[id]; ok && !cur.State.IsTerminal() {
					cur.Transition(domain.TaskReady)
				}
			})
			return nil, nil
		}
	}

	t.Transition(domain.TaskFailed)
	t.SaveExecutionState(&domain.ExecutionState{
		Attempt:        t.Attempts,
		LastGateFailed: errorMessage(cause),
	})

	var blocked []*domain.Task
	var walk func(id string)
	walk = func(id string) {
		for dependentID := range g.succ[id] {
			dependent := g.tasks[dependentID]
			if dependent.State.IsTerminal() {
				continue
			}
			dependent.Transition(domain.TaskBlocked)
			blocked = append(blocked, dependent)
			walk(dependentID)
		}
	}
	walk(id)
	g.mu.Unlock()
	return blocked, nil
}

// backoffDelay returns the delay before the nth retry (1-indexed):
// 1s, 2s, 4s, doubling each time, with ±20% jitter.
func backoffDelay(retry int) time.Duration {
	d := baseBackoff << (retry - 1)
	jitter := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * jitter)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// MarkStuck transitions a task from TaskRunning to TaskStuck, releasing
// its file locks so another worker can claim it once the Health Monitor
// reschedules it back to ready (spec.md §4.7's running -> stuck -> ready
// transition).
func (g *Graph) MarkStuck(id string) (*domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "task not found").WithContext("task_id", id)
	}
	if t.State != domain.TaskRunning && t.State != domain.TaskClaimed {
		return t, nil
	}
	g.releaseLocksLocked(t)
	t.Transition(domain.TaskStuck)
	return t, nil
}

// Reschedule moves a TaskStuck node back to TaskReady, incrementing its
// retry count so it still counts against DefaultRetryCap. AssignedTo keeps
// the previous agent until the next ClaimNextReady overwrites it.
func (g *Graph) Reschedule(id string) (*domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "task not found").WithContext("task_id", id)
	}
	t.BeginRetry(DefaultRetryCap)
	t.Transition(domain.TaskReady)
	return t, nil
}

// Task returns the task with the given id.
func (g *Graph) Task(id string) (*domain.Task, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[id]
	return t, ok
}

// Snapshot returns a point-in-time copy of every task in the graph.
func (g *Graph) Snapshot() []domain.TaskSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.TaskSnapshot, 0, len(g.tasks))
	for _, t := range g.tasks {
		out = append(out, t.Snapshot())
	}
	return out
}

// Done reports whether every task in the graph has reached a terminal
// state.
func (g *Graph) Done() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.tasks {
		if !t.State.IsTerminal() {
			return false
		}
	}
	return true
}

// ErrStalled describes a graph that cannot make further progress because
// every remaining task is blocked. Nothing in this package returns it:
// Pool.Run keeps polling a graph whose tasks are blocked until ctx is
// cancelled, since TaskBlocked is not a terminal state.
var ErrStalled = fmt.Errorf("graph: no progress possible, all remaining tasks blocked")

// Worker is the function a pool goroutine calls to execute a claimed task.
type Worker func(ctx context.Context, t *domain.Task) error
