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

// Package domain defines the aggregate roots and value types shared by the
// orchestration core: Project, Workflow, Task, TaskGraph, Agent, MemoryItem,
// Breakpoint and ApprovalRecord (spec §3). Types here carry no behavior
// beyond invariant-preserving mutators; the components in pkg/graph,
// pkg/workflow, pkg/assignment, pkg/reflexion and pkg/memory operate on them.
package domain

import (
	"sync"
	"time"
)

// Mode is the workflow execution mode.
type Mode string

const (
	ModeAutonomous   Mode = "autonomous"
	ModeCollaborative Mode = "collaborative"
)

// ProjectStatus is the lifecycle status of a Project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusPaused    ProjectStatus = "paused"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusFailed    ProjectStatus = "failed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// Project is the aggregate root a user submits. One project owns zero or
// more Workflows; it is created on submission and mutated only by the
// Workflow State Machine.
type Project struct {
	ID          string
	Description string
	CreatedAt   time.Time
	Phase       Phase
	Mode        Mode
	Status      ProjectStatus

	// PhaseResults holds the artifact/summary produced by each completed
	// phase, keyed by Phase.
	PhaseResults map[Phase]any

	BudgetCap  float64
	ActualCost float64

	// Version is bumped on every mutation (testable property: monotonic
	// version on every persisted transition).
	Version int64

	mu sync.RWMutex
}

// NewProject creates a Project in its initial idle phase.
func NewProject(id, description string, mode Mode, budgetCap float64) *Project {
	return &Project{
		ID:           id,
		Description:  description,
		CreatedAt:    time.Now(),
		Phase:        PhaseIdle,
		Mode:         mode,
		Status:       ProjectStatusActive,
		PhaseResults: make(map[Phase]any),
		BudgetCap:    budgetCap,
		Version:      1,
	}
}

// Touch bumps the version and returns the new value. Callers hold it while
// persisting the new snapshot so the version attached to the durable record
// always matches the in-memory state that produced it.
func (p *Project) Touch() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Version++
	return p.Version
}

// RecordPhaseResult stores the artifact produced by a completed phase.
func (p *Project) RecordPhaseResult(phase Phase, result any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PhaseResults[phase] = result
}

// AddCost accumulates actual spend; callers check the returned total
// against BudgetCap to decide whether to pause (governor owns that policy,
// this is just the ledger write).
func (p *Project) AddCost(delta float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ActualCost += delta
	return p.ActualCost
}

// SetStatus transitions the project status.
func (p *Project) SetStatus(status ProjectStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = status
}

// Snapshot returns a value copy safe to serialize without racing mutators.
func (p *Project) Snapshot() ProjectSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	results := make(map[Phase]any, len(p.PhaseResults))
	for k, v := range p.PhaseResults {
		results[k] = v
	}
	return ProjectSnapshot{
		ID:           p.ID,
		Description:  p.Description,
		CreatedAt:    p.CreatedAt,
		Phase:        p.Phase,
		Mode:         p.Mode,
		Status:       p.Status,
		PhaseResults: results,
		BudgetCap:    p.BudgetCap,
		ActualCost:   p.ActualCost,
		Version:      p.Version,
	}
}

// ProjectSnapshot is the immutable, serializable view of a Project used by
// the event bus and persistence layer.
type ProjectSnapshot struct {
	ID           string
	Description  string
	CreatedAt    time.Time
	Phase        Phase
	Mode         Mode
	Status       ProjectStatus
	PhaseResults map[Phase]any
	BudgetCap    float64
	ActualCost   float64
	Version      int64
}
