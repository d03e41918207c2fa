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

// Package workflow drives a domain.Workflow through its phase state
// machine (spec.md §4.2): autonomous mode advances phases without
// stopping; collaborative mode pauses at any phase named in the
// workflow's BreakpointPolicy until a human resolves it. Every transition
// is wrapped in a before/after checkpoint pair, mirroring the teacher's
// checkpoint.Hooks pattern, so a crash mid-transition always leaves either
// the pre- or post-state durable.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/errs"
	"github.com/aurora-dev/orchestrator/pkg/eventbus"
	"github.com/aurora-dev/orchestrator/pkg/persistence"
)

// PhaseRunner executes the work of a single phase (planning, executing,
// reviewing) and returns an artifact to attach to the Project.
type PhaseRunner func(ctx context.Context, w *domain.Workflow) (any, error)

// Machine manages one Workflow's lifecycle through its phases, persisting
// every transition and publishing it on the event bus.
type Machine struct {
	mu       sync.Mutex
	wf       *domain.Workflow
	proj     *domain.Project
	store    persistence.Store
	bus      *eventbus.Bus
	log      *slog.Logger
	runners  map[domain.Phase]PhaseRunner
}

// New creates a Machine for wf/proj, persisting through store and
// publishing through bus.
func New(wf *domain.Workflow, proj *domain.Project, store persistence.Store, bus *eventbus.Bus, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	return &Machine{
		wf:      wf,
		proj:    proj,
		store:   store,
		bus:     bus,
		log:     log,
		runners: make(map[domain.Phase]PhaseRunner),
	}
}

// OnPhase registers the runner invoked when the workflow enters phase.
func (m *Machine) OnPhase(phase domain.Phase, runner PhaseRunner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runners[phase] = runner
}

// beforeTransition persists the pre-transition snapshot so a crash between
// this call and afterTransition leaves the previous state recoverable.
func (m *Machine) beforeTransition(ctx context.Context) {
	m.checkpoint(ctx, "before_transition")
}

func (m *Machine) afterTransition(ctx context.Context) {
	m.checkpoint(ctx, "after_transition")
}

func (m *Machine) checkpoint(ctx context.Context, kind string) {
	snap := m.wf.Snapshot()
	payload, err := json.Marshal(snap)
	if err != nil {
		m.log.Warn("workflow: failed to marshal checkpoint", "workflow_id", m.wf.ID, "error", err)
		return
	}
	if m.store != nil {
		if err := m.store.SaveSnapshot(ctx, persistence.Snapshot{
			WorkflowID: m.wf.ID,
			Version:    snap.Version,
			Payload:    payload,
		}); err != nil {
			m.log.Warn("workflow: failed to save snapshot", "workflow_id", m.wf.ID, "error", err)
		}
		if err := m.store.Append(ctx, persistence.Event{
			WorkflowID: m.wf.ID,
			Kind:       kind,
			Payload:    payload,
		}); err != nil {
			m.log.Warn("workflow: failed to append event", "workflow_id", m.wf.ID, "error", err)
		}
	}
	if m.bus != nil {
		m.bus.Publish(eventbus.Message{WorkflowID: m.wf.ID, Kind: kind, Payload: snap})
	}
}

// Step runs the current phase (if a runner is registered), records its
// artifact on the Project, and advances. If the next phase requires a
// breakpoint under collaborative mode, Step pauses instead of advancing
// and returns ErrPaused.
func (m *Machine) Step(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.wf.Phase
	if domain.Terminal(cur) {
		return errs.New(errs.KindValidation, "workflow already terminal").WithContext("workflow_id", m.wf.ID, "phase", string(cur))
	}
	if cur == domain.PhasePaused || cur == domain.PhaseAwaitingApproval {
		return errs.New(errs.KindValidation, "workflow awaiting approval").WithContext("workflow_id", m.wf.ID)
	}

	m.beforeTransition(ctx)

	if runner, ok := m.runners[cur]; ok {
		result, err := runner(ctx, m.wf)
		if err != nil {
			m.wf.Fail()
			m.proj.SetStatus(domain.ProjectStatusFailed)
			m.afterTransition(ctx)
			return errs.Wrap(errs.KindDependencyFailed, "phase runner failed", err).
				WithContext("workflow_id", m.wf.ID, "phase", string(cur))
		}
		m.proj.RecordPhaseResult(cur, result)
	}

	next, ok := domain.NextPhase(cur)
	if !ok {
		m.afterTransition(ctx)
		return nil
	}

	if m.wf.Mode == domain.ModeCollaborative && m.wf.Policy.RequiresApproval(next) {
		m.wf.Pause(domain.InputRequirement{
			Phase:  cur,
			Kind:   domain.RequirementApproval,
			Prompt: fmt.Sprintf("approve output of phase %q before advancing to %q", cur, next),
		})
		m.afterTransition(ctx)
		return ErrPaused
	}

	m.wf.Advance()
	if m.wf.Phase == domain.PhaseCompleted {
		m.proj.SetStatus(domain.ProjectStatusCompleted)
	}
	m.afterTransition(ctx)
	return nil
}

// Resolve applies a human reviewer's decision to the pending breakpoint.
// An approval advances the workflow past the reviewed phase; a rejection
// re-enters that phase so the next Step regenerates its output, carrying
// the reviewer's comment forward on domain.Workflow.ReworkComment instead
// of failing the workflow outright (spec.md §4.2 scenario 3).
func (m *Machine) Resolve(ctx context.Context, reviewerID string, approved bool, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.beforeTransition(ctx)
	req := m.wf.Resolve(reviewerID, approved, comment)
	if req == nil {
		m.afterTransition(ctx)
		return errs.New(errs.KindValidation, "no pending approval").WithContext("workflow_id", m.wf.ID)
	}
	m.afterTransition(ctx)
	return nil
}

// Run drives Step repeatedly until the workflow reaches a terminal phase
// or pauses for approval.
func (m *Machine) Run(ctx context.Context) error {
	for {
		err := m.Step(ctx)
		switch {
		case err == nil:
			if domain.Terminal(m.Phase()) {
				return nil
			}
		case err == ErrPaused:
			return nil
		default:
			return err
		}
	}
}

// Phase returns the workflow's current phase.
func (m *Machine) Phase() domain.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wf.Phase
}

// Snapshot returns a serializable, lock-free copy of the workflow's state.
func (m *Machine) Snapshot() domain.WorkflowSnapshot {
	return m.wf.Snapshot()
}

// PauseManual parks the workflow at its current phase for an
// operator- or governor-initiated pause (spec.md §6 POST
// /workflows/{id}/pause, and spec.md §4.7 budget exhaustion), distinct
// from an approval breakpoint: Resolve always resumes a manual pause into
// the same phase rather than treating it as an approve/reject decision.
func (m *Machine) PauseManual(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if domain.Terminal(m.wf.Phase) {
		return
	}
	m.wf.Pause(domain.InputRequirement{Phase: m.wf.Phase, Kind: domain.RequirementManual, Prompt: reason})
	m.afterTransition(context.Background())
}

// ErrPaused is returned by Step/Run when the workflow has parked itself
// at a breakpoint awaiting human review.
var ErrPaused = errs.New(errs.KindValidation, "workflow paused for approval")
