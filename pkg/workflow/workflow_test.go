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

package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/eventbus"
	"github.com/aurora-dev/orchestrator/pkg/persistence"
)

func newTestMachine(t *testing.T, mode domain.Mode, policy domain.BreakpointPolicy) (*Machine, *domain.Workflow, *domain.Project) {
	t.Helper()
	proj := domain.NewProject(uuid.NewString(), "build a thing", mode, 100)
	wf := domain.NewWorkflow(uuid.NewString(), proj.ID, mode, policy)
	wf.Phase = domain.PhaseRequirements
	store := persistence.NewInMemoryStore()
	bus := eventbus.New(store, nil)
	return New(wf, proj, store, bus, nil), wf, proj
}

func noopRunner(ctx context.Context, w *domain.Workflow) (any, error) { return "ok", nil }

func TestStepAdvancesThroughNinePhaseSequence(t *testing.T) {
	m, wf, _ := newTestMachine(t, domain.ModeAutonomous, domain.BreakpointPolicy{})
	for _, p := range []domain.Phase{domain.PhaseRequirements, domain.PhaseDesign} {
		m.OnPhase(p, noopRunner)
	}

	require.Equal(t, domain.PhaseRequirements, wf.Phase)
	require.NoError(t, m.Step(context.Background()))
	require.Equal(t, domain.PhaseDesign, wf.Phase)
	require.NoError(t, m.Step(context.Background()))
	require.Equal(t, domain.PhaseImplementation, wf.Phase)
}

func TestStepRunnerFailureFailsWorkflowAndProject(t *testing.T) {
	m, wf, proj := newTestMachine(t, domain.ModeAutonomous, domain.BreakpointPolicy{})
	m.OnPhase(domain.PhaseRequirements, func(ctx context.Context, w *domain.Workflow) (any, error) {
		return nil, errors.New("agent blew up")
	})

	err := m.Step(context.Background())
	require.Error(t, err)
	require.Equal(t, domain.PhaseFailed, wf.Phase)
	require.Equal(t, domain.ProjectStatusFailed, proj.Status)
}

func TestCollaborativeModePausesAfterDesign(t *testing.T) {
	policy := domain.BreakpointPolicy{PauseBefore: map[domain.Phase]bool{
		domain.PhaseImplementation: true,
		domain.PhaseDocumentation:  true,
	}}
	m, wf, _ := newTestMachine(t, domain.ModeCollaborative, policy)
	m.OnPhase(domain.PhaseRequirements, noopRunner)
	m.OnPhase(domain.PhaseDesign, noopRunner)

	require.NoError(t, m.Step(context.Background())) // requirements -> design
	require.Equal(t, domain.PhaseDesign, wf.Phase)

	err := m.Step(context.Background()) // design done, about to enter implementation
	require.ErrorIs(t, err, ErrPaused)
	require.Equal(t, domain.PhaseAwaitingApproval, wf.Phase)
	require.NotNil(t, wf.Pending)
	require.Equal(t, domain.PhaseDesign, wf.Pending.Phase)
	require.Equal(t, domain.RequirementApproval, wf.Pending.Kind)
}

func TestResolveApprovedAdvancesPastReviewedPhase(t *testing.T) {
	policy := domain.BreakpointPolicy{PauseBefore: map[domain.Phase]bool{domain.PhaseImplementation: true}}
	m, wf, _ := newTestMachine(t, domain.ModeCollaborative, policy)
	m.OnPhase(domain.PhaseRequirements, noopRunner)

	err := m.Step(context.Background())
	require.ErrorIs(t, err, ErrPaused)
	require.Equal(t, domain.PhaseAwaitingApproval, wf.Phase)

	require.NoError(t, m.Resolve(context.Background(), "reviewer-1", true, "looks good"))
	require.Equal(t, domain.PhaseImplementation, wf.Phase)
	require.Empty(t, wf.ReworkComment)
}

func TestResolveRejectedReentersOriginatingPhaseWithComment(t *testing.T) {
	policy := domain.BreakpointPolicy{PauseBefore: map[domain.Phase]bool{domain.PhaseImplementation: true}}
	m, wf, _ := newTestMachine(t, domain.ModeCollaborative, policy)
	m.OnPhase(domain.PhaseRequirements, noopRunner)

	err := m.Step(context.Background())
	require.ErrorIs(t, err, ErrPaused)

	require.NoError(t, m.Resolve(context.Background(), "reviewer-1", false, "missing auth requirements"))
	require.Equal(t, domain.PhaseRequirements, wf.Phase, "rejection should re-enter the phase under review, not fail the workflow")
	require.Equal(t, "missing auth requirements", wf.ReworkComment)

	// The comment is consumed exactly once by the next task built for the
	// re-entered phase.
	require.Equal(t, "missing auth requirements", wf.ConsumeReworkComment())
	require.Empty(t, wf.ReworkComment)
}

func TestPauseManualResumesIntoInterruptedPhaseRegardlessOfApprovedFlag(t *testing.T) {
	m, wf, _ := newTestMachine(t, domain.ModeAutonomous, domain.BreakpointPolicy{})
	wf.Phase = domain.PhaseImplementation

	m.PauseManual("budget_exceeded: daily window at 96% of cap")
	require.Equal(t, domain.PhasePaused, wf.Phase)
	require.Equal(t, domain.RequirementManual, wf.Pending.Kind)

	require.NoError(t, m.Resolve(context.Background(), "system", false, "ignored for manual pauses"))
	require.Equal(t, domain.PhaseImplementation, wf.Phase, "a manual pause always resumes the phase it interrupted")
}

func TestRunStopsAtTerminalPhase(t *testing.T) {
	m, wf, _ := newTestMachine(t, domain.ModeAutonomous, domain.BreakpointPolicy{})
	wf.Phase = domain.PhaseMonitoring
	m.OnPhase(domain.PhaseMonitoring, noopRunner)

	require.NoError(t, m.Run(context.Background()))
	require.Equal(t, domain.PhaseCompleted, wf.Phase)
}
