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

package assignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/errs"
)

func baseAgent(id string) domain.Agent {
	return domain.Agent{
		ID:            id,
		Name:          "gpt-4",
		ContextWindow: 8000,
		MaxComplexity: 1.0,
		MaxConcurrent: 5,
		Status:        domain.AgentIdle,
		RegisteredAt:  time.Now(),
	}
}

func TestAssignRejectsWhenNoAgentFitsContextWindow(t *testing.T) {
	reg := NewRegistry()
	small := baseAgent("small")
	small.ContextWindow = 10
	reg.Register(small)
	asg := New(reg, domain.DefaultScoreWeights)

	task := domain.NewTask("t1", "wf-1", "a task", 3)
	_, err := asg.Assign(task, "this prompt is certainly longer than ten tokens of context window")
	require.Error(t, err)
	require.Equal(t, errs.KindContextTooLarge, errs.KindOf(err))
}

func TestAssignRejectsWhenComplexityExceedsMaxComplexity(t *testing.T) {
	reg := NewRegistry()
	ag := baseAgent("a1")
	ag.MaxComplexity = 0.3
	reg.Register(ag)
	asg := New(reg, domain.DefaultScoreWeights)

	task := domain.NewTask("t1", "wf-1", "a task", 3)
	task.ComplexityScore = 0.9
	_, err := asg.Assign(task, "short prompt")
	require.Error(t, err)
}

func TestAssignPrefersSpecializationMatch(t *testing.T) {
	reg := NewRegistry()
	backend := baseAgent("backend")
	backend.Specialties = []string{"backend"}
	reg.Register(backend)
	frontend := baseAgent("frontend")
	frontend.Specialties = []string{"frontend"}
	reg.Register(frontend)
	asg := New(reg, domain.DefaultScoreWeights)

	task := domain.NewTask("t1", "wf-1", "implement the backend payment API", 3)
	winner, err := asg.Assign(task, "implement the backend payment API")
	require.NoError(t, err)
	require.Equal(t, "backend", winner.ID)
}

func TestAssignNonMatchingSpecialtyScoresAboveZero(t *testing.T) {
	// A specialty mismatch (0.3) should still outrank being globally
	// disqualified — this only matters for the score function itself,
	// since Assign's pre-filter doesn't exclude on specialty.
	ag := baseAgent("frontend-only")
	ag.Specialties = []string{"frontend"}
	task := domain.NewTask("t1", "wf-1", "write a database migration", 3)
	require.InDelta(t, 0.3, specializationMatch(ag, task), 1e-9)
}

func TestAssignBreaksScoreTiesByLeastRecentlyAssigned(t *testing.T) {
	reg := NewRegistry()
	older := baseAgent("older")
	older.LastAssignedAt = time.Now().Add(-time.Hour)
	reg.Register(older)
	newer := baseAgent("newer")
	newer.LastAssignedAt = time.Now()
	reg.Register(newer)
	// Sorts alphabetically ahead of both candidates and is due next in
	// rotation, but its context window is too small to ever be selected —
	// keeping the Rotation term from breaking the tie between the two
	// candidates under test.
	decoy := baseAgent("aaa-decoy")
	decoy.ContextWindow = 1
	reg.Register(decoy)
	asg := New(reg, domain.DefaultScoreWeights)

	task := domain.NewTask("t1", "wf-1", "a generic task", 3)
	winner, err := asg.Assign(task, "a generic task")
	require.NoError(t, err)
	require.Equal(t, "older", winner.ID, "the agent assigned longer ago should win an exact score tie")
}

func TestAssignRespectsMaxConcurrentLoad(t *testing.T) {
	reg := NewRegistry()
	ag := baseAgent("busy")
	ag.MaxConcurrent = 1
	reg.Register(ag)
	reg.IncrementLoad("busy")
	asg := New(reg, domain.DefaultScoreWeights)

	task := domain.NewTask("t1", "wf-1", "a task", 3)
	_, err := asg.Assign(task, "a task")
	require.Error(t, err, "an agent already at MaxConcurrent should not be selected")
}

func TestMarkAssignedUpdatesFairnessAndRotationBookkeeping(t *testing.T) {
	reg := NewRegistry()
	reg.Register(baseAgent("a"))
	reg.Register(baseAgent("b"))

	reg.markAssigned("a")
	recent, total := reg.fairnessStats("a")
	require.Equal(t, 1, recent)
	require.Equal(t, 1, total)

	recentB, totalB := reg.fairnessStats("b")
	require.Equal(t, 0, recentB)
	require.Equal(t, 1, totalB)
}

func TestRecordOutcomeFeedsSuccessRate(t *testing.T) {
	reg := NewRegistry()
	reg.Register(baseAgent("a"))
	reg.RecordOutcome("a", true)
	reg.RecordOutcome("a", true)
	reg.RecordOutcome("a", false)

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, 2, snap[0].Successes)
	require.Equal(t, 1, snap[0].Failures)
	require.InDelta(t, 2.0/3.0, successRate(snap[0]), 1e-9)
}

func TestSuccessRateDefaultsToNeutralWithNoHistory(t *testing.T) {
	require.InDelta(t, 0.5, successRate(baseAgent("fresh")), 1e-9)
}

func TestFairnessFavorsUnderAssignedAgent(t *testing.T) {
	require.InDelta(t, 1.0, fairness(0, 0), 1e-9)
	require.Less(t, fairness(9, 10), fairness(1, 10))
}

func TestRotationScoresOnlyTheExpectedAgent(t *testing.T) {
	require.Equal(t, 1.0, rotation(baseAgent("a"), "a"))
	require.Equal(t, 0.0, rotation(baseAgent("a"), "b"))
}
