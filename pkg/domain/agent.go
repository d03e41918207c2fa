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

import "time"

// AgentStatus is the health/availability state of a registered Agent.
type AgentStatus string

const (
	AgentIdle        AgentStatus = "idle"
	AgentBusy        AgentStatus = "busy"
	AgentQuarantined AgentStatus = "quarantined"
	AgentOffline     AgentStatus = "offline"
)

// Agent is a registered worker the Agent Assignment component can route
// tasks to (spec.md §3/§4.3). pkg/governor tracks the mutable
// heartbeat/quarantine state keyed by Agent.ID; Successes/Failures and
// LastAssignedAt back the Success rate, Fairness and Rotation scoring
// terms and are mutated through assignment.Registry as tasks complete.
type Agent struct {
	ID              string
	Name            string
	Specialties     []string
	ContextWindow   int     // tokens
	MaxComplexity   float64 // highest ComplexityScore this agent should take
	MaxConcurrent   int
	CostPerToken    float64
	Status          AgentStatus
	RegisteredAt    time.Time

	Successes int
	Failures  int

	LastAssignedAt time.Time
}

// RecordOutcome updates the running success/failure counters behind the
// Success rate scoring term after one task attempt resolves.
func (a *Agent) RecordOutcome(success bool) {
	if success {
		a.Successes++
	} else {
		a.Failures++
	}
}

// ScoreWeights controls the relative contribution of each signal in the
// Agent Assignment weighted-scoring algorithm (spec.md §4.3).
type ScoreWeights struct {
	Specialization float64
	Workload       float64
	SuccessRate    float64
	Fairness       float64
	Rotation       float64
}

// DefaultScoreWeights matches the weighting table spec.md §4.3 documents:
// specialization dominates, workload is the next-heaviest signal, and
// success rate/fairness/rotation split the remainder.
var DefaultScoreWeights = ScoreWeights{
	Specialization: 0.35,
	Workload:       0.25,
	SuccessRate:    0.20,
	Fairness:       0.10,
	Rotation:       0.10,
}
