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

// Package assignment implements Agent Assignment (spec.md §4.3): a
// weighted-scoring match between a Task and the pool of registered
// Agents, filtered first by context-window fit so a task never lands on
// an agent that cannot hold its estimated prompt.
package assignment

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/errs"
	"github.com/aurora-dev/orchestrator/pkg/tokencount"
)

// Registry tracks the pool of Agents available for assignment along with
// their current in-flight task count (the Workload term) and the
// bookkeeping the Fairness and Rotation terms need: how many of the total
// assignments across the pool each agent has received, and whose turn it
// is in round-robin order.
type Registry struct {
	mu      sync.RWMutex
	agents  map[string]domain.Agent
	current map[string]int // agentID -> in-flight task count

	totalAssignments  int
	recentAssignments map[string]int // agentID -> assignments received
	rotationIdx       int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		agents:            make(map[string]domain.Agent),
		current:           make(map[string]int),
		recentAssignments: make(map[string]int),
	}
}

// Register adds or replaces an Agent in the pool.
func (r *Registry) Register(a domain.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = a
}

// Deregister removes an Agent from the pool.
func (r *Registry) Deregister(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentID)
	delete(r.current, agentID)
}

// IncrementLoad and DecrementLoad track the in-flight task count used by
// the Load scoring term; callers call these as tasks are claimed/released.
func (r *Registry) IncrementLoad(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current[agentID]++
}

func (r *Registry) DecrementLoad(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current[agentID] > 0 {
		r.current[agentID]--
	}
}

// Snapshot returns a point-in-time copy of the pool.
func (r *Registry) Snapshot() []domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

func (r *Registry) loadOf(agentID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current[agentID]
}

// RecordOutcome updates agentID's running success/failure counters after
// one task attempt resolves, feeding the Success rate scoring term.
func (r *Registry) RecordOutcome(agentID string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return
	}
	a.RecordOutcome(success)
	r.agents[agentID] = a
}

// markAssigned records that agentID just received an assignment, advancing
// the round-robin pointer and the Fairness/Rotation bookkeeping.
func (r *Registry) markAssigned(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return
	}
	a.LastAssignedAt = time.Now()
	r.agents[agentID] = a
	r.totalAssignments++
	r.recentAssignments[agentID]++
	r.rotationIdx++
}

// fairnessStats returns agentID's share of assignments against the pool
// total, used by the Fairness scoring term.
func (r *Registry) fairnessStats(agentID string) (recent, total int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recentAssignments[agentID], r.totalAssignments
}

// expectedRotationAgent returns the agent ID due next in round-robin order
// among currently registered agents, used by the Rotation scoring term —
// the Open Question spec.md §4.3 flags ("round-robin tie-break bonus") is
// resolved by giving that single agent a Rotation score of 1.0 and every
// other candidate 0.0.
func (r *Registry) expectedRotationAgent() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.agents) == 0 {
		return ""
	}
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[r.rotationIdx%len(ids)]
}

// Assigner scores Agents against a Task and selects the best fit.
type Assigner struct {
	registry *Registry
	weights  domain.ScoreWeights
	counters map[string]*tokencount.Counter // agentID -> token counter keyed by its model
	mu       sync.Mutex
}

// New creates an Assigner over registry using weights (domain.DefaultScoreWeights
// if the zero value is passed).
func New(registry *Registry, weights domain.ScoreWeights) *Assigner {
	if weights == (domain.ScoreWeights{}) {
		weights = domain.DefaultScoreWeights
	}
	return &Assigner{
		registry: registry,
		weights:  weights,
		counters: make(map[string]*tokencount.Counter),
	}
}

// candidate is one Agent's scored fit for a Task.
type candidate struct {
	agent domain.Agent
	score float64
}

// Assign selects the best-fit agent for t among agents whose context
// window can hold promptEstimate (spec.md §4.3's context-window filter),
// breaking score ties by least-recently-assigned (an agent never yet
// assigned outranks one assigned a moment ago).
func (a *Assigner) Assign(t *domain.Task, promptEstimate string) (domain.Agent, error) {
	agents := a.registry.Snapshot()
	expected := a.registry.expectedRotationAgent()

	var fit []candidate
	for _, ag := range agents {
		if ag.Status != domain.AgentIdle && ag.Status != domain.AgentBusy {
			continue
		}
		tokens := a.tokensFor(ag, promptEstimate)
		if tokens > ag.ContextWindow || tokens > int(0.8*float64(ag.ContextWindow)) {
			continue
		}
		if t.ComplexityScore > ag.MaxComplexity {
			continue
		}
		if a.registry.loadOf(ag.ID) >= ag.MaxConcurrent && ag.MaxConcurrent > 0 {
			continue
		}
		fit = append(fit, candidate{agent: ag, score: a.score(ag, t, expected)})
	}

	if len(fit) == 0 {
		return domain.Agent{}, errs.New(errs.KindContextTooLarge,
			"no agent fits the task's context window and complexity").WithContext("task_id", t.ID)
	}

	sort.Slice(fit, func(i, j int) bool {
		if fit[i].score != fit[j].score {
			return fit[i].score > fit[j].score
		}
		return fit[i].agent.LastAssignedAt.Before(fit[j].agent.LastAssignedAt)
	})
	winner := fit[0].agent
	a.registry.markAssigned(winner.ID)
	return winner, nil
}

func (a *Assigner) tokensFor(ag domain.Agent, text string) int {
	a.mu.Lock()
	c, ok := a.counters[ag.ID]
	if !ok {
		c = tokencount.New(ag.Name)
		a.counters[ag.ID] = c
	}
	a.mu.Unlock()
	return c.Count(text)
}

// score computes the weighted fit of ag for t against the spec.md §4.3
// table: Specialization 0.35, Workload 0.25, Success rate 0.20,
// Fairness 0.10, Rotation 0.10. Each term is normalized to [0, 1] before
// weighting so the result is a proper convex combination.
func (a *Assigner) score(ag domain.Agent, t *domain.Task, expectedRotation string) float64 {
	recent, total := a.registry.fairnessStats(ag.ID)

	specialization := specializationMatch(ag, t)
	workload := 1.0 - loadFraction(ag, a.registry.loadOf(ag.ID))
	rate := successRate(ag)
	fair := fairness(recent, total)
	rot := rotation(ag, expectedRotation)

	w := a.weights
	return w.Specialization*specialization + w.Workload*workload +
		w.SuccessRate*rate + w.Fairness*fair + w.Rotation*rot
}

// specializationMatch returns 1.0 when one of the agent's declared
// specialties appears in the task description, 0.5 when the agent declares
// no specialties at all, and 0.3 — not 0.0 — when the agent has
// specialties but none of them match (spec.md §4.3: a non-match is a weak
// signal against the agent, not a disqualifying one).
func specializationMatch(ag domain.Agent, t *domain.Task) float64 {
	if len(ag.Specialties) == 0 {
		return 0.5
	}
	desc := strings.ToLower(t.Description)
	for _, s := range ag.Specialties {
		if strings.Contains(desc, strings.ToLower(s)) {
			return 1.0
		}
	}
	return 0.3
}

func loadFraction(ag domain.Agent, current int) float64 {
	if ag.MaxConcurrent <= 0 {
		return 0
	}
	f := float64(current) / float64(ag.MaxConcurrent)
	if f > 1 {
		f = 1
	}
	return f
}

// successRate returns ag's historical success fraction, defaulting to 0.5
// (neutral) for an agent with no recorded outcomes yet.
func successRate(ag domain.Agent) float64 {
	n := ag.Successes + ag.Failures
	if n == 0 {
		return 0.5
	}
	return float64(ag.Successes) / float64(n)
}

// fairness scores an agent inversely to the share of total assignments it
// has already received, so work spreads across the pool instead of piling
// onto whichever agent scores marginally best every time. An agent with no
// assignment history yet (or a pool with none at all) scores 1.0.
func fairness(recent, total int) float64 {
	if total == 0 {
		return 1.0
	}
	f := 1.0 - float64(recent)/float64(total)
	if f < 0 {
		f = 0
	}
	return f
}

// rotation returns 1.0 for the single agent due next in round-robin order,
// 0.0 for everyone else.
func rotation(ag domain.Agent, expected string) float64 {
	if expected != "" && ag.ID == expected {
		return 1.0
	}
	return 0.0
}
