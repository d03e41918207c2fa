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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aurora-dev/orchestrator/pkg/agentclient"
	"github.com/aurora-dev/orchestrator/pkg/assignment"
	"github.com/aurora-dev/orchestrator/pkg/config"
	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/errs"
	"github.com/aurora-dev/orchestrator/pkg/eventbus"
	"github.com/aurora-dev/orchestrator/pkg/governor"
	"github.com/aurora-dev/orchestrator/pkg/graph"
	"github.com/aurora-dev/orchestrator/pkg/memory"
	"github.com/aurora-dev/orchestrator/pkg/persistence"
	"github.com/aurora-dev/orchestrator/pkg/ratelimit"
	"github.com/aurora-dev/orchestrator/pkg/reflexion"
	"github.com/aurora-dev/orchestrator/pkg/sandbox"
	"github.com/aurora-dev/orchestrator/pkg/server"
	"github.com/aurora-dev/orchestrator/pkg/tokencount"
	"github.com/aurora-dev/orchestrator/pkg/vector"
	"github.com/aurora-dev/orchestrator/pkg/workflow"
	"github.com/aurora-dev/orchestrator/pkg/worktree"
)

// app bundles every long-lived component the serve command wires
// together, mirroring the teacher's pattern of threading a handful of
// shared managers (componentManager, agentRegistry, agentRouter) through
// one process rather than a dependency-injection framework.
type app struct {
	cfg       *config.AuroraConfig
	store     persistence.Store
	bus       *eventbus.Bus
	ledger    *governor.Ledger
	health    *governor.HealthMonitor
	registry  *assignment.Registry
	assigner  *assignment.Assigner
	mem       *memory.Engine
	limiter   ratelimit.RateLimiter
	sandbox   *sandbox.Executor
	worktrees *worktree.Manager
	invoker   agentclient.Invoker
	log       *slog.Logger

	// running tracks which (graph, taskID) pair each agent is currently
	// executing, so HealthMonitor's OnStuck callback (keyed only by
	// agentID) can find the task to push through the running->stuck->ready
	// transition (spec.md §4.7).
	runningMu sync.Mutex
	running   map[string]runningTask
}

// runningTask is the (graph, task) pair an agent is presently assigned,
// used only to resolve a stuck-heartbeat callback to a concrete task.
type runningTask struct {
	graph  *graph.Graph
	taskID string
}

func newApp(cfg *config.AuroraConfig, log *slog.Logger) (*app, error) {
	var store persistence.Store
	switch cfg.PersistenceBackend {
	case "sql":
		dialect, dsn, _ := strings.Cut(cfg.PersistenceDSN, ":")
		s, err := persistence.OpenSQL(persistence.SQLDialect(dialect), dsn)
		if err != nil {
			return nil, fmt.Errorf("opening sql persistence store: %w", err)
		}
		store = s
	default:
		store = persistence.NewInMemoryStore()
	}

	bus := eventbus.New(store, log)

	ledger := governor.NewLedger([]governor.CapRule{
		{Window: governor.WindowDaily, CapUSD: cfg.DailyBudgetCap},
		{Window: governor.WindowMonthly, CapUSD: cfg.MonthlyBudgetCap},
	})
	ledger.SetBus(bus)

	health := governor.NewHealthMonitor(cfg.StuckThreshold, log)

	registry := assignment.NewRegistry()
	assigner := assignment.New(registry, domain.DefaultScoreWeights)
	// A single general-purpose local worker agent, registered so the
	// Assigner's weighted scoring has at least one candidate to route to
	// until an external agent-pool config surface exists (see DESIGN.md).
	registry.Register(domain.Agent{
		ID:            "local-worker",
		Name:          "gpt-4",
		ContextWindow: 128_000,
		MaxComplexity: 1.0,
		MaxConcurrent: cfg.MaxConcurrentTasksPerAgent,
		CostPerToken:  0.00003,
		Status:        domain.AgentIdle,
		RegisteredAt:  time.Now(),
	})

	vp, err := vector.NewProvider(&vector.ProviderConfig{Type: vector.ProviderChromem})
	if err != nil {
		return nil, fmt.Errorf("constructing vector provider: %w", err)
	}
	memStore := memory.NewInMemoryStore()
	counter := tokencount.New("gpt-4")
	mem := memory.New(memStore, vp, nil, counter, memory.Config{BatchSize: 10, Collection: "aurora-dev-memory"}, log)

	sbx := sandbox.New(cfg.SandboxBinaryPath)
	wt := worktree.New(cfg.RepoPath, cfg.WorktreeBase)

	// Per-agent invocation throttle, independent of the dollar-cost caps
	// the Ledger enforces: a misbehaving agent (or a runaway reflexion
	// retry loop) shouldn't be able to spam invocations just because
	// they're still within budget.
	limiter, err := ratelimit.NewRateLimiter(&ratelimit.Config{
		Enabled: true,
		Limits: []ratelimit.LimitRule{
			{Type: ratelimit.LimitTypeCount, Window: ratelimit.WindowMinute, Limit: int64(cfg.MaxConcurrentTasksPerAgent) * 20},
		},
	}, ratelimit.NewMemoryStore())
	if err != nil {
		return nil, fmt.Errorf("constructing rate limiter: %w", err)
	}

	a := &app{
		cfg:       cfg,
		store:     store,
		bus:       bus,
		ledger:    ledger,
		health:    health,
		registry:  registry,
		assigner:  assigner,
		mem:       mem,
		limiter:   limiter,
		sandbox:   sbx,
		worktrees: wt,
		invoker:   agentclient.NewFake(),
		log:       log,
		running:   make(map[string]runningTask),
	}

	health.OnStuck(a.handleAgentStuck)
	health.OnQuarantine(func(agentID string) {
		log.Warn("governor: agent quarantined, its in-flight task was already rescheduled", "agent_id", agentID)
	})
	ledger.OnAlert(func(scope string, window governor.Window, fraction float64) {
		log.Warn("governor: budget alert threshold crossed", "scope", scope, "window", window, "fraction", fraction)
	})

	return a, nil
}

// handleAgentStuck reschedules whatever task agentID was running when its
// heartbeat went stale, implementing the running->stuck->ready transition
// (spec.md §4.7) without waiting for the agent to accumulate enough misses
// to be quarantined.
func (a *app) handleAgentStuck(agentID string) {
	a.runningMu.Lock()
	rt, ok := a.running[agentID]
	a.runningMu.Unlock()
	if !ok {
		return
	}
	if _, err := rt.graph.MarkStuck(rt.taskID); err != nil {
		a.log.Warn("governor: failed to mark stuck task", "agent_id", agentID, "task_id", rt.taskID, "error", err)
		return
	}
	if _, err := rt.graph.Reschedule(rt.taskID); err != nil {
		a.log.Warn("governor: failed to reschedule stuck task", "agent_id", agentID, "task_id", rt.taskID, "error", err)
	}
}

func (a *app) trackRunning(agentID string, g *graph.Graph, taskID string) {
	a.runningMu.Lock()
	a.running[agentID] = runningTask{graph: g, taskID: taskID}
	a.runningMu.Unlock()
}

func (a *app) untrackRunning(agentID string) {
	a.runningMu.Lock()
	delete(a.running, agentID)
	a.runningMu.Unlock()
}

// phaseSpec describes one of the eight single-task lifecycle phases: the
// phase and the description template for its task. (The ninth
// phase, implementation, decomposes proj.Description into many concurrent
// tasks and is wired separately in workflowFactory.)
type phaseSpec struct {
	phase  domain.Phase
	prompt func(description string) string
}

var simplePhases = []phaseSpec{
	{domain.PhaseRequirements, func(d string) string { return "Extract and clarify requirements from: " + d }},
	{domain.PhaseDesign, func(d string) string { return "Produce a technical design for: " + d }},
	{domain.PhaseTesting, func(d string) string { return "Write and run tests covering: " + d }},
	{domain.PhaseCodeReview, func(d string) string { return "Review the implementation of: " + d }},
	{domain.PhaseSecurityAudit, func(d string) string { return "Run a security audit of: " + d }},
	{domain.PhaseDocumentation, func(d string) string { return "Write documentation for: " + d }},
	{domain.PhaseDeployment, func(d string) string { return "Prepare a deployment plan for: " + d }},
	{domain.PhaseMonitoring, func(d string) string { return "Define monitoring and alerting for: " + d }},
}

// workflowFactory implements server.WorkflowFactory: it registers a
// PhaseRunner for every phase in the nine-phase lifecycle (spec.md §4.2).
// Eight of the nine phases run exactly one task directly through the
// Self-Correction Loop; implementation alone decomposes the project
// description into a batch of concurrent tasks run through a graph.Pool,
// since it is the phase whose tasks actually conflict over file writes and
// need the scheduler's locking/retry machinery exercised.
func (a *app) workflowFactory(proj *domain.Project, wf *domain.Workflow, machine *workflow.Machine) (*graph.Graph, error) {
	g := graph.New()

	for _, spec := range simplePhases {
		spec := spec
		machine.OnPhase(spec.phase, func(ctx context.Context, w *domain.Workflow) (any, error) {
			return a.runSingleTask(ctx, g, proj, w, spec.phase, spec.prompt(proj.Description))
		})
	}

	machine.OnPhase(domain.PhaseImplementation, func(ctx context.Context, w *domain.Workflow) (any, error) {
		return a.runImplementation(ctx, g, proj, w)
	})

	return g, nil
}

// runSingleTask builds and executes the single task for one of the eight
// simple lifecycle phases, threading the prior rejection's rework comment
// (if any) into the task description (spec.md §4.2 scenario 3).
func (a *app) runSingleTask(ctx context.Context, g *graph.Graph, proj *domain.Project, w *domain.Workflow, phase domain.Phase, description string) (any, error) {
	if comment := w.ConsumeReworkComment(); comment != "" {
		description = description + "\n\nRevision requested by reviewer: " + comment
	}

	t := domain.NewTask(uuid.NewString(), w.ID, description, reflexion.DefaultMaxAttempts)
	t.ComplexityScore = 0.5
	if err := g.AddTask(t); err != nil {
		return nil, err
	}
	if _, err := g.ClaimNextReady(string(phase), nil); err != nil {
		return nil, err
	}
	t.Transition(domain.TaskRunning)

	out, err := a.executeTask(ctx, g, proj, t, description)
	if err != nil {
		_, ferr := g.Fail(t.ID, err, errs.Retriable(errs.KindOf(err)))
		if ferr != nil {
			return nil, ferr
		}
		return nil, err
	}
	if _, err := g.Complete(t.ID); err != nil {
		return nil, err
	}
	return out, nil
}

// runImplementation decomposes proj.Description into a flat batch of
// independent tasks (no dependency hints arrive over the wire yet — see
// DESIGN.md Open Question on task decomposition) and drives them to
// completion concurrently through a graph.Pool.
func (a *app) runImplementation(ctx context.Context, g *graph.Graph, proj *domain.Project, w *domain.Workflow) (any, error) {
	reworkComment := w.ConsumeReworkComment()

	lines := splitTasks(proj.Description)
	for _, line := range lines {
		desc := line
		if reworkComment != "" {
			desc = desc + "\n\nRevision requested by reviewer: " + reworkComment
		}
		t := domain.NewTask(uuid.NewString(), w.ID, desc, reflexion.DefaultMaxAttempts)
		if err := g.AddTask(t); err != nil {
			return nil, err
		}
	}

	var outcomesMu sync.Mutex
	outcomes := make(map[string]reflexion.Outcome)
	pool := &graph.Pool{
		Graph:         g,
		MaxConcurrent: a.cfg.MaxConcurrentTasksPerAgent,
		AgentID:       "implementation-pool",
		CanTake: func(t *domain.Task) bool {
			return a.ledger.Check(proj.ID, 0.01).Allowed
		},
		Work: func(ctx context.Context, t *domain.Task) error {
			out, err := a.executeTask(ctx, g, proj, t, t.Description)
			outcomesMu.Lock()
			outcomes[t.ID] = out
			outcomesMu.Unlock()
			return err
		},
	}
	if err := pool.Run(ctx); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// executeTask runs one already-running task through Agent Assignment and
// the Self-Correction Loop, charging the Budget Governor's Ledger and
// recording the outcome against both the agent's success-rate bookkeeping
// and the Health Monitor's heartbeat. It never calls g.Complete/g.Fail
// itself — both runSingleTask and graph.Pool's runOne already do that
// based on the error executeTask returns, and calling them here too would
// double-transition the task.
func (a *app) executeTask(ctx context.Context, g *graph.Graph, proj *domain.Project, t *domain.Task, description string) (reflexion.Outcome, error) {
	agent, err := a.assigner.Assign(t, description)
	if err != nil {
		return reflexion.Outcome{}, err
	}

	cost := estimateCost(agent, description)
	if chk := a.ledger.Check(proj.ID, cost); !chk.Allowed {
		return reflexion.Outcome{}, errs.New(errs.KindBudgetExceeded, chk.Reason).WithContext("project_id", proj.ID)
	}

	if a.health.Quarantined(agent.ID) {
		return reflexion.Outcome{}, errs.New(errs.KindStuckAgent, "assigned agent is quarantined").WithContext("agent_id", agent.ID)
	}
	if res, err := a.limiter.CheckAndRecord(ctx, ratelimit.ScopeSession, agent.ID, 0, 1); err != nil {
		return reflexion.Outcome{}, err
	} else if !res.Allowed {
		return reflexion.Outcome{}, errs.New(errs.KindBudgetExceeded, "agent invocation rate exceeded").WithContext("agent_id", agent.ID)
	}

	a.registry.IncrementLoad(agent.ID)
	defer a.registry.DecrementLoad(agent.ID)
	a.trackRunning(agent.ID, g, t.ID)
	defer a.untrackRunning(agent.ID)

	packed, err := a.mem.Recall(ctx, proj.ID, description, 2000)
	if err != nil {
		a.log.Warn("memory recall failed, continuing without context", "task_id", t.ID, "error", err)
	}
	var ctxText strings.Builder
	for _, item := range packed {
		ctxText.WriteString(item.Content)
		ctxText.WriteString("\n")
	}

	loop := &reflexion.Loop{
		Invoker:   a.invoker,
		Worktrees: a.worktrees,
		Sandbox:   a.sandbox,
		Mem:       a.mem,
		Log:       a.log,
		Gates: []reflexion.Gate{
			reflexion.NewSyntaxGate(a.sandbox, []string{"true"}),
			reflexion.NewTestGate(a.sandbox, []string{"true"}),
			reflexion.NewQualityGate(a.sandbox, []string{"true"}),
		},
	}

	out, err := loop.Run(ctx, proj.ID, t, ctxText.String())
	a.health.Beat(agent.ID)
	a.registry.RecordOutcome(agent.ID, err == nil)

	if err != nil {
		return out, err
	}

	if err := a.ledger.Charge(ctx, proj.ID, cost); err != nil {
		return out, err
	}

	if err := a.mem.Remember(ctx, &domain.MemoryItem{
		ID:        uuid.NewString(),
		ProjectID: proj.ID,
		Kind:      domain.MemoryArtifact,
		Content:   out.Output,
		CreatedAt: time.Now(),
	}); err != nil {
		a.log.Warn("memory: failed to remember artifact", "task_id", t.ID, "error", err)
	}

	return out, nil
}

// estimateCost converts a task's prompt text into a dollar estimate using
// ag's per-token rate. Agents with no configured rate (CostPerToken == 0,
// e.g. a local/offline runner) still consume a token-count-independent
// floor so the ledger has something non-zero to track against its caps.
func estimateCost(ag domain.Agent, text string) float64 {
	if ag.CostPerToken <= 0 {
		return 0.01
	}
	tokens := tokencount.New(ag.Name).Count(text)
	cost := float64(tokens) * ag.CostPerToken
	if cost < 0.0001 {
		cost = 0.0001
	}
	return cost
}

// splitTasks breaks a free-form project description into per-line task
// descriptions, dropping blank lines and numbered-list markers.
func splitTasks(description string) []string {
	var out []string
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*")
		line = strings.TrimSpace(line)
		if dot := strings.Index(line, "."); dot > 0 && dot < 4 {
			if _, err := strconv.Atoi(line[:dot]); err == nil {
				line = strings.TrimSpace(line[dot+1:])
			}
		}
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if len(out) == 0 && strings.TrimSpace(description) != "" {
		out = append(out, strings.TrimSpace(description))
	}
	return out
}

// serverDeps adapts app's components into server.Deps.
func (a *app) serverDeps(newRunner server.WorkflowFactory) server.Deps {
	return server.Deps{
		Store:     a.store,
		Bus:       a.bus,
		Ledger:    a.ledger,
		Health:    a.health,
		Registry:  a.registry,
		NewRunner: newRunner,
		Log:       a.log,
	}
}
