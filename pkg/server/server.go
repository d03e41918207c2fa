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

// Package server exposes the orchestration core's external interfaces
// (spec.md §6): a /api/v1 JSON HTTP API for starting and steering
// workflows, a /ws/workflows/{id} WebSocket for live state-change events,
// and a Prometheus /metrics endpoint serving the default promhttp registry.
// The Budget & Health Governors register no metrics there.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aurora-dev/orchestrator/pkg/assignment"
	"github.com/aurora-dev/orchestrator/pkg/auth"
	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/eventbus"
	"github.com/aurora-dev/orchestrator/pkg/governor"
	"github.com/aurora-dev/orchestrator/pkg/graph"
	"github.com/aurora-dev/orchestrator/pkg/persistence"
	"github.com/aurora-dev/orchestrator/pkg/workflow"
)

// WorkflowFactory builds the runnable pieces of a new workflow: it
// constructs the task graph and registers each phase's PhaseRunner on
// machine via machine.OnPhase. Supplied by the cmd/aurora-dev entrypoint,
// which is the only place that knows how to construct
// agentclient.Invoker/Sandbox-backed runners.
type WorkflowFactory func(project *domain.Project, wf *domain.Workflow, machine *workflow.Machine) (*graph.Graph, error)

// Deps are the shared components every HTTP/WS handler reads from.
type Deps struct {
	Store     persistence.Store
	Bus       *eventbus.Bus
	Ledger    *governor.Ledger
	Health    *governor.HealthMonitor
	Registry  *assignment.Registry
	NewRunner WorkflowFactory
	Validator *auth.JWTValidator
	Log       *slog.Logger
}

// Server is the HTTP+WS front door to the orchestration core.
type Server struct {
	deps Deps
	log  *slog.Logger

	mu        sync.RWMutex
	workflows map[string]*workflow.Machine
	projects  map[string]*domain.Project
	graphs    map[string]*graph.Graph

	// projectWorkflows indexes every workflow created under a project, so
	// a Budget Governor pause (keyed by project ID) can reach every
	// workflow it affects (spec.md §4.7).
	projectWorkflows map[string][]string

	httpServer *http.Server
}

// New builds a Server. Call Router() to get the http.Handler, or
// ListenAndServe to run it directly.
func New(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	s := &Server{
		deps:             deps,
		log:              deps.Log,
		workflows:        make(map[string]*workflow.Machine),
		projects:         make(map[string]*domain.Project),
		graphs:           make(map[string]*graph.Graph),
		projectWorkflows: make(map[string][]string),
	}
	if deps.Ledger != nil {
		deps.Ledger.OnExhausted(s.pauseProjectWorkflows)
	}
	return s
}

// pauseProjectWorkflows is the Budget Governor's OnExhausted callback: it
// pauses every workflow running under the project named by scope once
// spend crosses governor.PauseThreshold (spec.md §4.7), via the same
// operator-pause path POST /workflows/{id}/pause uses.
func (s *Server) pauseProjectWorkflows(scope string, window governor.Window, fraction float64) {
	s.mu.RLock()
	ids := append([]string(nil), s.projectWorkflows[scope]...)
	s.mu.RUnlock()

	reason := fmt.Sprintf("budget_exceeded: %s window at %.0f%% of cap", window, fraction*100)
	for _, id := range ids {
		if m, ok := s.machine(id); ok {
			m.PauseManual(reason)
		}
	}
	s.log.Warn("governor: budget pause threshold crossed, paused project workflows", "project_id", scope, "window", window, "fraction", fraction, "workflows_paused", len(ids))
}

// Router builds the chi router for the full external interface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/workflows", s.handleCreateWorkflow)
		r.Get("/workflows/pending-approvals", s.handlePendingApprovals)
		r.Get("/workflows/{id}/state", s.handleWorkflowState)
		r.With(s.requireReviewerClaim).Post("/workflows/{id}/approval", s.handleApproval)
		r.Post("/workflows/{id}/pause", s.handlePause)
		r.Post("/workflows/{id}/resume", s.handleResume)
		r.Get("/dashboard/stats", s.handleDashboardStats)
	})

	r.Get("/ws/workflows/{id}", s.handleWebSocket)
	r.Handle("/metrics", metricsHandler())

	return r
}

// ListenAndServe runs the HTTP server on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) machine(id string) (*workflow.Machine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.workflows[id]
	return m, ok
}

func (s *Server) project(id string) (*domain.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	return p, ok
}
