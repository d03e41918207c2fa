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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/errs"
	"github.com/aurora-dev/orchestrator/pkg/workflow"
)

type createWorkflowRequest struct {
	ProjectID   string  `json:"project_id"`
	Mode        string  `json:"mode"`
	Description string  `json:"description"`
	BudgetCap   float64 `json:"budget_cap,omitempty"`
}

type createWorkflowResponse struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

// handleCreateWorkflow implements POST /api/v1/workflows: builds a Project
// and Workflow, wires the task graph via Deps.NewRunner, and starts the
// Machine's Run loop in the background.
func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req createWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.New(errs.KindValidation, "invalid request body"))
		return
	}
	if req.ProjectID == "" {
		req.ProjectID = uuid.NewString()
	}

	mode := domain.Mode(req.Mode)
	if mode != domain.ModeAutonomous && mode != domain.ModeCollaborative {
		writeError(w, errs.New(errs.KindValidation, "mode must be autonomous or collaborative"))
		return
	}

	proj := domain.NewProject(req.ProjectID, req.Description, mode, req.BudgetCap)

	policy := domain.BreakpointPolicy{}
	if mode == domain.ModeCollaborative {
		// Default collaborative breakpoint policy (spec.md §4.2): pause
		// after design and after security_audit, expressed as the phase
		// immediately following each.
		policy.PauseBefore = map[domain.Phase]bool{
			domain.PhaseImplementation: true,
			domain.PhaseDocumentation:  true,
		}
	}
	wfID := uuid.NewString()
	wf := domain.NewWorkflow(wfID, proj.ID, mode, policy)

	machine := workflow.New(wf, proj, s.deps.Store, s.deps.Bus, s.log)

	g, err := s.deps.NewRunner(proj, wf, machine)
	if err != nil {
		writeError(w, errs.Wrap(errs.KindDependencyFailed, "failed to construct workflow runner", err))
		return
	}

	s.mu.Lock()
	s.workflows[wfID] = machine
	s.projects[proj.ID] = proj
	if g != nil {
		s.graphs[wfID] = g
	}
	s.projectWorkflows[proj.ID] = append(s.projectWorkflows[proj.ID], wfID)
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 24*time.Hour)
		defer cancel()
		if err := machine.Run(ctx); err != nil {
			s.log.Error("server: workflow run failed", "workflow_id", wfID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, createWorkflowResponse{WorkflowID: wfID, Status: string(machine.Phase())})
}

type workflowStateResponse struct {
	Workflow domain.WorkflowSnapshot `json:"workflow"`
	Project  domain.ProjectSnapshot  `json:"project"`
}

// handleWorkflowState implements GET /api/v1/workflows/{id}/state.
func (s *Server) handleWorkflowState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	machine, ok := s.machine(id)
	if !ok {
		writeError(w, errs.New(errs.KindNotFound, "workflow not found").WithContext("workflow_id", id))
		return
	}
	proj, _ := s.project(machineProjectID(machine))
	resp := workflowStateResponse{Workflow: machine.Snapshot()}
	if proj != nil {
		resp.Project = proj.Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

type pendingApprovalsResponse struct {
	Pending []domain.WorkflowSnapshot `json:"pending"`
	Total   int                       `json:"total"`
}

// handlePendingApprovals implements GET /api/v1/workflows/pending-approvals.
func (s *Server) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")

	s.mu.RLock()
	machines := make([]*workflow.Machine, 0, len(s.workflows))
	for _, m := range s.workflows {
		machines = append(machines, m)
	}
	s.mu.RUnlock()

	var pending []domain.WorkflowSnapshot
	for _, m := range machines {
		snap := m.Snapshot()
		if snap.Phase != domain.PhaseAwaitingApproval {
			continue
		}
		if projectID != "" && snap.ProjectID != projectID {
			continue
		}
		pending = append(pending, snap)
	}
	writeJSON(w, http.StatusOK, pendingApprovalsResponse{Pending: pending, Total: len(pending)})
}

type approvalRequest struct {
	Approved      bool           `json:"approved"`
	ReviewerID    string         `json:"reviewer_id"`
	Comments      string         `json:"comments,omitempty"`
	Modifications map[string]any `json:"modifications,omitempty"`
}

type approvalResponse struct {
	Status    string     `json:"status"`
	ResumedAt *time.Time `json:"resumed_at,omitempty"`
}

// handleApproval implements POST /api/v1/workflows/{id}/approval, resolving
// a breakpoint and, if approved, resuming the Machine's Run loop.
func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	machine, ok := s.machine(id)
	if !ok {
		writeError(w, errs.New(errs.KindNotFound, "workflow not found").WithContext("workflow_id", id))
		return
	}

	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.New(errs.KindValidation, "invalid request body"))
		return
	}

	if claimed := claimsReviewerID(r); claimed != "" && claimed != req.ReviewerID {
		writeError(w, errs.New(errs.KindValidation, "reviewer_id does not match authenticated subject").
			WithContext("workflow_id", id))
		return
	}

	ctx := r.Context()
	if err := machine.Resolve(ctx, req.ReviewerID, req.Approved, req.Comments); err != nil {
		writeError(w, err)
		return
	}

	// A rejection re-enters the originating phase rather than failing the
	// workflow (spec.md §4.2 scenario 3), so the Run loop must restart
	// either way: approved resumes past the reviewed phase, rejected
	// reruns it carrying the reviewer's comment.
	now := time.Now()
	status := "resumed"
	if !req.Approved {
		status = "rework"
	}
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 24*time.Hour)
		defer cancel()
		if err := machine.Run(runCtx); err != nil {
			s.log.Error("server: workflow resume failed", "workflow_id", id, "error", err)
		}
	}()
	writeJSON(w, http.StatusOK, approvalResponse{Status: status, ResumedAt: &now})
}

type pauseResponse struct {
	PausedAt time.Time `json:"paused_at"`
}

// handlePause implements POST /api/v1/workflows/{id}/pause[?reason=].
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	machine, ok := s.machine(id)
	if !ok {
		writeError(w, errs.New(errs.KindNotFound, "workflow not found").WithContext("workflow_id", id))
		return
	}
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "manual pause"
	}
	machine.PauseManual(reason)
	writeJSON(w, http.StatusOK, pauseResponse{PausedAt: time.Now()})
}

type resumeResponse struct {
	ResumedAt time.Time `json:"resumed_at"`
}

// handleResume implements POST /api/v1/workflows/{id}/resume.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	machine, ok := s.machine(id)
	if !ok {
		writeError(w, errs.New(errs.KindNotFound, "workflow not found").WithContext("workflow_id", id))
		return
	}
	if err := machine.Resolve(r.Context(), "system", true, "manual resume"); err != nil {
		writeError(w, err)
		return
	}
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 24*time.Hour)
		defer cancel()
		if err := machine.Run(runCtx); err != nil {
			s.log.Error("server: workflow resume failed", "workflow_id", id, "error", err)
		}
	}()
	writeJSON(w, http.StatusOK, resumeResponse{ResumedAt: time.Now()})
}

func machineProjectID(m *workflow.Machine) string {
	return m.Snapshot().ProjectID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case errs.KindValidation, errs.KindContextTooLarge:
		status = http.StatusBadRequest
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindBudgetExceeded, errs.KindConsensusNeeded:
		status = http.StatusConflict
	case errs.KindCancelled:
		status = http.StatusGone
	}
	writeJSON(w, status, map[string]string{"error": string(kind), "message": err.Error()})
}
