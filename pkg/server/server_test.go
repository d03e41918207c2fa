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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/eventbus"
	"github.com/aurora-dev/orchestrator/pkg/governor"
	"github.com/aurora-dev/orchestrator/pkg/graph"
	"github.com/aurora-dev/orchestrator/pkg/persistence"
	"github.com/aurora-dev/orchestrator/pkg/workflow"
)

func noRunner(proj *domain.Project, wf *domain.Workflow, m *workflow.Machine) (*graph.Graph, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, Deps) {
	t.Helper()
	store := persistence.NewInMemoryStore()
	bus := eventbus.New(store, nil)
	ledger := governor.NewLedger([]governor.CapRule{{Window: governor.WindowDaily, CapUSD: 100}})
	ledger.SetBus(bus)
	deps := Deps{
		Store:     store,
		Bus:       bus,
		Ledger:    ledger,
		NewRunner: noRunner,
	}
	return New(deps), deps
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateWorkflowAutonomousRunsToCompletion(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := postJSON(t, router, "/api/v1/workflows", createWorkflowRequest{Mode: "autonomous", Description: "build a thing"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp createWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.WorkflowID)

	require.Eventually(t, func() bool {
		m, ok := s.machine(resp.WorkflowID)
		return ok && m.Phase() == domain.PhaseCompleted
	}, 2*time.Second, 10*time.Millisecond, "an autonomous workflow with no breakpoints should run to completion unattended")
}

func TestHandleCreateWorkflowRejectsInvalidMode(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := postJSON(t, router, "/api/v1/workflows", createWorkflowRequest{Mode: "bogus"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWorkflowStateReturnsNotFoundForUnknownID(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows/does-not-exist/state", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollaborativeWorkflowStopsAtPendingApproval(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := postJSON(t, router, "/api/v1/workflows", createWorkflowRequest{Mode: "collaborative", Description: "build a thing"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp createWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Eventually(t, func() bool {
		m, ok := s.machine(resp.WorkflowID)
		return ok && m.Phase() == domain.PhaseAwaitingApproval
	}, 2*time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows/pending-approvals", nil)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	var pending pendingApprovalsResponse
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &pending))
	require.Equal(t, 1, pending.Total)
	require.Equal(t, resp.WorkflowID, pending.Pending[0].ID)
}

func TestHandleApprovalApprovedResumesPastReviewedPhase(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := postJSON(t, router, "/api/v1/workflows", createWorkflowRequest{Mode: "collaborative", Description: "build a thing"})
	var resp createWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Eventually(t, func() bool {
		m, ok := s.machine(resp.WorkflowID)
		return ok && m.Phase() == domain.PhaseAwaitingApproval
	}, 2*time.Second, 10*time.Millisecond)

	approveRec := postJSON(t, router, "/api/v1/workflows/"+resp.WorkflowID+"/approval", approvalRequest{
		Approved: true, ReviewerID: "reviewer-1", Comments: "looks good",
	})
	require.Equal(t, http.StatusOK, approveRec.Code)

	require.Eventually(t, func() bool {
		m, ok := s.machine(resp.WorkflowID)
		return ok && m.Phase() == domain.PhaseAwaitingApproval
	}, 2*time.Second, 10*time.Millisecond, "approving the design breakpoint should resume until the next breakpoint (documentation)")
}

func TestHandleApprovalRejectedReentersOriginatingPhase(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := postJSON(t, router, "/api/v1/workflows", createWorkflowRequest{Mode: "collaborative", Description: "build a thing"})
	var resp createWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Eventually(t, func() bool {
		m, ok := s.machine(resp.WorkflowID)
		return ok && m.Phase() == domain.PhaseAwaitingApproval
	}, 2*time.Second, 10*time.Millisecond)

	rejectRec := postJSON(t, router, "/api/v1/workflows/"+resp.WorkflowID+"/approval", approvalRequest{
		Approved: false, ReviewerID: "reviewer-1", Comments: "missing auth requirements",
	})
	require.Equal(t, http.StatusOK, rejectRec.Code)
	var approveResp approvalResponse
	require.NoError(t, json.Unmarshal(rejectRec.Body.Bytes(), &approveResp))
	require.Equal(t, "rework", approveResp.Status)

	require.Eventually(t, func() bool {
		m, ok := s.machine(resp.WorkflowID)
		return ok && m.Phase() == domain.PhaseAwaitingApproval
	}, 2*time.Second, 10*time.Millisecond, "a rejected design re-enters the same breakpoint once design reruns")

	m, _ := s.machine(resp.WorkflowID)
	require.Equal(t, "missing auth requirements", m.Snapshot().ReworkComment)
}

func TestHandlePauseThenResume(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := postJSON(t, router, "/api/v1/workflows", createWorkflowRequest{Mode: "collaborative", Description: "build a thing"})
	var resp createWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Eventually(t, func() bool {
		m, ok := s.machine(resp.WorkflowID)
		return ok && m.Phase() == domain.PhaseAwaitingApproval
	}, 2*time.Second, 10*time.Millisecond)

	// Approve the design breakpoint first; the workflow then runs on to the
	// documentation breakpoint, and the pause below replaces that pending
	// approval with a manual one.
	postJSON(t, router, "/api/v1/workflows/"+resp.WorkflowID+"/approval", approvalRequest{Approved: true, ReviewerID: "r1"})

	require.Eventually(t, func() bool {
		m, ok := s.machine(resp.WorkflowID)
		return ok && m.Phase() == domain.PhaseAwaitingApproval
	}, 2*time.Second, 10*time.Millisecond)

	pauseReq := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/"+resp.WorkflowID+"/pause?reason=operator_requested", nil)
	pauseRec := httptest.NewRecorder()
	router.ServeHTTP(pauseRec, pauseReq)
	require.Equal(t, http.StatusOK, pauseRec.Code)

	m, ok := s.machine(resp.WorkflowID)
	require.True(t, ok)
	require.Equal(t, domain.PhasePaused, m.Phase())
	require.Equal(t, domain.RequirementManual, m.Snapshot().Pending.Kind)

	resumeReq := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/"+resp.WorkflowID+"/resume", nil)
	resumeRec := httptest.NewRecorder()
	router.ServeHTTP(resumeRec, resumeReq)
	require.Equal(t, http.StatusOK, resumeRec.Code)
	require.NotEqual(t, domain.PhasePaused, m.Phase())
}

func TestHandleDashboardStatsReportsBudgetSpendByProject(t *testing.T) {
	s, deps := newTestServer(t)
	router := s.Router()

	postJSON(t, router, "/api/v1/workflows", createWorkflowRequest{ProjectID: "proj-dash", Mode: "autonomous", Description: "a"})
	require.NoError(t, deps.Ledger.Charge(context.Background(), "proj-dash", 10))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats?project_id=proj-dash", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats dashboardStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 1, stats.TotalProjects)
	require.Equal(t, 10.0, stats.BudgetSpent["proj-dash"])
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestBudgetExhaustionPausesEveryWorkflowUnderProject(t *testing.T) {
	s, deps := newTestServer(t)
	router := s.Router()

	rec := postJSON(t, router, "/api/v1/workflows", createWorkflowRequest{ProjectID: "proj-budget", Mode: "collaborative", Description: "a"})
	var resp createWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Eventually(t, func() bool {
		m, ok := s.machine(resp.WorkflowID)
		return ok && m.Phase() == domain.PhaseAwaitingApproval
	}, 2*time.Second, 10*time.Millisecond)

	err := deps.Ledger.Charge(context.Background(), "proj-budget", 96)
	require.Error(t, err, "a charge crossing the pause threshold must itself be rejected")

	m, _ := s.machine(resp.WorkflowID)
	require.Eventually(t, func() bool {
		return m.Phase() == domain.PhasePaused
	}, 2*time.Second, 10*time.Millisecond, "budget exhaustion should manually pause every workflow registered under the project")
	require.Equal(t, domain.RequirementManual, m.Snapshot().Pending.Kind)
}
