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
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/governor"
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

type dashboardStatsResponse struct {
	ProjectID     string             `json:"project_id,omitempty"`
	PeriodDays    int                `json:"period_days"`
	TotalProjects int                `json:"total_projects"`
	ByStatus      map[string]int     `json:"by_status"`
	BudgetSpent   map[string]float64 `json:"budget_spent"`
	QuarantinedAgents int            `json:"quarantined_agents"`
}

// handleDashboardStats implements GET /api/v1/dashboard/stats, counting
// the server's projects by status and reading each one's daily spend from
// the Budget Governor's ledger — there is no separate dashboard store. The
// health monitor is not read, so QuarantinedAgents is always 0, and
// PeriodDays is not set.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")

	s.mu.RLock()
	projects := make([]*domain.Project, 0, len(s.projects))
	for id, p := range s.projects {
		if projectID != "" && id != projectID {
			continue
		}
		projects = append(projects, p)
	}
	s.mu.RUnlock()

	byStatus := make(map[string]int)
	budgetSpent := make(map[string]float64)
	for _, p := range projects {
		snap := p.Snapshot()
		byStatus[string(snap.Status)]++
		if s.deps.Ledger != nil {
			budgetSpent[snap.ID] = s.deps.Ledger.Spend(snap.ID, governor.WindowDaily)
		}
	}

	writeJSON(w, http.StatusOK, dashboardStatsResponse{
		ProjectID:     projectID,
		TotalProjects: len(projects),
		ByStatus:      byStatus,
		BudgetSpent:   budgetSpent,
	})
}
