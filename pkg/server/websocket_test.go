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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/eventbus"
	"github.com/aurora-dev/orchestrator/pkg/workflow"
)

func TestWebSocketRejectsUnknownWorkflow(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/workflows/does-not-exist"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 404, resp.StatusCode)
}

func TestWebSocketStreamsBusMessagesAsWorkflowEvents(t *testing.T) {
	s, deps := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wfID := uuid.NewString()
	proj := domain.NewProject("proj-1", "d", domain.ModeAutonomous, 0)
	wf := domain.NewWorkflow(wfID, proj.ID, domain.ModeAutonomous, domain.BreakpointPolicy{})
	machine := workflow.New(wf, proj, deps.Store, deps.Bus, nil)
	s.mu.Lock()
	s.workflows[wfID] = machine
	s.projects[proj.ID] = proj
	s.mu.Unlock()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/workflows/" + wfID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let Subscribe register before Publish
	deps.Bus.Publish(eventbus.Message{WorkflowID: wfID, Kind: "after_transition", Payload: "hello"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt workflowEvent
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, "task_complete", evt.Type)
	require.Equal(t, wfID, evt.WorkflowID)
}
