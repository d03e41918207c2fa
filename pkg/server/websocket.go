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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/aurora-dev/orchestrator/pkg/eventbus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The core never serves cross-origin browser clients directly in
	// this exercise's scope; a real deployment would check Origin here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// workflowEvent is the wire shape pushed over /ws/workflows/{id}
// (spec.md §6): {type, workflow_id, data{...}}.
type workflowEvent struct {
	Type       string `json:"type"`
	WorkflowID string `json:"workflow_id"`
	Data       any    `json:"data"`
}

// handleWebSocket implements GET /ws/workflows/{id}, streaming live events
// from the event bus until the client disconnects. Events published before
// the connection subscribed are not replayed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.machine(id); !ok {
		http.Error(w, "workflow not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("server: websocket upgrade failed", "workflow_id", id, "error", err)
		return
	}
	defer conn.Close()

	ch, unsubscribe := s.deps.Bus.Subscribe(id)
	defer unsubscribe()

	// A closed connection is detected by the read loop; writes happen
	// from the subscription loop below. gorilla/websocket requires one
	// reader to keep the connection alive and notice client-initiated
	// closes.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			evt := toWorkflowEvent(msg)
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}

func toWorkflowEvent(msg eventbus.Message) workflowEvent {
	evtType := "state_change"
	switch msg.Kind {
	case "before_transition":
		evtType = "state_change"
	case "after_transition":
		evtType = "task_complete"
	}
	return workflowEvent{Type: evtType, WorkflowID: msg.WorkflowID, Data: msg.Payload}
}
