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

package governor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aurora-dev/orchestrator/pkg/errs"
)

// ConsecutiveStuckLimit is the number of consecutive missed-heartbeat
// sweeps an agent accumulates before it is quarantined (spec.md §4.7): a
// single missed heartbeat marks the agent's in-flight task stuck so it can
// be reassigned, but quarantining the agent itself waits for a pattern of
// unresponsiveness rather than one slow beat.
const ConsecutiveStuckLimit = 3

// QuarantineDuration is how long a quarantine lasts before it lifts on its
// own (spec.md §4.7) — a quarantined agent is not trusted again merely
// because it sends one more heartbeat; it sits out a fixed cooldown.
const QuarantineDuration = 10 * time.Minute

// HeartbeatState is one agent's last-seen bookkeeping.
type HeartbeatState struct {
	AgentID       string
	LastHeartbeat time.Time
	Stuck         bool
	MissedCount   int
	Quarantined   bool
	QuarantinedAt time.Time
}

// HealthMonitor polls a ticker, marks an agent's in-flight task stuck on
// its first missed heartbeat, and quarantines the agent itself once
// ConsecutiveStuckLimit consecutive sweeps find it still stale, per
// spec.md §4.7's stuck-agent detection.
type HealthMonitor struct {
	mu             sync.Mutex
	states         map[string]*HeartbeatState
	StuckThreshold time.Duration
	log            *slog.Logger

	onStuck      func(agentID string)
	onQuarantine func(agentID string)
}

// NewHealthMonitor creates a HealthMonitor with the given stuck threshold.
func NewHealthMonitor(stuckThreshold time.Duration, log *slog.Logger) *HealthMonitor {
	if log == nil {
		log = slog.Default()
	}
	return &HealthMonitor{
		states:         make(map[string]*HeartbeatState),
		StuckThreshold: stuckThreshold,
		log:            log,
	}
}

// OnStuck registers a callback invoked the first time an agent's heartbeat
// goes stale, before it has accumulated enough misses to be quarantined —
// the caller uses this to transition the agent's in-flight task to
// TaskStuck and reschedule it (spec.md §4.7's running->stuck->ready path)
// without waiting for the agent to actually be quarantined.
func (h *HealthMonitor) OnStuck(fn func(agentID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStuck = fn
}

// OnQuarantine registers a callback invoked whenever an agent transitions
// into quarantine (e.g. to release its in-flight claimed tasks back to
// the graph).
func (h *HealthMonitor) OnQuarantine(fn func(agentID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onQuarantine = fn
}

// Beat records a heartbeat for agentID and clears its stuck/miss bookkeeping.
// It does NOT lift an active quarantine — a quarantine only expires after
// QuarantineDuration has elapsed (checked in sweep), so one more heartbeat
// from a flapping agent can't talk its way out of cooldown early.
func (h *HealthMonitor) Beat(agentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.states[agentID]
	if !ok {
		s = &HeartbeatState{AgentID: agentID}
		h.states[agentID] = s
	}
	s.LastHeartbeat = time.Now()
	s.Stuck = false
	s.MissedCount = 0
}

// Quarantined reports whether agentID is currently quarantined.
func (h *HealthMonitor) Quarantined(agentID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.states[agentID]
	return ok && s.Quarantined
}

// sweep checks every tracked agent's heartbeat age against StuckThreshold,
// firing onStuck on the first miss and onQuarantine once misses reach
// ConsecutiveStuckLimit, and lifts any quarantine whose QuarantineDuration
// has elapsed.
func (h *HealthMonitor) sweep() {
	h.mu.Lock()
	now := time.Now()
	var newlyStuck, newlyQuarantined, expired []string
	for _, s := range h.states {
		if s.Quarantined {
			if now.Sub(s.QuarantinedAt) >= QuarantineDuration {
				s.Quarantined = false
				s.Stuck = false
				s.MissedCount = 0
				expired = append(expired, s.AgentID)
			}
			continue
		}
		if now.Sub(s.LastHeartbeat) <= h.StuckThreshold {
			continue
		}
		if !s.Stuck {
			s.Stuck = true
			newlyStuck = append(newlyStuck, s.AgentID)
		}
		s.MissedCount++
		if s.MissedCount >= ConsecutiveStuckLimit {
			s.Quarantined = true
			s.QuarantinedAt = now
			newlyQuarantined = append(newlyQuarantined, s.AgentID)
		}
	}
	onStuck, onQuarantine := h.onStuck, h.onQuarantine
	h.mu.Unlock()

	for _, id := range expired {
		h.log.Info("governor: agent quarantine expired", "agent_id", id, "duration", QuarantineDuration)
	}
	for _, id := range newlyStuck {
		h.log.Warn("governor: agent missed heartbeat, marking in-flight task stuck", "agent_id", id, "threshold", h.StuckThreshold)
		if onStuck != nil {
			onStuck(id)
		}
	}
	for _, id := range newlyQuarantined {
		h.log.Warn("governor: agent quarantined after consecutive missed heartbeats", "agent_id", id, "misses", ConsecutiveStuckLimit)
		if onQuarantine != nil {
			onQuarantine(id)
		}
	}
}

// Run polls sweep every interval until ctx is cancelled.
func (h *HealthMonitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// CheckErr returns errs.KindStuckAgent if agentID is quarantined, nil
// otherwise — a convenience for callers about to assign work to it.
func (h *HealthMonitor) CheckErr(agentID string) error {
	if h.Quarantined(agentID) {
		return errs.New(errs.KindStuckAgent, "agent is quarantined").WithContext("agent_id", agentID)
	}
	return nil
}
