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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBeatClearsStuckAndMissedCount(t *testing.T) {
	h := NewHealthMonitor(10*time.Millisecond, nil)
	h.Beat("agent-1")
	h.states["agent-1"].LastHeartbeat = time.Now().Add(-time.Hour)
	h.sweep()
	require.True(t, h.states["agent-1"].Stuck)

	h.Beat("agent-1")
	require.False(t, h.states["agent-1"].Stuck)
	require.Equal(t, 0, h.states["agent-1"].MissedCount)
}

func TestSweepFiresOnStuckOnFirstMissedHeartbeat(t *testing.T) {
	h := NewHealthMonitor(10*time.Millisecond, nil)
	var mu sync.Mutex
	var stuck []string
	h.OnStuck(func(agentID string) {
		mu.Lock()
		defer mu.Unlock()
		stuck = append(stuck, agentID)
	})

	h.Beat("agent-1")
	h.states["agent-1"].LastHeartbeat = time.Now().Add(-time.Hour)
	h.sweep()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"agent-1"}, stuck)
	require.False(t, h.Quarantined("agent-1"), "one missed heartbeat marks stuck, not quarantined")
}

func TestSweepQuarantinesAfterConsecutiveStuckLimit(t *testing.T) {
	h := NewHealthMonitor(10*time.Millisecond, nil)
	var mu sync.Mutex
	var quarantined []string
	h.OnQuarantine(func(agentID string) {
		mu.Lock()
		defer mu.Unlock()
		quarantined = append(quarantined, agentID)
	})

	h.Beat("agent-1")
	h.states["agent-1"].LastHeartbeat = time.Now().Add(-time.Hour)

	for i := 0; i < ConsecutiveStuckLimit; i++ {
		h.sweep()
	}

	require.True(t, h.Quarantined("agent-1"))
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"agent-1"}, quarantined, "quarantine should fire exactly once, on the sweep that reaches the limit")
}

func TestQuarantineDoesNotLiftOnBeatAlone(t *testing.T) {
	h := NewHealthMonitor(10*time.Millisecond, nil)
	h.Beat("agent-1")
	h.states["agent-1"].LastHeartbeat = time.Now().Add(-time.Hour)
	for i := 0; i < ConsecutiveStuckLimit; i++ {
		h.sweep()
	}
	require.True(t, h.Quarantined("agent-1"))

	h.Beat("agent-1")
	require.True(t, h.Quarantined("agent-1"), "a heartbeat must not be enough to lift a quarantine early")
}

func TestQuarantineLiftsOnceDurationElapsesOnSweep(t *testing.T) {
	h := NewHealthMonitor(10*time.Millisecond, nil)
	h.Beat("agent-1")
	h.states["agent-1"].LastHeartbeat = time.Now().Add(-time.Hour)
	for i := 0; i < ConsecutiveStuckLimit; i++ {
		h.sweep()
	}
	require.True(t, h.Quarantined("agent-1"))

	h.states["agent-1"].QuarantinedAt = time.Now().Add(-QuarantineDuration - time.Second)
	h.sweep()
	require.False(t, h.Quarantined("agent-1"))
	require.Equal(t, 0, h.states["agent-1"].MissedCount)
}

func TestCheckErrReturnsStuckAgentKindWhenQuarantined(t *testing.T) {
	h := NewHealthMonitor(10*time.Millisecond, nil)
	require.NoError(t, h.CheckErr("agent-1"))

	h.Beat("agent-1")
	h.states["agent-1"].LastHeartbeat = time.Now().Add(-time.Hour)
	for i := 0; i < ConsecutiveStuckLimit; i++ {
		h.sweep()
	}
	require.Error(t, h.CheckErr("agent-1"))
}
