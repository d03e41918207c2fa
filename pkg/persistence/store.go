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

// Package persistence implements the durable snapshot+event-log half of
// the Event Bus & Persistence component (spec.md §4.8): a single-writer
// append log plus a latest-snapshot pointer, behind one Store interface
// with pluggable backends (in-memory, SQL, and a distributed-KV family),
// matching the multi-backend provider pattern of pkg/config/provider.
package persistence

import (
	"context"
	"time"
)

// Event is one durable log entry recording a state transition.
type Event struct {
	WorkflowID string
	Seq        int64
	Kind       string
	Payload    []byte
	RecordedAt time.Time
}

// Snapshot is the latest materialized state for a workflow, keyed by the
// monotonic Version the domain aggregate carried at write time.
type Snapshot struct {
	WorkflowID string
	Version    int64
	Payload    []byte
	SavedAt    time.Time
}

// Store is the durability contract every backend satisfies. Append and
// SaveSnapshot are the only writes; a backend must make both atomic with
// respect to concurrent readers (a reader never observes a torn write).
type Store interface {
	Append(ctx context.Context, e Event) error
	Events(ctx context.Context, workflowID string, sinceSeq int64) ([]Event, error)

	SaveSnapshot(ctx context.Context, s Snapshot) error
	LatestSnapshot(ctx context.Context, workflowID string) (Snapshot, bool, error)

	Close() error
}
