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

package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// storeFactories lists every backend this suite exercises against the same
// round-trip assertions. SQLStore runs against an in-process sqlite3
// database so the suite stays hermetic while still exercising the real
// database/sql + mattn/go-sqlite3 code path, not just InMemoryStore.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"InMemoryStore": func() Store { return NewInMemoryStore() },
		"SQLStore/sqlite3": func() Store {
			s, err := OpenSQL(DialectSQLite, "file::memory:?cache=shared")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStoreAppendAssignsMonotonicSeqPerWorkflow(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			ctx := context.Background()

			require.NoError(t, store.Append(ctx, Event{WorkflowID: "wf-1", Kind: "a"}))
			require.NoError(t, store.Append(ctx, Event{WorkflowID: "wf-1", Kind: "b"}))
			require.NoError(t, store.Append(ctx, Event{WorkflowID: "wf-2", Kind: "x"}))

			events, err := store.Events(ctx, "wf-1", 0)
			require.NoError(t, err)
			require.Len(t, events, 2)
			require.Equal(t, int64(1), events[0].Seq)
			require.Equal(t, int64(2), events[1].Seq)
			require.Equal(t, "a", events[0].Kind)
			require.Equal(t, "b", events[1].Kind)

			other, err := store.Events(ctx, "wf-2", 0)
			require.NoError(t, err)
			require.Len(t, other, 1)
			require.Equal(t, int64(1), other[0].Seq, "seq numbering is per-workflow, not global")
		})
	}
}

func TestStoreEventsFiltersBySinceSeq(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			ctx := context.Background()

			for _, kind := range []string{"a", "b", "c"} {
				require.NoError(t, store.Append(ctx, Event{WorkflowID: "wf-1", Kind: kind}))
			}

			events, err := store.Events(ctx, "wf-1", 1)
			require.NoError(t, err)
			require.Len(t, events, 2)
			require.Equal(t, "b", events[0].Kind)
			require.Equal(t, "c", events[1].Kind)
		})
	}
}

func TestStoreSaveSnapshotThenLatestSnapshotRoundTrips(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			ctx := context.Background()

			_, ok, err := store.LatestSnapshot(ctx, "wf-1")
			require.NoError(t, err)
			require.False(t, ok, "no snapshot saved yet")

			require.NoError(t, store.SaveSnapshot(ctx, Snapshot{WorkflowID: "wf-1", Version: 1, Payload: []byte(`{"phase":"design"}`)}))
			snap, ok, err := store.LatestSnapshot(ctx, "wf-1")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, int64(1), snap.Version)
			require.Equal(t, []byte(`{"phase":"design"}`), snap.Payload)
		})
	}
}

func TestStoreSaveSnapshotOverwritesPreviousVersion(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			ctx := context.Background()

			require.NoError(t, store.SaveSnapshot(ctx, Snapshot{WorkflowID: "wf-1", Version: 1, Payload: []byte("v1")}))
			require.NoError(t, store.SaveSnapshot(ctx, Snapshot{WorkflowID: "wf-1", Version: 2, Payload: []byte("v2")}))

			snap, ok, err := store.LatestSnapshot(ctx, "wf-1")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, int64(2), snap.Version)
			require.Equal(t, []byte("v2"), snap.Payload)
		})
	}
}
