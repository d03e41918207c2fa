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
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// kv is the minimal distributed key-value contract the three remote
// backends (etcd, Consul, Zookeeper) are adapted to, mirroring how
// pkg/config/provider normalizes those same three clients behind one
// config.Provider interface.
type kv interface {
	put(ctx context.Context, key string, value []byte) error
	get(ctx context.Context, key string) ([]byte, bool, error)
	list(ctx context.Context, prefix string) (map[string][]byte, error)
}

// KVStore is a Store backed by any kv implementation. Events are stored
// one key per (workflowID, seq); snapshots one key per workflowID. This
// trades read-side fan-out (Events does a prefix list) for the simplest
// possible write path, matching the append-only nature of the log.
type KVStore struct {
	client kv
}

func newKVStore(c kv) *KVStore { return &KVStore{client: c} }

func eventKey(workflowID string, seq int64) string {
	return fmt.Sprintf("aurora-dev/events/%s/%020d", workflowID, seq)
}

func eventPrefix(workflowID string) string {
	return fmt.Sprintf("aurora-dev/events/%s/", workflowID)
}

func snapshotKey(workflowID string) string {
	return fmt.Sprintf("aurora-dev/snapshots/%s", workflowID)
}

func (s *KVStore) Append(ctx context.Context, e Event) error {
	existing, err := s.client.list(ctx, eventPrefix(e.WorkflowID))
	if err != nil {
		return fmt.Errorf("persistence: kv append: %w", err)
	}
	e.Seq = int64(len(existing)) + 1
	e.RecordedAt = time.Now()
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("persistence: kv append marshal: %w", err)
	}
	return s.client.put(ctx, eventKey(e.WorkflowID, e.Seq), payload)
}

func (s *KVStore) Events(ctx context.Context, workflowID string, sinceSeq int64) ([]Event, error) {
	raw, err := s.client.list(ctx, eventPrefix(workflowID))
	if err != nil {
		return nil, fmt.Errorf("persistence: kv events: %w", err)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Event, 0, len(raw))
	for _, k := range keys {
		var e Event
		if err := json.Unmarshal(raw[k], &e); err != nil {
			return nil, fmt.Errorf("persistence: kv decode event %s: %w", k, err)
		}
		if e.Seq > sinceSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *KVStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	snap.SavedAt = time.Now()
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("persistence: kv save snapshot marshal: %w", err)
	}
	return s.client.put(ctx, snapshotKey(snap.WorkflowID), payload)
}

func (s *KVStore) LatestSnapshot(ctx context.Context, workflowID string) (Snapshot, bool, error) {
	raw, ok, err := s.client.get(ctx, snapshotKey(workflowID))
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("persistence: kv decode snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *KVStore) Close() error {
	if closer, ok := s.client.(interface{ close() error }); ok {
		return closer.close()
	}
	return nil
}

// parseSeqFromKey extracts the trailing %020d sequence component of a key
// produced by eventKey. No backend calls it: the zero-padded sequence makes
// keys sort numerically as plain strings.
func parseSeqFromKey(key string) (int64, error) {
	parts := strings.Split(key, "/")
	return strconv.ParseInt(parts[len(parts)-1], 10, 64)
}
