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

package memory

import (
	"context"
	"sync"

	"github.com/aurora-dev/orchestrator/pkg/domain"
)

// Store holds MemoryItems for a project, independent of how they are
// retrieved. Engine is the only caller; a project's full item set is small
// enough that InMemoryStore is the only implementation shipped — a SQL- or
// KV-backed Store would satisfy the same interface if item volume ever
// outgrew a process's memory.
type Store interface {
	Put(ctx context.Context, item *domain.MemoryItem) error
	Get(ctx context.Context, id string) (*domain.MemoryItem, bool)
	ByProject(ctx context.Context, projectID string, kind domain.MemoryKind) ([]*domain.MemoryItem, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryStore is a mutex-guarded map, mirroring the teacher's
// batchMu-protected pendingBatches map pattern (legacy memory.go) but keyed
// on MemoryItem.ID rather than session+agent.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]*domain.MemoryItem
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[string]*domain.MemoryItem)}
}

func (s *InMemoryStore) Put(_ context.Context, item *domain.MemoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*domain.MemoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

func (s *InMemoryStore) ByProject(_ context.Context, projectID string, kind domain.MemoryKind) ([]*domain.MemoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.MemoryItem
	for _, item := range s.items {
		if item.ProjectID != projectID {
			continue
		}
		if kind != "" && item.Kind != kind {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

var _ Store = (*InMemoryStore)(nil)
