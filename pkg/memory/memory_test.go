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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/tokencount"
)

func newTestEngine(t *testing.T) (*Engine, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	eng := New(store, nil, nil, tokencount.New("gpt-4"), Config{BatchSize: 1}, nil)
	return eng, store
}

func TestEngineRememberImmediateFlush(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	item := &domain.MemoryItem{ID: "m1", ProjectID: "p1", Kind: domain.MemoryWorking, Content: "build the auth endpoint"}
	require.NoError(t, eng.Remember(ctx, item))

	got, ok := store.Get(ctx, "m1")
	require.True(t, ok)
	require.Equal(t, "build the auth endpoint", got.Content)
}

func TestEngineRememberBatching(t *testing.T) {
	store := NewInMemoryStore()
	eng := New(store, nil, nil, tokencount.New("gpt-4"), Config{BatchSize: 2}, nil)
	ctx := context.Background()

	require.NoError(t, eng.Remember(ctx, &domain.MemoryItem{ID: "a", ProjectID: "p1", Content: "first"}))
	_, ok := store.Get(ctx, "a")
	require.False(t, ok, "first item should sit in the pending batch until BatchSize is reached")

	require.NoError(t, eng.Remember(ctx, &domain.MemoryItem{ID: "b", ProjectID: "p1", Content: "second"}))
	_, ok = store.Get(ctx, "a")
	require.True(t, ok, "batch should flush once BatchSize is reached")
	_, ok = store.Get(ctx, "b")
	require.True(t, ok)
}

func TestEngineRecallKeywordMatch(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Remember(ctx, &domain.MemoryItem{ID: "m1", ProjectID: "p1", Kind: domain.MemoryWorking, Content: "implement JWT auth middleware"}))
	require.NoError(t, eng.Remember(ctx, &domain.MemoryItem{ID: "m2", ProjectID: "p1", Kind: domain.MemoryWorking, Content: "write the billing invoice PDF export"}))

	got, err := eng.Recall(ctx, "p1", "auth middleware", 2000)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	var ids []string
	for _, item := range got {
		ids = append(ids, item.ID)
	}
	require.Contains(t, ids, "m1")
}

func TestPromoteIfConvergedCreatesPatternAfterThreeIndependentReflections(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	for i, id := range []string{"r1", "r2"} {
		require.NoError(t, eng.Remember(ctx, &domain.MemoryItem{
			ID: id, ProjectID: "p1", Kind: domain.MemoryReflection,
			Content: fmt.Sprintf("reflection #%d on retrying with backoff", i),
			Tags:    []string{"retry-with-backoff"},
		}))
	}

	patterns, err := store.ByProject(ctx, "p1", domain.MemoryPattern)
	require.NoError(t, err)
	require.Empty(t, patterns, "two independent reflections should not yet converge into a pattern")

	require.NoError(t, eng.Remember(ctx, &domain.MemoryItem{
		ID: "r3", ProjectID: "p1", Kind: domain.MemoryReflection,
		Content: "reflection #3 on retrying with backoff",
		Tags:    []string{"retry-with-backoff"},
	}))

	patterns, err = store.ByProject(ctx, "p1", domain.MemoryPattern)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	require.Equal(t, "pattern-p1-retry-with-backoff", patterns[0].ID)
	require.ElementsMatch(t, []string{"r1", "r2", "r3"}, patterns[0].Dependencies)
}

func TestPromoteIfConvergedDoesNotDuplicatePatterns(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < PromotionThreshold+1; i++ {
		require.NoError(t, eng.Remember(ctx, &domain.MemoryItem{
			ID: fmt.Sprintf("r%d", i), ProjectID: "p1", Kind: domain.MemoryReflection,
			Content: "another reflection converging on the same lesson",
			Tags:    []string{"same-lesson"},
		}))
	}

	patterns, err := store.ByProject(ctx, "p1", domain.MemoryPattern)
	require.NoError(t, err)
	require.Len(t, patterns, 1, "a tag that already promoted should not spawn a second pattern row")
}

func TestPromoteIfConvergedIgnoresUntaggedReflections(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < PromotionThreshold; i++ {
		require.NoError(t, eng.Remember(ctx, &domain.MemoryItem{
			ID: fmt.Sprintf("r%d", i), ProjectID: "p1", Kind: domain.MemoryReflection,
			Content: "a reflection with no tag at all",
		}))
	}

	patterns, err := store.ByProject(ctx, "p1", domain.MemoryPattern)
	require.NoError(t, err)
	require.Empty(t, patterns)
}

func TestMiddleTruncateKeepsHeadAndTail(t *testing.T) {
	counter := tokencount.New("gpt-4")
	long := make([]byte, 4000)
	for i := range long {
		long[i] = 'x'
	}
	out := middleTruncate(string(long), counter, 100)
	require.LessOrEqual(t, counter.Count(out), 100)
	require.Contains(t, out, "...")
}

func TestExpandDependenciesPullsInDependencyChain(t *testing.T) {
	byID := map[string]*domain.MemoryItem{
		"dep1": {ID: "dep1", Content: "root cause analysis"},
	}
	root := &domain.MemoryItem{ID: "root", Content: "final fix", Dependencies: []string{"dep1"}}
	out := expandDependencies([]*domain.MemoryItem{root}, byID)

	require.Len(t, out, 2)
}

func TestMemoryItemTouchTracksRecallTime(t *testing.T) {
	item := &domain.MemoryItem{ID: "x", CreatedAt: time.Now().Add(-time.Hour)}
	item.Touch()
	require.Equal(t, 1, item.RecallCount)
	require.WithinDuration(t, time.Now(), item.LastRecall, time.Second)
}
