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

// Package memory implements the Hierarchical Memory component (spec.md
// §4.5): four tiers (working/pattern/reflection/artifact) of
// domain.MemoryItem, written through a batched long-term store the same
// way the legacy memory service batched messages before flushing to
// long-term storage, and recalled through a multi-stage retrieval
// pipeline (keyword prefilter, dependency-graph expansion, vector
// similarity, lexical rerank, recency boost, token-budget packing).
package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/embedder"
	"github.com/aurora-dev/orchestrator/pkg/tokencount"
	"github.com/aurora-dev/orchestrator/pkg/vector"
)

// PromotionThreshold is the number of independent MemoryReflection entries
// that must converge on the same generalizable-lesson tag before a new
// MemoryPattern item is written linking them (spec.md §4.5).
const PromotionThreshold = 3

// Config configures an Engine.
type Config struct {
	// BatchSize batches Remember calls before they are flushed to Store
	// and the vector index, mirroring the legacy service's
	// LongTermConfig.BatchSize (1 = immediate storage).
	BatchSize int

	// Collection names the vector.Provider collection memories are
	// written to. Defaults to "aurora_dev_memory".
	Collection string
}

// Engine is the Hierarchical Memory component. A nil Provider degrades
// Recall to keyword-and-dependency matching only; a nil Embedder falls back
// to the local encodings in embedding.go. Neither is required by Remember
// or Recall.
type Engine struct {
	store    Store
	provider vector.Provider
	embed    *fallbackEmbedder
	counter  *tokencount.Counter
	cfg      Config
	log      *slog.Logger

	batchMu sync.Mutex
	pending map[string][]*domain.MemoryItem
}

// New creates an Engine. provider and remoteEmbedder may be nil; remoteEmbedder's
// absence is itself handled by the embedding fallback chain, not by
// skipping embedding altogether.
func New(store Store, provider vector.Provider, remoteEmbedder embedder.Embedder, counter *tokencount.Counter, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Collection == "" {
		cfg.Collection = "aurora_dev_memory"
	}
	return &Engine{
		store:    store,
		provider: provider,
		embed:    newFallbackEmbedder(remoteEmbedder, log),
		counter:  counter,
		cfg:      cfg,
		log:      log,
		pending:  make(map[string][]*domain.MemoryItem),
	}
}

// Remember batches item under its ProjectID, flushing once BatchSize
// items have accumulated — the same batch-then-flush shape as the legacy
// service's pendingBatches/flushLongTermBatch, generalized from per-turn
// message batches to per-project MemoryItem batches.
func (e *Engine) Remember(ctx context.Context, item *domain.MemoryItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	e.batchMu.Lock()
	e.pending[item.ProjectID] = append(e.pending[item.ProjectID], item)
	batch := e.pending[item.ProjectID]
	flush := len(batch) >= e.cfg.BatchSize
	if flush {
		delete(e.pending, item.ProjectID)
	}
	e.batchMu.Unlock()

	if !flush {
		return nil
	}
	return e.flushBatch(ctx, batch)
}

// Flush forces any pending batch for projectID to Store and the vector
// index, e.g. on project shutdown.
func (e *Engine) Flush(ctx context.Context, projectID string) error {
	e.batchMu.Lock()
	batch := e.pending[projectID]
	delete(e.pending, projectID)
	e.batchMu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	return e.flushBatch(ctx, batch)
}

func (e *Engine) flushBatch(ctx context.Context, batch []*domain.MemoryItem) error {
	for _, item := range batch {
		if len(item.Embedding) == 0 {
			item.Embedding = e.embed.embed(ctx, item.Content)
		}
		if err := e.store.Put(ctx, item); err != nil {
			return err
		}
		if e.provider != nil {
			meta := map[string]any{
				"project_id": item.ProjectID,
				"kind":       string(item.Kind),
				"content":    item.Content,
			}
			if err := e.provider.Upsert(ctx, e.cfg.Collection, item.ID, item.Embedding, meta); err != nil {
				e.log.Warn("memory: vector upsert failed, item remains recallable via keyword search", "item_id", item.ID, "error", err)
			}
		}
		if item.Kind == domain.MemoryReflection {
			if err := e.promoteIfConverged(ctx, item); err != nil {
				e.log.Warn("memory: pattern promotion check failed", "item_id", item.ID, "error", err)
			}
		}
	}
	return nil
}

// promoteIfConverged checks whether item's tags are now shared by at least
// PromotionThreshold independent MemoryReflection entries in the same
// project and, if so, writes a new MemoryPattern item linking them (spec.md
// §4.5: "three independent reflections converging on the same lesson
// promote to a reusable pattern"). This replaces promoting a single item
// in place once it has been recalled enough times — recall count says
// nothing about whether the lesson generalizes, only that it was looked up
// a lot.
func (e *Engine) promoteIfConverged(ctx context.Context, item *domain.MemoryItem) error {
	for _, tag := range item.Tags {
		if tag == "" {
			continue
		}
		reflections, err := e.store.ByProject(ctx, item.ProjectID, domain.MemoryReflection)
		if err != nil {
			return err
		}
		var matching []*domain.MemoryItem
		for _, r := range reflections {
			if hasTag(r.Tags, tag) {
				matching = append(matching, r)
			}
		}
		if len(matching) < PromotionThreshold {
			continue
		}

		patterns, err := e.store.ByProject(ctx, item.ProjectID, domain.MemoryPattern)
		if err != nil {
			return err
		}
		if patternExistsForTag(patterns, tag) {
			continue
		}

		deps := make([]string, len(matching))
		var content strings.Builder
		content.WriteString("pattern: " + tag + "\n")
		for i, r := range matching {
			deps[i] = r.ID
			content.WriteString("- " + r.Content + "\n")
		}

		pattern := &domain.MemoryItem{
			ID:           newPatternID(item.ProjectID, tag),
			ProjectID:    item.ProjectID,
			Kind:         domain.MemoryPattern,
			Content:      content.String(),
			Tags:         []string{tag},
			Dependencies: deps,
			CreatedAt:    time.Now(),
		}
		pattern.Embedding = e.embed.embed(ctx, pattern.Content)
		if err := e.store.Put(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func patternExistsForTag(patterns []*domain.MemoryItem, tag string) bool {
	for _, p := range patterns {
		if hasTag(p.Tags, tag) {
			return true
		}
	}
	return false
}

// newPatternID is deterministic in the tag and project so a retried
// promotion check for the same converged tag overwrites the same pattern
// row instead of accumulating duplicates.
func newPatternID(projectID, tag string) string {
	return "pattern-" + projectID + "-" + tag
}

// Recall runs the spec.md §4.5 retrieval pipeline for query against
// projectID's memory, packing results into budgetTokens and returning
// them tail-ordered (oldest first) so a caller appending them directly
// before the live prompt reads them in chronological order.
func (e *Engine) Recall(ctx context.Context, projectID, query string, budgetTokens int) ([]*domain.MemoryItem, error) {
	all, err := e.store.ByProject(ctx, projectID, "")
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	byID := make(map[string]*domain.MemoryItem, len(all))
	for _, item := range all {
		byID[item.ID] = item
	}

	quota := 10
	candidates := e.keywordPrefilter(all, query)
	candidates = expandDependencies(candidates, byID)
	candidates = e.mergeVectorCandidates(ctx, projectID, query, candidates, byID, quota*3)

	scored := e.rerank(candidates, query)
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	packed := e.packToBudget(scored, budgetTokens)
	for _, item := range packed {
		item.Touch()
		_ = e.store.Put(ctx, item)
	}

	sort.Slice(packed, func(i, j int) bool { return packed[i].CreatedAt.Before(packed[j].CreatedAt) })
	return packed, nil
}

func (e *Engine) keywordPrefilter(all []*domain.MemoryItem, query string) []*domain.MemoryItem {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return all
	}
	var out []*domain.MemoryItem
	for _, item := range all {
		lower := strings.ToLower(item.Content)
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				out = append(out, item)
				break
			}
		}
	}
	if len(out) == 0 {
		// No lexical hit: fall through to the full set so vector
		// similarity still gets a chance to surface something relevant.
		return all
	}
	return out
}

// expandDependencies pulls in any MemoryItem that a candidate names in
// its Dependencies, so a recalled artifact brings along the reflections
// it was built from (spec.md §4.5).
func expandDependencies(candidates []*domain.MemoryItem, byID map[string]*domain.MemoryItem) []*domain.MemoryItem {
	seen := make(map[string]bool, len(candidates))
	out := make([]*domain.MemoryItem, 0, len(candidates))
	var add func(item *domain.MemoryItem)
	add = func(item *domain.MemoryItem) {
		if seen[item.ID] {
			return
		}
		seen[item.ID] = true
		out = append(out, item)
		for _, depID := range item.Dependencies {
			if dep, ok := byID[depID]; ok {
				add(dep)
			}
		}
	}
	for _, c := range candidates {
		add(c)
	}
	return out
}

// mergeVectorCandidates folds in the top `quota` vector-similarity
// matches for query, deduplicated against candidates already present.
func (e *Engine) mergeVectorCandidates(ctx context.Context, projectID, query string, candidates []*domain.MemoryItem, byID map[string]*domain.MemoryItem, quota int) []*domain.MemoryItem {
	if e.provider == nil || query == "" {
		return candidates
	}
	qvec := e.embed.embed(ctx, query)
	results, err := e.provider.SearchWithFilter(ctx, e.cfg.Collection, qvec, quota, map[string]any{"project_id": projectID})
	if err != nil {
		e.log.Warn("memory: vector search failed, continuing with keyword candidates only", "error", err)
		return candidates
	}

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c.ID] = true
	}
	merged := candidates
	for _, r := range results {
		if seen[r.ID] {
			continue
		}
		if item, ok := byID[r.ID]; ok {
			seen[r.ID] = true
			merged = append(merged, item)
		}
	}
	return merged
}

type scoredItem struct {
	*domain.MemoryItem
	score float64
}

// rerank approximates a cross-encoder pass with token-overlap lexical
// scoring plus a recency boost. No example repo in the corpus ships a
// cross-encoder reranker dependency; this keeps the pipeline's shape
// (embed-stage recall, then a sharper second-pass score) without
// fabricating a model integration the corpus gives no grounding for.
func (e *Engine) rerank(candidates []*domain.MemoryItem, query string) []scoredItem {
	queryTokens := strings.Fields(strings.ToLower(query))
	now := time.Now()
	out := make([]scoredItem, 0, len(candidates))
	for _, item := range candidates {
		lexical := overlapScore(queryTokens, item.Content)
		age := now.Sub(item.CreatedAt)
		recency := 1.0 / (1.0 + age.Hours()/24.0)
		out = append(out, scoredItem{MemoryItem: item, score: 0.7*lexical + 0.3*recency})
	}
	return out
}

func overlapScore(queryTokens []string, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	hits := 0
	for _, tok := range queryTokens {
		if strings.Contains(lower, tok) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

// packToBudget greedily accepts scored items (already sorted best-first)
// until budgetTokens is spent. An item that alone would blow the
// remaining budget is middle-truncated (head and tail kept, middle
// dropped) rather than excluded outright, so a single long artifact never
// starves every other recall of its slot.
func (e *Engine) packToBudget(scored []scoredItem, budgetTokens int) []*domain.MemoryItem {
	if budgetTokens <= 0 {
		budgetTokens = 2000
	}
	var out []*domain.MemoryItem
	remaining := budgetTokens
	for _, s := range scored {
		if remaining <= 0 {
			break
		}
		content := s.Content
		n := e.counter.Count(content)
		if n > remaining {
			content = middleTruncate(content, e.counter, remaining)
			n = e.counter.Count(content)
			if n == 0 {
				continue
			}
		}
		item := *s.MemoryItem
		item.Content = content
		out = append(out, &item)
		remaining -= n
	}
	return out
}

// middleTruncate keeps the head and tail of content and drops the middle
// until it fits within maxTokens, matching the convention that a
// memory's opening framing and closing conclusion carry more weight than
// its middle.
func middleTruncate(content string, counter *tokencount.Counter, maxTokens int) string {
	if counter.Count(content) <= maxTokens {
		return content
	}
	runes := []rune(content)
	half := maxTokens / 2
	for half > 0 {
		headChars := half * 4
		if headChars >= len(runes) {
			headChars = len(runes) / 2
		}
		head := string(runes[:headChars])
		tail := string(runes[len(runes)-headChars:])
		candidate := head + "\n...\n" + tail
		if counter.Count(candidate) <= maxTokens {
			return candidate
		}
		half--
	}
	return ""
}
