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

// Package tokencount estimates token counts for context-budget packing
// (Hierarchical Memory, spec.md §4.5) and context-window filtering (Agent
// Assignment, spec.md §4.3). It prefers a real tiktoken-go encoding for
// models it recognizes and falls back to the 4-chars/token heuristic
// otherwise.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts, preferring an exact tiktoken-go encoding
// and falling back to a character-based heuristic when the model is
// unrecognized.
type Counter struct {
	mu       sync.RWMutex
	encoding *tiktoken.Tiktoken // nil means heuristic-only
	model    string
}

var (
	cacheMu       sync.RWMutex
	encodingCache = make(map[string]*tiktoken.Tiktoken)
)

// New builds a Counter for model, falling back to the cl100k_base
// encoding and finally to the character heuristic if no tiktoken
// encoding can be resolved at all.
func New(model string) *Counter {
	cacheMu.RLock()
	cached, ok := encodingCache[model]
	cacheMu.RUnlock()
	if ok {
		return &Counter{encoding: cached, model: model}
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		return &Counter{model: model}
	}

	cacheMu.Lock()
	encodingCache[model] = enc
	cacheMu.Unlock()
	return &Counter{encoding: enc, model: model}
}

// Count returns the token count of text, using the exact encoding when
// available and the len(text)/4 heuristic otherwise.
func (c *Counter) Count(text string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.encoding == nil {
		return len(text) / 4
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Model returns the model name this Counter was built for.
func (c *Counter) Model() string { return c.model }

// Exact reports whether Count uses a real tokenizer rather than the
// character heuristic.
func (c *Counter) Exact() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.encoding != nil
}
