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
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/aurora-dev/orchestrator/pkg/embedder"
)

// localHashDimension is the vector width used by the two degraded
// embedding tiers, chosen to match chromem-go's default small-model width
// so a degraded embedding still fits the same collection.
const localHashDimension = 384

// fallbackEmbedder wraps a remote embedder.Embedder with two degraded
// tiers so Recall never blocks on an unreachable embedding provider
// (spec.md §4.5): a remote call first, then a deterministic local hash
// encoding (bag-of-words hashed into fixed buckets, still sensitive to
// vocabulary overlap), then a vector whose only nonzero component is the
// text length as a last resort so the pipeline degrades to keyword-only
// ranking instead of failing outright.
type fallbackEmbedder struct {
	remote embedder.Embedder
	log    *slog.Logger
}

func newFallbackEmbedder(remote embedder.Embedder, log *slog.Logger) *fallbackEmbedder {
	if log == nil {
		log = slog.Default()
	}
	return &fallbackEmbedder{remote: remote, log: log}
}

func (f *fallbackEmbedder) embed(ctx context.Context, text string) []float32 {
	if f.remote != nil {
		if vec, err := f.remote.Embed(ctx, text); err == nil {
			return vec
		} else {
			f.log.Warn("memory: remote embedder failed, falling back to local hash encoding", "error", err)
		}
	}
	if vec := hashEncode(text); vec != nil {
		return vec
	}
	f.log.Warn("memory: local hash encoding failed, falling back to length bucketing")
	return lengthBucket(text)
}

// hashEncode hashes each whitespace-separated token into one of
// localHashDimension buckets and accumulates a count, producing a crude
// but deterministic bag-of-words vector with no external dependency.
func hashEncode(text string) []float32 {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return nil
	}
	vec := make([]float32, localHashDimension)
	h := fnv.New32a()
	for _, tok := range fields {
		h.Reset()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32())%localHashDimension]++
	}
	return vec
}

// lengthBucket is the final fallback: a single nonzero component sized by
// text length, enough to keep cosine similarity well-defined without
// conveying real semantic content.
func lengthBucket(text string) []float32 {
	vec := make([]float32, localHashDimension)
	vec[0] = float32(len(text))
	return vec
}
