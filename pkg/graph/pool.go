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

package graph

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/errs"
)

// Pool drives a Graph to completion with up to MaxConcurrent workers
// pulling ready tasks and invoking a Worker on each, matching the
// errgroup-based fan-out the teacher uses for its parallel agent runner.
type Pool struct {
	Graph         *Graph
	MaxConcurrent int
	PollInterval  time.Duration
	CanTake       func(*domain.Task) bool
	AgentID       string
	Work          Worker
}

// Run drives the pool until every task in the graph reaches a terminal
// state or ctx is cancelled. A Worker error does not stop the pool: it is
// reported to Graph.Fail for that task. Run returns the first error from
// Graph.Fail or Graph.Complete, or ctx's error, with errgroup semantics
// (all in-flight workers are given the chance to finish before Run returns).
func (p *Pool) Run(ctx context.Context) error {
	if p.PollInterval == 0 {
		p.PollInterval = 50 * time.Millisecond
	}
	grp, grpCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.MaxConcurrent)

	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-grpCtx.Done():
			_ = grp.Wait()
			return grpCtx.Err()
		case <-ticker.C:
			if p.Graph.Done() {
				return grp.Wait()
			}
			p.drainReady(grpCtx, grp, sem)
		}
	}
}

// drainReady claims every currently-ready task that fits in the semaphore
// budget and dispatches each to a worker goroutine, without blocking if the
// pool is already saturated or the graph has nothing claimable.
func (p *Pool) drainReady(ctx context.Context, grp *errgroup.Group, sem chan struct{}) {
	for {
		select {
		case sem <- struct{}{}:
		default:
			return
		}
		t, err := p.Graph.ClaimNextReady(p.AgentID, p.CanTake)
		if err != nil {
			<-sem
			return
		}
		grp.Go(func() error {
			defer func() { <-sem }()
			return p.runOne(ctx, t)
		})
	}
}

func (p *Pool) runOne(ctx context.Context, t *domain.Task) error {
	t.Transition(domain.TaskRunning)
	if err := p.Work(ctx, t); err != nil {
		_, ferr := p.Graph.Fail(t.ID, err, errs.Retriable(errs.KindOf(err)))
		if ferr != nil {
			return ferr
		}
		return nil
	}
	_, err := p.Graph.Complete(t.ID)
	return err
}
