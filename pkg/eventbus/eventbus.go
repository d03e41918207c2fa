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

// Package eventbus implements the pub/sub half of the Event Bus &
// Persistence component (spec.md §4.8): one topic per workflow, a single
// writer (the workflow state machine), and any number of readers. A
// subscriber that falls behind drops the oldest buffered events rather
// than blocking the writer — late subscribers replay from
// persistence.Store instead.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aurora-dev/orchestrator/pkg/persistence"
)

// Message is one event delivered to subscribers of a workflow topic.
type Message struct {
	WorkflowID string
	Kind       string
	Payload    any
}

// subscriber is one reader's buffered inbox.
type subscriber struct {
	id string
	ch chan Message
}

const subscriberBuffer = 64

// Bus fans out Publish calls to every live subscriber of a workflow topic.
// Delivery is lossy by design (spec.md §4.8): a subscriber whose buffer is
// full has its oldest message dropped to make room, so the writer (Publish)
// never blocks on a slow reader.
type Bus struct {
	mu    sync.RWMutex
	topic map[string][]*subscriber // workflowID -> subscribers
	store persistence.Store
	log   *slog.Logger
}

// New creates a Bus. store, if non-nil, is consulted by Replay to serve a
// subscriber everything it missed since sinceSeq.
func New(store persistence.Store, log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		topic: make(map[string][]*subscriber),
		store: store,
		log:   log,
	}
}

// Subscribe registers a new reader for workflowID and returns a channel of
// messages plus an unsubscribe function. The channel is closed by
// Unsubscribe; callers must stop reading once it returns a zero Message
// with ok=false.
func (b *Bus) Subscribe(workflowID string) (<-chan Message, func()) {
	sub := &subscriber{id: uuid.New().String(), ch: make(chan Message, subscriberBuffer)}

	b.mu.Lock()
	b.topic[workflowID] = append(b.topic[workflowID], sub)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.topic[workflowID]
		for i, s := range subs {
			if s.id == sub.id {
				b.topic[workflowID] = append(subs[:i], subs[i+1:]...)
				close(s.ch)
				break
			}
		}
	}
	return sub.ch, unsubscribe
}

// Publish delivers msg to every current subscriber of msg.WorkflowID.
// Full subscriber buffers are drained by one message to make room rather
// than blocking; that subscriber has now missed a message and should
// Replay from persistence to recover continuity.
func (b *Bus) Publish(msg Message) {
	b.mu.RLock()
	subs := b.topic[msg.WorkflowID]
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- msg:
			default:
				b.log.Warn("eventbus: dropped message for saturated subscriber",
					"workflow_id", msg.WorkflowID, "subscriber_id", sub.id)
			}
		}
	}
}

// Replay returns every persisted event for workflowID after sinceSeq,
// letting a reconnecting subscriber catch up on what Publish couldn't
// deliver while it was disconnected or saturated.
func (b *Bus) Replay(ctx context.Context, workflowID string, sinceSeq int64) ([]persistence.Event, error) {
	if b.store == nil {
		return nil, nil
	}
	return b.store.Events(ctx, workflowID, sinceSeq)
}
