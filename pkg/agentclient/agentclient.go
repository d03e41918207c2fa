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

// Package agentclient defines the contract the orchestration core expects
// from an external agent/LLM transport. The core never talks to a model
// provider directly — prompt construction, API transport, and model
// selection are explicitly out of scope (spec.md §1) — so this package
// only ever ships Invoker itself and a deterministic Fake used by tests
// and local dev, never a production provider client.
package agentclient

import "context"

// Request is everything an Invoker needs to produce a Response: the task
// description, the packed memory context (Hierarchical Memory's output),
// and an optional prior attempt's feedback (Self-Correction Loop's reflect
// step).
type Request struct {
	TaskID        string
	Prompt        string
	Context       string
	PriorFeedback string
}

// Response is one invocation's output: generated content plus a cost
// figure the Budget Governor can charge against the project's ledger.
type Response struct {
	Content  string
	CostUnit float64
}

// Invoker is the contract an external agent/LLM transport must satisfy.
// The Self-Correction Loop's Generate and Reflect steps call it; nothing
// else in the core depends on it directly.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// InvokerFunc adapts a plain function to Invoker.
type InvokerFunc func(ctx context.Context, req Request) (Response, error)

func (f InvokerFunc) Invoke(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
