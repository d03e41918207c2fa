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

package agentclient

import (
	"context"
	"fmt"
	"sync"
)

// Fake is a deterministic Invoker for tests and local dev: it never calls
// a network, and its Content/error for a given TaskID+attempt sequence is
// reproducible by configuring Script up front.
type Fake struct {
	mu    sync.Mutex
	calls map[string]int

	// Script, keyed by TaskID, returns the Response/error for the Nth call
	// (0-indexed) to that task. A missing entry falls back to Default.
	Script map[string][]func(Request) (Response, error)

	// Default is used when Script has no entry, or runs out of entries,
	// for a given TaskID.
	Default func(Request) (Response, error)
}

// NewFake creates a Fake that echoes the prompt back with a fixed cost
// unless overridden via Script/Default.
func NewFake() *Fake {
	return &Fake{
		calls: make(map[string]int),
		Default: func(req Request) (Response, error) {
			return Response{Content: fmt.Sprintf("echo: %s", req.Prompt), CostUnit: 0.01}, nil
		},
	}
}

func (f *Fake) Invoke(_ context.Context, req Request) (Response, error) {
	f.mu.Lock()
	n := f.calls[req.TaskID]
	f.calls[req.TaskID] = n + 1
	f.mu.Unlock()

	if steps, ok := f.Script[req.TaskID]; ok && n < len(steps) {
		return steps[n](req)
	}
	return f.Default(req)
}

// CallCount returns how many times taskID has been invoked.
func (f *Fake) CallCount(taskID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[taskID]
}
