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

package sandbox

import (
	"net/rpc"

	plugin "github.com/hashicorp/go-plugin"
)

// Runner is the interface both sides of the plugin boundary implement:
// the core calls it through runnerRPCClient; the helper binary registers
// a concrete implementation (a real command executor dropping privileges
// via syscall.SysProcAttr) through runnerRPCServer.
type Runner interface {
	Run(cmd Command) (Result, error)
}

// executorPlugin is the go-plugin Plugin implementation for the net/rpc
// transport: it knows how to hand back a client-side stub (Client) and,
// on the helper-binary side, how to serve a concrete Runner (Server).
type executorPlugin struct {
	Impl Runner
}

// NewPlugin wraps a concrete Runner implementation for registration with
// plugin.Serve in the helper binary (cmd/aurora-dev-sandbox).
func NewPlugin(impl Runner) plugin.Plugin {
	return &executorPlugin{Impl: impl}
}

func (p *executorPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &runnerRPCServer{impl: p.Impl}, nil
}

func (p *executorPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &runnerRPCClient{client: c}, nil
}

// runnerRPCClient is the core-side stub satisfying Runner by calling out
// over net/rpc to the helper subprocess.
type runnerRPCClient struct {
	client *rpc.Client
}

func (c *runnerRPCClient) Run(cmd Command) (Result, error) {
	var resp Result
	err := c.client.Call("Plugin.Run", cmd, &resp)
	return resp, err
}

// runnerRPCServer runs inside the helper subprocess and dispatches net/rpc
// calls into the real Runner implementation.
type runnerRPCServer struct {
	impl Runner
}

func (s *runnerRPCServer) Run(cmd Command, resp *Result) error {
	result, err := s.impl.Run(cmd)
	if err != nil {
		return err
	}
	*resp = result
	return nil
}
