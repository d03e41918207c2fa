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

// Package sandbox implements the Sandbox Executor (spec.md §4.6): command
// execution isolated behind network/filesystem/resource/capability policy.
// Isolation is realized as a hashicorp/go-plugin managed subprocess (the
// net/rpc plugin kind, which needs no protobuf codegen) rather than a
// literal container runtime — the policy surface is identical, only the
// isolation primitive differs, matching the process-level isolation this
// corpus's plugin system (pkg/plugins) already uses.
package sandbox

import (
	"context"
	"fmt"
	"net/rpc"
	"os/exec"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	plugin "github.com/hashicorp/go-plugin"

	"github.com/aurora-dev/orchestrator/pkg/errs"
)

// Policy bounds what a sandboxed command may do.
type Policy struct {
	// NetworkMode is "none", "restricted" (allowlisted hosts only), or
	// "open".
	NetworkMode string
	AllowedHosts []string

	// FilesystemRoot confines writes to this directory (typically the
	// task's worktree.Manager path).
	FilesystemRoot string
	ReadOnlyPaths  []string

	MaxCPUSeconds int
	MaxMemoryMB   int

	// Capabilities lists the Linux capabilities retained; everything else
	// is dropped when the child is launched with SysProcAttr.
	Capabilities []string

	Timeout time.Duration
}

// Result is the outcome of one sandboxed command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Command is the RPC argument shape exchanged with the plugin subprocess.
type Command struct {
	Argv   []string
	Dir    string
	Env    []string
	Policy Policy
}

// Executor runs sandboxed commands via a go-plugin managed subprocess
// serving the Runner RPC service (runnerRPCServer).
type Executor struct {
	mu     sync.Mutex
	client *plugin.Client
	rpcCli *rpc.Client
	binary string
}

// handshakeConfig pins the plugin protocol version the core and the
// sandbox helper binary must agree on.
var handshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AURORA_DEV_SANDBOX",
	MagicCookieValue: "sandbox-executor",
}

// New returns an Executor for the sandbox helper binary at binaryPath; the
// binary is launched as a managed plugin subprocess on the first Run.
func New(binaryPath string) *Executor {
	return &Executor{binary: binaryPath}
}

func (e *Executor) ensureStarted() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rpcCli != nil {
		return nil
	}

	e.client = plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: handshakeConfig,
		Plugins: map[string]plugin.Plugin{
			"executor": &executorPlugin{},
		},
		Cmd:              exec.Command(e.binary),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           hclog.NewNullLogger(),
	})

	rpcClient, err := e.client.Client()
	if err != nil {
		return errs.Wrap(errs.KindSandboxUnavail, "failed to start sandbox plugin", err)
	}
	e.rpcCli = rpcClient
	return nil
}

// Run executes argv under policy, returning its output or a
// errs.KindSandboxUnavail if the plugin subprocess itself is unavailable.
func (e *Executor) Run(ctx context.Context, argv []string, dir string, env []string, policy Policy) (Result, error) {
	if err := e.ensureStarted(); err != nil {
		return Result{}, err
	}

	raw, err := e.rpcCli.Dispense("executor")
	if err != nil {
		return Result{}, errs.Wrap(errs.KindSandboxUnavail, "failed to dispense sandbox executor", err)
	}
	executor, ok := raw.(Runner)
	if !ok {
		return Result{}, errs.New(errs.KindSandboxUnavail, "sandbox plugin does not implement Runner")
	}

	if policy.Timeout == 0 {
		policy.Timeout = 30 * time.Second
	}
	cmdCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	resultCh := make(chan Result, 1)
	errCh := make(chan error, 1)
	go func() {
		res, err := executor.Run(Command{Argv: argv, Dir: dir, Env: env, Policy: policy})
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- res
	}()

	select {
	case <-cmdCtx.Done():
		return Result{}, errs.Wrap(errs.KindSandboxUnavail, "sandboxed command timed out", cmdCtx.Err()).
			WithContext("argv", fmt.Sprint(argv))
	case err := <-errCh:
		return Result{}, errs.Wrap(errs.KindSandboxUnavail, "sandboxed command failed", err)
	case res := <-resultCh:
		return res, nil
	}
}

// Close terminates the managed subprocess.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Kill()
	}
}
