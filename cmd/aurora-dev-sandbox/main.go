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

// Command aurora-dev-sandbox is the out-of-process helper the Sandbox
// Executor (pkg/sandbox) launches via hashicorp/go-plugin. It runs one
// command per RPC call, bounded by the caller's Policy, and is meant to
// be invoked only by pkg/sandbox.Executor — never run directly.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	plugin "github.com/hashicorp/go-plugin"

	"github.com/aurora-dev/orchestrator/pkg/sandbox"
)

type localRunner struct{}

func (localRunner) Run(cmd sandbox.Command) (sandbox.Result, error) {
	if len(cmd.Argv) == 0 {
		return sandbox.Result{}, fmt.Errorf("sandbox: empty argv")
	}

	timeout := cmd.Policy.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	execCmd := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	execCmd.Dir = cmd.Dir
	execCmd.Env = cmd.Env
	// Drop privileges to an unprivileged, capability-stripped child. The
	// exact UID/GID mapping is deployment-specific; 65534 (nobody) is the
	// conservative default when the policy names no explicit mapping.
	execCmd.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{Uid: 65534, Gid: 65534},
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	start := time.Now()
	err := execCmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return sandbox.Result{}, fmt.Errorf("sandbox: run: %w", err)
		}
	}

	return sandbox.Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: elapsed,
	}, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: plugin.HandshakeConfig{
			ProtocolVersion:  1,
			MagicCookieKey:   "AURORA_DEV_SANDBOX",
			MagicCookieValue: "sandbox-executor",
		},
		Plugins: map[string]plugin.Plugin{
			"executor": sandbox.NewPlugin(localRunner{}),
		},
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:  "aurora-dev-sandbox",
			Level: hclog.Info,
		}),
	})
}
