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

package reflexion

import (
	"context"

	"github.com/aurora-dev/orchestrator/pkg/sandbox"
)

// SandboxGate runs Argv inside the Sandbox Executor and treats a nonzero
// exit code as failure, feeding stderr back as Reflect feedback. Syntax,
// test, and quality gates are all instances of this with a different
// command line and Policy.
type SandboxGate struct {
	GateName string
	Argv     []string
	Policy   sandbox.Policy
	Executor *sandbox.Executor
}

func (g *SandboxGate) Name() string { return g.GateName }

func (g *SandboxGate) Check(ctx context.Context, dir string) (bool, string, error) {
	res, err := g.Executor.Run(ctx, g.Argv, dir, nil, g.Policy)
	if err != nil {
		return false, "", err
	}
	if res.ExitCode != 0 {
		return false, res.Stderr, nil
	}
	return true, "", nil
}

// NewSyntaxGate checks the materialized output parses/compiles.
func NewSyntaxGate(executor *sandbox.Executor, checkCmd []string) *SandboxGate {
	return &SandboxGate{GateName: "syntax", Argv: checkCmd, Executor: executor}
}

// NewTestGate runs the project's test command.
func NewTestGate(executor *sandbox.Executor, testCmd []string) *SandboxGate {
	return &SandboxGate{GateName: "test", Argv: testCmd, Executor: executor}
}

// NewQualityGate runs a lint/quality command (e.g. static analysis).
func NewQualityGate(executor *sandbox.Executor, lintCmd []string) *SandboxGate {
	return &SandboxGate{GateName: "quality", Argv: lintCmd, Executor: executor}
}
