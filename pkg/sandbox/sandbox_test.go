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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aurora-dev/orchestrator/pkg/errs"
)

// fakeRunner is a Runner stand-in for exercising runnerRPCServer's dispatch
// logic without a real plugin subprocess on the other end of the RPC.
type fakeRunner struct {
	result Result
	err    error
	gotCmd Command
}

func (f *fakeRunner) Run(cmd Command) (Result, error) {
	f.gotCmd = cmd
	return f.result, f.err
}

func TestRunnerRPCServerDispatchesToImpl(t *testing.T) {
	fr := &fakeRunner{result: Result{Stdout: "ok", ExitCode: 0}}
	srv := &runnerRPCServer{impl: fr}

	cmd := Command{Argv: []string{"go", "test", "./..."}, Dir: "/tmp/work"}
	var resp Result
	require.NoError(t, srv.Run(cmd, &resp))

	require.Equal(t, cmd, fr.gotCmd)
	require.Equal(t, "ok", resp.Stdout)
}

func TestRunnerRPCServerPropagatesImplError(t *testing.T) {
	fr := &fakeRunner{err: errors.New("command not found")}
	srv := &runnerRPCServer{impl: fr}

	var resp Result
	err := srv.Run(Command{Argv: []string{"missing-binary"}}, &resp)
	require.Error(t, err)
}

func TestExecutorRunFailsWithSandboxUnavailWhenHelperBinaryMissing(t *testing.T) {
	e := New("/nonexistent/aurora-dev-sandbox-helper")
	_, err := e.Run(context.Background(), []string{"true"}, "/tmp", nil, Policy{})
	require.Error(t, err)
	require.Equal(t, errs.KindSandboxUnavail, errs.KindOf(err))
}

func TestExecutorCloseIsSafeWithoutEverStarting(t *testing.T) {
	e := New("/nonexistent/aurora-dev-sandbox-helper")
	e.Close()
}
