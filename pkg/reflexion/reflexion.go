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

// Package reflexion implements the Self-Correction Loop (spec.md §4.4):
// generate -> materialize -> syntax gate -> test gate -> quality gate ->
// reflect -> retry, capped at MaxAttempts (5 by default). Generate and
// Reflect call out through agentclient.Invoker; Materialize writes into a
// worktree.Manager-provided directory; the syntax/test gates dispatch into
// the Sandbox Executor.
package reflexion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aurora-dev/orchestrator/pkg/agentclient"
	"github.com/aurora-dev/orchestrator/pkg/domain"
	"github.com/aurora-dev/orchestrator/pkg/errs"
	"github.com/aurora-dev/orchestrator/pkg/memory"
	"github.com/aurora-dev/orchestrator/pkg/sandbox"
	"github.com/aurora-dev/orchestrator/pkg/worktree"
)

// Gate checks one property of the materialized output (syntax, tests,
// quality) and reports pass/fail plus diagnostic feedback for Reflect.
type Gate interface {
	Name() string
	Check(ctx context.Context, dir string) (ok bool, feedback string, err error)
}

// Loop drives one Task through the self-correction cycle.
type Loop struct {
	Invoker     agentclient.Invoker
	Worktrees   *worktree.Manager
	Sandbox     *sandbox.Executor
	Gates       []Gate
	MaxAttempts int

	// Mem persists each reflect step's structured output as a
	// domain.MemoryReflection item (spec.md §4.4/§4.5). Reflection
	// persistence is skipped, not an error, when Mem is nil.
	Mem *memory.Engine
	Log *slog.Logger
}

// DefaultMaxAttempts is the spec.md §4.4 ceiling on correction attempts.
const DefaultMaxAttempts = 5

// Outcome is the terminal result of running the loop to completion.
type Outcome struct {
	Success  bool
	Attempts int
	Output   string
	LastGate string
}

// Run drives t through generate/materialize/gate/reflect until every gate
// passes or MaxAttempts is exhausted, returning errs.KindTaskExhausted in
// the latter case. projectID scopes persisted reflections for recall by
// later tasks in the same project.
func (l *Loop) Run(ctx context.Context, projectID string, t *domain.Task, promptContext string) (Outcome, error) {
	maxAttempts := l.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}

	dir, err := l.Worktrees.Acquire(ctx, t.ID)
	if err != nil {
		return Outcome{}, errs.Wrap(errs.KindDependencyFailed, "failed to acquire worktree", err).
			WithContext("task_id", t.ID)
	}

	feedback := ""
	for {
		attempt, allowed := t.BeginAttempt()
		if !allowed || attempt > maxAttempts {
			return Outcome{Attempts: attempt - 1}, errs.New(errs.KindTaskExhausted, "max self-correction attempts exhausted").
				WithContext("task_id", t.ID, "attempts", attempt-1)
		}

		content, err := l.generate(ctx, t, promptContext, feedback)
		if err != nil {
			return Outcome{Attempts: attempt}, err
		}

		if err := l.materialize(dir, content); err != nil {
			return Outcome{Attempts: attempt}, errs.Wrap(errs.KindDependencyFailed, "failed to materialize output", err).
				WithContext("task_id", t.ID)
		}

		failedGate, gateFeedback, err := l.runGates(ctx, dir)
		if err != nil {
			return Outcome{Attempts: attempt}, err
		}
		if failedGate == "" {
			return Outcome{Success: true, Attempts: attempt, Output: content}, nil
		}

		feedback = l.reflect(ctx, projectID, t, failedGate, gateFeedback)
		t.SaveExecutionState(&domain.ExecutionState{
			Attempt:        attempt,
			PartialOutput:  content,
			LastGateFailed: failedGate,
		})
	}
}

func (l *Loop) generate(ctx context.Context, t *domain.Task, promptContext, feedback string) (string, error) {
	resp, err := l.Invoker.Invoke(ctx, agentclient.Request{
		TaskID:        t.ID,
		Prompt:        t.Description,
		Context:       promptContext,
		PriorFeedback: feedback,
	})
	if err != nil {
		return "", errs.Wrap(errs.KindDependencyFailed, "generate step failed", err).WithContext("task_id", t.ID)
	}
	return resp.Content, nil
}

// materialize writes content to a single generated-output file in dir.
// A richer implementation would parse multi-file diffs out of content;
// this task's declared FileWritePaths name exactly what the generator is
// expected to touch.
func (l *Loop) materialize(dir, content string) error {
	path := filepath.Join(dir, "generated_output.txt")
	return os.WriteFile(path, []byte(content), 0o644)
}

func (l *Loop) runGates(ctx context.Context, dir string) (failedGate, feedback string, err error) {
	for _, gate := range l.Gates {
		ok, fb, gerr := gate.Check(ctx, dir)
		if gerr != nil {
			return "", "", errs.Wrap(errs.KindDependencyFailed, "gate check failed", gerr).
				WithContext("gate", gate.Name())
		}
		if !ok {
			return gate.Name(), fb, nil
		}
	}
	return "", "", nil
}

// reflectPrompt asks the agent for a structured post-mortem of a failed
// attempt instead of just echoing the gate's raw diagnostic back at it
// (spec.md §4.4): naming the root cause, the assumptions that turned out
// wrong, and a generalizable lesson gives both the next generate call and
// the Hierarchical Memory component something more durable than "gate X
// failed" to work from.
const reflectPrompt = `The previous attempt failed gate %q with this feedback:

%s

Respond with a single JSON object, no surrounding prose, with exactly these
keys: "root_cause" (string), "incorrect_assumptions" (array of strings),
"improved_strategy" (string), "generalizable_lesson" (a short string
capturing a lesson that would apply beyond this one task).`

// reflect asks the agent to produce a structured domain.ReflectionRecord
// about the failed attempt, persists it to memory tagged by its
// generalizable lesson, and returns a plain-text feedback string for the
// next generate call. A malformed or missing agent response degrades to
// the raw gate feedback rather than failing the attempt outright.
func (l *Loop) reflect(ctx context.Context, projectID string, t *domain.Task, failedGate, gateFeedback string) string {
	resp, err := l.Invoker.Invoke(ctx, agentclient.Request{
		TaskID: t.ID,
		Prompt: fmt.Sprintf(reflectPrompt, failedGate, gateFeedback),
	})
	if err != nil {
		l.logger().Warn("reflexion: reflect invocation failed, falling back to raw gate feedback", "task_id", t.ID, "error", err)
		return fmt.Sprintf("attempt failed gate %q: %s", failedGate, gateFeedback)
	}

	rec, perr := parseReflection(resp.Content)
	if perr != nil {
		l.logger().Warn("reflexion: reflect response was not valid structured JSON, falling back to raw gate feedback", "task_id", t.ID, "error", perr)
		return fmt.Sprintf("attempt failed gate %q: %s", failedGate, gateFeedback)
	}

	l.persistReflection(ctx, projectID, t, rec)

	return fmt.Sprintf("root cause: %s\nimproved strategy: %s", rec.RootCause, rec.ImprovedStrategy)
}

func parseReflection(content string) (domain.ReflectionRecord, error) {
	var rec domain.ReflectionRecord
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return rec, errs.New(errs.KindValidation, "reflect response contains no JSON object")
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &rec); err != nil {
		return rec, errs.Wrap(errs.KindValidation, "failed to parse reflect response", err)
	}
	if rec.GeneralizableLesson == "" {
		return rec, errs.New(errs.KindValidation, "reflect response missing generalizable_lesson")
	}
	return rec, nil
}

func (l *Loop) persistReflection(ctx context.Context, projectID string, t *domain.Task, rec domain.ReflectionRecord) {
	if l.Mem == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		l.logger().Warn("reflexion: failed to marshal reflection record", "task_id", t.ID, "error", err)
		return
	}
	item := &domain.MemoryItem{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Kind:      domain.MemoryReflection,
		Content:   string(payload),
		Tags:      []string{lessonTag(rec.GeneralizableLesson)},
		CreatedAt: time.Now(),
	}
	if err := l.Mem.Remember(ctx, item); err != nil {
		l.logger().Warn("reflexion: failed to persist reflection", "task_id", t.ID, "error", err)
	}
}

var tagNonWord = regexp.MustCompile(`[^a-z0-9]+`)

// lessonTag normalizes a generalizable lesson into a stable tag so that
// independently-worded reflections converging on the same underlying
// lesson still collide into one tag for memory's promotion check.
func lessonTag(lesson string) string {
	slug := tagNonWord.ReplaceAllString(strings.ToLower(strings.TrimSpace(lesson)), "-")
	return strings.Trim(slug, "-")
}

func (l *Loop) logger() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}
