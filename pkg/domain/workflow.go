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

package domain

import (
	"sync"
	"time"
)

// BreakpointPolicy names the phases at which a collaborative-mode workflow
// pauses for human approval before advancing. PauseBefore is keyed by the
// phase about to be entered, so "pause after design" is expressed as
// PauseBefore[PhaseImplementation] = true.
type BreakpointPolicy struct {
	PauseBefore map[Phase]bool
}

// RequiresApproval reports whether phase needs a breakpoint under p.
func (p BreakpointPolicy) RequiresApproval(phase Phase) bool {
	if p.PauseBefore == nil {
		return false
	}
	return p.PauseBefore[phase]
}

// RequirementKind distinguishes a collaborative-mode breakpoint (subject
// to approve/reject) from an operator- or governor-initiated pause
// (subject only to resume, never rejection).
type RequirementKind string

const (
	RequirementApproval RequirementKind = "approval"
	RequirementManual   RequirementKind = "manual"
)

// InputRequirement describes exactly what is being asked while a Workflow
// sits in PhaseAwaitingApproval or PhasePaused. Phase names the
// originating phase to resume into: for RequirementApproval it is the
// phase whose output is under review (approval advances past it, rejection
// re-enters it); for RequirementManual it is simply the phase the pause
// interrupted.
type InputRequirement struct {
	Phase       Phase
	Kind        RequirementKind
	Prompt      string
	Options     []string
	RequestedAt time.Time
}

// ApprovalRecord is the durable outcome of a human review of a breakpoint.
type ApprovalRecord struct {
	WorkflowID string
	Phase      Phase
	ReviewerID string
	Approved   bool
	Comment    string
	DecidedAt  time.Time
}

// Workflow is one execution of a Project's task graph through the phase
// state machine (spec.md §3/§4.2).
type Workflow struct {
	ID        string
	ProjectID string
	Phase     Phase
	Mode      Mode
	Policy    BreakpointPolicy

	Pending *InputRequirement
	History []ApprovalRecord

	// ReworkComment carries the most recent reviewer rejection comment
	// forward into the context the next agent sees when the originating
	// phase re-runs (spec.md §4.2 scenario 3), cleared once the phase
	// completes successfully again.
	ReworkComment string

	TaskGraphID string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64

	mu sync.RWMutex
}

// NewWorkflow creates a Workflow in PhaseIdle.
func NewWorkflow(id, projectID string, mode Mode, policy BreakpointPolicy) *Workflow {
	now := time.Now()
	return &Workflow{
		ID:        id,
		ProjectID: projectID,
		Phase:     PhaseIdle,
		Mode:      mode,
		Policy:    policy,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Advance moves the workflow to the next phase in the canonical sequence.
// It is a no-op returning false if cur is terminal.
func (w *Workflow) Advance() (Phase, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	next, ok := NextPhase(w.Phase)
	if !ok {
		return w.Phase, false
	}
	w.Phase = next
	w.UpdatedAt = time.Now()
	w.Version++
	return w.Phase, true
}

// Pause parks the workflow awaiting human input, recording what is being
// asked. A RequirementApproval pause lands in PhaseAwaitingApproval; a
// RequirementManual pause (operator- or governor-initiated) lands in
// PhasePaused.
func (w *Workflow) Pause(req InputRequirement) {
	w.mu.Lock()
	defer w.mu.Unlock()
	req.RequestedAt = time.Now()
	w.Pending = &req
	if req.Kind == RequirementManual {
		w.Phase = PhasePaused
	} else {
		w.Phase = PhaseAwaitingApproval
	}
	w.UpdatedAt = time.Now()
	w.Version++
}

// Resolve records the reviewer's decision, clears the pending requirement,
// and resumes the workflow.
//
// A RequirementManual pending (operator/budget pause) always resumes into
// the phase it interrupted, regardless of the approved flag — there is no
// "reject" for a manual pause, only resume.
//
// A RequirementApproval pending advances past the reviewed phase when
// approved. When rejected, the machine re-enters the originating phase
// instead of failing outright, and comment is recorded on ReworkComment so
// the next task built for that phase carries the reviewer's feedback
// (spec.md §4.2 scenario 3).
func (w *Workflow) Resolve(reviewerID string, approved bool, comment string) *InputRequirement {
	w.mu.Lock()
	defer w.mu.Unlock()
	req := w.Pending
	if req == nil {
		return nil
	}
	w.History = append(w.History, ApprovalRecord{
		WorkflowID: w.ID,
		Phase:      req.Phase,
		ReviewerID: reviewerID,
		Approved:   approved,
		Comment:    comment,
		DecidedAt:  time.Now(),
	})
	w.Pending = nil

	switch {
	case req.Kind == RequirementManual:
		w.Phase = req.Phase
	case approved:
		w.ReworkComment = ""
		if next, ok := NextPhase(req.Phase); ok {
			w.Phase = next
		} else {
			w.Phase = req.Phase
		}
	default:
		w.ReworkComment = comment
		w.Phase = req.Phase
	}
	w.UpdatedAt = time.Now()
	w.Version++
	return req
}

// ConsumeReworkComment returns the pending rework comment, if any, and
// clears it so it is attached to exactly one subsequent task context.
func (w *Workflow) ConsumeReworkComment() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.ReworkComment
	w.ReworkComment = ""
	return c
}

// Fail transitions the workflow to PhaseFailed.
func (w *Workflow) Fail() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Phase = PhaseFailed
	w.UpdatedAt = time.Now()
	w.Version++
}

// Snapshot returns a lock-free value copy.
func (w *Workflow) Snapshot() WorkflowSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	hist := make([]ApprovalRecord, len(w.History))
	copy(hist, w.History)
	return WorkflowSnapshot{
		ID:            w.ID,
		ProjectID:     w.ProjectID,
		Phase:         w.Phase,
		Mode:          w.Mode,
		Policy:        w.Policy,
		Pending:       w.Pending,
		History:       hist,
		ReworkComment: w.ReworkComment,
		TaskGraphID:   w.TaskGraphID,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
		Version:       w.Version,
	}
}

// WorkflowSnapshot is the immutable, serializable view of a Workflow.
type WorkflowSnapshot struct {
	ID            string
	ProjectID     string
	Phase         Phase
	Mode          Mode
	Policy        BreakpointPolicy
	Pending       *InputRequirement
	History       []ApprovalRecord
	ReworkComment string
	TaskGraphID   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
}
