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

// Phase is one stage of a Workflow's state machine (spec.md §4.2). The
// nine named phases below are the canonical development lifecycle the
// machine drives a project through; PhasePaused/PhaseAwaitingApproval/
// PhaseFailed/PhaseCancelled are suspension and terminal shortcuts that
// sit outside that sequence.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseRequirements   Phase = "requirements"
	PhaseDesign         Phase = "design"
	PhaseImplementation Phase = "implementation"
	PhaseTesting        Phase = "testing"
	PhaseCodeReview     Phase = "code_review"
	PhaseSecurityAudit  Phase = "security_audit"
	PhaseDocumentation  Phase = "documentation"
	PhaseDeployment     Phase = "deployment"
	PhaseMonitoring     Phase = "monitoring"
	PhaseCompleted      Phase = "completed"

	// PhasePaused is an operator-initiated suspension (see
	// workflow.Machine.PauseManual) that resumes into the same phase.
	PhasePaused Phase = "paused"

	// PhaseAwaitingApproval is a re-entrant suspension: it remembers the
	// phase it interrupted (InputRequirement.Phase) and, on rejection,
	// sends the machine back into that same originating phase rather than
	// advancing past it.
	PhaseAwaitingApproval Phase = "awaiting_approval"

	PhaseFailed    Phase = "failed"
	PhaseCancelled Phase = "cancelled"
)

// phaseOrder is the canonical autonomous-mode progression. Collaborative
// mode inserts a PhaseAwaitingApproval breakpoint ahead of any phase
// listed in the workflow's breakpoint policy; it never reorders the
// sequence itself.
var phaseOrder = []Phase{
	PhaseIdle,
	PhaseRequirements,
	PhaseDesign,
	PhaseImplementation,
	PhaseTesting,
	PhaseCodeReview,
	PhaseSecurityAudit,
	PhaseDocumentation,
	PhaseDeployment,
	PhaseMonitoring,
	PhaseCompleted,
}

// NextPhase returns the phase that follows cur in the canonical
// progression, or ("", false) if cur is terminal or not part of the
// canonical sequence (e.g. PhasePaused/PhaseAwaitingApproval, which
// resume into whichever phase they interrupted rather than advancing on
// their own).
func NextPhase(cur Phase) (Phase, bool) {
	for i, p := range phaseOrder {
		if p == cur && i+1 < len(phaseOrder) {
			return phaseOrder[i+1], true
		}
	}
	return "", false
}

// Terminal reports whether phase is a workflow end state.
func Terminal(phase Phase) bool {
	return phase == PhaseCompleted || phase == PhaseFailed || phase == PhaseCancelled
}
