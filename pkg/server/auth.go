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

package server

import (
	"net/http"

	"github.com/aurora-dev/orchestrator/pkg/auth"
)

// requireReviewerClaim gates the approval endpoint (spec.md §6) behind a
// valid JWT bearer token when Deps.Validator is configured, reusing
// auth.JWTValidator's JWKS-backed validation rather than reimplementing
// JWT parsing here. A nil Validator means auth is disabled, e.g. in local
// development.
func (s *Server) requireReviewerClaim(next http.Handler) http.Handler {
	if s.deps.Validator == nil {
		return next
	}
	return s.deps.Validator.HTTPMiddleware(next)
}

// claimsReviewerID returns the "sub" claim of the validated JWT, or "" if
// no validator is configured for this deployment.
func claimsReviewerID(r *http.Request) string {
	claims := auth.GetClaims(r)
	if claims == nil {
		return ""
	}
	return claims.Subject
}
