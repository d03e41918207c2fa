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

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AuroraConfig is the orchestration core's own configuration surface
// (spec.md §6), layered the same way Loader layers the agent runtime's
// config: defaults, then an optional YAML file, then environment
// variables, each overriding the last.
type AuroraConfig struct {
	ListenAddr string `koanf:"listen_addr"`

	PersistenceBackend string `koanf:"persistence_backend"` // memory|sql; any other value selects the in-memory store
	PersistenceDSN     string `koanf:"persistence_dsn"`

	DailyBudgetCap   float64 `koanf:"daily_budget_cap"`
	MonthlyBudgetCap float64 `koanf:"monthly_budget_cap"`

	SandboxBinaryPath string `koanf:"sandbox_binary_path"`

	EmbedderEndpoint string `koanf:"embedder_endpoint"`
	EmbedderAPIKey   string `koanf:"embedder_api_key"`

	MaxConcurrentTasksPerAgent int           `koanf:"max_concurrent_tasks_per_agent"`
	HealthCheckInterval        time.Duration `koanf:"-"`
	StuckThreshold             time.Duration `koanf:"-"`

	JWKSURL      string `koanf:"jwks_url"`
	JWTIssuer    string `koanf:"jwt_issuer"`
	JWTAudience  string `koanf:"jwt_audience"`
	RequireOAuth bool   `koanf:"require_oauth"`

	RepoPath     string `koanf:"repo_path"`
	WorktreeBase string `koanf:"worktree_base"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

func auroraDefaults() *AuroraConfig {
	return &AuroraConfig{
		ListenAddr:                 ":8080",
		PersistenceBackend:         "memory",
		DailyBudgetCap:             50.0,
		MonthlyBudgetCap:           1000.0,
		SandboxBinaryPath:          "aurora-dev-sandbox",
		MaxConcurrentTasksPerAgent: 3,
		HealthCheckInterval:        30 * time.Second,
		StuckThreshold:             5 * time.Minute,
		WorktreeBase:               ".aurora-dev/worktrees",
		LogLevel:                   "info",
		LogFormat:                  "simple",
	}
}

// LoadAuroraConfig layers defaults < YAML file (if path is non-empty and
// exists) < environment variables prefixed AURORA_DEV_, mirroring
// koanf_loader.go's env-over-file-over-defaults precedence without
// dragging in the agent-runtime Config's strict structural validation,
// which has no meaning for this flat settings surface.
func LoadAuroraConfig(path string) (*AuroraConfig, error) {
	k := koanf.New(".")

	defaults := auroraDefaults()
	defaultsMap := map[string]interface{}{
		"listen_addr":                    defaults.ListenAddr,
		"persistence_backend":            defaults.PersistenceBackend,
		"daily_budget_cap":               defaults.DailyBudgetCap,
		"monthly_budget_cap":             defaults.MonthlyBudgetCap,
		"sandbox_binary_path":            defaults.SandboxBinaryPath,
		"max_concurrent_tasks_per_agent": defaults.MaxConcurrentTasksPerAgent,
		"health_check_interval":          defaults.HealthCheckInterval.String(),
		"stuck_threshold":                defaults.StuckThreshold.String(),
		"worktree_base":                  defaults.WorktreeBase,
		"log_level":                      defaults.LogLevel,
		"log_format":                     defaults.LogFormat,
	}
	if err := k.Load(confmap.Provider(defaultsMap, "."), nil); err != nil {
		return nil, fmt.Errorf("aurora config: loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("aurora config: loading %s: %w", path, err)
			}
		}
	}

	envLoader := env.Provider("AURORA_DEV_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "AURORA_DEV_"))
	})
	if err := k.Load(envLoader, nil); err != nil {
		return nil, fmt.Errorf("aurora config: loading environment: %w", err)
	}

	raw := k.Raw()
	expanded := ExpandEnvVarsInData(raw)
	expandedMap, ok := expanded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("aurora config: unexpected type after env expansion")
	}
	k = koanf.New(".")
	if err := k.Load(confmap.Provider(expandedMap, "."), nil); err != nil {
		return nil, fmt.Errorf("aurora config: reloading expanded values: %w", err)
	}

	cfg := &AuroraConfig{
		HealthCheckInterval: defaults.HealthCheckInterval,
		StuckThreshold:      defaults.StuckThreshold,
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("aurora config: unmarshal: %w", err)
	}
	if v := k.String("health_check_interval"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HealthCheckInterval = d
		}
	}
	if v := k.String("stuck_threshold"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StuckThreshold = d
		}
	}
	return cfg, nil
}
