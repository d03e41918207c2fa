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

// Command aurora-dev runs the orchestration core's HTTP/WS server.
//
// Usage:
//
//	aurora-dev serve --config aurora-dev.yaml
//	aurora-dev serve --listen :8080
//	aurora-dev version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/aurora-dev/orchestrator/pkg/auth"
	"github.com/aurora-dev/orchestrator/pkg/config"
	"github.com/aurora-dev/orchestrator/pkg/logger"
	"github.com/aurora-dev/orchestrator/pkg/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the orchestration core's HTTP/WS server."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, or custom)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("aurora-dev orchestration core version %s\n", version)
	return nil
}

// ServeCmd starts the server.
type ServeCmd struct {
	Listen string `help:"Override the configured HTTP listen address."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("aurora-dev: shutting down")
		cancel()
	}()

	cfg, err := config.LoadAuroraConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.Listen != "" {
		cfg.ListenAddr = c.Listen
	}

	log := logger.GetLogger()

	a, err := newApp(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	go a.health.Run(ctx, cfg.HealthCheckInterval)

	var validator *auth.JWTValidator
	if cfg.JWKSURL != "" {
		validator, err = auth.NewJWTValidator(cfg.JWKSURL, cfg.JWTIssuer, cfg.JWTAudience)
		if err != nil {
			return fmt.Errorf("failed to initialize JWT validator: %w", err)
		}
	}

	deps := a.serverDeps(a.workflowFactory)
	deps.Validator = validator
	srv := server.New(deps)

	fmt.Printf("\naurora-dev orchestration core ready!\n")
	fmt.Printf("   HTTP:        http://%s/api/v1\n", cfg.ListenAddr)
	fmt.Printf("   WebSocket:   ws://%s/ws/workflows/{id}\n", cfg.ListenAddr)
	fmt.Printf("   Metrics:     http://%s/metrics\n", cfg.ListenAddr)
	fmt.Printf("   Persistence: %s\n", cfg.PersistenceBackend)
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("aurora-dev"),
		kong.Description("AURORA-DEV orchestration core"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}
	var output *os.File
	if cli.LogFile != "" {
		file, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		output = file
	} else {
		output = os.Stderr
	}
	logger.Init(level, output, cli.LogFormat)

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
