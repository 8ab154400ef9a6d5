// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command newsctl runs maintenance tasks against a newsdesk database:
// migrations, the initial admin account and the one-off import of the
// legacy MongoDB content.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/olegiv/newsdesk/internal/app"
	"github.com/olegiv/newsdesk/internal/config"
	"github.com/olegiv/newsdesk/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// env carries what PersistentPreRunE resolved for the subcommands.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var verbose bool

	root := &cobra.Command{
		Use:           "newsctl",
		Short:         "Maintenance tasks for a newsdesk deployment",
		Version:       version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["config"] == "none" {
				return nil
			}
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if verbose {
				cfg.LogLevel = "debug"
			}
			e.cfg = cfg
			e.logger = app.NewLogger(cfg, cmd.ErrOrStderr())
			slog.SetDefault(e.logger)
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newMigrateCmd(e),
		newCreateAdminCmd(e),
		newImportMongoCmd(e),
		newRoutesCmd(),
		newCheckEnvCmd(e),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
