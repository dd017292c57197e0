// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command themeswitcher runs the theme resolution service and its admin
// tooling.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/olegiv/themeswitcher/internal/version"
)

func main() {
	// Load .env files if present (development)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "themeswitcher",
		Short:         "Per-request theme resolution for content sites",
		Long:          "themeswitcher decides which installed theme renders a request, from per-item\nassignments, per content-type defaults and an authorized preview parameter.",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newAPIKeyCmd(),
		newThemesCmd(),
		newResolveCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("application error", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "themeswitcher", version.Get().String())
		},
	}
}
