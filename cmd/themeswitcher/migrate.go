// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/olegiv/themeswitcher/internal/config"
	"github.com/olegiv/themeswitcher/internal/store"
)

func newMigrateCmd() *cobra.Command {
	var status, down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
				return fmt.Errorf("creating data directory: %w", err)
			}

			db, err := store.NewDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			defer func() { _ = db.Close() }()

			switch {
			case down:
				if err := store.MigrateDown(db); err != nil {
					return err
				}
			case !status:
				if err := store.Migrate(db); err != nil {
					return err
				}
			}

			v, err := store.MigrationStatus(db)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", v)
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "print the schema version without migrating")
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	cmd.MarkFlagsMutuallyExclusive("status", "down")
	return cmd
}
