// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/themeswitcher/internal/config"
	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/store"
	"github.com/olegiv/themeswitcher/internal/util"
)

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys for host integrations",
	}
	cmd.AddCommand(newAPIKeyCreateCmd(), newAPIKeyListCmd(), newAPIKeyRevokeCmd())
	return cmd
}

// withQueries opens the migrated database for a short admin command.
func withQueries(fn func(ctx context.Context, q *store.Queries) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := openDB(cfg, newLogger(cfg, io.Discard, nil))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(context.Background(), store.New(db))
}

func newAPIKeyCreateCmd() *cobra.Command {
	var (
		name    string
		caps    []string
		expires time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name = util.SanitizeTextField(name)
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			for _, c := range caps {
				if !model.IsKnownCapability(c) {
					return fmt.Errorf("unknown capability %q (known: %v)", c, model.AllCapabilities())
				}
			}

			raw, prefix, err := model.GenerateAPIKey()
			if err != nil {
				return fmt.Errorf("generating key: %w", err)
			}

			params := store.CreateAPIKeyParams{
				Name:         name,
				KeyHash:      model.HashAPIKey(raw),
				KeyPrefix:    prefix,
				Capabilities: model.CapabilitiesToJSON(caps),
			}
			if expires > 0 {
				params.ExpiresAt = sql.NullTime{Time: time.Now().Add(expires).UTC(), Valid: true}
			}

			return withQueries(func(ctx context.Context, q *store.Queries) error {
				key, err := q.CreateAPIKey(ctx, params)
				if err != nil {
					return fmt.Errorf("creating key: %w", err)
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "id:           %d\n", key.ID)
				_, _ = fmt.Fprintf(out, "capabilities: %v\n", key.GetCapabilities())
				_, _ = fmt.Fprintf(out, "key:          %s\n", raw)
				_, _ = fmt.Fprintln(os.Stderr, "Store this key now, it cannot be shown again.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "label for the key")
	cmd.Flags().StringSliceVar(&caps, "cap", nil, "capability to grant (edit_posts, manage_options); repeatable")
	cmd.Flags().DurationVar(&expires, "expires", 0, "lifetime of the key, e.g. 720h (0 = never)")
	return cmd
}

func newAPIKeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withQueries(func(ctx context.Context, q *store.Queries) error {
				keys, err := q.ListAPIKeys(ctx)
				if err != nil {
					return fmt.Errorf("listing keys: %w", err)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tCAPABILITIES\tACTIVE\tLAST USED")
				for _, k := range keys {
					lastUsed := "never"
					if k.LastUsedAt.Valid {
						lastUsed = k.LastUsedAt.Time.Format(time.RFC3339)
					}
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%v\t%t\t%s\n",
						k.ID, k.Name, k.KeyPrefix, k.GetCapabilities(), k.IsValid(), lastUsed)
				}
				return tw.Flush()
			})
		},
	}
}

func newAPIKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Deactivate a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid key id %q", args[0])
			}
			return withQueries(func(ctx context.Context, q *store.Queries) error {
				if err := q.DeactivateAPIKey(ctx, id); err != nil {
					return fmt.Errorf("revoking key: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "key %d revoked\n", id)
				return nil
			})
		},
	}
}
