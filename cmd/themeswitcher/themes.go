// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/olegiv/themeswitcher/internal/model"
	"github.com/olegiv/themeswitcher/internal/switcher"
)

func newThemesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "themes",
		Short: "Inspect installed themes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List usable themes and report missing configured ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "SLUG\tNAME\tPARENT\tBLOCK\tACTIVE")
			for _, t := range a.themes.ListThemesWithActive() {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\n", t.Slug, t.Name, t.Parent, t.Block, t.IsActive)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			notices, err := a.switcher.MissingThemes(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range notices {
				_, _ = fmt.Fprintf(out, "missing: %s used by %v\n", n.Theme, n.References)
			}
			return nil
		},
	})
	return cmd
}

func newResolveCmd() *cobra.Command {
	var (
		postID       int64
		postType     string
		termID       int64
		taxonomy     string
		preview      string
		canPreview   bool
		templateFile string
		activeTheme  string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the theme for a content context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if postID < 0 || termID < 0 {
				return fmt.Errorf("ids must not be negative")
			}

			a, err := openApp(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			if activeTheme != "" {
				if err := a.themes.SetActiveTheme(activeTheme); err != nil {
					return err
				}
			}

			cc := switcher.ContentContext{}
			switch {
			case postID > 0 || postType != "":
				cc = switcher.Singular(postID, postType)
			case termID > 0 || taxonomy != "":
				cc = switcher.TermArchive(termID, taxonomy)
			}

			actor := switcher.Actor{}
			if canPreview {
				actor = switcher.Actor{Authenticated: true, Capabilities: []string{model.CapEditPosts}}
			}
			query := url.Values{}
			snap := a.settings.Load(cmd.Context())
			if preview != "" {
				query.Set(snap.QueryParam, preview)
			}

			req := a.switcher.NewRequest(cmd.Context(), switcher.Input{Context: cc, Actor: actor, Query: query})
			d := req.Decision()
			active := a.themes.ActiveTheme()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "context:    %s\n", cc.String())
			_, _ = fmt.Fprintf(out, "theme:      %s\n", orActive(d.Theme))
			_, _ = fmt.Fprintf(out, "source:     %s\n", d.Source)
			_, _ = fmt.Fprintf(out, "template:   %s\n", req.ResolveTemplateBase(a.themes.Template(active)))
			_, _ = fmt.Fprintf(out, "stylesheet: %s\n", req.ResolveStylesheetBase(a.themes.Stylesheet(active)))
			if templateFile != "" {
				_, _ = fmt.Fprintf(out, "file:       %s\n", req.ResolveTemplateFile(templateFile))
			}
			if req.Gate().IsActive() {
				_, _ = fmt.Fprintf(out, "markers:    %v\n", req.BodyMarkers())
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Int64Var(&postID, "post-id", 0, "post being rendered")
	f.StringVar(&postType, "post-type", "", "content type of the post")
	f.Int64Var(&termID, "term-id", 0, "term archive being rendered")
	f.StringVar(&taxonomy, "taxonomy", "", "taxonomy of the term")
	f.StringVar(&preview, "preview", "", "theme requested through the preview parameter")
	f.BoolVar(&canPreview, "can-preview", false, "render for an actor allowed to preview")
	f.StringVar(&templateFile, "template-file", "", "template file the host would use")
	f.StringVar(&activeTheme, "active", "", "site theme to resolve against instead of the configured one")
	cmd.MarkFlagsMutuallyExclusive("post-id", "term-id")
	return cmd
}

func orActive(theme string) string {
	if theme == "" {
		return "(active theme)"
	}
	return theme
}
