// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/themeswitcher/internal/switcher"
)

// Job names.
const (
	JobThemeAudit  = "theme_audit"
	JobPruneEvents = "prune_events"
)

// Auditor reports configured overrides whose theme is missing.
// *switcher.Switcher implements it.
type Auditor interface {
	Audit(ctx context.Context) ([]switcher.Notice, error)
}

// EventPruner deletes old events. *store.Queries implements it.
type EventPruner interface {
	DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error)
}

// ThemeAuditJob logs a warning for every configured theme that is no longer
// installed.
func ThemeAuditJob(a Auditor) JobFunc {
	return func(ctx context.Context) error {
		if _, err := a.Audit(ctx); err != nil {
			return fmt.Errorf("auditing themes: %w", err)
		}
		return nil
	}
}

// PruneEventsJob deletes events older than retention.
func (s *Scheduler) PruneEventsJob(p EventPruner, retention time.Duration) JobFunc {
	return func(ctx context.Context) error {
		n, err := p.DeleteEventsBefore(ctx, time.Now().Add(-retention))
		if err != nil {
			return fmt.Errorf("pruning events: %w", err)
		}
		if n > 0 {
			s.logger.Info("pruned old events", "count", n, "retention", retention.String())
		}
		return nil
	}
}
