package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

type settingsChangeReader interface {
	ListUpdatedSince(ctx context.Context, since time.Time) ([]models.Setting, error)
}

type settingsInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

type SettingsRefreshJobParams struct {
	Logger      *logger.Logger
	Changes     settingsChangeReader
	Invalidator settingsInvalidator
}

// NewSettingsRefreshJob invalidates cached settings whose rows changed since
// the previous run. The first run invalidates every setting.
func NewSettingsRefreshJob(params SettingsRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Changes == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if params.Invalidator == nil {
		return nil, fmt.Errorf("settings invalidator required")
	}
	return &settingsRefreshJob{
		logg:        params.Logger,
		changes:     params.Changes,
		invalidator: params.Invalidator,
		now:         time.Now,
	}, nil
}

type settingsRefreshJob struct {
	logg        *logger.Logger
	changes     settingsChangeReader
	invalidator settingsInvalidator
	since       time.Time
	now         func() time.Time
}

func (j *settingsRefreshJob) Name() string { return "settings-refresh" }

func (j *settingsRefreshJob) Run(ctx context.Context) error {
	started := j.now().UTC()
	first := j.since.IsZero()

	changed, err := j.changes.ListUpdatedSince(ctx, j.since)
	if err != nil {
		return fmt.Errorf("list changed settings: %w", err)
	}

	switch {
	case first:
		err = j.invalidator.Invalidate(ctx)
	case len(changed) > 0:
		keys := make([]string, 0, len(changed))
		for _, s := range changed {
			keys = append(keys, s.Key)
		}
		err = j.invalidator.Invalidate(ctx, keys...)
	}
	if err != nil {
		return fmt.Errorf("invalidate settings: %w", err)
	}

	// rows written while this run was in flight are picked up next time
	j.since = started
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"settings_changed": len(changed),
		"full_refresh":     first,
	}), "settings refresh complete")
	return nil
}
