package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/settings"
	"github.com/mobistock/mobistock/internal/shared"
	"github.com/mobistock/mobistock/internal/store"
)

// legacyVersionRecordID is where installs older than the settings store kept
// the app version, as a record in the main store.
const legacyVersionRecordID = "AppVersion"

// Runner applies pending data migrations during startup, before any other
// component touches the store.
type Runner struct {
	store    store.Store
	settings settings.Settings
	logger   *slog.Logger
	steps    []Step
}

// NewRunner builds a runner over the standard step table.
func NewRunner(st store.Store, set settings.Settings, logger *slog.Logger) *Runner {
	return &Runner{store: st, settings: set, logger: logger, steps: Steps}
}

// Run migrates the install's data up to targetVersion. A fresh install has no
// recorded version and needs no migration. Any step failure aborts startup;
// the recorded version only advances after every pending step has committed,
// so a crashed run resumes from the same point.
func (r *Runner) Run(ctx context.Context, targetVersion string) error {
	fromVersion, err := r.currentVersion(ctx)
	if err != nil {
		return fmt.Errorf("migration: read current version: %w", err)
	}

	if fromVersion != "" && fromVersion != targetVersion {
		for _, step := range r.steps {
			if Compare(fromVersion, step.Version) >= 0 || Compare(targetVersion, step.Version) < 0 {
				continue
			}
			r.logger.Info("running data migration",
				slog.String("from", fromVersion),
				slog.String("to", step.Version),
			)
			err := r.store.RunAtomic(ctx, func(tx store.Tx) error {
				return step.Migrate(ctx, tx, r.settings)
			})
			if err != nil {
				return &shared.MigrationError{Version: step.Version, Err: err}
			}
		}
	}

	return r.settings.Set(ctx, settings.KeyAppVersion, targetVersion)
}

// currentVersion reads the recorded app version, checking the settings store
// first and falling back to the legacy record in the main store. A legacy
// version is moved into the settings store so the fallback only ever runs
// once. An unreadable fallback location counts as no recorded version; it
// must not keep the install from starting.
func (r *Runner) currentVersion(ctx context.Context) (string, error) {
	version, err := r.settings.Get(ctx, settings.KeyAppVersion)
	if err != nil {
		return "", err
	}
	if version != "" {
		return version, nil
	}

	err = r.store.RunAtomic(ctx, func(tx store.Tx) error {
		legacy, err := tx.Get(record.KindSetting, legacyVersionRecordID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		version = legacy.(*record.Setting).Value
		return tx.Delete(record.KindSetting, legacyVersionRecordID)
	})
	if err != nil {
		r.logger.Warn("legacy version record unreadable, treating install as fresh",
			slog.Any("error", err),
		)
		return "", nil
	}
	if version != "" {
		if err := r.settings.Set(ctx, settings.KeyAppVersion, version); err != nil {
			return "", err
		}
	}
	return version, nil
}
