package ports

import (
	"context"

	"github.com/gal-dev/galrt/domain/entities"
)

// SettingsStore persists per-installation settings keyed by an installation
// identifier.
type SettingsStore interface {
	// LoadSettings returns default settings (not an error) when none are saved.
	LoadSettings(ctx context.Context, ident string) (entities.Settings, error)
	SaveSettings(ctx context.Context, ident string, s entities.Settings) error
}

// RecordStore persists the ordered list of session records of one game.
type RecordStore interface {
	// LoadRecords returns the records in save order, or an empty list when
	// nothing is saved.
	LoadRecords(ctx context.Context, ident, game string) ([]entities.RawContext, error)
	SaveRecords(ctx context.Context, ident, game string, records []entities.RawContext) error
}
