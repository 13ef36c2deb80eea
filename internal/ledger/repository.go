package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

// Repository enforces the ledger mutation protocol on top of a Store:
// load-whole, last-match-wins lookup, schema-on-first-write append, and
// save-whole.
type Repository struct {
	store  Store
	logger *zap.Logger
}

// NewRepository returns a repository over the given store.
func NewRepository(store Store, logger *zap.Logger) *Repository {
	return &Repository{store: store, logger: logger}
}

// Load reads the whole ledger. A missing or corrupt ledger is recovered
// locally by reinitializing an empty table; availability over strict
// durability for this internal ledger. An unreachable store is neither:
// the history may still exist, so the failure propagates instead of being
// papered over with an empty table that the next save would persist.
func (r *Repository) Load(ctx context.Context) (Table, error) {
	table, status, err := r.store.Load(ctx)
	switch status {
	case StatusLoaded:
		return table, nil
	case StatusAbsent:
		if err != nil {
			return Table{}, fmt.Errorf("ledger: load: %w", err)
		}
		r.logger.Info("ledger absent, starting empty")
		return NewTable(), nil
	case StatusCorrupt:
		r.logger.Warn("ledger corrupt, reinitializing empty", zap.Error(err))
		return NewTable(), nil
	case StatusUnavailable:
		if err == nil {
			err = fmt.Errorf("ledger: store unavailable")
		}
		return Table{}, err
	default:
		if err != nil {
			return Table{}, err
		}
		return Table{}, fmt.Errorf("ledger: unexpected load status %v", status)
	}
}

// FindLatestForAsset returns the most recent ledger record for the asset,
// or ok=false when the asset has no history.
func (r *Repository) FindLatestForAsset(table Table, assetID int64) (models.LedgerRecord, bool) {
	record, _, ok := table.LatestForAsset(assetID)
	return record, ok
}

// Append returns a new table version with the record appended.
func (r *Repository) Append(table Table, record models.LedgerRecord) (Table, error) {
	next, err := table.Append(record)
	if err != nil {
		return Table{}, err
	}
	if !table.HasSchema() {
		r.logger.Info("ledger schema adopted from first record",
			zap.Strings("columns", next.Columns))
	}
	return next, nil
}

// Save persists the full table, replacing prior contents.
func (r *Repository) Save(ctx context.Context, table Table) error {
	return r.store.Save(ctx, table)
}
