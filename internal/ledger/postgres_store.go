package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

// PostgresStore persists the ledger in a Postgres table while keeping the
// whole-table load/save contract of the Store interface. Insertion order is
// made explicit through a bigserial id.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a Postgres-backed store and ensures the ledger
// table exists.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	const ddl = `
		CREATE TABLE IF NOT EXISTS telemetry_ledger (
			id             BIGSERIAL PRIMARY KEY,
			asset_id       BIGINT NOT NULL,
			recorded_at    TIMESTAMPTZ NOT NULL,
			mileage        DOUBLE PRECISION NOT NULL,
			battery_health INT,
			usage_hours    DOUBLE PRECISION NOT NULL,
			error_code     TEXT NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("ledger: ensure table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Load reads every ledger row in insertion order. A row that fails to scan
// marks the ledger Corrupt; query and iteration failures are Unavailable so
// a transient connection problem is never mistaken for an empty or corrupt
// ledger and reinitialized over.
func (s *PostgresStore) Load(ctx context.Context) (Table, LoadStatus, error) {
	const query = `
		SELECT asset_id, recorded_at, mileage, battery_health, usage_hours, error_code
		FROM telemetry_ledger
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return Table{}, StatusUnavailable, fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()

	table := NewTable()
	for rows.Next() {
		var (
			record  models.LedgerRecord
			battery sql.NullInt64
		)
		if err := rows.Scan(&record.AssetID, &record.Timestamp, &record.Mileage, &battery, &record.UsageHours, &record.ErrorCode); err != nil {
			return Table{}, StatusCorrupt, fmt.Errorf("ledger: scan row: %w", err)
		}
		if battery.Valid {
			health := int(battery.Int64)
			record.BatteryHealth = &health
		}
		record.Timestamp = record.Timestamp.UTC()
		table.Rows = append(table.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return Table{}, StatusUnavailable, fmt.Errorf("ledger: iterate rows: %w", err)
	}

	if table.Len() == 0 {
		return table, StatusAbsent, nil
	}
	table.Columns = (models.TelemetryRecord{}).Columns()
	return table, StatusLoaded, nil
}

// Save replaces the stored ledger with the given table in one transaction.
func (s *PostgresStore) Save(ctx context.Context, table Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM telemetry_ledger`); err != nil {
		return fmt.Errorf("ledger: clear table: %w", err)
	}

	const insert = `
		INSERT INTO telemetry_ledger (asset_id, recorded_at, mileage, battery_health, usage_hours, error_code)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, record := range table.Rows {
		var battery sql.NullInt64
		if record.BatteryHealth != nil {
			battery = sql.NullInt64{Int64: int64(*record.BatteryHealth), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insert,
			record.AssetID,
			record.Timestamp.UTC(),
			record.Mileage,
			battery,
			record.UsageHours,
			record.ErrorCode,
		); err != nil {
			return fmt.Errorf("ledger: insert row for asset %d: %w", record.AssetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit save: %w", err)
	}
	return nil
}
