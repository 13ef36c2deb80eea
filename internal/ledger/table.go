// Package ledger owns the append-only history of accepted telemetry: a
// versioned in-memory table, whole-table store backends, and the repository
// that enforces the mutation protocol.
package ledger

import (
	"fmt"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

// Table is the in-memory ledger: an ordered sequence of accepted records
// plus the column schema adopted on first write. Append returns a new table
// value; rows of prior versions are never mutated.
type Table struct {
	Columns []string
	Rows    []models.LedgerRecord
}

// NewTable returns an empty table with no predetermined schema.
func NewTable() Table {
	return Table{}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// HasSchema reports whether a column set has been adopted.
func (t Table) HasSchema() bool {
	return len(t.Columns) > 0
}

// Append returns a new table with the record added at the end. A table with
// no schema adopts the record's field set; afterwards every record must
// carry a field set compatible with the existing columns.
func (t Table) Append(record models.LedgerRecord) (Table, error) {
	cols := t.Columns
	if !t.HasSchema() {
		cols = record.Columns()
	} else if err := compatible(t.Columns, record.Columns()); err != nil {
		return Table{}, err
	}

	rows := make([]models.LedgerRecord, len(t.Rows), len(t.Rows)+1)
	copy(rows, t.Rows)
	rows = append(rows, record)

	return Table{Columns: cols, Rows: rows}, nil
}

// LatestForAsset returns the last row for the asset in insertion order and
// its index, or ok=false when the asset has no history. The tiebreak is the
// explicit insertion index, never storage iteration order.
func (t Table) LatestForAsset(assetID int64) (models.LedgerRecord, int, bool) {
	for i := len(t.Rows) - 1; i >= 0; i-- {
		if t.Rows[i].AssetID == assetID {
			return t.Rows[i], i, true
		}
	}
	return models.LedgerRecord{}, -1, false
}

func compatible(schema, fields []string) error {
	have := make(map[string]bool, len(fields))
	for _, f := range fields {
		have[f] = true
	}
	for _, col := range schema {
		if !have[col] {
			return fmt.Errorf("ledger: record is missing column %q", col)
		}
	}
	return nil
}
