package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestFileStoreAbsent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "ledger.csv"))

	table, status, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load absent ledger: %v", err)
	}
	if status != StatusAbsent {
		t.Fatalf("expected StatusAbsent, got %v", status)
	}
	if table.Len() != 0 || table.HasSchema() {
		t.Fatalf("expected empty schemaless table")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "ledger.csv"))
	ctx := context.Background()

	ts := time.Date(2023, 10, 27, 9, 0, 0, 0, time.UTC)
	table := NewTable()
	var err error
	table, err = table.Append(sampleRecord(1002, ts, 1555.5))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	missing := sampleRecord(1003, ts.Add(time.Hour), 900)
	missing.BatteryHealth = nil
	table, err = table.Append(missing)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.Save(ctx, table); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, status, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if status != StatusLoaded {
		t.Fatalf("expected StatusLoaded, got %v", status)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", loaded.Len())
	}

	first := loaded.Rows[0]
	if first.AssetID != 1002 || !first.Timestamp.Equal(ts) || first.Mileage != 1555.5 {
		t.Fatalf("first row mismatch: %+v", first)
	}
	if first.BatteryHealth == nil || *first.BatteryHealth != 80 {
		t.Fatalf("expected battery 80, got %v", first.BatteryHealth)
	}
	if loaded.Rows[1].BatteryHealth != nil {
		t.Fatalf("expected nil battery for sensor fault, got %v", *loaded.Rows[1].BatteryHealth)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "header missing required column",
			content: "asset_id,timestamp\n1002,2023-10-27T09:00:00Z\n",
		},
		{
			name:    "unparseable row value",
			content: "asset_id,timestamp,mileage,battery_health,usage_hours,error_code\nnot-a-number,2023-10-27T09:00:00Z,1,80,1,OK\n",
		},
		{
			name:    "bad timestamp",
			content: "asset_id,timestamp,mileage,battery_health,usage_hours,error_code\n1002,yesterday,1,80,1,OK\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ledger.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}

			_, status, err := NewFileStore(path).Load(context.Background())
			if status != StatusCorrupt {
				t.Fatalf("expected StatusCorrupt, got %v (err: %v)", status, err)
			}
			if err == nil {
				t.Fatalf("expected an error describing the corruption")
			}
		})
	}
}

func TestRepositoryRecoversCorruptLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, []byte("garbage\x00"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	repo := NewRepository(NewFileStore(path), zap.NewNop())
	table, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("corrupt ledger must be recovered, got error: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected reinitialized empty table, got %d rows", table.Len())
	}
}

func TestRepositoryRecoversAbsentLedger(t *testing.T) {
	repo := NewRepository(NewFileStore(filepath.Join(t.TempDir(), "ledger.csv")), zap.NewNop())
	table, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("absent ledger must load empty, got error: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table, got %d rows", table.Len())
	}
}
