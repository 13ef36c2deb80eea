package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

// FileStore persists the ledger as a CSV file, read and rewritten wholesale.
// A crash mid-save can lose the file; the repository recovers by
// reinitializing, trading strict durability for availability.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path. The file is
// created lazily on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the whole ledger file. A missing file is Absent; a file that
// cannot be parsed is Corrupt.
func (s *FileStore) Load(_ context.Context) (Table, LoadStatus, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewTable(), StatusAbsent, nil
		}
		return Table{}, StatusCorrupt, fmt.Errorf("ledger: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return NewTable(), StatusAbsent, nil
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return Table{}, StatusCorrupt, fmt.Errorf("ledger: parse %s: %w", s.path, err)
	}
	if len(rows) == 0 {
		return NewTable(), StatusAbsent, nil
	}

	header := rows[0]
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	for _, col := range (models.TelemetryRecord{}).Columns() {
		if _, ok := index[col]; !ok {
			return Table{}, StatusCorrupt, fmt.Errorf("ledger: %s: header missing column %q", s.path, col)
		}
	}

	table := Table{Columns: header}
	for n, raw := range rows[1:] {
		record, err := decodeRow(index, raw)
		if err != nil {
			return Table{}, StatusCorrupt, fmt.Errorf("ledger: %s row %d: %w", s.path, n+1, err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, StatusLoaded, nil
}

// Save writes the whole table, replacing prior contents.
func (s *FileStore) Save(_ context.Context, table Table) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ledger: create dir for %s: %w", s.path, err)
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("ledger: create %s: %w", s.path, err)
	}

	writer := csv.NewWriter(f)
	columns := table.Columns
	if len(columns) == 0 {
		columns = (models.TelemetryRecord{}).Columns()
	}
	if err := writer.Write(columns); err != nil {
		f.Close()
		return fmt.Errorf("ledger: write header: %w", err)
	}
	for _, record := range table.Rows {
		if err := writer.Write(encodeRow(record)); err != nil {
			f.Close()
			return fmt.Errorf("ledger: write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("ledger: flush %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("ledger: close %s: %w", s.path, err)
	}
	return nil
}

func encodeRow(r models.LedgerRecord) []string {
	battery := ""
	if r.BatteryHealth != nil {
		battery = strconv.Itoa(*r.BatteryHealth)
	}
	return []string{
		strconv.FormatInt(r.AssetID, 10),
		r.Timestamp.UTC().Format(time.RFC3339),
		strconv.FormatFloat(r.Mileage, 'f', -1, 64),
		battery,
		strconv.FormatFloat(r.UsageHours, 'f', -1, 64),
		r.ErrorCode,
	}
}

func decodeRow(index map[string]int, raw []string) (models.LedgerRecord, error) {
	field := func(col string) (string, error) {
		i := index[col]
		if i >= len(raw) {
			return "", fmt.Errorf("missing field %q", col)
		}
		return raw[i], nil
	}

	var record models.LedgerRecord

	assetStr, err := field("asset_id")
	if err != nil {
		return record, err
	}
	record.AssetID, err = strconv.ParseInt(assetStr, 10, 64)
	if err != nil {
		return record, fmt.Errorf("asset_id %q: %w", assetStr, err)
	}

	tsStr, err := field("timestamp")
	if err != nil {
		return record, err
	}
	record.Timestamp, err = time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return record, fmt.Errorf("timestamp %q: %w", tsStr, err)
	}

	mileageStr, err := field("mileage")
	if err != nil {
		return record, err
	}
	record.Mileage, err = strconv.ParseFloat(mileageStr, 64)
	if err != nil {
		return record, fmt.Errorf("mileage %q: %w", mileageStr, err)
	}

	batteryStr, err := field("battery_health")
	if err != nil {
		return record, err
	}
	if batteryStr != "" {
		battery, err := strconv.Atoi(batteryStr)
		if err != nil {
			return record, fmt.Errorf("battery_health %q: %w", batteryStr, err)
		}
		record.BatteryHealth = &battery
	}

	usageStr, err := field("usage_hours")
	if err != nil {
		return record, err
	}
	record.UsageHours, err = strconv.ParseFloat(usageStr, 64)
	if err != nil {
		return record, fmt.Errorf("usage_hours %q: %w", usageStr, err)
	}

	record.ErrorCode, err = field("error_code")
	if err != nil {
		return record, err
	}
	return record, nil
}
