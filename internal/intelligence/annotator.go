package intelligence

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/ledger"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

// Annotator runs the classifier over the finalized ledger and writes an
// annotated copy with severity columns appended. It is invoked after a
// successful reconciliation and its failure is non-fatal to the pipeline.
type Annotator struct {
	repo       *ledger.Repository
	classifier *Classifier
	logger     *zap.Logger
}

// NewAnnotator returns an annotator over the given ledger repository.
func NewAnnotator(repo *ledger.Repository, classifier *Classifier, logger *zap.Logger) *Annotator {
	return &Annotator{repo: repo, classifier: classifier, logger: logger}
}

// Annotate loads the ledger, classifies every row, and writes the annotated
// table as CSV to outputPath.
func (a *Annotator) Annotate(ctx context.Context, outputPath string) error {
	table, err := a.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("intelligence: load ledger: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("intelligence: create output dir: %w", err)
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("intelligence: create %s: %w", outputPath, err)
	}

	writer := csv.NewWriter(f)
	columns := table.Columns
	if len(columns) == 0 {
		columns = (models.TelemetryRecord{}).Columns()
	}
	header := append(append([]string{}, columns...), "anomaly_status", "anomaly_flags")
	if err := writer.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("intelligence: write header: %w", err)
	}

	for _, record := range table.Rows {
		status, flags := a.classifier.Classify(record)
		row := append(recordFields(record), string(status), strings.Join(flagStrings(flags), "; "))
		if err := writer.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("intelligence: write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("intelligence: flush %s: %w", outputPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("intelligence: close %s: %w", outputPath, err)
	}

	a.logger.Info("ledger annotated",
		zap.String("output", outputPath),
		zap.Int("rows", table.Len()))
	return nil
}

func recordFields(r models.LedgerRecord) []string {
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
