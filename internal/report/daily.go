// Package report renders daily run reports and publishes them.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/engine"
	"github.com/andresuchdata/thawflow/internal/storage"
	"github.com/rs/zerolog/log"
)

var header = []string{
	"date", "sku", "outcome", "forecast", "forecast_fallback", "sigma",
	"previous_withdrawal", "average_demand", "max", "raw", "gross", "net", "batch_id", "error",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// WriteCSV renders one row per SKU: successes first, then failures.
func WriteCSV(r *engine.RunReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	date := r.Date.Format(domain.DateLayout)
	for _, res := range r.Results {
		wd := res.Withdrawal
		row := []string{
			date,
			res.SKU,
			"ok",
			formatFloat(wd.Forecast),
			strconv.FormatBool(wd.ForecastFallback),
			formatFloat(wd.Sigma),
			formatFloat(wd.PreviousWithdrawal),
			formatFloat(wd.AverageDemand),
			formatFloat(wd.Max),
			formatFloat(wd.Raw),
			res.Batch.GrossQuantity.String(),
			res.Batch.NetQuantity.String(),
			strconv.FormatInt(res.Batch.ID, 10),
			"",
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	for _, f := range r.Failures {
		row := []string{date, f.SKU, "failed", "", "", "", "", "", "", "", "", "", "", f.Error}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Exporter writes daily reports under dir and uploads them to object storage.
type Exporter struct {
	dir     string
	prefix  string
	storage storage.ObjectStorage
}

func NewExporter(dir, prefix string, store storage.ObjectStorage) *Exporter {
	if store == nil {
		store = storage.Noop{}
	}
	return &Exporter{dir: dir, prefix: prefix, storage: store}
}

// FileName is the report name for the run date.
func FileName(r *engine.RunReport) string {
	return fmt.Sprintf("daily-%s.csv", r.Date.Format(domain.DateLayout))
}

// Export saves the report locally and uploads it. It returns the local path.
func (e *Exporter) Export(ctx context.Context, r *engine.RunReport) (string, error) {
	data, err := WriteCSV(r)
	if err != nil {
		return "", fmt.Errorf("render daily report: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := FileName(r)
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write daily report: %w", err)
	}

	key := e.prefix + name
	if err := e.storage.UploadObject(ctx, key, data); err != nil {
		return path, fmt.Errorf("upload daily report: %w", err)
	}

	log.Info().Str("path", path).Str("key", key).Int("rows", len(r.Results)+len(r.Failures)).Msg("daily report exported")
	return path, nil
}
