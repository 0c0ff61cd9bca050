// Package ingest loads sales history and forecasts from CSV exports.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/repository"
	"github.com/rs/zerolog/log"
)

// Sales export column names.
const (
	colSaleDate     = "data_dia"
	colSaleSKU      = "id_produto"
	colSaleName     = "descricao_produto"
	colSaleCategory = "Equipe responsável"
	colSaleQuantity = "total_venda_dia_kg"
)

// Forecast file column names.
const (
	colForecastSKU      = "sku"
	colForecastDate     = "date"
	colForecastQuantity = "quantity"
)

// ErrMalformed marks files whose layout or values cannot be read.
var ErrMalformed = errors.New("malformed import file")

var dateLayouts = []string{"02/01/2006", domain.DateLayout, "2006/01/02"}

// Result counts what an import did.
type Result struct {
	Rows            int `json:"rows"`
	Imported        int `json:"imported"`
	Skipped         int `json:"skipped"`
	ProductsCreated int `json:"products_created"`
}

type Importer struct {
	gw repository.Gateway
}

func NewImporter(gw repository.Gateway) *Importer {
	return &Importer{gw: gw}
}

type row struct {
	line   int
	record []string
	cols   map[string]int
}

func (r row) value(col string) string {
	if idx, ok := r.cols[col]; ok && idx < len(r.record) {
		return strings.TrimSpace(r.record[idx])
	}
	return ""
}

func (r row) date(col string) (time.Time, error) {
	raw := r.value(col)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: line %d: invalid date %q in %s", ErrMalformed, r.line, raw, col)
}

func (r row) quantity(col string) (float64, error) {
	q, err := strconv.ParseFloat(normalizeDecimal(r.value(col)), 64)
	if err != nil || q < 0 {
		return 0, fmt.Errorf("line %d: %w: %q in %s", r.line, domain.ErrInvalidQuantity, r.value(col), col)
	}
	return q, nil
}

// normalizeDecimal accepts "1.234,5", "1,234.5" and "9,75". When both
// separators appear the last one is the decimal mark.
func normalizeDecimal(raw string) string {
	dot, comma := strings.LastIndex(raw, "."), strings.LastIndex(raw, ",")
	switch {
	case comma < 0:
		return raw
	case dot < 0:
		return strings.Replace(raw, ",", ".", 1)
	case comma > dot:
		return strings.Replace(strings.ReplaceAll(raw, ".", ""), ",", ".", 1)
	default:
		return strings.ReplaceAll(raw, ",", "")
	}
}

// readRows reads the header, checks required columns and calls fn per record.
func readRows(r io.Reader, required []string, fn func(row) error) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read CSV header: %v", ErrMalformed, err)
	}

	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			return 0, fmt.Errorf("%w: missing required column: %s", ErrMalformed, col)
		}
	}

	n := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("%w: failed to read CSV record: %v", ErrMalformed, err)
		}
		n++
		if err := fn(row{line: line, record: record, cols: cols}); err != nil {
			return n, fmt.Errorf("failed to process row: %w", err)
		}
	}
	return n, nil
}

// ImportSales loads a daily sales export. Unknown products are created from
// the row; a sale already stored for the same product and day is skipped.
func (i *Importer) ImportSales(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	err := i.gw.RunInTx(ctx, func(q repository.Queries) error {
		res = Result{}
		n, err := readRows(r, []string{colSaleDate, colSaleSKU, colSaleQuantity}, func(rw row) error {
			sku := rw.value(colSaleSKU)
			date, err := rw.date(colSaleDate)
			if err != nil {
				return err
			}
			qty, err := rw.quantity(colSaleQuantity)
			if err != nil {
				return err
			}

			existing, err := q.GetProduct(ctx, sku)
			if err != nil {
				return err
			}
			if existing == nil {
				p, err := domain.NewProduct(sku, rw.value(colSaleName), rw.value(colSaleCategory))
				if err != nil {
					return fmt.Errorf("line %d: %w", rw.line, err)
				}
				if err := q.UpsertProduct(ctx, p); err != nil {
					return err
				}
				res.ProductsCreated++
				log.Info().Str("sku", sku).Str("name", p.Name).Msg("product created")
			}

			sale, err := q.GetSale(ctx, sku, date)
			if err != nil {
				return err
			}
			if sale != nil {
				log.Warn().Str("sku", sku).Str("date", date.Format(domain.DateLayout)).Msg("sale already recorded, skipping")
				res.Skipped++
				return nil
			}

			if err := q.RecordSale(ctx, domain.Sale{ProductSKU: sku, Date: date, Quantity: qty}); err != nil {
				return err
			}
			res.Imported++
			return nil
		})
		res.Rows = n
		return err
	})
	if err != nil {
		return Result{}, err
	}

	log.Info().
		Int("rows", res.Rows).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Int("products_created", res.ProductsCreated).
		Msg("sales import finished")
	return res, nil
}

// ImportForecasts loads a sku,date,quantity file. Forecasts for unknown
// products and for keys that already hold a forecast are skipped.
func (i *Importer) ImportForecasts(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	err := i.gw.RunInTx(ctx, func(q repository.Queries) error {
		res = Result{}
		n, err := readRows(r, []string{colForecastSKU, colForecastDate, colForecastQuantity}, func(rw row) error {
			sku := rw.value(colForecastSKU)
			date, err := rw.date(colForecastDate)
			if err != nil {
				return err
			}
			qty, err := rw.quantity(colForecastQuantity)
			if err != nil {
				return err
			}

			p, err := q.GetProduct(ctx, sku)
			if err != nil {
				return err
			}
			if p == nil {
				log.Warn().Str("sku", sku).Msg("forecast for unknown product, skipping")
				res.Skipped++
				return nil
			}

			existing, err := q.GetForecast(ctx, sku, date)
			if err != nil {
				return err
			}
			if existing != nil {
				res.Skipped++
				return nil
			}

			if err := q.UpsertForecast(ctx, domain.Forecast{ProductSKU: sku, Date: date, Quantity: qty}); err != nil {
				return err
			}
			res.Imported++
			return nil
		})
		res.Rows = n
		return err
	})
	if err != nil {
		return Result{}, err
	}

	log.Info().Int("rows", res.Rows).Int("imported", res.Imported).Int("skipped", res.Skipped).Msg("forecast import finished")
	return res, nil
}

// ImportSalesFile opens path and imports it as a sales export.
func (i *Importer) ImportSalesFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return i.ImportSales(ctx, f)
}

// ImportForecastsFile opens path and imports it as a forecast file.
func (i *Importer) ImportForecastsFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return i.ImportForecasts(ctx, f)
}
