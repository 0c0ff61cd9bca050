package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/thawflow/internal/ingest"
	"github.com/rs/zerolog/log"
)

// Fetcher is the part of Service the downloader needs.
type Fetcher interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// Downloader copies the CSV and XLSX files of a Drive folder to disk.
type Downloader struct {
	fetcher Fetcher
	dir     string
}

func NewDownloader(f Fetcher, dir string) *Downloader {
	return &Downloader{fetcher: f, dir: dir}
}

// DownloadFolderCSV downloads every CSV and XLSX file of folderID into a
// subdirectory named after it and returns the local CSV paths. XLSX files
// are converted from their first sheet.
func (d *Downloader) DownloadFolderCSV(ctx context.Context, folderID string) ([]string, error) {
	if d.dir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	target := filepath.Join(d.dir, folderID)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.fetcher.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".csv" && ext != ".xlsx" {
			log.Debug().Str("file", f.Name).Msg("skipping non tabular drive file")
			continue
		}

		csvPath := filepath.Join(target, strings.TrimSuffix(filepath.Base(f.Name), filepath.Ext(f.Name))+".csv")
		if err := d.downloadAsCSV(ctx, f, ext, csvPath); err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", f.Name, err)
		}
		paths = append(paths, csvPath)
	}

	log.Info().Str("folder", folderID).Int("files", len(paths)).Msg("drive folder downloaded")
	return paths, nil
}

func (d *Downloader) downloadAsCSV(ctx context.Context, f *File, ext, csvPath string) error {
	out, err := os.Create(csvPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if ext == ".csv" {
		return d.fetcher.DownloadFile(ctx, f.ID, out)
	}

	xlsx, err := os.CreateTemp(filepath.Dir(csvPath), "*.xlsx")
	if err != nil {
		return err
	}
	defer os.Remove(xlsx.Name())
	defer xlsx.Close()

	if err := d.fetcher.DownloadFile(ctx, f.ID, xlsx); err != nil {
		return err
	}
	if _, err := xlsx.Seek(0, io.SeekStart); err != nil {
		return err
	}
	rows, err := sheetToCSV(xlsx, out)
	if err != nil {
		return fmt.Errorf("failed to convert to csv: %w", err)
	}
	log.Debug().Str("file", f.Name).Int("rows", rows).Msg("xlsx converted")
	return nil
}

// Importer is what Puller feeds downloaded files into.
type Importer interface {
	ImportSalesFile(ctx context.Context, path string) (ingest.Result, error)
	ImportForecastsFile(ctx context.Context, path string) (ingest.Result, error)
}

// PullResult sums the import results of every pulled file.
type PullResult struct {
	Files     int           `json:"files"`
	Sales     ingest.Result `json:"sales"`
	Forecasts ingest.Result `json:"forecasts"`
}

// Puller downloads the configured sales and forecast folders and imports them.
type Puller struct {
	downloader       *Downloader
	importer         Importer
	salesFolderID    string
	forecastFolderID string
}

func NewPuller(d *Downloader, imp Importer, salesFolderID, forecastFolderID string) *Puller {
	return &Puller{
		downloader:       d,
		importer:         imp,
		salesFolderID:    salesFolderID,
		forecastFolderID: forecastFolderID,
	}
}

// Pull imports sales before forecasts so forecasts for new products are kept.
func (p *Puller) Pull(ctx context.Context) (PullResult, error) {
	var res PullResult

	if p.salesFolderID != "" {
		paths, err := p.downloader.DownloadFolderCSV(ctx, p.salesFolderID)
		if err != nil {
			return res, fmt.Errorf("sales folder: %w", err)
		}
		for _, path := range paths {
			r, err := p.importer.ImportSalesFile(ctx, path)
			if err != nil {
				return res, fmt.Errorf("import %s: %w", filepath.Base(path), err)
			}
			res.Files++
			res.Sales = addResults(res.Sales, r)
		}
	}

	if p.forecastFolderID != "" {
		paths, err := p.downloader.DownloadFolderCSV(ctx, p.forecastFolderID)
		if err != nil {
			return res, fmt.Errorf("forecast folder: %w", err)
		}
		for _, path := range paths {
			r, err := p.importer.ImportForecastsFile(ctx, path)
			if err != nil {
				return res, fmt.Errorf("import %s: %w", filepath.Base(path), err)
			}
			res.Files++
			res.Forecasts = addResults(res.Forecasts, r)
		}
	}

	return res, nil
}

func addResults(a, b ingest.Result) ingest.Result {
	return ingest.Result{
		Rows:            a.Rows + b.Rows,
		Imported:        a.Imported + b.Imported,
		Skipped:         a.Skipped + b.Skipped,
		ProductsCreated: a.ProductsCreated + b.ProductsCreated,
	}
}
