package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/thawflow/internal/ingest"
	"github.com/andresuchdata/thawflow/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeFetcher struct {
	folders map[string][]*File
	content map[string][]byte
}

func (f *fakeFetcher) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	return f.folders[folderID], nil
}

func (f *fakeFetcher) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	data, ok := f.content[fileID]
	if !ok {
		return fmt.Errorf("no such file %s", fileID)
	}
	_, err := w.Write(data)
	return err
}

func salesWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"data_dia", "id_produto", "descricao_produto", "Equipe responsável", "total_venda_dia_kg"},
		{"03/03/2025", "237478", "FRANGO A PASSARINHO", "Congelados", 21.5},
		{"04/03/2025", "237478", "FRANGO A PASSARINHO", "Congelados", 18},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestSheetToCSV(t *testing.T) {
	var out bytes.Buffer
	n, err := sheetToCSV(bytes.NewReader(salesWorkbook(t)), &out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "data_dia,id_produto,descricao_produto,Equipe responsável,total_venda_dia_kg", lines[0])
	assert.Equal(t, "03/03/2025,237478,FRANGO A PASSARINHO,Congelados,21.5", lines[1])
}

func TestSheetToCSVRejectsGarbage(t *testing.T) {
	_, err := sheetToCSV(strings.NewReader("not a workbook"), io.Discard)
	assert.Error(t, err)
}

func TestDownloadFolderCSV(t *testing.T) {
	fetcher := &fakeFetcher{
		folders: map[string][]*File{
			"sales": {
				{ID: "1", Name: "vendas_marco.xlsx"},
				{ID: "2", Name: "readme.txt"},
				{ID: "3", Name: "vendas_fevereiro.CSV"},
			},
		},
		content: map[string][]byte{
			"1": salesWorkbook(t),
			"3": []byte("data_dia,id_produto,total_venda_dia_kg\n28/02/2025,237478,10\n"),
		},
	}

	dir := t.TempDir()
	paths, err := NewDownloader(fetcher, dir).DownloadFolderCSV(context.Background(), "sales")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.True(t, strings.HasSuffix(paths[0], "vendas_marco.csv"))
	assert.True(t, strings.HasSuffix(paths[1], "vendas_fevereiro.csv"))

	entries, err := os.ReadDir(filepath.Dir(paths[0]))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary workbook is removed")

	_, err = NewDownloader(fetcher, "").DownloadFolderCSV(context.Background(), "sales")
	assert.Error(t, err)
}

func TestPullImportsSalesThenForecasts(t *testing.T) {
	fetcher := &fakeFetcher{
		folders: map[string][]*File{
			"sales":     {{ID: "s1", Name: "vendas.xlsx"}},
			"forecasts": {{ID: "f1", Name: "previsoes.csv"}},
		},
		content: map[string][]byte{
			"s1": salesWorkbook(t),
			"f1": []byte("sku,date,quantity\n237478,2025-03-05,20\n"),
		},
	}

	ctx := context.Background()
	gw := memory.New()
	puller := NewPuller(NewDownloader(fetcher, t.TempDir()), ingest.NewImporter(gw), "sales", "forecasts")

	res, err := puller.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, ingest.Result{Rows: 2, Imported: 2, ProductsCreated: 1}, res.Sales)
	assert.Equal(t, ingest.Result{Rows: 1, Imported: 1}, res.Forecasts)

	f, err := gw.GetForecast(ctx, "237478", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 20.0, f.Quantity)
}
