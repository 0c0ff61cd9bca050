package service

import (
	"context"
	"strings"
	"testing"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/ingest"
	"github.com/andresuchdata/thawflow/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportServiceInvalidatesOnChange(t *testing.T) {
	ctx := context.Background()
	c := newFakeCache()
	c.entries["A"] = &domain.BatchSummary{}
	svc := NewImportService(ingest.NewImporter(memory.New()), c)

	sales := "data_dia,id_produto,total_venda_dia_kg\n10/03/2025,A,5\n"
	res, err := svc.ImportSales(ctx, strings.NewReader(sales))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, []string{"*"}, c.invalidated)
	assert.Empty(t, c.entries)

	// nothing new: cache is left alone
	_, err = svc.ImportSales(ctx, strings.NewReader(sales))
	require.NoError(t, err)
	assert.Len(t, c.invalidated, 1)
}

func TestImportServiceError(t *testing.T) {
	c := newFakeCache()
	svc := NewImportService(ingest.NewImporter(memory.New()), c)

	_, err := svc.ImportForecasts(context.Background(), strings.NewReader("sku,date\n"))
	assert.Error(t, err)
	assert.Empty(t, c.invalidated)
}
