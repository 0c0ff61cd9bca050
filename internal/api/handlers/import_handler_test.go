package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/ingest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockImports struct {
	bodies []string
	err    error
}

func (m *mockImports) record(r io.Reader) (ingest.Result, error) {
	data, _ := io.ReadAll(r)
	m.bodies = append(m.bodies, string(data))
	if m.err != nil {
		return ingest.Result{}, m.err
	}
	return ingest.Result{Rows: 1, Imported: 1}, nil
}

func (m *mockImports) ImportSales(ctx context.Context, r io.Reader) (ingest.Result, error) {
	return m.record(r)
}

func (m *mockImports) ImportForecasts(ctx context.Context, r io.Reader) (ingest.Result, error) {
	return m.record(r)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestImportHandler(t *testing.T) {
	testCases := []struct {
		name               string
		path               string
		files              map[string]string
		err                error
		expectedStatusCode int
	}{
		{
			name:               "Sales file",
			path:               "/imports/sales",
			files:              map[string]string{"vendas.csv": "data_dia,id_produto,total_venda_dia_kg\n"},
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "Forecast file",
			path:               "/imports/forecasts",
			files:              map[string]string{"previsoes.csv": "sku,date,quantity\n"},
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "No files",
			path:               "/imports/sales",
			files:              map[string]string{},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Malformed file",
			path:               "/imports/sales",
			files:              map[string]string{"x.csv": "nope"},
			err:                fmt.Errorf("%w: missing required column: data_dia", ingest.ErrMalformed),
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Negative quantity",
			path:               "/imports/forecasts",
			files:              map[string]string{"x.csv": "sku,date,quantity\nA,2025-03-10,-1\n"},
			err:                domain.ErrInvalidQuantity,
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Store failure",
			path:               "/imports/sales",
			files:              map[string]string{"x.csv": "data"},
			err:                fmt.Errorf("connection refused"),
			expectedStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			m := &mockImports{err: tc.err}
			h := NewImportHandler(m)
			r := gin.New()
			r.POST("/imports/sales", h.ImportSales)
			r.POST("/imports/forecasts", h.ImportForecasts)

			body, contentType := multipartBody(t, tc.files)
			req := httptest.NewRequest(http.MethodPost, tc.path, body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code, rec.Body.String())
			if tc.expectedStatusCode == http.StatusOK {
				var resp struct {
					Success bool         `json:"success"`
					Files   []fileResult `json:"files"`
				}
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.True(t, resp.Success)
				require.Len(t, resp.Files, 1)
				assert.Equal(t, 1, resp.Files[0].Result.Imported)
				for _, content := range tc.files {
					assert.Equal(t, []string{content}, m.bodies)
				}
			}
		})
	}
}

func TestImportHandlerRejectsNonMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/imports/sales", NewImportHandler(&mockImports{}).ImportSales)

	rec := do(r, http.MethodPost, "/imports/sales", `{"file":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
