package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/engine"
	"github.com/andresuchdata/thawflow/internal/forecast"
	"github.com/andresuchdata/thawflow/internal/repository/memory"
	"github.com/andresuchdata/thawflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " ", "http://c.test"})
	assert.False(t, all)
	assert.Equal(t, []string{"http://a.test", "http://b.test", "http://c.test"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}

func TestRouterEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gw := memory.New()
	require.NoError(t, gw.UpsertProduct(t.Context(), domain.Product{SKU: "A", Name: "Chicken"}))

	day := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	eng := engine.New(gw, forecast.NewStoredProvider(gw), engine.DefaultParams(),
		engine.WithClock(func() time.Time { return day }))
	router := NewRouter(&Services{Inventory: service.NewInventoryService(eng, gw, nil, nil)}, []string{"*"})

	steps := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodPost, "/api/v1/skus/A/withdrawals", http.StatusCreated},
		{http.MethodPost, "/api/v1/skus/A/withdrawals", http.StatusConflict},
		{http.MethodPost, "/api/v1/skus/missing/withdrawals", http.StatusNotFound},
		{http.MethodGet, "/api/v1/skus/A/batches", http.StatusOK},
		{http.MethodGet, "/api/v1/skus/missing/batches", http.StatusNotFound},
		{http.MethodPost, "/api/v1/lifecycle/advance", http.StatusOK},
		{http.MethodPost, "/api/v1/daily-runs", http.StatusOK},
		{http.MethodPost, "/api/v1/daily-runs", http.StatusConflict},
	}
	for _, s := range steps {
		req := httptest.NewRequest(s.method, s.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, s.want, rec.Code, "%s %s: %s", s.method, s.path, rec.Body.String())
	}
}
