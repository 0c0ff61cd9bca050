package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/andresuchdata/thawflow/internal/ingest"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Imports loads uploaded CSV exports.
type Imports interface {
	ImportSales(ctx context.Context, r io.Reader) (ingest.Result, error)
	ImportForecasts(ctx context.Context, r io.Reader) (ingest.Result, error)
}

type ImportHandler struct {
	service Imports
}

func NewImportHandler(service Imports) *ImportHandler {
	return &ImportHandler{service: service}
}

type fileResult struct {
	Filename string        `json:"filename"`
	Result   ingest.Result `json:"result"`
}

// ImportSales handles POST /imports/sales
func (h *ImportHandler) ImportSales(c *gin.Context) {
	h.importFiles(c, h.service.ImportSales)
}

// ImportForecasts handles POST /imports/forecasts
func (h *ImportHandler) ImportForecasts(c *gin.Context) {
	h.importFiles(c, h.service.ImportForecasts)
}

// importFiles runs each uploaded file through fn in order and stops at the
// first failure. Files before it stay imported.
func (h *ImportHandler) importFiles(c *gin.Context, fn func(context.Context, io.Reader) (ingest.Result, error)) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	results := make([]fileResult, 0, len(files))
	for _, file := range files {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read " + file.Filename})
			return
		}
		res, err := fn(c.Request.Context(), f)
		f.Close()
		if err != nil {
			status := statusFor(err)
			if errors.Is(err, ingest.ErrMalformed) {
				status = http.StatusBadRequest
			}
			if status == http.StatusInternalServerError {
				log.Error().Err(err).Str("filename", file.Filename).Msg("import failed")
			}
			c.JSON(status, gin.H{
				"error":    err.Error(),
				"filename": file.Filename,
				"imported": results,
			})
			return
		}
		results = append(results, fileResult{Filename: file.Filename, Result: res})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "files": results})
}
