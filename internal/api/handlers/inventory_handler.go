package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/engine"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Inventory is the service surface the HTTP layer drives.
type Inventory interface {
	TriggerWithdrawal(ctx context.Context, sku string) (*engine.DailyResult, error)
	GetBatches(ctx context.Context, sku string, historyDays int) (*domain.BatchSummary, error)
	RegisterSale(ctx context.Context, sku string, date time.Time, qty float64) (engine.Allocation, error)
	RunDailyAllSkus(ctx context.Context) (*engine.RunReport, error)
	AdvanceLifecycle(ctx context.Context) (*engine.LifecycleReport, error)
}

type InventoryHandler struct {
	service Inventory
}

func NewInventoryHandler(service Inventory) *InventoryHandler {
	return &InventoryHandler{service: service}
}

type saleRequest struct {
	Quantity *float64 `json:"quantity" binding:"required"`
	Date     string   `json:"date"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownProduct):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyRunToday), errors.Is(err, domain.ErrBatchExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidProduct):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func skuParam(c *gin.Context) (string, bool) {
	sku := strings.TrimSpace(c.Param("sku"))
	if sku == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sku is required"})
		return "", false
	}
	return sku, true
}

// TriggerWithdrawal handles POST /skus/:sku/withdrawals
func (h *InventoryHandler) TriggerWithdrawal(c *gin.Context) {
	sku, ok := skuParam(c)
	if !ok {
		return
	}

	res, err := h.service.TriggerWithdrawal(c.Request.Context(), sku)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"withdrawal": res.Withdrawal,
		"batch":      toBatchResponse(res.Batch),
		"lifecycle":  res.Lifecycle,
	})
}

// GetBatches handles GET /skus/:sku/batches
func (h *InventoryHandler) GetBatches(c *gin.Context) {
	sku, ok := skuParam(c)
	if !ok {
		return
	}

	days := 0
	if raw := c.Query("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a non-negative integer"})
			return
		}
		days = v
	}

	summary, err := h.service.GetBatches(c.Request.Context(), sku, days)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, toSummaryResponse(summary))
}

// RegisterSale handles POST /skus/:sku/sales
func (h *InventoryHandler) RegisterSale(c *gin.Context) {
	sku, ok := skuParam(c)
	if !ok {
		return
	}

	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required"})
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := domain.ParseDay(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = d
	}

	alloc, err := h.service.RegisterSale(c.Request.Context(), sku, date, *req.Quantity)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, toAllocationResponse(alloc))
}

// RunDailyAllSkus handles POST /daily-runs
func (h *InventoryHandler) RunDailyAllSkus(c *gin.Context) {
	report, err := h.service.RunDailyAllSkus(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, toRunReportResponse(report))
}

// AdvanceLifecycle handles POST /lifecycle/advance
func (h *InventoryHandler) AdvanceLifecycle(c *gin.Context) {
	report, err := h.service.AdvanceLifecycle(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
