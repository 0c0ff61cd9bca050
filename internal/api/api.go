// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/thawflow/internal/api/handlers"
	"github.com/andresuchdata/thawflow/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Inventory handlers.Inventory
	Imports   handlers.Imports
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")
	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services != nil && services.Inventory != nil {
		h := handlers.NewInventoryHandler(services.Inventory)
		skuGroup := apiGroup.Group("/skus/:sku")
		{
			skuGroup.POST("/withdrawals", h.TriggerWithdrawal)
			skuGroup.GET("/batches", h.GetBatches)
			skuGroup.POST("/sales", h.RegisterSale)
		}
		apiGroup.POST("/daily-runs", h.RunDailyAllSkus)
		apiGroup.POST("/lifecycle/advance", h.AdvanceLifecycle)
	}

	if services != nil && services.Imports != nil {
		ih := handlers.NewImportHandler(services.Imports)
		importGroup := apiGroup.Group("/imports")
		{
			importGroup.POST("/sales", ih.ImportSales)
			importGroup.POST("/forecasts", ih.ImportForecasts)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
