package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cartlink/models"
	"github.com/use-agent/cartlink/scraper"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// With the browser engine, status degrades when > 80% of pages are active.
func Health(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sc.PoolStats()

		status := "healthy"
		if stats != nil && stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    sc.Uptime().Round(time.Second).String(),
			Engine:    sc.EngineName(),
			PoolStats: stats,
			Version:   Version,
		})
	}
}
