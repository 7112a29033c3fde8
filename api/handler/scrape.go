package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cartlink/cache"
	"github.com/use-agent/cartlink/metrics"
	"github.com/use-agent/cartlink/models"
	"github.com/use-agent/cartlink/scraper"
)

// ScrapeCart returns a handler for POST /scrape-cart.
//
// Orchestration flow:
//  1. Parse request. A malformed body is a 500, not a 400.
//  2. Cache lookup when max_age is set.
//  3. Scraper.DoScrape runs the pipeline.
//  4. Cache store on success, respond 200.
func ScrapeCart(sc *scraper.Scraper, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInternal, err.Error(), err))
			return
		}

		useCache := cc != nil && req.MaxAge > 0
		cacheKey := cache.Key(req.URL)

		// ── 2. Cache lookup ─────────────────────────────────────────
		if useCache {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
				cached.CacheStatus = "hit"
				cached.Timing = &models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
				c.JSON(http.StatusOK, cached)
				return
			}
			metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		}

		// ── 3. Scrape ───────────────────────────────────────────────
		result, err := sc.DoScrape(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 4. Cache store and respond ──────────────────────────────
		if useCache {
			if result.Success {
				cc.Set(cacheKey, result)
			}
			result.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, result)
	}
}

// respondError maps a ScrapeError to its HTTP status and writes a
// ScrapeResult-shaped body carrying the error message.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	_ = c.Error(err)
	c.JSON(mapErrorToStatus(scrapeErr), models.FailedResult(scrapeErr.Message))
}

// mapErrorToStatus translates error codes to HTTP status codes. Upstream
// failures of every kind are 500.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidSource, models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
