package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/cartlink/api/handler"
	"github.com/use-agent/cartlink/api/middleware"
	"github.com/use-agent/cartlink/cache"
	"github.com/use-agent/cartlink/config"
	"github.com/use-agent/cartlink/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → CORS (answers OPTIONS) → RequestID → Logger
//	Scrape:  Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so probes always work.
func NewRouter(sc *scraper.Scraper, cfg *config.Config, cc *cache.Cache, logger *slog.Logger) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protect := []gin.HandlerFunc{}
	if cfg.Auth.Enabled {
		protect = append(protect, middleware.Auth(cfg.Auth.APIKeys))
	}
	protect = append(protect, middleware.RateLimit(cfg.RateLimit))

	scrape := append(protect, handler.ScrapeCart(sc, cc))

	// Unversioned path kept for existing function-URL clients.
	r.POST("/scrape-cart", scrape...)

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(sc))
	v1.POST("/scrape-cart", scrape...)

	return r
}
