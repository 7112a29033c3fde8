package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/cartlink/api"
	"github.com/use-agent/cartlink/cache"
	"github.com/use-agent/cartlink/config"
	"github.com/use-agent/cartlink/engine"
	"github.com/use-agent/cartlink/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	logger := initLogger(cfg.Log)
	slog.Info("cartlink starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"engine", cfg.Fetch.Engine,
		"htmlFallback", cfg.Extract.HTMLFallback,
	)

	// ── 3. Initialise fetch engine ──────────────────────────────────
	eng, closeEngine, err := newEngine(cfg)
	if err != nil {
		slog.Error("failed to initialise fetch engine", "engine", cfg.Fetch.Engine, "error", err)
		os.Exit(1)
	}
	defer closeEngine()

	// ── 4. Pipeline, cache, router ──────────────────────────────────
	sc := scraper.New(cfg, eng)
	cc := cache.New(cfg.Cache.MaxEntries)
	router := api.NewRouter(sc, cfg, cc, logger)

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight scrapes get one fetch timeout to finish.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Fetch.Timeout+time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("cartlink stopped")
}

// newEngine builds the configured fetch engine and its cleanup func.
func newEngine(cfg *config.Config) (engine.Engine, func(), error) {
	switch cfg.Fetch.Engine {
	case config.EngineBrowser:
		be, err := engine.NewBrowserEngine(cfg.Browser)
		if err != nil {
			return nil, nil, err
		}
		return be, be.Close, nil
	case config.EngineHTTP, "":
		he, err := engine.NewHTTPEngine(cfg.Fetch.Proxy)
		if err != nil {
			return nil, nil, err
		}
		return he, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetch engine %q", cfg.Fetch.Engine)
	}
}

// initLogger configures slog based on the LogConfig and returns the logger.
func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
