package scraper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/cartlink/config"
	"github.com/use-agent/cartlink/engine"
	"github.com/use-agent/cartlink/extract"
	"github.com/use-agent/cartlink/metrics"
	"github.com/use-agent/cartlink/models"
	"github.com/use-agent/cartlink/resolver"
)

// Scraper runs the cart pipeline: validate, resolve, fetch, extract,
// assemble. It keeps no per-request state and is safe for concurrent use.
type Scraper struct {
	eng       engine.Engine
	resolver  *resolver.Resolver
	extractor *extract.Extractor
	src       config.SourceConfig
	fetchCfg  config.FetchConfig
	startTime time.Time
}

// New wires a Scraper around the given engine.
func New(cfg *config.Config, eng engine.Engine) *Scraper {
	return &Scraper{
		eng:       eng,
		resolver:  resolver.New(eng, cfg.Source, cfg.Fetch.UserAgent),
		extractor: extract.New(cfg.Extract.HTMLFallback),
		src:       cfg.Source,
		fetchCfg:  cfg.Fetch,
		startTime: time.Now(),
	}
}

// ValidateSource rejects URLs that do not belong to the configured source
// site. It never touches the network.
func ValidateSource(rawURL string, src config.SourceConfig) error {
	if rawURL == "" || !strings.Contains(rawURL, src.Domain) {
		return models.NewScrapeError(models.ErrCodeInvalidSource, "Invalid "+src.SiteLabel+" URL", nil)
	}
	return nil
}

// DoScrape runs the full pipeline for one cart URL.
//
// Lifecycle:
//
//  1. Validate      – domain check, no network
//  2. Timeout guard – one deadline covers both fetches
//  3. Resolve       – share link → landing URL (best-effort)
//  4. Fetch         – GET the cart page, non-2xx is a FetchError
//  5. Extract       – embedded state, then markup fallback
//  6. Assemble      – success/total_items derived from items
//
// "No items found" is a successful run (nil error).
func (s *Scraper) DoScrape(ctx context.Context, rawURL string) (*models.ScrapeResult, error) {
	start := time.Now()

	// ── 1. Validate ───────────────────────────────────────────────────
	if err := ValidateSource(rawURL, s.src); err != nil {
		metrics.ScrapesTotal.WithLabelValues("invalid_source").Inc()
		return nil, err
	}

	// ── 2. Timeout guard ──────────────────────────────────────────────
	if s.fetchCfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchCfg.Timeout)
		defer cancel()
	}

	// ── 3. Resolve ────────────────────────────────────────────────────
	target := rawURL
	resolved := false
	resolveStart := time.Now()
	if resolver.Classify(rawURL, s.src) == resolver.LinkShare {
		target, resolved = s.resolver.Resolve(ctx, rawURL)
		metrics.FetchDuration.WithLabelValues(s.eng.Name(), "share").Observe(time.Since(resolveStart).Seconds())
		if resolved {
			metrics.ShareResolutionsTotal.WithLabelValues("resolved").Inc()
		} else {
			metrics.ShareResolutionsTotal.WithLabelValues("failed").Inc()
		}
	}
	resolveMs := time.Since(resolveStart).Milliseconds()

	// ── 4. Fetch ──────────────────────────────────────────────────────
	fetchStart := time.Now()
	page, err := s.eng.Fetch(ctx, &engine.FetchRequest{URL: target, UserAgent: s.fetchCfg.UserAgent})
	metrics.FetchDuration.WithLabelValues(s.eng.Name(), "cart").Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		scrapeErr := classifyFetchError(err)
		metrics.ScrapesTotal.WithLabelValues(outcomeFor(scrapeErr)).Inc()
		return nil, scrapeErr
	}
	if !page.OK() {
		metrics.ScrapesTotal.WithLabelValues("fetch_failed").Inc()
		return nil, models.NewFetchError(page.StatusCode)
	}
	fetchMs := time.Since(fetchStart).Milliseconds()

	// ── 5. Extract ────────────────────────────────────────────────────
	extractStart := time.Now()
	items, strategy := s.extractor.Extract(page.HTML, page.State)
	extractMs := time.Since(extractStart).Milliseconds()

	// ── 6. Assemble ───────────────────────────────────────────────────
	result := models.NewScrapeResult(items)
	result.Strategy = strategy
	if resolved {
		result.ResolvedURL = target
	}
	result.Timing = &models.TimingInfo{
		TotalMs:   time.Since(start).Milliseconds(),
		ResolveMs: resolveMs,
		FetchMs:   fetchMs,
		ExtractMs: extractMs,
	}

	if result.Success {
		metrics.ScrapesTotal.WithLabelValues("items").Inc()
		metrics.ExtractionsTotal.WithLabelValues(strategy).Inc()
		metrics.ItemsExtracted.Observe(float64(result.TotalItems))
	} else {
		metrics.ScrapesTotal.WithLabelValues("empty").Inc()
	}

	slog.Info("cart scraped",
		"url", rawURL,
		"resolved", resolved,
		"items", result.TotalItems,
		"strategy", strategy,
		"total_ms", result.Timing.TotalMs,
	)
	return result, nil
}

// classifyFetchError keeps typed engine errors and wraps transport errors.
// The message is the raw error text so the caller sees what failed.
func classifyFetchError(err error) *models.ScrapeError {
	var scrapeErr *models.ScrapeError
	if errors.As(err, &scrapeErr) {
		return scrapeErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewScrapeError(models.ErrCodeTimeout, err.Error(), err)
	}
	return models.NewScrapeError(models.ErrCodeFetchFailed, err.Error(), err)
}

func outcomeFor(err *models.ScrapeError) string {
	switch err.Code {
	case models.ErrCodeFetchFailed:
		return "fetch_failed"
	case models.ErrCodeTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// EngineName reports the configured fetch engine.
func (s *Scraper) EngineName() string {
	return s.eng.Name()
}

// PoolStats returns the browser pool snapshot, or nil for engines without
// a pool.
func (s *Scraper) PoolStats() *models.PoolStats {
	if p, ok := s.eng.(interface{ Stats() models.PoolStats }); ok {
		stats := p.Stats()
		return &stats
	}
	return nil
}

// Uptime is the time since the Scraper was created.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}
