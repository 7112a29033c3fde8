package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/cartlink/models"
	"github.com/ysmood/gson"
)

// Mobile viewport matching the iPhone UA.
const (
	viewportWidth  = 375
	viewportHeight = 812
)

const statusJS = `() => {
	try {
		const entries = performance.getEntriesByType("navigation");
		if (entries.length > 0) return entries[0].responseStatus || 0;
	} catch (e) {}
	return 0;
}`

// stateJS serialises the injected global state, or returns "" when the page
// has none or it cannot be serialised (cycles, BigInt).
const stateJS = `() => {
	try {
		const s = window.__NUXT__ || window.__INITIAL_STATE__;
		return s ? JSON.stringify(s) : "";
	} catch (e) {
		return "";
	}
}`

// Fetch renders the page in a pooled tab.
//
// Order matters: stealth, UA and hijack must be installed before Navigate or
// they do not apply to the document request. Cleanup navigates the original
// page (without the request context) to about:blank so it still works after
// the context has expired.
func (e *BrowserEngine) Fetch(ctx context.Context, req *FetchRequest) (*Page, error) {
	e.activePages.Add(1)
	defer e.activePages.Add(-1)

	page, err := e.pagePool.Get(func() (*rod.Page, error) {
		return e.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		e.pagePool.Put(page)
	}()

	// Scripts added with EvalOnNewDocument outlive navigation, so the pooled
	// tab must drop this one before it is reused.
	if removeStealth, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	} else {
		defer func() {
			if rmErr := removeStealth(); rmErr != nil {
				slog.Warn("cleanup: failed to remove stealth script", "error", rmErr)
			}
		}()
	}

	if req.UserAgent != "" {
		if uaErr := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: req.UserAgent}); uaErr != nil {
			slog.Warn("user agent override failed", "error", uaErr)
		}
	}
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 3,
		Mobile:            true,
	})

	headers := map[string]string{"Accept": AcceptHTML}
	for k, v := range req.Headers {
		headers[k] = v
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)

	if router := setupHijack(page, e.cfg.BlockedResourceTypes); router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeError(err, "navigation to cart page failed")
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	statusCode := 0
	if res, evalErr := p.Eval(statusJS); evalErr == nil {
		statusCode = res.Value.Int()
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &Page{
		HTML:        rawHTML,
		Title:       evalStringOrEmpty(p, `() => document.title`),
		StatusCode:  statusCode,
		FinalURL:    finalURL,
		ContentType: evalStringOrEmpty(p, `() => document.contentType`),
		State:       evalStringOrEmpty(p, stateJS),
		EngineName:  e.Name(),
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to proto.NetworkHeaders
// (map[string]gson.JSON).
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw rod errors into typed ScrapeErrors.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeFetchFailed, msg, err)
	}
}
