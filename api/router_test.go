package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/cartlink/api/middleware"
	"github.com/use-agent/cartlink/cache"
	"github.com/use-agent/cartlink/config"
	"github.com/use-agent/cartlink/engine"
	"github.com/use-agent/cartlink/models"
	"github.com/use-agent/cartlink/scraper"
)

const (
	nuxtCart  = "https://m.shein.com/za/cart"
	emptyCart = "https://m.shein.com/za/cart/empty"
)

type stubEngine struct {
	pages   map[string]*engine.Page
	fetched []string
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*engine.Page, error) {
	s.fetched = append(s.fetched, req.URL)
	if p, ok := s.pages[req.URL]; ok {
		return p, nil
	}
	return &engine.Page{StatusCode: http.StatusNotFound}, nil
}

func newStub() *stubEngine {
	return &stubEngine{pages: map[string]*engine.Page{
		nuxtCart: {
			StatusCode: http.StatusOK,
			HTML:       `<script>window.__NUXT__ = {"cart":{"items":[{"name":"Blue Dress","price":"R148","qty":"2"}]}};</script>`,
		},
		emptyCart: {StatusCode: http.StatusOK, HTML: `<html><body>empty</body></html>`},
	}}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Source: config.SourceConfig{
			Domain:        "shein.com",
			SiteLabel:     "Shein",
			ShareMarkers:  []string{"sharejump", "api-shein.shein.com", "/cart/share/"},
			LandingMarker: "/cart/share/landing",
			LandingBase:   "https://m.shein.com",
		},
		Fetch:   config.FetchConfig{Timeout: 5 * time.Second, UserAgent: config.DefaultUserAgent},
		Extract: config.ExtractConfig{HTMLFallback: config.FallbackRegex},
		Cache:   config.CacheConfig{MaxEntries: 10},
	}
}

func newTestRouter(cfg *config.Config, eng engine.Engine) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(scraper.New(cfg, eng), cfg, cache.New(cfg.Cache.MaxEntries), logger)
}

func post(t *testing.T, h http.Handler, path, body string, headers map[string]string) (*httptest.ResponseRecorder, models.ScrapeResult) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var res models.ScrapeResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	if res.Success != (len(res.Items) > 0) || res.TotalItems != len(res.Items) {
		t.Errorf("inconsistent result: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"items":[`) {
		t.Errorf("items not serialised as an array: %s", w.Body.String())
	}
	return w, res
}

func assertCORS(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != middleware.AllowOrigin {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != middleware.AllowHeaders {
		t.Errorf("Allow-Headers = %q", got)
	}
}

func TestOptionsPreflight(t *testing.T) {
	eng := newStub()
	h := newTestRouter(testConfig(), eng)

	for _, path := range []string{"/scrape-cart", "/api/v1/scrape-cart", "/anything"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusOK || w.Body.Len() != 0 {
			t.Errorf("OPTIONS %s = %d %q, want 200 with empty body", path, w.Code, w.Body.String())
		}
		assertCORS(t, w)
	}
	if len(eng.fetched) != 0 {
		t.Errorf("preflight fetched %v", eng.fetched)
	}
}

func TestScrapeCart_InvalidSource(t *testing.T) {
	eng := newStub()
	h := newTestRouter(testConfig(), eng)

	for _, body := range []string{`{"url":"https://www.amazon.com/cart"}`, `{"url":""}`, `{}`} {
		w, res := post(t, h, "/scrape-cart", body, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
		want := models.ScrapeResult{Items: []models.CartItem{}, Message: "Invalid Shein URL"}
		if diff := cmp.Diff(want, res); diff != "" {
			t.Errorf("%s: body (-want +got):\n%s", body, diff)
		}
		assertCORS(t, w)
	}
	if len(eng.fetched) != 0 {
		t.Errorf("invalid source fetched %v", eng.fetched)
	}
}

func TestScrapeCart_Success(t *testing.T) {
	h := newTestRouter(testConfig(), newStub())

	for _, path := range []string{"/scrape-cart", "/api/v1/scrape-cart"} {
		w, res := post(t, h, path, `{"url":"`+nuxtCart+`"}`, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, w.Code)
		}
		want := []models.CartItem{{Name: "Blue Dress", Price: "R148", Quantity: "2"}}
		if diff := cmp.Diff(want, res.Items); diff != "" {
			t.Errorf("%s: items (-want +got):\n%s", path, diff)
		}
		if !res.Success || res.TotalItems != 1 || res.Message != models.MessageScraped {
			t.Errorf("%s: result = %+v", path, res)
		}
		assertCORS(t, w)
	}
}

func TestScrapeCart_NoItemsIs200(t *testing.T) {
	h := newTestRouter(testConfig(), newStub())

	w, res := post(t, h, "/scrape-cart", `{"url":"`+emptyCart+`"}`, nil)
	if w.Code != http.StatusOK || res.Success || res.Message != models.MessageNoItems {
		t.Errorf("status = %d, result = %+v", w.Code, res)
	}
}

func TestScrapeCart_FetchFailureIs500(t *testing.T) {
	h := newTestRouter(testConfig(), newStub())

	w, res := post(t, h, "/scrape-cart", `{"url":"https://m.shein.com/za/cart/gone"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if res.Success || !strings.Contains(res.Message, "404") {
		t.Errorf("result = %+v", res)
	}
	assertCORS(t, w)
}

func TestScrapeCart_MalformedBodyIs500(t *testing.T) {
	h := newTestRouter(testConfig(), newStub())

	w, res := post(t, h, "/scrape-cart", `{"url":`, nil)
	if w.Code != http.StatusInternalServerError || res.Success || res.Message == "" {
		t.Errorf("status = %d, result = %+v", w.Code, res)
	}
}

func TestScrapeCart_Auth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"secret"}}
	h := newTestRouter(cfg, newStub())
	body := `{"url":"` + nuxtCart + `"}`

	if w, _ := post(t, h, "/scrape-cart", body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d", w.Code)
	}
	if w, _ := post(t, h, "/scrape-cart", body, map[string]string{"apikey": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad key: status = %d", w.Code)
	}
	for _, hdr := range []map[string]string{
		{"apikey": "secret"},
		{"X-API-Key": "secret"},
		{"Authorization": "Bearer secret"},
	} {
		if w, _ := post(t, h, "/scrape-cart", body, hdr); w.Code != http.StatusOK {
			t.Errorf("%v: status = %d", hdr, w.Code)
		}
	}
}

func TestScrapeCart_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	h := newTestRouter(cfg, newStub())
	body := `{"url":"` + nuxtCart + `"}`

	if w, _ := post(t, h, "/scrape-cart", body, nil); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", w.Code)
	}
	w, res := post(t, h, "/api/v1/scrape-cart", body, nil)
	if w.Code != http.StatusTooManyRequests || res.Message == "" {
		t.Errorf("second request: status = %d, result = %+v", w.Code, res)
	}
}

func TestScrapeCart_MaxAgeUsesCache(t *testing.T) {
	eng := newStub()
	h := newTestRouter(testConfig(), eng)
	body := `{"url":"` + nuxtCart + `","max_age":60000}`

	_, first := post(t, h, "/scrape-cart", body, nil)
	_, second := post(t, h, "/scrape-cart", body, nil)
	if first.CacheStatus != "miss" || second.CacheStatus != "hit" {
		t.Errorf("cache status = %q then %q", first.CacheStatus, second.CacheStatus)
	}
	if diff := cmp.Diff(first.Items, second.Items); diff != "" {
		t.Errorf("cached items differ:\n%s", diff)
	}
	if len(eng.fetched) != 1 {
		t.Errorf("fetched %d times, want 1", len(eng.fetched))
	}

	_, third := post(t, h, "/scrape-cart", `{"url":"`+nuxtCart+`"}`, nil)
	if third.CacheStatus != "" || len(eng.fetched) != 2 {
		t.Errorf("request without max_age: cache status %q, fetches %d", third.CacheStatus, len(eng.fetched))
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(testConfig(), newStub())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var health models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || health.Status != "healthy" || health.Engine != "stub" {
		t.Errorf("health = %d %+v", w.Code, health)
	}

	post(t, h, "/scrape-cart", `{"url":"`+nuxtCart+`"}`, nil)
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "cartlink_scrapes_total") {
		t.Errorf("metrics = %d, body lacks cartlink_scrapes_total", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestRouter(testConfig(), newStub())

	w, _ := post(t, h, "/scrape-cart", `{"url":"x"}`, map[string]string{"X-Request-ID": "req-1"})
	if got := w.Header().Get("X-Request-ID"); got != "req-1" {
		t.Errorf("X-Request-ID = %q", got)
	}
	w, _ = post(t, h, "/scrape-cart", `{"url":"x"}`, nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("no request id generated")
	}
}
