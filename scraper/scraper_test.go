package scraper

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/cartlink/config"
	"github.com/use-agent/cartlink/engine"
	"github.com/use-agent/cartlink/models"
)

// stubEngine serves canned pages keyed by URL and records every fetch.
type stubEngine struct {
	pages   map[string]*engine.Page
	err     error
	fetched []string
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*engine.Page, error) {
	s.fetched = append(s.fetched, req.URL)
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.pages[req.URL]; ok {
		return p, nil
	}
	return &engine.Page{StatusCode: http.StatusNotFound, HTML: "not found"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Source: config.SourceConfig{
			Domain:        "shein.com",
			SiteLabel:     "Shein",
			ShareMarkers:  []string{"sharejump", "api-shein.shein.com", "/cart/share/"},
			LandingMarker: "/cart/share/landing",
			LandingBase:   "https://m.shein.com",
		},
		Fetch: config.FetchConfig{
			Engine:    "stub",
			Timeout:   5 * time.Second,
			UserAgent: config.DefaultUserAgent,
		},
		Extract: config.ExtractConfig{HTMLFallback: config.FallbackRegex},
	}
}

func ok(html string) *engine.Page {
	return &engine.Page{HTML: html, StatusCode: http.StatusOK}
}

func TestDoScrape_InvalidSourceMakesNoNetworkCall(t *testing.T) {
	for _, u := range []string{"", "https://www.amazon.com/cart", "not a url"} {
		eng := &stubEngine{}
		res, err := New(testConfig(), eng).DoScrape(context.Background(), u)
		if res != nil {
			t.Errorf("%q: result = %+v, want nil", u, res)
		}
		var scrapeErr *models.ScrapeError
		if !errors.As(err, &scrapeErr) || scrapeErr.Code != models.ErrCodeInvalidSource {
			t.Fatalf("%q: err = %v, want INVALID_SOURCE", u, err)
		}
		if scrapeErr.Message != "Invalid Shein URL" {
			t.Errorf("%q: message = %q", u, scrapeErr.Message)
		}
		if len(eng.fetched) != 0 {
			t.Errorf("%q: fetched %v, want none", u, eng.fetched)
		}
	}
}

func TestDoScrape_ShareLinkResolvedThenFetched(t *testing.T) {
	share := "https://m.shein.com/fr/cart/share/abc?x=1"
	landing := "https://m.shein.com/fr/cart/share/landing?group_id=XYZ123&local_country=FR&cart_share=1"
	eng := &stubEngine{pages: map[string]*engine.Page{
		share:   ok(`<script>var shareInfo = {"shareId":"XYZ123","localcountry":"FR"};</script>`),
		landing: ok(`<script>window.__NUXT__ = {"cart":[{"goods_name":"Pleated Skirt","salePrice":"€19"}]};</script>`),
	}}

	res, err := New(testConfig(), eng).DoScrape(context.Background(), share)
	if err != nil {
		t.Fatalf("DoScrape: %v", err)
	}
	if diff := cmp.Diff([]string{share, landing}, eng.fetched); diff != "" {
		t.Errorf("fetch sequence (-want +got):\n%s", diff)
	}
	if res.ResolvedURL != landing {
		t.Errorf("ResolvedURL = %q", res.ResolvedURL)
	}
	want := []models.CartItem{{Name: "Pleated Skirt", Price: "€19"}}
	if diff := cmp.Diff(want, res.Items); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
}

func TestDoScrape_FailedResolutionFetchesOriginal(t *testing.T) {
	share := "https://m.shein.com/fr/cart/share/abc"
	eng := &stubEngine{pages: map[string]*engine.Page{
		share: ok(`<span class="goods-name">Red Hat</span><span class="price">$9.99</span>`),
	}}

	res, err := New(testConfig(), eng).DoScrape(context.Background(), share)
	if err != nil {
		t.Fatalf("DoScrape: %v", err)
	}
	if diff := cmp.Diff([]string{share, share}, eng.fetched); diff != "" {
		t.Errorf("fetch sequence (-want +got):\n%s", diff)
	}
	if res.ResolvedURL != "" || res.TotalItems != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestDoScrape_Scenarios(t *testing.T) {
	const cart = "https://m.shein.com/za/cart"
	tests := []struct {
		name         string
		html         string
		want         []models.CartItem
		wantMessage  string
		wantStrategy string
	}{
		{
			name:         "nuxt state",
			html:         `<script>window.__NUXT__ = {"cart":{"items":[{"name":"Blue Dress","price":"R148","qty":"2"}]}};</script>`,
			want:         []models.CartItem{{Name: "Blue Dress", Price: "R148", Quantity: "2"}},
			wantMessage:  models.MessageScraped,
			wantStrategy: "state",
		},
		{
			name:         "markup fallback",
			html:         `<div><span class="goods-name">Red Hat</span><span class="price">$9.99</span></div>`,
			want:         []models.CartItem{{Name: "Red Hat", Price: "$9.99", Quantity: "1"}},
			wantMessage:  models.MessageScraped,
			wantStrategy: "html",
		},
		{
			name:        "nothing found",
			html:        `<html><body>Your bag is empty</body></html>`,
			want:        []models.CartItem{},
			wantMessage: models.MessageNoItems,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &stubEngine{pages: map[string]*engine.Page{cart: ok(tt.html)}}
			res, err := New(testConfig(), eng).DoScrape(context.Background(), cart)
			if err != nil {
				t.Fatalf("DoScrape: %v", err)
			}
			if diff := cmp.Diff(tt.want, res.Items); diff != "" {
				t.Errorf("items (-want +got):\n%s", diff)
			}
			if res.Success != (len(res.Items) > 0) || res.TotalItems != len(res.Items) {
				t.Errorf("success/total inconsistent: %+v", res)
			}
			if res.Message != tt.wantMessage || res.Strategy != tt.wantStrategy {
				t.Errorf("message, strategy = %q, %q; want %q, %q", res.Message, res.Strategy, tt.wantMessage, tt.wantStrategy)
			}
			if res.Timing == nil {
				t.Error("timing missing")
			}
		})
	}
}

func TestDoScrape_EvaluatedStateWins(t *testing.T) {
	const cart = "https://m.shein.com/us/cart"
	eng := &stubEngine{pages: map[string]*engine.Page{cart: {
		HTML:  `<span class="goods-name">Markup</span><span class="price">$1</span>`,
		State: `{"cartItems":[{"title":"Rendered"}]}`,
	}}}

	res, err := New(testConfig(), eng).DoScrape(context.Background(), cart)
	if err != nil {
		t.Fatalf("DoScrape: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Name != "Rendered" {
		t.Errorf("items = %+v", res.Items)
	}
}

func TestDoScrape_NonSuccessStatus(t *testing.T) {
	eng := &stubEngine{}
	_, err := New(testConfig(), eng).DoScrape(context.Background(), "https://m.shein.com/us/cart/missing")

	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) || scrapeErr.Code != models.ErrCodeFetchFailed {
		t.Fatalf("err = %v, want FETCH_FAILED", err)
	}
	if !strings.Contains(scrapeErr.Message, "404") || scrapeErr.StatusCode != http.StatusNotFound {
		t.Errorf("error = %+v, want status 404 in message", scrapeErr)
	}
}

func TestDoScrape_TransportErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"reset", errors.New("http_engine: do request: connection reset by peer"), models.ErrCodeFetchFailed},
		{"deadline", context.DeadlineExceeded, models.ErrCodeTimeout},
		{"typed", models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", nil), models.ErrCodeBrowserCrash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &stubEngine{err: tt.err}
			_, err := New(testConfig(), eng).DoScrape(context.Background(), "https://m.shein.com/us/cart")
			var scrapeErr *models.ScrapeError
			if !errors.As(err, &scrapeErr) || scrapeErr.Code != tt.wantCode {
				t.Fatalf("err = %v, want %s", err, tt.wantCode)
			}
			if scrapeErr.Message == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestScraper_EngineInfo(t *testing.T) {
	s := New(testConfig(), &stubEngine{})
	if s.EngineName() != "stub" {
		t.Errorf("EngineName = %q", s.EngineName())
	}
	if s.PoolStats() != nil {
		t.Error("PoolStats non-nil for engine without pool")
	}
}
