package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/use-agent/cartlink/config"
)

func TestBrowserEngine_Fetch(t *testing.T) {
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chrome/Chromium binary found")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Cart</title></head><body>
<script>window.__NUXT__ = {"cart":[{"name":"Blue Dress","price":"R148"}]};</script>
<img src="/pixel.png"></body></html>`)
	}))
	defer srv.Close()

	eng, err := NewBrowserEngine(config.BrowserConfig{
		Headless:             true,
		MaxPages:             1,
		NoSandbox:            true,
		BrowserBin:           bin,
		BlockedResourceTypes: []string{"Image"},
	})
	if err != nil {
		t.Fatalf("NewBrowserEngine: %v", err)
	}
	defer eng.Close()

	// Two fetches share the single pooled tab.
	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		page, err := eng.Fetch(ctx, &FetchRequest{URL: srv.URL + "/cart", UserAgent: config.DefaultUserAgent})
		cancel()
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if !page.OK() || page.Title != "Cart" || page.EngineName != config.EngineBrowser {
			t.Errorf("fetch %d: page = status %d title %q engine %q", i, page.StatusCode, page.Title, page.EngineName)
		}
		if !strings.Contains(page.State, `"Blue Dress"`) {
			t.Errorf("fetch %d: State = %q", i, page.State)
		}
	}

	if stats := eng.Stats(); stats.ActivePages != 0 || stats.MaxPages != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}
