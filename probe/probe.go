// Package probe inspects a cart or share page the way the pipeline sees it,
// for diagnosing pages that yield no items.
package probe

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/use-agent/cartlink/config"
	"github.com/use-agent/cartlink/engine"
	"github.com/use-agent/cartlink/extract"
	"github.com/use-agent/cartlink/models"
	"github.com/use-agent/cartlink/resolver"
)

// previewLen bounds the HTML preview in a report.
const previewLen = 500

// PatternResult records what one state pattern found.
type PatternResult struct {
	Name    string
	Matched bool
	Bytes   int
	ParseOK bool
	Error   string
	Items   int
}

// Report is everything the probe learned about one URL.
type Report struct {
	URL         string
	Kind        resolver.LinkKind
	Envelope    *resolver.ShareEnvelope
	EnvelopeErr string
	LandingURL  string

	StatusCode  int
	FinalURL    string
	ContentType string
	Title       string
	Length      int
	Preview     string

	Patterns []PatternResult
	Items    []models.CartItem
	Strategy string

	// HTML is the fetched page body, kept for --save, --readable and
	// --markdown.
	HTML string
}

// Inspect fetches rawURL once and analyses the page. Share links are
// classified and their envelope parsed from the same page, but the landing
// URL is only reported, not fetched.
func Inspect(ctx context.Context, eng engine.Engine, cfg *config.Config, rawURL string) (*Report, error) {
	page, err := eng.Fetch(ctx, &engine.FetchRequest{URL: rawURL, UserAgent: cfg.Fetch.UserAgent})
	if err != nil {
		return nil, fmt.Errorf("probe: fetch: %w", err)
	}

	r := &Report{
		URL:         rawURL,
		Kind:        resolver.Classify(rawURL, cfg.Source),
		StatusCode:  page.StatusCode,
		FinalURL:    page.FinalURL,
		ContentType: page.ContentType,
		Title:       page.Title,
		Length:      len(page.HTML),
		Preview:     preview(page.HTML, previewLen),
		HTML:        page.HTML,
	}

	if env, err := resolver.ParseShareEnvelope(page.HTML); err == nil {
		r.Envelope = &env
		r.LandingURL = resolver.LandingURL(cfg.Source.LandingBase, env)
	} else {
		r.EnvelopeErr = err.Error()
	}

	r.Patterns = scanPatterns(page.HTML)
	r.Items, r.Strategy = extract.New(cfg.Extract.HTMLFallback).Extract(page.HTML, page.State)
	return r, nil
}

func scanPatterns(html string) []PatternResult {
	out := make([]PatternResult, 0, len(extract.ProbePatterns))
	for _, p := range extract.ProbePatterns {
		res := PatternResult{Name: p.Name}
		if m := p.Re.FindStringSubmatch(html); m != nil {
			res.Matched = true
			res.Bytes = len(m[1])
			if root, err := extract.Parse([]byte(m[1])); err != nil {
				res.Error = err.Error()
			} else {
				res.ParseOK = true
				res.Items = len(extract.SearchCart(root))
			}
		}
		out = append(out, res)
	}
	return out
}

// preview returns at most n runes of s with whitespace runs collapsed.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// Write prints a human-readable report.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "URL:          %s\n", r.URL)
	fmt.Fprintf(w, "Link kind:    %s\n", r.Kind)
	fmt.Fprintf(w, "Status:       %d\n", r.StatusCode)
	fmt.Fprintf(w, "Final URL:    %s\n", r.FinalURL)
	fmt.Fprintf(w, "Content-Type: %s\n", r.ContentType)
	fmt.Fprintf(w, "Title:        %s\n", r.Title)
	fmt.Fprintf(w, "Length:       %d bytes\n", r.Length)

	fmt.Fprintln(w, "\nShare envelope:")
	if r.Envelope != nil {
		fmt.Fprintf(w, "  id=%s country=%q\n  landing: %s\n", r.Envelope.ID, r.Envelope.Country, r.LandingURL)
	} else {
		fmt.Fprintf(w, "  none (%s)\n", r.EnvelopeErr)
	}

	fmt.Fprintln(w, "\nState patterns:")
	for _, p := range r.Patterns {
		switch {
		case !p.Matched:
			fmt.Fprintf(w, "  %-26s no match\n", p.Name)
		case !p.ParseOK:
			fmt.Fprintf(w, "  %-26s matched %d bytes, parse failed: %s\n", p.Name, p.Bytes, p.Error)
		default:
			fmt.Fprintf(w, "  %-26s matched %d bytes, %d items\n", p.Name, p.Bytes, p.Items)
		}
	}

	fmt.Fprintf(w, "\nExtracted %d items", len(r.Items))
	if r.Strategy != "" {
		fmt.Fprintf(w, " (strategy %s)", r.Strategy)
	}
	fmt.Fprintln(w, ":")
	for i, it := range r.Items {
		fmt.Fprintf(w, "  %d. %s", i+1, it.Name)
		if it.Price != "" {
			fmt.Fprintf(w, " | %s", it.Price)
		}
		if it.Quantity != "" {
			fmt.Fprintf(w, " | x%s", it.Quantity)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nPreview:\n%s\n", r.Preview)
}
