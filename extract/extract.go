// Package extract turns a fetched cart page into cart items.
//
// Extraction is layered: embedded app state first (structured, reliable when
// present), then markup scraping as a lower-confidence fallback.
package extract

import (
	"github.com/use-agent/cartlink/config"
	"github.com/use-agent/cartlink/models"
)

// Strategy names reported alongside extracted items.
const (
	StrategyState = "state"
	StrategyHTML  = "html"
	StrategyDOM   = "dom"
)

// Extractor runs the extraction layers in order. It holds no per-request
// state and is safe for concurrent use.
type Extractor struct {
	fallback string
}

// New creates an Extractor. fallback is config.FallbackRegex or
// config.FallbackDOM; anything else behaves as regex.
func New(fallback string) *Extractor {
	return &Extractor{fallback: fallback}
}

// Extract returns the items found in a page and the strategy that found
// them. state is the browser-evaluated app state, or "" for plain fetches.
// The returned slice is empty, never nil, when nothing was found.
func (e *Extractor) Extract(html, state string) ([]models.CartItem, string) {
	if items := FromStateJSON(state); len(items) > 0 {
		return items, StrategyState
	}
	if items := FromState(html); len(items) > 0 {
		return items, StrategyState
	}

	if e.fallback == config.FallbackDOM {
		if items := FromDOM(html); len(items) > 0 {
			return items, StrategyDOM
		}
		return []models.CartItem{}, ""
	}

	if items := FromHTML(html); len(items) > 0 {
		return items, StrategyHTML
	}
	return []models.CartItem{}, ""
}
