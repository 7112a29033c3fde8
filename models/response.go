package models

// Response messages produced by the assembler.
const (
	MessageScraped = "Successfully scraped cart"
	MessageNoItems = "No items found"
)

// CartItem is one purchasable line item extracted from a cart page.
//
// Name is always set. Color and Size are never filled at extraction time;
// the client sets them during size selection.
type CartItem struct {
	Name     string `json:"name"`
	Price    string `json:"price,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	Image    string `json:"image,omitempty"`
	SKU      string `json:"sku,omitempty"`
	Color    string `json:"color,omitempty"`
	Size     string `json:"size,omitempty"`
}

// ScrapeResult is the response for POST /scrape-cart.
//
// Success is true iff Items is non-empty and TotalItems always equals
// len(Items). Use NewScrapeResult or FailedResult to keep both in step.
type ScrapeResult struct {
	Success    bool       `json:"success"`
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	Message    string     `json:"message,omitempty"`

	// ResolvedURL is the URL actually fetched after share-link resolution.
	ResolvedURL string `json:"resolved_url,omitempty"`

	// Strategy names the extractor that produced Items
	// ("state", "html" or "dom"). Empty when nothing was found.
	Strategy string `json:"strategy,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing *TimingInfo `json:"timing,omitempty"`
}

// NewScrapeResult assembles the result of a completed pipeline run.
func NewScrapeResult(items []CartItem) *ScrapeResult {
	if items == nil {
		items = []CartItem{}
	}
	msg := MessageNoItems
	if len(items) > 0 {
		msg = MessageScraped
	}
	return &ScrapeResult{
		Success:    len(items) > 0,
		Items:      items,
		TotalItems: len(items),
		Message:    msg,
	}
}

// FailedResult builds the body for a request that never reached the
// assembler (validation or fetch failure).
func FailedResult(message string) *ScrapeResult {
	return &ScrapeResult{
		Success:    false,
		Items:      []CartItem{},
		TotalItems: 0,
		Message:    message,
	}
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// ResolveMs is the time spent resolving a share link.
	ResolveMs int64 `json:"resolve_ms"`

	// FetchMs is the time spent fetching the cart page.
	FetchMs int64 `json:"fetch_ms"`

	// ExtractMs is the time spent extracting items.
	ExtractMs int64 `json:"extract_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string     `json:"status"` // "healthy" or "degraded"
	Uptime    string     `json:"uptime"`
	Engine    string     `json:"engine"`
	PoolStats *PoolStats `json:"pool_stats,omitempty"`
	Version   string     `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
