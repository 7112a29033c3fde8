package engine

import "context"

// Engine is the interface every page fetcher implements. The pipeline uses
// exactly one engine per process; there is no racing or escalation.
type Engine interface {
	// Name returns the engine identifier ("http" or "browser").
	Name() string

	// Fetch performs a single GET of the request URL. A non-2xx status is
	// not an error at this layer: the page is returned and the caller
	// decides (share resolution ignores it, the cart fetch rejects it).
	Fetch(ctx context.Context, req *FetchRequest) (*Page, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL       string
	UserAgent string
	Headers   map[string]string
}

// Page is the raw result of a fetch.
type Page struct {
	HTML        string
	Title       string
	StatusCode  int
	FinalURL    string
	ContentType string

	// State is the JSON serialisation of the page's injected global state,
	// evaluated in the page. Only the browser engine fills it.
	State string

	EngineName string
}

// OK reports whether the fetch succeeded. A zero status means the engine
// could not observe it (browser navigation timing) and counts as success.
func (p *Page) OK() bool {
	return p.StatusCode == 0 || (p.StatusCode >= 200 && p.StatusCode < 300)
}

// AcceptHTML is the Accept header sent with every page fetch.
const AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
