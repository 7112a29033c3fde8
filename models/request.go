package models

// ScrapeRequest is the payload for POST /scrape-cart.
type ScrapeRequest struct {
	// URL is the shared cart link pasted by the user. Validation against the
	// source domain happens in the pipeline, not in binding, so that an empty
	// or foreign URL gets the contract's 400 body rather than a bind error.
	URL string `json:"url"`

	// MaxAge enables the response cache for this request: a cached result
	// younger than MaxAge milliseconds is returned without fetching.
	// Zero or negative disables caching.
	MaxAge int `json:"max_age,omitempty"`
}
