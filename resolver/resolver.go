// Package resolver turns share links into the canonical cart landing URL.
//
// Resolution is best-effort: whatever goes wrong, the caller gets the URL it
// passed in and the pipeline carries on with it.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/use-agent/cartlink/config"
	"github.com/use-agent/cartlink/engine"
	"github.com/use-agent/cartlink/extract"
)

// LinkKind classifies a user-supplied cart URL.
type LinkKind int

const (
	// LinkDirect is fetched as-is.
	LinkDirect LinkKind = iota
	// LinkShare is resolved to a landing URL first.
	LinkShare
)

func (k LinkKind) String() string {
	if k == LinkShare {
		return "share"
	}
	return "direct"
}

// ShareEnvelope is the data embedded in a share page's inline script.
type ShareEnvelope struct {
	ID      string
	Country string
}

var reShareInfo = regexp.MustCompile(`var\s+shareInfo\s*=\s*(\{[^;]+\});`)

var (
	errNoEnvelope = errors.New("resolver: shareInfo not found")
	errNoShareID  = errors.New("resolver: shareInfo has no identifier")
)

// Classify reports whether rawURL is a share link for the configured source.
// The canonical landing URL carries a share marker too but is never resolved
// again.
func Classify(rawURL string, src config.SourceConfig) LinkKind {
	if src.LandingMarker != "" && strings.Contains(rawURL, src.LandingMarker) {
		return LinkDirect
	}
	for _, marker := range src.ShareMarkers {
		if marker != "" && strings.Contains(rawURL, marker) {
			return LinkShare
		}
	}
	return LinkDirect
}

// ParseShareEnvelope extracts the shareInfo object from a share page. The
// identifier is the first truthy of shareId and id; the country defaults to
// "".
func ParseShareEnvelope(html string) (ShareEnvelope, error) {
	m := reShareInfo.FindStringSubmatch(html)
	if m == nil {
		return ShareEnvelope{}, errNoEnvelope
	}
	info, err := extract.Parse([]byte(m[1]))
	if err != nil {
		return ShareEnvelope{}, fmt.Errorf("resolver: parse shareInfo: %w", err)
	}
	if info.Kind != extract.KindObject {
		return ShareEnvelope{}, errNoShareID
	}

	id, ok := extract.FirstPresent(info, "shareId", "id")
	if !ok {
		return ShareEnvelope{}, errNoShareID
	}
	country, _ := extract.FirstPresent(info, "localcountry")
	return ShareEnvelope{ID: id, Country: country}, nil
}

// LandingURL builds the canonical landing URL under base. Query parameters
// keep the fixed order group_id, local_country, cart_share. An empty country
// leaves an empty path segment.
func LandingURL(base string, env ShareEnvelope) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	b.WriteByte('/')
	b.WriteString(strings.ToLower(env.Country))
	b.WriteString("/cart/share/landing?group_id=")
	b.WriteString(url.QueryEscape(env.ID))
	b.WriteString("&local_country=")
	b.WriteString(url.QueryEscape(env.Country))
	b.WriteString("&cart_share=1")
	return b.String()
}

// Resolver fetches share pages through an engine.
type Resolver struct {
	eng       engine.Engine
	src       config.SourceConfig
	userAgent string
}

// New creates a Resolver.
func New(eng engine.Engine, src config.SourceConfig, userAgent string) *Resolver {
	return &Resolver{eng: eng, src: src, userAgent: userAgent}
}

// Resolve returns the landing URL for a share link and true, or rawURL
// unchanged and false when rawURL is not a share link or resolution fails.
// Failures are logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, bool) {
	if Classify(rawURL, r.src) != LinkShare {
		return rawURL, false
	}

	env, err := r.fetchEnvelope(ctx, rawURL)
	if err != nil {
		slog.Warn("share link resolution failed, using original url",
			"url", rawURL,
			"error", err,
		)
		return rawURL, false
	}

	landing := LandingURL(r.src.LandingBase, env)
	slog.Debug("share link resolved", "url", rawURL, "landing", landing)
	return landing, true
}

// fetchEnvelope fetches the share page. Its status code is ignored: share
// pages that answer with an error status still get scanned.
func (r *Resolver) fetchEnvelope(ctx context.Context, rawURL string) (ShareEnvelope, error) {
	page, err := r.eng.Fetch(ctx, &engine.FetchRequest{URL: rawURL, UserAgent: r.userAgent})
	if err != nil {
		return ShareEnvelope{}, fmt.Errorf("resolver: fetch share page: %w", err)
	}
	return ParseShareEnvelope(page.HTML)
}
