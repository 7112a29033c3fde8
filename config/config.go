package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Fetch engine names accepted by CARTLINK_FETCH_ENGINE.
const (
	EngineHTTP    = "http"
	EngineBrowser = "browser"
)

// HTML fallback modes accepted by CARTLINK_HTML_FALLBACK.
const (
	FallbackRegex = "regex"
	FallbackDOM   = "dom"
)

// DefaultUserAgent is the mobile Safari UA sent with every fetch. It biases
// the origin toward server-rendered mobile markup.
const DefaultUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Source    SourceConfig
	Fetch     FetchConfig
	Extract   ExtractConfig
	Browser   BrowserConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// SourceConfig describes the one e-commerce site the pipeline understands.
type SourceConfig struct {
	// Domain is the substring every accepted URL must contain.
	Domain string // default: "shein.com"

	// SiteLabel is used in the validation failure message.
	SiteLabel string // default: "Shein"

	// ShareMarkers are substrings identifying share / mobile-API links.
	// default: ["sharejump", "api-shein.shein.com", "/cart/share/"]
	ShareMarkers []string

	// LandingMarker identifies an already-canonical landing URL, which is
	// never resolved again even though it matches a share marker.
	LandingMarker string // default: "/cart/share/landing"

	// LandingBase is the scheme+host of the canonical landing URL.
	LandingBase string // default: "https://m.shein.com"
}

// FetchConfig controls outbound page fetches.
type FetchConfig struct {
	// Engine selects the fetch engine: "http" or "browser".
	Engine string // default: "http"

	// Timeout bounds a whole pipeline run (both fetches).
	Timeout time.Duration // default: 20s

	// UserAgent overrides the mobile Safari UA.
	UserAgent string

	// Proxy is an optional http(s) proxy URL for the HTTP engine.
	Proxy string
}

// ExtractConfig controls item extraction.
type ExtractConfig struct {
	// HTMLFallback selects the fallback used when no embedded state yields
	// items: "regex" (positional pairing) or "dom" (card containers).
	HTMLFallback string // default: "regex"
}

// BrowserConfig controls the Rod browser instance used by the browser engine.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 4

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per identity.
	Burst int // default: 5
}

// CacheConfig controls the scrape response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 500
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("CARTLINK_HOST", "0.0.0.0"),
			Port: envIntOr("CARTLINK_PORT", 8080),
			Mode: envOr("CARTLINK_MODE", "release"),
		},
		Source: SourceConfig{
			Domain:    envOr("CARTLINK_SOURCE_DOMAIN", "shein.com"),
			SiteLabel: envOr("CARTLINK_SITE_LABEL", "Shein"),
			ShareMarkers: envSliceOr("CARTLINK_SHARE_MARKERS", []string{
				"sharejump", "api-shein.shein.com", "/cart/share/",
			}),
			LandingMarker: envOr("CARTLINK_LANDING_MARKER", "/cart/share/landing"),
			LandingBase:   strings.TrimSuffix(envOr("CARTLINK_LANDING_BASE", "https://m.shein.com"), "/"),
		},
		Fetch: FetchConfig{
			Engine:    envOr("CARTLINK_FETCH_ENGINE", EngineHTTP),
			Timeout:   envDurationOr("CARTLINK_FETCH_TIMEOUT", 20*time.Second),
			UserAgent: envOr("CARTLINK_USER_AGENT", DefaultUserAgent),
			Proxy:     os.Getenv("CARTLINK_PROXY"),
		},
		Extract: ExtractConfig{
			HTMLFallback: envOr("CARTLINK_HTML_FALLBACK", FallbackRegex),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("CARTLINK_HEADLESS", true),
			MaxPages:   envIntOr("CARTLINK_MAX_PAGES", 4),
			NoSandbox:  envBoolOr("CARTLINK_NO_SANDBOX", false),
			BrowserBin: os.Getenv("CARTLINK_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("CARTLINK_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("CARTLINK_AUTH_ENABLED", false),
			APIKeys: envSliceOr("CARTLINK_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("CARTLINK_RATE_RPS", 2.0),
			Burst:             envIntOr("CARTLINK_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("CARTLINK_CACHE_MAX_ENTRIES", 500),
		},
		Log: LogConfig{
			Level:  envOr("CARTLINK_LOG_LEVEL", "info"),
			Format: envOr("CARTLINK_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
