package links

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	ErrInvalidURL   ErrorKind = "invalid_url"
	ErrNotFound     ErrorKind = "not_found"
	ErrAccessDenied ErrorKind = "access_denied"
	ErrRateLimited  ErrorKind = "rate_limited"
	ErrNetwork      ErrorKind = "network_error"
	ErrTimeout      ErrorKind = "timeout"
)

// FetchError describes a failed fetch.
type FetchError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Retryable  bool
}

func (e *FetchError) Error() string {
	return e.Message
}

// FetcherConfig configures the HTTP fetcher.
type FetcherConfig struct {
	UserAgent         string
	Timeout           time.Duration
	MaxBytes          int64
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// DefaultFetcherConfig returns default fetcher configuration.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		UserAgent:         "AutopilotBot/1.0 (+link discovery)",
		Timeout:           20 * time.Second,
		MaxBytes:          10 << 20,
		RequestsPerSecond: 2,
		CacheTTL:          time.Hour,
	}
}

// Fetcher performs rate-limited, size-capped GET requests with a small
// in-memory cache.
type Fetcher struct {
	client    *http.Client
	limiter   *RateLimiter
	userAgent string
	maxBytes  int64
	ttl       time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	body    []byte
	expires time.Time
}

// NewFetcher creates a fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	def := DefaultFetcherConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		limiter:   NewRateLimiter(cfg.RequestsPerSecond),
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		ttl:       cfg.CacheTTL,
		cache:     make(map[string]cacheEntry),
	}
}

// Get fetches rawURL and returns its body.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &FetchError{Kind: ErrInvalidURL, Message: fmt.Sprintf("invalid URL: %s", rawURL)}
	}

	if body, ok := f.cached(rawURL); ok {
		return body, nil
	}

	if err := f.limiter.WaitForURL(ctx, rawURL); err != nil {
		return nil, &FetchError{Kind: ErrTimeout, Message: "rate limit wait cancelled", Retryable: true}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: ErrNetwork, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/xml,text/xml,application/rss+xml,application/atom+xml,text/html;q=0.8,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &FetchError{Kind: ErrTimeout, Message: "request cancelled or timed out", Retryable: true}
		}
		return nil, &FetchError{Kind: ErrNetwork, Message: fmt.Sprintf("network error: %v", err), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, &FetchError{Kind: ErrNetwork, Message: fmt.Sprintf("failed to read response: %v", err), Retryable: true}
	}

	f.store(rawURL, body)
	return body, nil
}

func statusError(code int, rawURL string) *FetchError {
	switch {
	case code == http.StatusNotFound:
		return &FetchError{Kind: ErrNotFound, Message: fmt.Sprintf("not found: %s", rawURL), StatusCode: code}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &FetchError{Kind: ErrAccessDenied, Message: fmt.Sprintf("access denied: %s", rawURL), StatusCode: code}
	case code == http.StatusTooManyRequests:
		return &FetchError{Kind: ErrRateLimited, Message: fmt.Sprintf("rate limited: %s", rawURL), StatusCode: code, Retryable: true}
	case code >= 500:
		return &FetchError{Kind: ErrNetwork, Message: fmt.Sprintf("server error (%d): %s", code, rawURL), StatusCode: code, Retryable: true}
	default:
		return &FetchError{Kind: ErrNetwork, Message: fmt.Sprintf("HTTP error %d: %s", code, rawURL), StatusCode: code}
	}
}

func (f *Fetcher) cached(key string) ([]byte, bool) {
	if f.ttl <= 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.cache[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(f.cache, key)
		return nil, false
	}
	return e.body, true
}

func (f *Fetcher) store(key string, body []byte) {
	if f.ttl <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache[key] = cacheEntry{body: body, expires: time.Now().Add(f.ttl)}
}
