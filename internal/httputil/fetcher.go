package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/drewfead/eiga-watcher/internal"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	DefaultTimeout   = 30 * time.Second
	// DefaultRateLimit is requests per second across all fetches.
	DefaultRateLimit = 2.0
)

var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

var _ internal.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves HTML over HTTP with a fixed identity, a shared rate limit and retries.
// Bodies are decoded to UTF-8 from the charset declared by the response or document.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	timeout      time.Duration
	limiter      *rate.Limiter
	retryDelays  []time.Duration
	cacheEntries int
}

type FetcherOption func(*Fetcher)

// WithClient sets the underlying HTTP client (e.g. httptest.Server.Client() in tests).
func WithClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

func WithUserAgent(userAgent string) FetcherOption {
	return func(f *Fetcher) {
		if userAgent != "" {
			f.userAgent = userAgent
		}
	}
}

// WithTimeout bounds each request attempt.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRateLimit sets the sustained requests per second. Zero or less disables limiting.
func WithRateLimit(rps float64) FetcherOption {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetryDelays sets the wait before each retry; the number of delays is the number of retries.
func WithRetryDelays(delays ...time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.retryDelays = delays
	}
}

// WithResponseCache caches up to maxEntries successful responses. Zero or less disables the cache.
func WithResponseCache(maxEntries int) FetcherOption {
	return func(f *Fetcher) {
		f.cacheEntries = maxEntries
	}
}

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:       &http.Client{},
		userAgent:    DefaultUserAgent,
		timeout:      DefaultTimeout,
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		retryDelays:  DefaultRetryDelays(),
		cacheEntries: defaultCacheEntries,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cacheEntries > 0 {
		client := *f.client
		client.Transport = NewCacheTransport(client.Transport, f.cacheEntries, WithLookupHook(func(key string, hit bool) {
			if hit {
				slog.Debug("fetch cache hit", "url", key)
			}
		}))
		f.client = &client
	}
	return f
}

// Fetch returns the page body as UTF-8 text. Transport errors, 429 and 5xx responses are retried;
// other non-2xx responses fail immediately with a *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= len(f.retryDelays); attempt++ {
		if attempt > 0 {
			slog.Debug("retrying fetch", "url", url, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(f.retryDelays[attempt-1]):
			}
		}

		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			break
		}
	}
	return "", lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "ja,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("detect charset of %s: %w", url, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(body), nil
}
