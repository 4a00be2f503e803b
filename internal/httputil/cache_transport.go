package httputil

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheEntries = 256

// CacheTransport is an http.RoundTripper that keeps successful GET responses in an LRU cache keyed by URL.
// Responses marked no-store are never cached; max-age bounds how long an entry is served.
type CacheTransport struct {
	base     http.RoundTripper
	cache    *lru.Cache[string, *cachedResponse]
	onLookup func(key string, hit bool)
	now      func() time.Time
}

type CacheOption func(*CacheTransport)

// WithLookupHook registers fn to be called on every request with the cache key and whether it hit.
func WithLookupHook(fn func(key string, hit bool)) CacheOption {
	return func(t *CacheTransport) {
		t.onLookup = fn
	}
}

// NewCacheTransport wraps base (http.DefaultTransport when nil) with a cache of at most maxEntries responses.
func NewCacheTransport(base http.RoundTripper, maxEntries int, opts ...CacheOption) *CacheTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, *cachedResponse](maxEntries)
	t := &CacheTransport{
		base:  base,
		cache: cache,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type cachedResponse struct {
	status  int
	header  http.Header
	body    []byte
	expires time.Time
}

func (t *CacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || bypassCache(req.Header) {
		return t.base.RoundTrip(req)
	}

	key := req.URL.String()
	if entry, ok := t.cache.Get(key); ok {
		if entry.expires.IsZero() || t.now().Before(entry.expires) {
			t.lookup(key, true)
			return entry.response(req), nil
		}
		t.cache.Remove(key)
	}
	t.lookup(key, false)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}
	noStore, maxAge := parseCacheControl(resp.Header.Values("Cache-Control"))
	if noStore {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	entry := &cachedResponse{
		status: resp.StatusCode,
		header: resp.Header.Clone(),
		body:   body,
	}
	if maxAge > 0 {
		entry.expires = t.now().Add(maxAge)
	}
	t.cache.Add(key, entry)

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

// Len reports the number of cached responses.
func (t *CacheTransport) Len() int {
	return t.cache.Len()
}

func (t *CacheTransport) lookup(key string, hit bool) {
	if t.onLookup != nil {
		t.onLookup(key, hit)
	}
}

func (c *cachedResponse) response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        strconv.Itoa(c.status) + " " + http.StatusText(c.status),
		StatusCode:    c.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        c.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(c.body)),
		ContentLength: int64(len(c.body)),
		Request:       req,
	}
}

func bypassCache(header http.Header) bool {
	for _, directive := range cacheDirectives(header.Values("Cache-Control")) {
		if directive == "no-cache" || directive == "max-age=0" {
			return true
		}
	}
	return false
}

func parseCacheControl(values []string) (noStore bool, maxAge time.Duration) {
	for _, directive := range cacheDirectives(values) {
		switch {
		case directive == "no-store", directive == "no-cache":
			noStore = true
		case strings.HasPrefix(directive, "max-age="), strings.HasPrefix(directive, "s-maxage="):
			_, val, _ := strings.Cut(directive, "=")
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				maxAge = time.Duration(n) * time.Second
			}
		}
	}
	return noStore, maxAge
}

func cacheDirectives(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
