package scraper

import (
	"context"
	"slices"
	"time"

	"github.com/drewfead/eiga-watcher/internal"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached returns middleware that wraps a Scraper with LRU+TTL caching of listing results:
//
//	scraper.NewRegistry(scraper.WithScraperForSite(internal.SiteEigaCom, scraper.EigaCom(), scraper.Cached(16, 5*time.Minute)))
//
// maxEntries is the LRU size; ttl is how long entries stay valid (zero = no expiration).
// Failed scrapes are not cached.
func Cached(maxEntries int, ttl time.Duration) ScraperMiddleware {
	return func(inner internal.Scraper) internal.Scraper {
		if inner == nil {
			return nil
		}
		if maxEntries <= 0 {
			maxEntries = 16
		}
		return &cachingScraper{
			inner: inner,
			cache: expirable.NewLRU[string, []internal.MovieRecord](maxEntries, nil, ttl),
		}
	}
}

type cachingScraper struct {
	inner internal.Scraper
	cache *expirable.LRU[string, []internal.MovieRecord]
}

func cacheKey(descriptor string, req internal.ListMoviesRequest) string {
	return descriptor + "|" + string(req.Section) + "|" + req.Keyword
}

func (c *cachingScraper) Descriptor() string {
	return c.inner.Descriptor()
}

// ScrapeMovies returns a copy of the cached listing so callers may enrich records in place.
func (c *cachingScraper) ScrapeMovies(ctx context.Context, req internal.ListMoviesRequest) ([]internal.MovieRecord, error) {
	key := cacheKey(c.inner.Descriptor(), req)
	if movies, ok := c.cache.Get(key); ok {
		return slices.Clone(movies), nil
	}
	movies, err := c.inner.ScrapeMovies(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, slices.Clone(movies))
	return movies, nil
}
