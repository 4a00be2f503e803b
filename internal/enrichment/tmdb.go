package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	tmdb "github.com/cyruzin/golang-tmdb"
	"github.com/drewfead/eiga-watcher/internal"
	"github.com/drewfead/eiga-watcher/internal/httputil"
	"golang.org/x/text/width"
)

const (
	defaultTMDBLanguage  = "ja-JP"
	tmdbCacheEntries     = 512
	tmdbMovieURLTemplate = "https://www.themoviedb.org/movie/%d"
)

type tmdbEnrichment struct {
	client   *tmdb.Client
	language string

	mu     sync.Mutex
	lookup map[string]bool
}

type TMDBOption func(*tmdbConfig)

type tmdbConfig struct {
	transport http.RoundTripper
	language  string
}

// TMDBWithTransport sets the transport under the response cache. Defaults to http.DefaultTransport.
func TMDBWithTransport(rt http.RoundTripper) TMDBOption {
	return func(c *tmdbConfig) {
		c.transport = rt
	}
}

// TMDBWithLanguage sets the language TMDB answers in. Defaults to ja-JP.
func TMDBWithLanguage(language string) TMDBOption {
	return func(c *tmdbConfig) {
		c.language = language
	}
}

// TMDB looks movies up by title on The Movie Database and fills in their overview and a TMDB link.
func TMDB(apiKey string, opts ...TMDBOption) (internal.EnrichmentProvider, error) {
	cfg := tmdbConfig{language: defaultTMDBLanguage}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := tmdb.InitV4(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TMDB client: %w", err)
	}
	e := &tmdbEnrichment{
		client:   client,
		language: cfg.language,
		lookup:   make(map[string]bool),
	}
	cache := httputil.NewCacheTransport(cfg.transport, tmdbCacheEntries, httputil.WithLookupHook(e.recordLookup))
	client.SetClientConfig(http.Client{Transport: cache})
	return e, nil
}

func (e *tmdbEnrichment) recordLookup(key string, hit bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lookup[key] = hit
}

// searchCacheHit reports whether the last search request for query was served from cache.
func (e *tmdbEnrichment) searchCacheHit(query string) bool {
	needle := "query=" + url.QueryEscape(query)
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, hit := range e.lookup {
		if strings.Contains(key, "search/movie") && strings.Contains(key, needle) {
			return hit
		}
	}
	return false
}

// titleEqual compares titles ignoring width, case and spacing.
func titleEqual(a, b string) bool {
	norm := func(s string) string {
		return strings.ToUpper(strings.Join(strings.Fields(width.Fold.String(s)), ""))
	}
	return norm(a) == norm(b)
}

func pickBestResult(results []tmdb.MovieResult, title string) *tmdb.MovieResult {
	if len(results) == 0 {
		return nil
	}
	for i := range results {
		if titleEqual(results[i].Title, title) {
			return &results[i]
		}
	}
	return &results[0]
}

func (e *tmdbEnrichment) Enrich(_ context.Context, movie internal.EnrichedMovie) (internal.EnrichedMovie, error) {
	annotations := make(map[string]any)

	title := movie.Movie.Title
	if title == "" {
		annotations["skipped"] = "no title"
		movie.Audits = append(movie.Audits, internal.EnrichmentAudit{
			Result:      internal.EnrichmentResultSuccess,
			At:          time.Now(),
			Annotations: annotations,
		})
		return movie, nil
	}

	searchResults, err := e.client.GetSearchMovies(title, map[string]string{
		"language": e.language,
	})
	if err != nil {
		return movie, fmt.Errorf("failed to search TMDB for %s: %w", title, err)
	}
	annotations["cache_search"] = map[string]any{"hit": e.searchCacheHit(title), "query": title}

	best := pickBestResult(searchResults.Results, title)
	if best == nil {
		annotations["matched"] = false
		movie.Audits = append(movie.Audits, internal.EnrichmentAudit{
			Result:      internal.EnrichmentResultPartialSuccess,
			Details:     "no TMDB match",
			At:          time.Now(),
			Annotations: annotations,
		})
		return movie, nil
	}

	annotations["matched"] = true
	annotations["tmdb_id"] = best.ID
	annotations["tmdb_title"] = best.Title
	if movie.Movie.Overview == "" {
		movie.Movie.Overview = best.Overview
	}
	movie.Movie.Links = append(movie.Movie.Links, internal.Link{
		Href:    fmt.Sprintf(tmdbMovieURLTemplate, best.ID),
		Display: "TMDB",
	})
	movie.Audits = append(movie.Audits, internal.EnrichmentAudit{
		Result:      internal.EnrichmentResultSuccess,
		At:          time.Now(),
		Annotations: annotations,
	})
	return movie, nil
}
