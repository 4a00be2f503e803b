package scraper

import (
	"context"
	"log/slog"

	"github.com/drewfead/eiga-watcher/internal"
)

type noneScraper struct{}

func (s *noneScraper) Descriptor() string {
	return string(internal.SiteNone)
}

func (s *noneScraper) ScrapeMovies(_ context.Context, req internal.ListMoviesRequest) ([]internal.MovieRecord, error) {
	slog.Debug("scrape-movies", "descriptor", s.Descriptor(), "request", req)
	return []internal.MovieRecord{}, nil
}

// None lists nothing. It stands in for a site during dry runs.
func None() internal.Scraper {
	return &noneScraper{}
}
