package enrichment

import (
	"context"
	"log/slog"
	"time"

	"github.com/drewfead/eiga-watcher/internal"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of movies enriched at once by EnrichAll.
const DefaultConcurrency = 4

func Enrich(ctx context.Context, movie internal.MovieRecord, providers ...internal.EnrichmentProvider) internal.EnrichedMovie {
	enriched := internal.EnrichedMovie{
		Movie:  movie,
		Audits: make([]internal.EnrichmentAudit, 0, len(providers)),
	}
	for _, provider := range providers {
		var err error
		enriched, err = provider.Enrich(ctx, enriched)
		if err != nil {
			enriched.Audits = append(enriched.Audits, internal.EnrichmentAudit{
				Result:      internal.EnrichmentResultFailure,
				Details:     err.Error(),
				At:          time.Now(),
				Annotations: nil,
			})
		}
	}
	for i, audit := range enriched.Audits {
		slog.Debug("enrichment audit",
			"movie_id", movie.ID,
			"title", movie.Title,
			"provider_index", i,
			"result", audit.Result,
			"details", audit.Details,
			"annotations", audit.Annotations,
		)
	}
	return enriched
}

// EnrichAll runs the provider chain over movies with at most concurrency chains in flight.
// The result is in the same order as movies; a provider failure only affects its own movie.
func EnrichAll(ctx context.Context, movies []internal.MovieRecord, concurrency int, providers ...internal.EnrichmentProvider) []internal.EnrichedMovie {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]internal.EnrichedMovie, len(movies))
	if len(providers) == 0 {
		for i, m := range movies {
			results[i] = internal.EnrichedMovie{Movie: m, Audits: []internal.EnrichmentAudit{}}
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, m := range movies {
		g.Go(func() error {
			results[i] = Enrich(ctx, m, providers...)
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	for _, r := range results {
		for _, a := range r.Audits {
			if a.Result == internal.EnrichmentResultFailure {
				failed++
				break
			}
		}
	}
	slog.Debug("enrichment finished", "movies", len(movies), "failed", failed, "concurrency", concurrency)
	return results
}

// Movies unwraps the enriched records, keeping their order.
func Movies(enriched []internal.EnrichedMovie) []internal.MovieRecord {
	out := make([]internal.MovieRecord, len(enriched))
	for i, e := range enriched {
		out[i] = e.Movie
	}
	return out
}
