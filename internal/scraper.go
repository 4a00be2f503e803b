package internal

import (
	"context"
	"net/http"
)

type Scraper interface {
	// Descriptor returns the site descriptor (e.g. for cache keys and registry lookup).
	Descriptor() string
	ScrapeMovies(ctx context.Context, req ListMoviesRequest) ([]MovieRecord, error)
}

// GoldenScraper extends Scraper with the ability to pull and write golden test data.
type GoldenScraper interface {
	Scraper
	PullGolden(ctx context.Context, goldenDir string) error
	MountGolden(ctx context.Context, goldenDir string) (http.Handler, error)
}

// Fetcher retrieves the decoded HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// SnapshotStore persists the snapshot of the previous run. Load returns nil, nil when no snapshot exists.
type SnapshotStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}

type Notifier interface {
	Notify(ctx context.Context, report WeeklyReport) error
}
