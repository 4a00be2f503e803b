package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/drewfead/eiga-watcher/internal"
	"github.com/drewfead/eiga-watcher/internal/diff"
	"github.com/drewfead/eiga-watcher/internal/enrichment"
	"github.com/drewfead/eiga-watcher/internal/window"
)

const (
	DefaultWindowDays  = 7
	DefaultConcurrency = enrichment.DefaultConcurrency
)

// ErrNoListingData is returned by Weekly when no listing page could be fetched.
var ErrNoListingData = errors.New("no listing data")

// Watcher runs the listing pipeline: scrape, filter by release window, enrich, diff against the
// previous snapshot, persist and notify.
type Watcher struct {
	scraper     internal.Scraper
	enrichment  []internal.EnrichmentProvider
	store       internal.SnapshotStore
	notifiers   []internal.Notifier
	now         func() time.Time
	windowDays  int
	concurrency int
}

type WatcherOption func(*Watcher)

// WithEnrichment sets the providers run over upcoming releases, in order.
func WithEnrichment(providers ...internal.EnrichmentProvider) WatcherOption {
	return func(w *Watcher) {
		w.enrichment = append(w.enrichment, providers...)
	}
}

// WithSnapshotStore sets where Weekly keeps its baseline. Without one, every run starts from an empty baseline.
func WithSnapshotStore(store internal.SnapshotStore) WatcherOption {
	return func(w *Watcher) {
		w.store = store
	}
}

func WithNotifiers(notifiers ...internal.Notifier) WatcherOption {
	return func(w *Watcher) {
		w.notifiers = append(w.notifiers, notifiers...)
	}
}

func WithClock(now func() time.Time) WatcherOption {
	return func(w *Watcher) {
		w.now = now
	}
}

func WithWindowDays(days int) WatcherOption {
	return func(w *Watcher) {
		w.windowDays = days
	}
}

func WithConcurrency(n int) WatcherOption {
	return func(w *Watcher) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

func NewWatcher(scraper internal.Scraper, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		scraper:     scraper,
		now:         time.Now,
		windowDays:  DefaultWindowDays,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) listing(ctx context.Context, req internal.ListMoviesRequest) ([]internal.MovieRecord, error) {
	movies, err := w.scraper.ScrapeMovies(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s from %s: %w", req.Section, w.scraper.Descriptor(), err)
	}
	slog.Debug("scraped listing", "site", w.scraper.Descriptor(), "section", req.Section, "count", len(movies))
	return movies, nil
}

func (w *Watcher) ThisWeek(ctx context.Context) ([]internal.MovieRecord, error) {
	return w.listing(ctx, internal.ListMoviesRequest{Section: internal.SectionThisWeek})
}

func (w *Watcher) NowShowing(ctx context.Context) ([]internal.MovieRecord, error) {
	return w.listing(ctx, internal.ListMoviesRequest{Section: internal.SectionNowShowing})
}

func (w *Watcher) ComingSoon(ctx context.Context) ([]internal.MovieRecord, error) {
	return w.listing(ctx, internal.ListMoviesRequest{Section: internal.SectionComingSoon})
}

func (w *Watcher) Search(ctx context.Context, keyword string) ([]internal.MovieRecord, error) {
	return w.listing(ctx, internal.ListMoviesRequest{Section: internal.SectionSearch, Keyword: strings.TrimSpace(keyword)})
}

// PastWeek returns now-showing movies released within the window before today.
func (w *Watcher) PastWeek(ctx context.Context) ([]internal.MovieRecord, error) {
	movies, err := w.NowShowing(ctx)
	if err != nil {
		return nil, err
	}
	return window.Within(movies, w.now(), window.Past, w.windowDays)
}

// NextWeek returns coming-soon movies releasing within the window after today, enriched.
func (w *Watcher) NextWeek(ctx context.Context) ([]internal.MovieRecord, error) {
	movies, err := w.ComingSoon(ctx)
	if err != nil {
		return nil, err
	}
	return w.upcoming(ctx, movies, w.now())
}

func (w *Watcher) upcoming(ctx context.Context, movies []internal.MovieRecord, now time.Time) ([]internal.MovieRecord, error) {
	within, err := window.Within(movies, now, window.Future, w.windowDays)
	if err != nil {
		return nil, err
	}
	return enrichment.Movies(enrichment.EnrichAll(ctx, within, w.concurrency, w.enrichment...)), nil
}

// Weekly collects the past and next week, reports titles not seen in the previous run, saves the
// combined list as the next baseline and notifies. A listing that cannot be fetched counts as empty;
// only when both fail does Weekly return ErrNoListingData.
func (w *Watcher) Weekly(ctx context.Context) (internal.WeeklyReport, error) {
	now := w.now()

	nowShowing, pastErr := w.NowShowing(ctx)
	if pastErr != nil {
		slog.Warn("now-showing listing unavailable, treating as empty", "error", pastErr)
	}
	comingSoon, nextErr := w.ComingSoon(ctx)
	if nextErr != nil {
		slog.Warn("coming-soon listing unavailable, treating as empty", "error", nextErr)
	}
	if pastErr != nil && nextErr != nil {
		return internal.WeeklyReport{}, fmt.Errorf("%w: %w", ErrNoListingData, errors.Join(pastErr, nextErr))
	}

	past, err := window.Within(nowShowing, now, window.Past, w.windowDays)
	if err != nil {
		return internal.WeeklyReport{}, err
	}
	next, err := w.upcoming(ctx, comingSoon, now)
	if err != nil {
		return internal.WeeklyReport{}, err
	}
	slog.Info("collected weekly listings", "past_week", len(past), "next_week", len(next))

	current := make([]internal.MovieRecord, 0, len(past)+len(next))
	current = append(current, past...)
	current = append(current, next...)

	previous := w.previous(ctx)
	added, titles := diff.DetectNew(current, previous)
	report := internal.WeeklyReport{
		GeneratedAt:   now,
		PastWeek:      past,
		NextWeek:      next,
		Current:       current,
		New:           added,
		NewTitles:     titles,
		PreviousCount: len(previous),
		Summary:       diff.FormatSummary(len(current), len(previous), len(added)),
	}
	slog.Info("detected new movies", "current", len(current), "previous", len(previous), "new", len(added))

	if w.store != nil {
		if err := w.store.Save(ctx, internal.NewSnapshot(current, now)); err != nil {
			return report, fmt.Errorf("failed to save snapshot: %w", err)
		}
	}

	for _, n := range w.notifiers {
		if err := n.Notify(ctx, report); err != nil {
			slog.Error("notification failed", "error", err)
		}
	}
	return report, nil
}

// previous loads the baseline. A missing or unreadable snapshot is an empty baseline.
func (w *Watcher) previous(ctx context.Context) []internal.MovieRecord {
	if w.store == nil {
		return []internal.MovieRecord{}
	}
	snapshot, err := w.store.Load(ctx)
	if err != nil {
		slog.Warn("could not load previous snapshot, starting from empty", "error", err)
		return []internal.MovieRecord{}
	}
	if snapshot == nil {
		return []internal.MovieRecord{}
	}
	slog.Debug("loaded previous snapshot", "count", len(snapshot.Movies), "updated_at", snapshot.UpdatedAt)
	return snapshot.Movies
}
