package enrichment

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/eiga-watcher/internal"
	"golang.org/x/text/width"
)

var (
	nationwideVenuePattern = regexp.MustCompile(`全国約?(\d+)館`)
	venuePattern           = regexp.MustCompile(`(\d+)館`)
)

// NationwideVenueCount reads counts such as "全国約320館".
func NationwideVenueCount(text string) (int, bool) {
	return firstNumber(nationwideVenuePattern, text)
}

// VenueCount reads the first "N館" anywhere in text.
func VenueCount(text string) (int, bool) {
	return firstNumber(venuePattern, text)
}

// TheaterListCount counts the entries of the page's theater list.
func TheaterListCount(doc *goquery.Document) (int, bool) {
	n := doc.Find("div.theater-list li").Length()
	return n, n > 0
}

func firstNumber(pattern *regexp.Regexp, text string) (int, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

type countExtractor struct {
	name    string
	extract func(doc *goquery.Document, text string) (int, bool)
}

// countExtractors are tried in order; the first to find a count wins.
var countExtractors = []countExtractor{
	{name: "nationwide", extract: func(_ *goquery.Document, text string) (int, bool) { return NationwideVenueCount(text) }},
	{name: "venue", extract: func(_ *goquery.Document, text string) (int, bool) { return VenueCount(text) }},
	{name: "theater-list", extract: func(doc *goquery.Document, _ string) (int, bool) { return TheaterListCount(doc) }},
}

// CountTheaters returns the theater count of a detail page and the name of the extractor that found it.
func CountTheaters(doc *goquery.Document) (count int, extractor string, ok bool) {
	text := width.Fold.String(doc.Text())
	for _, e := range countExtractors {
		if n, ok := e.extract(doc, text); ok {
			return n, e.name, true
		}
	}
	return 0, "", false
}

type theaterCountEnrichment struct {
	fetcher internal.Fetcher
}

// TheaterCount fetches each movie's detail page and records how many theaters show it.
// When the page cannot be fetched or shows no count, the count stays unknown.
func TheaterCount(fetcher internal.Fetcher) internal.EnrichmentProvider {
	return &theaterCountEnrichment{fetcher: fetcher}
}

func (e *theaterCountEnrichment) Enrich(ctx context.Context, movie internal.EnrichedMovie) (internal.EnrichedMovie, error) {
	movie.Movie.SetTheaterCount(nil)

	body, err := e.fetcher.Fetch(ctx, movie.Movie.URL)
	if err != nil {
		return movie, fmt.Errorf("failed to fetch detail page %s: %w", movie.Movie.URL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return movie, fmt.Errorf("failed to parse detail page %s: %w", movie.Movie.URL, err)
	}

	annotations := map[string]any{"url": movie.Movie.URL}
	count, extractor, ok := CountTheaters(doc)
	if ok {
		movie.Movie.SetTheaterCount(&count)
		annotations["theater_count"] = count
		annotations["extractor"] = extractor
		annotations["limited_release"] = movie.Movie.IsLimitedRelease
	} else {
		annotations["skipped"] = "no theater count on page"
	}
	movie.Audits = append(movie.Audits, internal.EnrichmentAudit{
		Result:      internal.EnrichmentResultSuccess,
		Details:     "",
		At:          time.Now(),
		Annotations: annotations,
	})
	return movie, nil
}
