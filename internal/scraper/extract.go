package scraper

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/eiga-watcher/internal"
	"github.com/google/uuid"
)

// Strategy is one structural approach to finding movie entries on a page.
// It returns nothing when the structure it looks for is absent.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, b RecordBuilder) []internal.MovieRecord
}

// Chain is an ordered list of strategies; the first to produce records wins.
type Chain []Strategy

// Extract never fails: a page where no strategy matches yields an empty slice.
func (c Chain) Extract(doc *goquery.Document, b RecordBuilder) []internal.MovieRecord {
	for _, s := range c {
		records := s.Extract(doc, b)
		if len(records) > 0 {
			slog.Debug("extracted movies", "strategy", s.Name(), "count", len(records))
			return records
		}
		slog.Debug("strategy found no movies", "strategy", s.Name())
	}
	return []internal.MovieRecord{}
}

// Chains returns the extraction chain for each listing section.
func Chains() map[internal.Section]Chain {
	return map[internal.Section]Chain{
		internal.SectionThisWeek: {
			HeadingList("h2.title-xlarge, h2.margin-top20", "ul.slide-menu"),
			ImageAlt(internal.UndeterminedReleaseDate),
		},
		internal.SectionNowShowing: {
			List("ul.slide-menu"),
			ImageAlt(internal.NowShowingReleaseDate),
		},
		internal.SectionComingSoon: {
			List("ul.slide-menu", "div.movielist"),
			ImageAlt(internal.UndeterminedReleaseDate),
		},
		internal.SectionSearch: {
			SearchResults(),
		},
	}
}

// RecordBuilder validates extracted fields and stamps records from one page.
type RecordBuilder struct {
	Base      *url.URL
	Namespace uuid.UUID
	ScrapedAt time.Time
}

func NewRecordBuilder(baseURL string, scrapedAt time.Time) (RecordBuilder, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return RecordBuilder{}, err
	}
	return RecordBuilder{
		Base:      base,
		Namespace: uuid.NewSHA1(uuid.NameSpaceURL, []byte(base.String())),
		ScrapedAt: scrapedAt,
	}, nil
}

// Build returns false when the title or detail link is missing.
func (b RecordBuilder) Build(title, href, releaseDate, thumbnail string) (internal.MovieRecord, bool) {
	title = strings.TrimSpace(title)
	detailURL := b.Resolve(href)
	if title == "" || detailURL == "" {
		return internal.MovieRecord{}, false
	}
	releaseDate = strings.TrimSpace(releaseDate)
	if releaseDate == "" {
		releaseDate = internal.UndeterminedReleaseDate
	}
	return internal.MovieRecord{
		ID:          uuid.NewSHA1(b.Namespace, []byte(detailURL)).String(),
		Title:       title,
		URL:         detailURL,
		ReleaseDate: releaseDate,
		Thumbnail:   b.Resolve(thumbnail),
		ScrapedAt:   b.ScrapedAt,
	}, true
}

// Resolve makes href absolute against the site base URL. Empty or unparseable hrefs yield "".
func (b RecordBuilder) Resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if b.Base == nil {
		return ref.String()
	}
	return b.Base.ResolveReference(ref).String()
}
