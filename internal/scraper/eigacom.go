package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/eiga-watcher/internal"
	"github.com/drewfead/eiga-watcher/internal/browser"
	"github.com/drewfead/eiga-watcher/internal/httputil"
)

const defaultEigaComBaseURL = "https://eiga.com"

var (
	ErrUnsupportedSection = errors.New("unsupported section")
	ErrMissingKeyword     = errors.New("search keyword is required")
)

// sectionPaths maps each listing section to its page on the site.
var sectionPaths = map[internal.Section]string{
	internal.SectionThisWeek:   "/movie/",
	internal.SectionNowShowing: "/now/",
	internal.SectionComingSoon: "/soon/",
	internal.SectionSearch:     "/search/",
}

// goldenPages names the golden file stored for each section.
var goldenPages = map[internal.Section]string{
	internal.SectionThisWeek:   "movie.html",
	internal.SectionNowShowing: "now.html",
	internal.SectionComingSoon: "soon.html",
	internal.SectionSearch:     "search.html",
}

// goldenSearchKeyword is the query recorded by PullGolden.
const goldenSearchKeyword = "ゴジラ"

const goldenDetailDir = "detail"

type eigaComScraper struct {
	baseURL string
	fetcher internal.Fetcher
	chains  map[internal.Section]Chain
	now     func() time.Time
}

// EigaComOption applies configuration to an eiga.com scraper.
type EigaComOption func(*eigaComScraper)

// EigaComWithBaseURL sets the base URL for the scraper (e.g. httptest.Server.URL in tests).
func EigaComWithBaseURL(baseURL string) EigaComOption {
	return func(s *eigaComScraper) {
		if baseURL != "" {
			s.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// EigaComWithFetcher sets the fetcher used for listing pages.
func EigaComWithFetcher(f internal.Fetcher) EigaComOption {
	return func(s *eigaComScraper) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// EigaComWithClient fetches over plain HTTP with client (e.g. httptest.Server.Client() in tests).
func EigaComWithClient(client *http.Client) EigaComOption {
	return func(s *eigaComScraper) {
		if client != nil {
			s.fetcher = httputil.NewFetcher(httputil.WithClient(client), httputil.WithRateLimit(0))
		}
	}
}

// EigaComWithBrowser renders listing pages in b instead of fetching them over HTTP.
func EigaComWithBrowser(b browser.Interface) EigaComOption {
	return func(s *eigaComScraper) {
		if b != nil {
			s.fetcher = browser.NewFetcher(b)
		}
	}
}

// EigaComWithClock sets the time source used for scraped_at.
func EigaComWithClock(now func() time.Time) EigaComOption {
	return func(s *eigaComScraper) {
		if now != nil {
			s.now = now
		}
	}
}

func EigaCom(opts ...EigaComOption) internal.Scraper {
	s := &eigaComScraper{
		baseURL: defaultEigaComBaseURL,
		chains:  Chains(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = httputil.NewFetcher()
	}
	return s
}

func (s *eigaComScraper) Descriptor() string {
	return string(internal.SiteEigaCom)
}

func (s *eigaComScraper) ScrapeMovies(ctx context.Context, req internal.ListMoviesRequest) ([]internal.MovieRecord, error) {
	chain, ok := s.chains[req.Section]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSection, req.Section)
	}
	pageURL, err := s.sectionURL(req)
	if err != nil {
		return nil, err
	}

	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s listing: %w", req.Section, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s listing: %w", req.Section, err)
	}
	builder, err := NewRecordBuilder(s.baseURL, s.now())
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", s.baseURL, err)
	}

	movies := chain.Extract(doc, builder)
	slog.Debug("scrape-movies", "descriptor", s.Descriptor(), "section", req.Section, "url", pageURL, "count", len(movies))
	return movies, nil
}

func (s *eigaComScraper) sectionURL(req internal.ListMoviesRequest) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", s.baseURL, err)
	}
	u.Path = path.Join(u.Path, sectionPaths[req.Section]) + "/"
	if req.Section == internal.SectionSearch {
		keyword := strings.TrimSpace(req.Keyword)
		if keyword == "" {
			return "", ErrMissingKeyword
		}
		u.RawQuery = url.Values{"search": {keyword}}.Encode()
	}
	return u.String(), nil
}

// PullGolden saves every listing page plus the detail pages linked from the coming-soon listing.
func (s *eigaComScraper) PullGolden(ctx context.Context, goldenDir string) error {
	files := make(map[string][]byte)
	for section, name := range goldenPages {
		pageURL, err := s.sectionURL(internal.ListMoviesRequest{Section: section, Keyword: goldenSearchKeyword})
		if err != nil {
			return err
		}
		body, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return fmt.Errorf("failed to fetch golden data for %s: %w", section, err)
		}
		files[name] = []byte(body)
	}

	soon, err := s.ScrapeMovies(ctx, internal.ListMoviesRequest{Section: internal.SectionComingSoon})
	if err != nil {
		return fmt.Errorf("failed to list golden detail pages: %w", err)
	}
	for _, m := range soon {
		id := movieID(m.URL)
		if id == "" {
			continue
		}
		body, err := s.fetcher.Fetch(ctx, m.URL)
		if err != nil {
			slog.Warn("skipping golden detail page", "url", m.URL, "error", err)
			continue
		}
		files[filepath.Join(goldenDetailDir, id+".html")] = []byte(body)
	}
	return writeGoldenFiles(goldenDir, files)
}

// MountGolden serves the saved pages at the paths the scraper requests. Detail pages without a
// golden file answer 404.
func (s *eigaComScraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	pages := make(map[string][]byte, len(goldenPages))
	for section, name := range goldenPages {
		body, err := os.ReadFile(filepath.Join(goldenDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s golden file: %w", name, err)
		}
		pages[sectionPaths[section]] = body
	}
	details, err := readGoldenDir(filepath.Join(goldenDir, goldenDetailDir), ".html")
	if err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if body, ok := pages[r.URL.Path]; ok {
			_, _ = w.Write(body)
			return
		}
		if body, ok := details[movieID(r.URL.Path)]; ok {
			_, _ = w.Write(body)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}), nil
}

// movieID returns the numeric id of a /movie/{id}/ URL or path.
func movieID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	rest, ok := strings.CutPrefix(u.Path, "/movie/")
	if !ok {
		return ""
	}
	id := strings.Trim(rest, "/")
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
