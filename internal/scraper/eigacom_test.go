package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drewfead/eiga-watcher/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scrapeTime = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func goldenEigaCom(t *testing.T) (internal.Scraper, *httptest.Server) {
	t.Helper()
	server := MountGoldenTestServer(t, "eigacom")
	s := EigaCom(
		EigaComWithBaseURL(server.URL),
		EigaComWithClient(server.Client()),
		EigaComWithClock(func() time.Time { return scrapeTime }),
	)
	return s, server
}

func titlesOf(movies []internal.MovieRecord) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = m.Title
	}
	return out
}

func TestUnit_EigaCom_ScrapeMovies(t *testing.T) {
	s, server := goldenEigaCom(t)

	tests := []struct {
		req        internal.ListMoviesRequest
		wantTitles []string
	}{
		{
			req:        internal.ListMoviesRequest{Section: internal.SectionThisWeek},
			wantTitles: []string{"港町の灯", "星の図書館"},
		},
		{
			req:        internal.ListMoviesRequest{Section: internal.SectionNowShowing},
			wantTitles: []string{"夜明けの駅", "雨の交差点", "九月の約束", "風の丘", "ひだまりの猫"},
		},
		{
			req:        internal.ListMoviesRequest{Section: internal.SectionComingSoon},
			wantTitles: []string{"銀河鉄道の夜明け", "小さな映画館", "海辺のシネマ", "未来の記憶", "冬の旅人", "幻の十三月"},
		},
		{
			req:        internal.ListMoviesRequest{Section: internal.SectionSearch, Keyword: "ゴジラ"},
			wantTitles: []string{"ゴジラ-1.0", "ゴジラ×コング 新たなる帝国"},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.req.Section), func(t *testing.T) {
			movies, err := s.ScrapeMovies(t.Context(), tt.req)
			require.NoError(t, err, "ScrapeMovies")
			assert.Equal(t, tt.wantTitles, titlesOf(movies))

			for i, m := range movies {
				prefix := fmt.Sprintf("movies[%d]", i)
				assert.NotEmpty(t, m.ID, "%s: ID", prefix)
				assert.Contains(t, m.URL, "/movie/", "%s: URL", prefix)
				assert.NotEmpty(t, m.ReleaseDate, "%s: ReleaseDate", prefix)
				assert.Equal(t, scrapeTime, m.ScrapedAt, "%s: ScrapedAt", prefix)
				assert.Nil(t, m.TheaterCount, "%s: TheaterCount", prefix)
				assert.False(t, m.IsLimitedRelease, "%s: IsLimitedRelease", prefix)
			}
		})
	}

	t.Run("resolves links against base URL", func(t *testing.T) {
		movies, err := s.ScrapeMovies(t.Context(), internal.ListMoviesRequest{Section: internal.SectionThisWeek})
		require.NoError(t, err)
		require.NotEmpty(t, movies)
		assert.Equal(t, server.URL+"/movie/101/", movies[0].URL)
		assert.Equal(t, "10月23日公開", movies[0].ReleaseDate)
		assert.Equal(t, "https://eiga.k-img.com/images/movie/101/photo/main.jpg", movies[0].Thumbnail)
	})

	t.Run("missing date is undetermined", func(t *testing.T) {
		movies, err := s.ScrapeMovies(t.Context(), internal.ListMoviesRequest{Section: internal.SectionNowShowing})
		require.NoError(t, err)
		require.Len(t, movies, 5)
		assert.Equal(t, internal.UndeterminedReleaseDate, movies[3].ReleaseDate)
	})

	t.Run("absolute search link kept", func(t *testing.T) {
		movies, err := s.ScrapeMovies(t.Context(), internal.ListMoviesRequest{Section: internal.SectionSearch, Keyword: "ゴジラ"})
		require.NoError(t, err)
		require.Len(t, movies, 2)
		assert.Equal(t, "https://eiga.com/movie/402/", movies[1].URL)
		assert.Equal(t, "2023年11月3日公開", movies[0].ReleaseDate)
		assert.Equal(t, internal.UndeterminedReleaseDate, movies[1].ReleaseDate)
	})

	t.Run("ids are stable", func(t *testing.T) {
		first, err := s.ScrapeMovies(t.Context(), internal.ListMoviesRequest{Section: internal.SectionComingSoon})
		require.NoError(t, err)
		second, err := s.ScrapeMovies(t.Context(), internal.ListMoviesRequest{Section: internal.SectionComingSoon})
		require.NoError(t, err)
		assert.Equal(t, first[0].ID, second[0].ID)
		assert.NotEqual(t, first[0].ID, first[1].ID)
	})
}

func TestUnit_EigaCom_RequestErrors(t *testing.T) {
	s, _ := goldenEigaCom(t)

	_, err := s.ScrapeMovies(t.Context(), internal.ListMoviesRequest{Section: "ranking"})
	require.ErrorIs(t, err, ErrUnsupportedSection)

	_, err = s.ScrapeMovies(t.Context(), internal.ListMoviesRequest{Section: internal.SectionSearch, Keyword: "  "})
	require.ErrorIs(t, err, ErrMissingKeyword)
}

func TestUnit_EigaCom_SearchQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search")
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	t.Cleanup(server.Close)

	s := EigaCom(EigaComWithBaseURL(server.URL), EigaComWithClient(server.Client()))
	movies, err := s.ScrapeMovies(t.Context(), internal.ListMoviesRequest{Section: internal.SectionSearch, Keyword: "君の名は。"})
	require.NoError(t, err)
	assert.Empty(t, movies)
	assert.NotNil(t, movies)
	assert.Equal(t, "君の名は。", gotQuery)
}

type stubFetcher struct {
	pages map[string]string
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return page, nil
}

func TestUnit_EigaCom_FetchFailure(t *testing.T) {
	boom := fmt.Errorf("connection reset")
	s := EigaCom(EigaComWithFetcher(&stubFetcher{err: boom}))

	_, err := s.ScrapeMovies(t.Context(), internal.ListMoviesRequest{Section: internal.SectionNowShowing})
	require.ErrorIs(t, err, boom)
}

func TestUnit_EigaCom_SectionURLs(t *testing.T) {
	pages := map[string]string{
		"https://eiga.com/movie/": `<h2 class="margin-top20">今週公開</h2><ul class="slide-menu"><li><a href="/movie/1/"><img alt="A作品"></a></li></ul>`,
		"https://eiga.com/now/":   `<ul class="slide-menu"><li><a href="/movie/2/"><img alt="B作品"></a></li></ul>`,
		"https://eiga.com/soon/":  `<ul class="slide-menu"><li><a href="/movie/3/"><img alt="C作品"></a></li></ul>`,
	}
	s := EigaCom(EigaComWithFetcher(&stubFetcher{pages: pages}))

	for section, want := range map[internal.Section]string{
		internal.SectionThisWeek:   "https://eiga.com/movie/1/",
		internal.SectionNowShowing: "https://eiga.com/movie/2/",
		internal.SectionComingSoon: "https://eiga.com/movie/3/",
	} {
		movies, err := s.ScrapeMovies(t.Context(), internal.ListMoviesRequest{Section: section})
		require.NoError(t, err, section)
		require.Len(t, movies, 1, section)
		assert.Equal(t, want, movies[0].URL)
	}
}

func TestUnit_EigaCom_MountGolden_DetailPages(t *testing.T) {
	_, server := goldenEigaCom(t)

	for path, want := range map[string]int{
		"/movie/301/": http.StatusOK,
		"/movie/304/": http.StatusNotFound,
		"/ranking/":   http.StatusNotFound,
	} {
		resp, err := server.Client().Get(server.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestUnit_MovieID(t *testing.T) {
	assert.Equal(t, "301", movieID("https://eiga.com/movie/301/"))
	assert.Equal(t, "301", movieID("/movie/301"))
	assert.Equal(t, "", movieID("/movie/"))
	assert.Equal(t, "", movieID("/movie/301/photo/"))
	assert.Equal(t, "", movieID("/now/"))
}
