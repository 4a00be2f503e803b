package scraper

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drewfead/eiga-watcher/internal"
	"github.com/drewfead/eiga-watcher/internal/httputil"
	"github.com/stretchr/testify/require"
)

const goldenDir = "golden"

// goldenSites maps each golden directory to the site it captures.
var goldenSites = map[string]internal.Site{
	"eigacom": internal.SiteEigaCom,
}

func goldenScraper(t *testing.T, name string, opts ...EigaComOption) internal.GoldenScraper {
	t.Helper()
	site, ok := goldenSites[name]
	require.True(t, ok, "no golden site named %q", name)
	switch site {
	case internal.SiteEigaCom:
		return EigaCom(opts...).(internal.GoldenScraper)
	default:
		t.Fatalf("site %s has no golden scraper", site)
		return nil
	}
}

// TestPrep_PullAllGolden refreshes the golden pages from the live site. Run with PREP=1.
func TestPrep_PullAllGolden(t *testing.T) {
	if os.Getenv("PREP") != "1" {
		t.Skip("PREP is not set")
	}

	polite := httputil.NewFetcher(httputil.WithRateLimit(0.5), httputil.WithTimeout(time.Minute))
	for name := range goldenSites {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(goldenDir, name)
			err := goldenScraper(t, name, EigaComWithFetcher(polite)).PullGolden(t.Context(), dir)
			require.NoError(t, err, "PullGolden")
			t.Logf("wrote golden files to %s", dir)
		})
	}
}

func MountGoldenTestServer(t *testing.T, name string) *httptest.Server {
	t.Helper()
	handler, err := goldenScraper(t, name).MountGolden(t.Context(), filepath.Join(goldenDir, name))
	require.NoError(t, err, "MountGolden")
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}
