package root

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/drewfead/eiga-watcher/internal"
	"github.com/drewfead/eiga-watcher/internal/browser"
	"github.com/drewfead/eiga-watcher/internal/config"
	"github.com/drewfead/eiga-watcher/internal/enrichment"
	"github.com/drewfead/eiga-watcher/internal/httputil"
	"github.com/drewfead/eiga-watcher/internal/output"
	"github.com/drewfead/eiga-watcher/internal/scraper"
	"github.com/drewfead/eiga-watcher/internal/services"
	"github.com/drewfead/eiga-watcher/internal/storage"
	"github.com/drewfead/eiga-watcher/internal/theatersearch"
	"github.com/urfave/cli/v3"
)

const (
	appName   = "eiga-watcher"
	envPrefix = "EIGA_WATCHER_"

	listingCacheEntries = 64
	listingCacheTTL     = 5 * time.Minute
)

// syncWriter wraps an *os.File and calls Sync after each Write so output
// appears immediately on Windows.
type syncWriter struct {
	f *os.File
}

func (w *syncWriter) Write(p []byte) (n int, err error) {
	n, err = w.f.Write(p)
	if err != nil {
		return n, err
	}
	_ = w.f.Sync()
	return n, nil
}

// RootOption configures the root command (e.g. for tests).
type RootOption func(*rootConfig)

type rootConfig struct {
	registry scraper.Registry
	now      func() time.Time
	stdout   io.Writer
	stderr   io.Writer
}

// WithRegistry sets the scraper registry. Use in tests to inject a registry that uses
// golden HTTP servers instead of the live site.
func WithRegistry(registry scraper.Registry) RootOption {
	return func(c *rootConfig) {
		c.registry = registry
	}
}

// WithClock fixes the time used for release windows and snapshot timestamps.
func WithClock(now func() time.Time) RootOption {
	return func(c *rootConfig) {
		c.now = now
	}
}

// WithStdout redirects output that would go to stdout when --output is not set.
func WithStdout(w io.Writer) RootOption {
	return func(c *rootConfig) {
		c.stdout = w
	}
}

// WithStderr redirects the weekly notification message.
func WithStderr(w io.Writer) RootOption {
	return func(c *rootConfig) {
		c.stderr = w
	}
}

func env(name string) cli.ValueSourceChain {
	return cli.EnvVars(envPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
}

func globalFlags() []cli.Flag {
	def := config.Default()
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "YAML config file", Sources: env("config")},
		&cli.StringFlag{Name: "site", Usage: "listing site (eiga.com, none)", Value: string(def.Site), Sources: env("site")},
		&cli.StringFlag{Name: "base-url", Usage: "base URL of the listing site", Value: def.BaseURL, Sources: env("base-url")},
		&cli.StringFlag{Name: "user-agent", Usage: "User-Agent sent with every request", Value: def.UserAgent, Sources: env("user-agent")},
		&cli.DurationFlag{Name: "timeout", Usage: "per-request timeout", Value: def.Timeout, Sources: env("timeout")},
		&cli.FloatFlag{Name: "rate-limit", Usage: "requests per second to the site (0 disables)", Value: def.RateLimit, Sources: env("rate-limit")},
		&cli.IntFlag{Name: "concurrency", Usage: "detail pages fetched at once", Value: def.Concurrency, Sources: env("concurrency")},
		&cli.IntFlag{Name: "window-days", Usage: "days before and after today that count as this week", Value: def.WindowDays, Sources: env("window-days")},
		&cli.StringFlag{Name: "data-dir", Usage: "directory holding the snapshot", Value: def.DataDir, Sources: env("data-dir")},
		&cli.BoolFlag{Name: "browser", Usage: "render pages in a headless browser", Sources: env("browser")},
		&cli.StringFlag{Name: "tmdb-api-key", Usage: "TMDB API read access token; enables TMDB enrichment", Sources: env("tmdb-api-key")},
		&cli.StringFlag{Name: "format", Usage: "output format (dense, json, yaml)", Value: def.Format, Sources: env("format")},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write output to a file instead of stdout", Sources: env("output")},
		&cli.BoolFlag{Name: "debug", Usage: "debug logging", Sources: env("debug")},
	}
}

// loadConfig layers flags and environment over the config file over defaults.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return cfg, err
	}
	if cmd.IsSet("site") {
		cfg.Site = internal.Site(strings.ToLower(cmd.String("site")))
	}
	if cmd.IsSet("base-url") {
		cfg.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("user-agent") {
		cfg.UserAgent = cmd.String("user-agent")
	}
	if cmd.IsSet("timeout") {
		cfg.Timeout = cmd.Duration("timeout")
	}
	if cmd.IsSet("rate-limit") {
		cfg.RateLimit = cmd.Float("rate-limit")
	}
	if cmd.IsSet("concurrency") {
		cfg.Concurrency = cmd.Int("concurrency")
	}
	if cmd.IsSet("window-days") {
		cfg.WindowDays = cmd.Int("window-days")
	}
	if cmd.IsSet("data-dir") {
		cfg.DataDir = cmd.String("data-dir")
	}
	if cmd.IsSet("browser") {
		cfg.Browser = cmd.Bool("browser")
	}
	if cmd.IsSet("tmdb-api-key") {
		cfg.TMDBAPIKey = cmd.String("tmdb-api-key")
	}
	if cmd.IsSet("format") {
		cfg.Format = strings.ToLower(cmd.String("format"))
	}
	if cmd.IsSet("output") {
		cfg.Output = cmd.String("output")
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func configureLogging(cfg config.Config, w io.Writer) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// run holds what one command invocation needs, built from the resolved config.
type run struct {
	cfg     config.Config
	watcher *services.Watcher
	format  output.Format
	out     io.Writer
	closers []io.Closer
}

func (r *run) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (rc *rootConfig) newFetcher(cfg config.Config) (internal.Fetcher, io.Closer) {
	if cfg.Browser {
		f := browser.NewFetcher(browser.Headless(browser.WithUserAgent(cfg.UserAgent)))
		return f, f
	}
	return httputil.NewFetcher(
		httputil.WithUserAgent(cfg.UserAgent),
		httputil.WithTimeout(cfg.Timeout),
		httputil.WithRateLimit(cfg.RateLimit),
	), nil
}

func (rc *rootConfig) newRegistry(cfg config.Config, fetcher internal.Fetcher) scraper.Registry {
	if rc.registry != nil {
		return rc.registry
	}
	opts := []scraper.EigaComOption{
		scraper.EigaComWithBaseURL(cfg.BaseURL),
		scraper.EigaComWithFetcher(fetcher),
	}
	if rc.now != nil {
		opts = append(opts, scraper.EigaComWithClock(rc.now))
	}
	return scraper.NewRegistry(
		scraper.WithScraperForSite(internal.SiteNone, scraper.None()),
		scraper.WithScraperForSite(internal.SiteEigaCom, scraper.EigaCom(opts...), scraper.Cached(listingCacheEntries, listingCacheTTL)),
	)
}

func (rc *rootConfig) setup(cmd *cli.Command, withNotifier bool) (*run, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	configureLogging(cfg, rc.stderr)

	r := &run{cfg: cfg}
	r.format, err = output.ByName(cfg.Format)
	if err != nil {
		return nil, err
	}

	fetcher, closer := rc.newFetcher(cfg)
	if closer != nil {
		r.closers = append(r.closers, closer)
	}
	s, err := rc.newRegistry(cfg, fetcher).GetScraper(string(cfg.Site))
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("unsupported site: %w", err)
	}

	providers := []internal.EnrichmentProvider{enrichment.TheaterCount(fetcher)}
	if cfg.TMDBAPIKey != "" {
		tmdbProvider, err := enrichment.TMDB(cfg.TMDBAPIKey)
		if err != nil {
			slog.Info("TMDB enrichment not configured", "reason", "client init failed", "error", err)
		} else {
			providers = append(providers, tmdbProvider)
			slog.Info("TMDB enrichment configured")
		}
	} else {
		slog.Debug("TMDB enrichment not configured", "reason", "no api key")
	}

	opts := []services.WatcherOption{
		services.WithEnrichment(providers...),
		services.WithSnapshotStore(storage.NewFileStore(cfg.DataDir)),
		services.WithWindowDays(cfg.WindowDays),
		services.WithConcurrency(cfg.Concurrency),
	}
	if rc.now != nil {
		opts = append(opts, services.WithClock(rc.now))
	}
	if withNotifier {
		opts = append(opts, services.WithNotifiers(output.NewConsole(rc.stderr)))
	}
	r.watcher = services.NewWatcher(s, opts...)

	r.out = rc.stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		r.closers = append(r.closers, f)
		r.out = f
	}
	return r, nil
}

func (rc *rootConfig) listingCommand(name, usage string, list func(*services.Watcher, context.Context) ([]internal.MovieRecord, error)) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r, err := rc.setup(cmd, false)
			if err != nil {
				return err
			}
			defer r.Close()

			movies, err := list(r.watcher, ctx)
			if err != nil {
				return err
			}
			return r.format.Movies(r.out, movies)
		},
	}
}

func (rc *rootConfig) weeklyCommand() *cli.Command {
	return &cli.Command{
		Name:  "weekly",
		Usage: "collect the past and next week, report new movies and save the snapshot",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "notify", Usage: "print the weekly notification message to stderr", Sources: env("notify")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r, err := rc.setup(cmd, cmd.Bool("notify"))
			if err != nil {
				return err
			}
			defer r.Close()

			report, err := r.watcher.Weekly(ctx)
			if err != nil {
				return err
			}
			return r.format.Report(r.out, report)
		},
	}
}

func (rc *rootConfig) theatersCommand() *cli.Command {
	return &cli.Command{
		Name:  "theaters",
		Usage: "search links for movie theaters",
		Commands: []*cli.Command{
			{
				Name:      "links",
				Usage:     "print search, schedule and map links for a theater",
				ArgsUsage: "<theater name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "location", Usage: "area to narrow the search to"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					format, err := output.ByName(cfg.Format)
					if err != nil {
						return err
					}
					links, err := theatersearch.Links(strings.Join(cmd.Args().Slice(), " "), cmd.String("location"))
					if err != nil {
						return err
					}
					return format.Links(rc.stdout, links)
				},
			},
			{
				Name:      "suggest",
				Usage:     "suggest theater chains matching a partial name",
				ArgsUsage: "<partial name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					for _, s := range theatersearch.Suggest(cmd.Args().First()) {
						if _, err := fmt.Fprintln(rc.stdout, s); err != nil {
							return err
						}
					}
					return nil
				},
			},
		},
	}
}

func Root(ctx context.Context, opts ...RootOption) (*cli.Command, error) {
	rc := &rootConfig{
		stdout: &syncWriter{f: os.Stdout},
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(rc)
	}

	rootCmd := &cli.Command{
		Name:  appName,
		Usage: "watch eiga.com for this week's and upcoming movie releases",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			rc.weeklyCommand(),
			rc.listingCommand("this-week", "list movies opening this week", (*services.Watcher).ThisWeek),
			rc.listingCommand("now-showing", "list movies now showing", (*services.Watcher).NowShowing),
			rc.listingCommand("coming-soon", "list upcoming movies", (*services.Watcher).ComingSoon),
			rc.listingCommand("past-week", "list now-showing movies released in the last week", (*services.Watcher).PastWeek),
			rc.listingCommand("next-week", "list upcoming movies opening in the next week, with theater counts", (*services.Watcher).NextWeek),
			{
				Name:      "search",
				Usage:     "search movies by keyword",
				ArgsUsage: "<keyword>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					r, err := rc.setup(cmd, false)
					if err != nil {
						return err
					}
					defer r.Close()

					movies, err := r.watcher.Search(ctx, strings.Join(cmd.Args().Slice(), " "))
					if err != nil {
						return err
					}
					return r.format.Movies(r.out, movies)
				},
			},
			rc.theatersCommand(),
		},
	}
	slog.Debug("built command tree", "app", appName, "commands", len(rootCmd.Commands))
	return rootCmd, nil
}
