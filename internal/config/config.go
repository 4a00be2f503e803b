package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/drewfead/eiga-watcher/internal"
	"github.com/drewfead/eiga-watcher/internal/httputil"
	"gopkg.in/yaml.v3"
)

// Output formats understood by the output package.
const (
	FormatDense = "dense"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds every setting of a run. Values come from defaults, then the YAML file, then
// EIGA_WATCHER_* environment variables and flags.
type Config struct {
	Site        internal.Site `yaml:"site"`
	BaseURL     string        `yaml:"base_url"`
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	RateLimit   float64       `yaml:"rate_limit"`
	Concurrency int           `yaml:"concurrency"`
	WindowDays  int           `yaml:"window_days"`
	DataDir     string        `yaml:"data_dir"`
	Browser     bool          `yaml:"browser"`
	TMDBAPIKey  string        `yaml:"tmdb_api_key"`
	Format      string        `yaml:"format"`
	Output      string        `yaml:"output"`
	Debug       bool          `yaml:"debug"`
}

func Default() Config {
	return Config{
		Site:        internal.SiteEigaCom,
		BaseURL:     "https://eiga.com",
		UserAgent:   httputil.DefaultUserAgent,
		Timeout:     httputil.DefaultTimeout,
		RateLimit:   httputil.DefaultRateLimit,
		Concurrency: 4,
		WindowDays:  7,
		DataDir:     "data",
		Format:      FormatDense,
	}
}

// Load reads the YAML file at path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	setDefaults(&cfg)
	return cfg, nil
}

// setDefaults restores defaults for keys the file set to their zero value.
func setDefaults(cfg *Config) {
	def := Default()
	if cfg.Site == "" {
		cfg.Site = def.Site
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be non-negative, got %s", ErrInvalidConfig, c.Timeout))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: rate limit must be non-negative, got %g", ErrInvalidConfig, c.RateLimit))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency))
	}
	if c.WindowDays < 0 {
		errs = append(errs, fmt.Errorf("%w: window days must be non-negative, got %d", ErrInvalidConfig, c.WindowDays))
	}
	if !slices.Contains([]string{FormatDense, FormatJSON, FormatYAML}, c.Format) {
		errs = append(errs, fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format))
	}
	if !slices.Contains([]internal.Site{internal.SiteEigaCom, internal.SiteNone}, c.Site) {
		errs = append(errs, fmt.Errorf("%w: unknown site %q", ErrInvalidConfig, c.Site))
	}
	return errors.Join(errs...)
}
