package scraper

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/drewfead/eiga-watcher/internal"
)

type Registry interface {
	GetScraper(descriptor string) (internal.Scraper, error)
	Descriptors() []string
}

type ScraperMiddleware func(internal.Scraper) internal.Scraper

type RegistryOption func(r *registry)

func NewRegistry(opts ...RegistryOption) Registry {
	r := &registry{
		scrapers: make(map[string]internal.Scraper),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func WithScraper(descriptor string, scraper internal.Scraper, middleware ...ScraperMiddleware) RegistryOption {
	return func(r *registry) {
		for _, m := range middleware {
			scraper = m(scraper)
		}
		r.scrapers[descriptor] = scraper
	}
}

func WithScraperForSite(site internal.Site, scraper internal.Scraper, middleware ...ScraperMiddleware) RegistryOption {
	return WithScraper(string(site), scraper, middleware...)
}

type registry struct {
	scrapers map[string]internal.Scraper
}

var ErrScraperNotFound = errors.New("scraper not found")

func (r *registry) GetScraper(descriptor string) (internal.Scraper, error) {
	scraper, ok := r.scrapers[strings.ToLower(descriptor)]
	if !ok {
		return nil, fmt.Errorf("%w: %s (valid: %s)", ErrScraperNotFound, descriptor, strings.Join(r.Descriptors(), ", "))
	}
	return scraper, nil
}

func (r *registry) Descriptors() []string {
	out := make([]string, 0, len(r.scrapers))
	for d := range r.scrapers {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}
