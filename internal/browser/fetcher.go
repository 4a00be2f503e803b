package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/drewfead/eiga-watcher/internal"
	"github.com/go-rod/rod"
)

var errClosed = errors.New("browser closed")

var _ internal.Fetcher = (*Fetcher)(nil)

// Fetcher renders pages in a browser and returns the resulting HTML. Use it for listings that
// only fill in after scripts run.
type Fetcher struct {
	browser Interface
}

func NewFetcher(b Interface) *Fetcher {
	return &Fetcher{browser: b}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var html string
	err := f.browser.WithPage(ctx, url, func(page *rod.Page) error {
		var err error
		html, err = page.HTML()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

func (f *Fetcher) Close() error {
	return f.browser.Close()
}
