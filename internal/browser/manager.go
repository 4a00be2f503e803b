package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// PageStableTimeout is the timeout used when waiting for page stability.
var PageStableTimeout = 30 * time.Second

// Interface runs a callback with a rod page loaded at a given URL.
type Interface interface {
	WithPage(ctx context.Context, url string, fn func(*rod.Page) error) error
	io.Closer
}

// headlessBrowser owns one chrome process, launched on first use. The channel of capacity 1
// hands the browser to one WithPage caller at a time.
type headlessBrowser struct {
	userAgent string

	launchOnce sync.Once
	launchErr  error
	ch         chan *rod.Browser
}

type Option func(*headlessBrowser)

// WithUserAgent overrides the user agent of every page.
func WithUserAgent(userAgent string) Option {
	return func(h *headlessBrowser) {
		h.userAgent = userAgent
	}
}

// Headless returns a Browser that lazily launches one headless chrome browser and reuses it.
func Headless(opts ...Option) Interface {
	h := &headlessBrowser{ch: make(chan *rod.Browser, 1)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *headlessBrowser) launch() {
	u, err := launcher.New().Logger(newRodLauncherLogger()).Leakless(false).Launch()
	if err != nil {
		h.launchErr = fmt.Errorf("launch browser: %w", err)
		close(h.ch)
		return
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		h.launchErr = fmt.Errorf("connect to browser: %w", err)
		close(h.ch)
		return
	}
	slog.Debug("headless browser launched", "control_url", u)
	h.ch <- browser
}

func (h *headlessBrowser) Close() error {
	launched := true
	h.launchOnce.Do(func() {
		launched = false
		close(h.ch)
	})
	if !launched {
		return nil
	}
	browser, ok := <-h.ch
	if !ok {
		return h.launchErr
	}
	return browser.Close()
}

// WithPage creates a page at url, waits for it to settle, runs fn, then closes the page.
// Calls are serialized.
func (h *headlessBrowser) WithPage(ctx context.Context, url string, fn func(page *rod.Page) error) error {
	h.launchOnce.Do(h.launch)

	var browser *rod.Browser
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b, ok := <-h.ch:
		if !ok {
			if h.launchErr != nil {
				return h.launchErr
			}
			return errClosed
		}
		browser = b
	}
	defer func() { h.ch <- browser }()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx)
	if h.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: h.userAgent, AcceptLanguage: "ja"}); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := rod.Try(func() {
		page.Timeout(PageStableTimeout).MustWaitStable()
	}); err != nil {
		return fmt.Errorf("wait for page stable: %w", err)
	}

	return fn(page)
}

// rodLauncherLogger is an io.Writer that forwards launcher output (e.g. download progress) to slog at debug level.
type rodLauncherLogger struct {
	buf []byte
}

func (w *rodLauncherLogger) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
		if line != "" {
			slog.Debug("rod launcher", "message", line)
		}
	}
	return len(p), nil
}

func newRodLauncherLogger() io.Writer {
	return &rodLauncherLogger{}
}
