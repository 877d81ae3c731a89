package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultBrowserTimeout bounds a page load in the browser.
const DefaultBrowserTimeout = 20 * time.Second

// BrowserFetcher renders pages in headless Chrome and returns the resulting
// document HTML. The browser is launched on first use and shared by all
// fetches; Close must be called when the fetcher is no longer needed.
// BrowserFetcher is safe for concurrent use.
type BrowserFetcher struct {
	timeout   time.Duration
	userAgent string

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// BrowserOption configures a BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithBrowserTimeout sets the page load timeout.
func WithBrowserTimeout(d time.Duration) BrowserOption {
	return func(f *BrowserFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithBrowserUserAgent overrides the user agent the browser reports.
func WithBrowserUserAgent(ua string) BrowserOption {
	return func(f *BrowserFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// NewBrowserFetcher creates a BrowserFetcher without launching Chrome.
func NewBrowserFetcher(opts ...BrowserOption) *BrowserFetcher {
	f := &BrowserFetcher{
		timeout:   DefaultBrowserTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// connect launches and connects to the browser once.
func (f *BrowserFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().Headless(true)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launching browser: %v", ErrBrowserUnavailable, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: connecting to browser: %v", ErrBrowserUnavailable, err)
	}

	slog.Debug("Launched headless browser", "controlURL", u)
	f.launcher = l
	f.browser = browser
	return browser, nil
}

// Fetch navigates to url, waits for the load event, and returns the HTML.
// A page that does not load within the timeout fails with an error wrapping
// context.DeadlineExceeded.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := f.connect()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent}); err != nil {
		return nil, fmt.Errorf("failed to set user agent: %w", err)
	}

	page = page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}
	return []byte(html), nil
}

// Close shuts the browser down if it was launched.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.launcher.Kill()
	f.browser, f.launcher = nil, nil
	return err
}
