// Package fetch retrieves raw page content over the network.
//
// Two fetchers are provided: BrowserFetcher renders the page in headless
// Chrome so that script-built content is included, and HTTPFetcher performs a
// plain GET. Strategy combines them: the browser is tried first and the plain
// fetch is used when the browser times out or cannot be started.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// DefaultUserAgent is a desktop Chrome user agent; some sites serve reduced
// pages to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Via names the fetcher that produced a result.
const (
	ViaBrowser = "browser"
	ViaHTTP    = "http"
)

// Fetcher retrieves the raw content of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Result is fetched content together with the fetcher that produced it.
type Result struct {
	Content []byte
	Via     string
}

// Error reports a failed fetch.
type Error struct {
	URL string
	Via string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to fetch %s via %s: %v", e.URL, e.Via, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrBrowserUnavailable is returned when headless Chrome cannot be launched.
var ErrBrowserUnavailable = errors.New("browser unavailable")

// FullURL turns a corpus URL into an absolute one. URLs starting with "http"
// are kept, "www." hosts get an http scheme, and bare hosts get "http://www.".
func FullURL(url string) string {
	url = strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(url, "http"):
		return url
	case strings.HasPrefix(url, "www."):
		return "http://" + url
	default:
		return "http://www." + url
	}
}

// Strategy fetches with Primary and falls back to Fallback when the primary
// fetch times out or the browser is unavailable. Any other failure is
// returned as is. Either fetcher may be nil.
type Strategy struct {
	Primary  Fetcher
	Fallback Fetcher
}

// Fetch retrieves url, normalized with FullURL.
func (s *Strategy) Fetch(ctx context.Context, url string) (Result, error) {
	full := FullURL(url)

	if s.Primary == nil {
		return s.fallback(ctx, full)
	}

	content, err := s.Primary.Fetch(ctx, full)
	if err == nil {
		return Result{Content: content, Via: ViaBrowser}, nil
	}
	if ctx.Err() != nil || s.Fallback == nil || !shouldFallBack(err) {
		return Result{}, &Error{URL: full, Via: ViaBrowser, Err: err}
	}

	slog.Warn("Browser fetch failed, fetching plain HTML", "url", full, "error", err)
	return s.fallback(ctx, full)
}

func (s *Strategy) fallback(ctx context.Context, url string) (Result, error) {
	if s.Fallback == nil {
		return Result{}, &Error{URL: url, Via: ViaHTTP, Err: errors.New("no fetcher configured")}
	}
	content, err := s.Fallback.Fetch(ctx, url)
	if err != nil {
		return Result{}, &Error{URL: url, Via: ViaHTTP, Err: err}
	}
	return Result{Content: content, Via: ViaHTTP}, nil
}

func shouldFallBack(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrBrowserUnavailable) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
