package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// MaxHTTPSizeBytes limits page bodies to prevent memory overload.
const MaxHTTPSizeBytes = 20 * 1024 * 1024

// DefaultHTTPTimeout bounds a whole plain fetch.
const DefaultHTTPTimeout = 30 * time.Second

// limitedReadCloser wraps an io.ReadCloser to enforce size limits
type limitedReadCloser struct {
	io.ReadCloser
	N      int64  // max bytes remaining
	source string // for error messages
}

func (l *limitedReadCloser) Read(p []byte) (n int, err error) {
	if l.N <= 0 {
		// the limit is reached; only a body that ends here is accepted
		var extra [1]byte
		for {
			n, err := l.ReadCloser.Read(extra[:])
			if n > 0 {
				return 0, fmt.Errorf("content from %q exceeds size limit", l.source)
			}
			if err != nil {
				return 0, err
			}
		}
	}
	if int64(len(p)) > l.N {
		p = p[0:l.N]
	}
	n, err = l.ReadCloser.Read(p)
	l.N -= int64(n)
	return
}

// HTTPFetcher fetches pages with a plain GET request.
// It is safe for concurrent use.
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxBytes  int64
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPTimeout sets the request timeout.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithHTTPUserAgent sets the User-Agent header.
func WithHTTPUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBytes overrides MaxHTTPSizeBytes.
func WithMaxBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher. The phase timeouts of the transport
// are derived from the overall timeout.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		timeout:   DefaultHTTPTimeout,
		userAgent: DefaultUserAgent,
		maxBytes:  MaxHTTPSizeBytes,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: f.timeout / 6, // max time to wait for network connection
			}).DialContext,
			TLSHandshakeTimeout:   f.timeout / 6,
			ResponseHeaderTimeout: f.timeout / 2, // usually the longest phase
			Proxy:                 http.ProxyFromEnvironment,
		},
	}
	return f
}

// Fetch performs a GET request and returns the body of a 200 response.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for URL %q: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed for URL %q: status %d", url, resp.StatusCode)
	}

	// check content-length header if present to prevent memory overload
	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil && size > f.maxBytes {
			return nil, fmt.Errorf("HTTP content too large (%d bytes > %d bytes limit)", size, f.maxBytes)
		}
	}

	body, err := io.ReadAll(&limitedReadCloser{ReadCloser: resp.Body, N: f.maxBytes, source: url})
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
