package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chriscorrea/sitecat/internal/fetch"
)

func TestFullURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"tvn24.pl", "http://www.tvn24.pl"},
		{"www.onet.pl", "http://www.onet.pl"},
		{"http://sport.pl/pilka", "http://sport.pl/pilka"},
		{"https://wp.pl", "https://wp.pl"},
		{"  gazeta.pl ", "http://www.gazeta.pl"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := fetch.FullURL(tt.input); got != tt.want {
				t.Errorf("FullURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHTTPFetcher(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		opts        []fetch.HTTPOption
		expectError bool
		expectData  string
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<p>hello</p>"))
			},
			expectData: "<p>hello</p>",
		},
		{
			name: "sends user agent",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(r.UserAgent()))
			},
			opts:       []fetch.HTTPOption{fetch.WithHTTPUserAgent("sitecat-test")},
			expectData: "sitecat-test",
		},
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			expectError: true,
		},
		{
			name: "body over size limit",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(strings.Repeat("x", 64)))
			},
			opts:        []fetch.HTTPOption{fetch.WithMaxBytes(16)},
			expectError: true,
		},
		{
			name: "body at size limit",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(strings.Repeat("x", 16)))
			},
			opts:       []fetch.HTTPOption{fetch.WithMaxBytes(16)},
			expectData: strings.Repeat("x", 16),
		},
		{
			name: "streamed body at size limit",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.(http.Flusher).Flush()
				_, _ = w.Write([]byte(strings.Repeat("x", 16)))
			},
			opts:       []fetch.HTTPOption{fetch.WithMaxBytes(16)},
			expectData: strings.Repeat("x", 16),
		},
		{
			name: "streamed body over size limit",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.(http.Flusher).Flush()
				_, _ = w.Write([]byte(strings.Repeat("x", 17)))
			},
			opts:        []fetch.HTTPOption{fetch.WithMaxBytes(16)},
			expectError: true,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			},
			opts:        []fetch.HTTPOption{fetch.WithHTTPTimeout(50 * time.Millisecond)},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			data, err := fetch.NewHTTPFetcher(tt.opts...).Fetch(context.Background(), server.URL)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(data) != tt.expectData {
				t.Errorf("Fetch() = %q, want %q", data, tt.expectData)
			}
		})
	}
}

type fakeFetcher struct {
	content []byte
	err     error
	calls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	return f.content, f.err
}

func TestStrategy(t *testing.T) {
	permanent := errors.New("connection refused")

	tests := []struct {
		name          string
		primary       *fakeFetcher
		fallback      *fakeFetcher
		wantVia       string
		wantErr       bool
		fallbackCalls int
	}{
		{
			name:     "primary succeeds",
			primary:  &fakeFetcher{content: []byte("rendered")},
			fallback: &fakeFetcher{content: []byte("plain")},
			wantVia:  fetch.ViaBrowser,
		},
		{
			name:          "timeout falls back",
			primary:       &fakeFetcher{err: context.DeadlineExceeded},
			fallback:      &fakeFetcher{content: []byte("plain")},
			wantVia:       fetch.ViaHTTP,
			fallbackCalls: 1,
		},
		{
			name:          "unavailable browser falls back",
			primary:       &fakeFetcher{err: fetch.ErrBrowserUnavailable},
			fallback:      &fakeFetcher{content: []byte("plain")},
			wantVia:       fetch.ViaHTTP,
			fallbackCalls: 1,
		},
		{
			name:     "other errors propagate",
			primary:  &fakeFetcher{err: permanent},
			fallback: &fakeFetcher{content: []byte("plain")},
			wantErr:  true,
		},
		{
			name:          "fallback failure propagates",
			primary:       &fakeFetcher{err: context.DeadlineExceeded},
			fallback:      &fakeFetcher{err: permanent},
			wantErr:       true,
			fallbackCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fetch.Strategy{Primary: tt.primary, Fallback: tt.fallback}
			result, err := s.Fetch(context.Background(), "example.pl")

			if len(tt.fallback.calls) != tt.fallbackCalls {
				t.Errorf("fallback called %d times, want %d", len(tt.fallback.calls), tt.fallbackCalls)
			}
			if tt.wantErr {
				var fetchErr *fetch.Error
				if !errors.As(err, &fetchErr) {
					t.Fatalf("error = %v, want *fetch.Error", err)
				}
				if fetchErr.URL != "http://www.example.pl" {
					t.Errorf("Error.URL = %q", fetchErr.URL)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Via != tt.wantVia {
				t.Errorf("Via = %q, want %q", result.Via, tt.wantVia)
			}
			if tt.primary.calls[0] != "http://www.example.pl" {
				t.Errorf("primary fetched %q, want full URL", tt.primary.calls[0])
			}
		})
	}
}

func TestStrategyHTTPOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain page"))
	}))
	defer server.Close()

	s := &fetch.Strategy{Fallback: fetch.NewHTTPFetcher()}
	result, err := s.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if result.Via != fetch.ViaHTTP || string(result.Content) != "plain page" {
		t.Errorf("Fetch() = %+v", result)
	}
}

func TestBrowserFetcherCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := fetch.NewBrowserFetcher()
	defer f.Close()

	if _, err := f.Fetch(ctx, "http://example.invalid"); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
}
