// Package content is the page cache: it returns the raw content of a URL,
// fetching it on first access and serving the stored copy afterwards.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/chriscorrea/sitecat/internal/fetch"
	"github.com/chriscorrea/sitecat/internal/fsutil"
)

// maxNameLen bounds the readable part of cache file names.
const maxNameLen = 80

// Source fetches pages that are not cached yet.
type Source interface {
	Fetch(ctx context.Context, url string) (fetch.Result, error)
}

// Store caches fetched pages as files under a directory. Failed fetches and
// empty pages are never cached.
type Store struct {
	dir    string
	source Source
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, source Source) *Store {
	return &Store{dir: dir, source: source}
}

// GetContent returns the content of url. The cached copy is returned unless
// force is set or there is none, in which case the page is fetched and the
// cache file rewritten.
func (s *Store) GetContent(ctx context.Context, url string, force bool) ([]byte, error) {
	path := s.Path(url)

	if !force {
		data, err := os.ReadFile(path)
		if err == nil {
			slog.Debug("Page cache hit", "url", url, "path", path)
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read cached page: %w", err)
		}
	}

	slog.Info("Fetching page", "url", url, "force", force)
	result, err := s.source.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	slog.Debug("Fetched page", "url", url, "via", result.Via, "bytes", len(result.Content))

	if len(result.Content) == 0 {
		return result.Content, nil
	}
	if err := fsutil.WriteFileAtomic(path, result.Content); err != nil {
		return nil, fmt.Errorf("failed to cache page: %w", err)
	}
	return result.Content, nil
}

// Cached reports whether url has a cached copy.
func (s *Store) Cached(url string) bool {
	_, err := os.Stat(s.Path(url))
	return err == nil
}

// Path returns the cache file of url: a readable form of the URL followed by
// a hash of the canonical URL, so distinct URLs never share a file.
func (s *Store) Path(rawURL string) string {
	full := fetch.FullURL(rawURL)
	name := escapeName(full)
	return filepath.Join(s.dir, fmt.Sprintf("%s-%016x.html", name, xxhash.Sum64String(full)))
}

// escapeName drops the scheme and replaces characters that are awkward in
// file names.
func escapeName(full string) string {
	rest := full
	if u, err := url.Parse(full); err == nil && u.Host != "" {
		rest = u.Host + u.EscapedPath()
		if u.RawQuery != "" {
			rest += "_" + u.RawQuery
		}
	}

	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, rest)

	name = strings.Trim(name, "_")
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}
