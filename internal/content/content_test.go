package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chriscorrea/sitecat/internal/fetch"
)

type fakeSource struct {
	pages map[string]string
	err   error
	calls int
}

func (f *fakeSource) Fetch(_ context.Context, url string) (fetch.Result, error) {
	f.calls++
	if f.err != nil {
		return fetch.Result{}, f.err
	}
	return fetch.Result{Content: []byte(f.pages[fetch.FullURL(url)]), Via: fetch.ViaHTTP}, nil
}

func TestGetContentCaches(t *testing.T) {
	source := &fakeSource{pages: map[string]string{"http://www.a.pl": "<p>v1</p>"}}
	store := NewStore(t.TempDir(), source)
	ctx := context.Background()

	first, err := store.GetContent(ctx, "a.pl", false)
	if err != nil {
		t.Fatalf("GetContent() error: %v", err)
	}
	source.pages["http://www.a.pl"] = "<p>v2</p>"

	second, err := store.GetContent(ctx, "a.pl", false)
	if err != nil {
		t.Fatalf("GetContent() error: %v", err)
	}
	if string(first) != "<p>v1</p>" || string(second) != "<p>v1</p>" {
		t.Errorf("cached reads = %q, %q, want v1 twice", first, second)
	}
	if source.calls != 1 {
		t.Errorf("source called %d times, want 1", source.calls)
	}

	forced, err := store.GetContent(ctx, "a.pl", true)
	if err != nil {
		t.Fatalf("GetContent(force) error: %v", err)
	}
	if string(forced) != "<p>v2</p>" {
		t.Errorf("forced read = %q, want v2", forced)
	}
	again, _ := store.GetContent(ctx, "a.pl", false)
	if string(again) != "<p>v2</p>" {
		t.Errorf("read after force = %q, want refreshed cache", again)
	}
}

func TestGetContentDoesNotCacheFailures(t *testing.T) {
	source := &fakeSource{err: &fetch.Error{URL: "http://www.down.pl", Via: fetch.ViaHTTP, Err: errors.New("refused")}}
	store := NewStore(t.TempDir(), source)

	_, err := store.GetContent(context.Background(), "down.pl", false)
	var fetchErr *fetch.Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("GetContent() error = %v, want *fetch.Error", err)
	}
	if store.Cached("down.pl") {
		t.Error("failed fetch was cached")
	}
}

func TestGetContentDoesNotCacheEmptyPages(t *testing.T) {
	source := &fakeSource{pages: map[string]string{}}
	store := NewStore(t.TempDir(), source)

	data, err := store.GetContent(context.Background(), "empty.pl", false)
	if err != nil {
		t.Fatalf("GetContent() error: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("GetContent() = %q, want empty", data)
	}
	if store.Cached("empty.pl") {
		t.Error("empty page was cached")
	}
}

func TestPath(t *testing.T) {
	store := NewStore("cache", nil)

	a := store.Path("onet.pl/sport?id=1")
	if filepath.Dir(a) != "cache" {
		t.Errorf("Path() dir = %q, want cache", filepath.Dir(a))
	}
	base := filepath.Base(a)
	if !strings.HasPrefix(base, "www.onet.pl_sport_id_1-") || !strings.HasSuffix(base, ".html") {
		t.Errorf("Path() = %q, want readable name", base)
	}

	if store.Path("onet.pl") != store.Path("http://www.onet.pl") {
		t.Error("equivalent URLs should share a cache file")
	}
	if store.Path("onet.pl/a_b") == store.Path("onet.pl/a/b") {
		t.Error("distinct URLs should not share a cache file")
	}

	long := store.Path("example.pl/" + strings.Repeat("x", 300))
	if len(filepath.Base(long)) > maxNameLen+len("-0123456789abcdef.html") {
		t.Errorf("Path() name too long: %d", len(filepath.Base(long)))
	}
}

func TestGetContentReadsExistingCacheFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, &fakeSource{err: errors.New("should not fetch")})

	if err := os.WriteFile(store.Path("kept.pl"), []byte("stored"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := store.GetContent(context.Background(), "kept.pl", false)
	if err != nil {
		t.Fatalf("GetContent() error: %v", err)
	}
	if string(data) != "stored" {
		t.Errorf("GetContent() = %q, want stored", data)
	}
}
