// Package dataset reads labeled corpora and partitions them into training and
// evaluation sets.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/chriscorrea/sitecat/internal/fetch"
)

// DefaultSeed seeds the per-category shuffle in Split.
const DefaultSeed = 123

// Entry is one labeled example.
type Entry struct {
	URL      string `csv:"url" json:"url"`
	Category string `csv:"category" json:"category"`
}

// Partition is a training/evaluation split of a corpus.
type Partition struct {
	Train []Entry
	Eval  []Entry
}

// ReadEntries loads a corpus file. See Decode for the format.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	entries, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}
	return entries, nil
}

// Decode reads '|'-delimited rows with a header naming the url and category
// columns, in file order. Rows with an empty url are skipped.
func Decode(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.Comma = '|'
	reader.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(reader)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for {
		var e Entry
		if err := dec.Decode(&e); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		e.URL = strings.TrimSpace(e.URL)
		e.Category = strings.TrimSpace(e.Category)
		if e.URL == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Key returns the identity of a corpus URL: its canonical absolute form, the
// same one pages are fetched and cached under. "a.pl", "www.a.pl" and
// "http://www.a.pl" share a key.
func Key(url string) string {
	return fetch.FullURL(url)
}

// Index maps the key of each URL to its category. Later entries override
// earlier ones.
func Index(entries []Entry) map[string]string {
	index := make(map[string]string, len(entries))
	for _, e := range entries {
		index[Key(e.URL)] = e.Category
	}
	return index
}

// Unique returns entries with every URL key listed once, at its first
// position and spelling and with its last category.
func Unique(entries []Entry) []Entry {
	index := Index(entries)
	seen := make(map[string]bool, len(index))
	unique := make([]Entry, 0, len(index))
	for _, e := range entries {
		key := Key(e.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, Entry{URL: e.URL, Category: index[key]})
	}
	return unique
}

// ByCategory groups URLs by category, keeping file order within a category.
func ByCategory(entries []Entry) map[string][]string {
	groups := make(map[string][]string)
	for _, e := range entries {
		groups[e.Category] = append(groups[e.Category], e.URL)
	}
	return groups
}

// Categories returns the sorted keys of groups.
func Categories[V any](groups map[string]V) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Split partitions entries per category. Each category's URLs are shuffled
// with a generator freshly seeded with seed, and the first round(count*ratio)
// go to Train, the rest to Eval. The same input always yields the same split.
func Split(entries []Entry, ratio float64, seed int64) (Partition, error) {
	if ratio < 0 || ratio > 1 || math.IsNaN(ratio) {
		return Partition{}, fmt.Errorf("ratio must be between 0 and 1, got %v", ratio)
	}

	groups := ByCategory(entries)
	var p Partition
	for _, category := range Categories(groups) {
		urls := append([]string(nil), groups[category]...)

		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(urls), func(i, j int) {
			urls[i], urls[j] = urls[j], urls[i]
		})

		cut := int(math.Round(float64(len(urls)) * ratio))
		for i, url := range urls {
			e := Entry{URL: url, Category: category}
			if i < cut {
				p.Train = append(p.Train, e)
			} else {
				p.Eval = append(p.Eval, e)
			}
		}
	}
	return p, nil
}
