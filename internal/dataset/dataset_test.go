package dataset

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Entry
		wantErr bool
	}{
		{
			name:  "header and rows",
			input: "url|category\ntvn24.pl|news\nsport.pl|sport\n",
			want:  []Entry{{"tvn24.pl", "news"}, {"sport.pl", "sport"}},
		},
		{
			name:  "columns in any order",
			input: "category|url\nnews|onet.pl\n",
			want:  []Entry{{"onet.pl", "news"}},
		},
		{
			name:  "blank url skipped and spaces trimmed",
			input: "url|category\n |news\n wp.pl | news \n",
			want:  []Entry{{"wp.pl", "news"}},
		},
		{
			name:  "empty file",
			input: "",
			want:  nil,
		},
		{
			name:    "ragged row",
			input:   "url|category\na.pl|news|extra\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "websites.txt")
	if err := os.WriteFile(path, []byte("url|category\na.pl|news\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadEntries(path)
	if err != nil {
		t.Fatalf("ReadEntries() error: %v", err)
	}
	if len(entries) != 1 || entries[0].URL != "a.pl" {
		t.Errorf("ReadEntries() = %v", entries)
	}

	if _, err := ReadEntries(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("ReadEntries() on missing file expected error")
	}
}

func TestIndexLaterEntryWins(t *testing.T) {
	index := Index([]Entry{{"a.pl", "news"}, {"b.pl", "sport"}, {"a.pl", "tech"}})
	if index["http://www.a.pl"] != "tech" {
		t.Errorf("Index()[a.pl] = %q, want %q", index["http://www.a.pl"], "tech")
	}
	if len(index) != 2 {
		t.Errorf("Index() has %d urls, want 2", len(index))
	}
}

func TestKey(t *testing.T) {
	for _, url := range []string{"a.pl", "www.a.pl", "http://www.a.pl", " a.pl "} {
		if got := Key(url); got != "http://www.a.pl" {
			t.Errorf("Key(%q) = %q, want %q", url, got, "http://www.a.pl")
		}
	}
	if Key("https://a.pl") == Key("a.pl") {
		t.Error("https://a.pl and a.pl should have different keys")
	}
}

func TestUnique(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    []Entry
	}{
		{
			name:    "same spelling",
			entries: []Entry{{"a.pl", "news"}, {"b.pl", "sport"}, {"a.pl", "tech"}, {"c.pl", "news"}},
			want:    []Entry{{"a.pl", "tech"}, {"b.pl", "sport"}, {"c.pl", "news"}},
		},
		{
			name:    "mixed spellings",
			entries: []Entry{{"a.pl", "news"}, {"b.pl", "sport"}, {"www.a.pl", "tech"}, {"http://www.a.pl", "sport"}},
			want:    []Entry{{"a.pl", "sport"}, {"b.pl", "sport"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unique(tt.entries); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unique() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitMixedSpellingsTrainOnce(t *testing.T) {
	p, err := Split(Unique([]Entry{{"a.pl", "news"}, {"http://www.a.pl", "sport"}}), 0.5, DefaultSeed)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(p.Train)+len(p.Eval) != 1 {
		t.Fatalf("Split() = %+v, want the page once", p)
	}
	all := append(p.Train, p.Eval...)
	if all[0].Category != "sport" {
		t.Errorf("category = %q, want the later %q", all[0].Category, "sport")
	}
}

func abCorpus() []Entry {
	return []Entry{
		{"u1", "A"}, {"u2", "A"}, {"u5", "B"}, {"u3", "A"}, {"u6", "B"}, {"u4", "A"},
	}
}

func TestSplitScenario(t *testing.T) {
	p, err := Split(abCorpus(), 0.5, DefaultSeed)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}

	count := func(entries []Entry, category string) int {
		n := 0
		for _, e := range entries {
			if e.Category == category {
				n++
			}
		}
		return n
	}

	tests := []struct {
		name     string
		entries  []Entry
		category string
		want     int
	}{
		{"train A", p.Train, "A", 2},
		{"train B", p.Train, "B", 1},
		{"eval A", p.Eval, "A", 2},
		{"eval B", p.Eval, "B", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := count(tt.entries, tt.category); got != tt.want {
				t.Errorf("count = %d, want %d", got, tt.want)
			}
		})
	}

	var all []string
	for _, e := range append(append([]Entry(nil), p.Train...), p.Eval...) {
		all = append(all, e.URL)
	}
	sort.Strings(all)
	if !reflect.DeepEqual(all, []string{"u1", "u2", "u3", "u4", "u5", "u6"}) {
		t.Errorf("partition lost or duplicated urls: %v", all)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	entries := abCorpus()
	for i := 0; i < 20; i++ {
		entries = append(entries, Entry{URL: "extra" + string(rune('a'+i)), Category: "C"})
	}

	first, err := Split(entries, 0.7, DefaultSeed)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	second, err := Split(entries, 0.7, DefaultSeed)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Split() is not deterministic")
	}
}

func TestSplitStratifies(t *testing.T) {
	var entries []Entry
	sizes := map[string]int{"news": 10, "sport": 4, "tech": 2}
	for category, n := range sizes {
		for i := 0; i < n; i++ {
			entries = append(entries, Entry{URL: category + string(rune('0'+i)), Category: category})
		}
	}

	p, err := Split(entries, 0.5, DefaultSeed)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	train, eval := ByCategory(p.Train), ByCategory(p.Eval)
	for category, n := range sizes {
		if len(train[category]) != n/2 || len(eval[category]) != n-n/2 {
			t.Errorf("%s: train=%d eval=%d, want %d/%d", category, len(train[category]), len(eval[category]), n/2, n-n/2)
		}
	}
}

func TestSplitSingleEntryCategory(t *testing.T) {
	p, err := Split([]Entry{{"only.pl", "rare"}}, 0.5, DefaultSeed)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	// round(0.5) rounds half away from zero
	if len(p.Train) != 1 || len(p.Eval) != 0 {
		t.Errorf("Split() = %+v, want the entry in Train", p)
	}
}

func TestSplitInvalidRatio(t *testing.T) {
	for _, ratio := range []float64{-0.1, 1.5} {
		if _, err := Split(abCorpus(), ratio, DefaultSeed); err == nil {
			t.Errorf("Split(ratio=%v) expected error", ratio)
		}
	}
}
