package counter

import (
	"reflect"
	"testing"
)

func TestTokenCounter(t *testing.T) {
	tc, err := NewTokenCounter()
	if err != nil {
		t.Fatalf("NewTokenCounter() error: %v", err)
	}

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hello world", 2},
	}
	for _, tt := range tests {
		if got := tc.Count(tt.text); got != tt.want {
			t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestMeasureWordsAndCharacters(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		words int
		chars int
	}{
		{"empty", "", 0, 0},
		{"whitespace", "  ala   ma kota  ", 3, 17},
		{"polish", "zażółć", 1, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// word and character counts do not depend on the token encoding
			stats, _ := Measure(tt.text)
			if stats.Words != tt.words || stats.Characters != tt.chars {
				t.Errorf("Measure(%q) = %+v, want %d words and %d characters", tt.text, stats, tt.words, tt.chars)
			}
		})
	}
}

func TestMeasure(t *testing.T) {
	stats, err := Measure("hello world")
	if err != nil {
		t.Fatalf("Measure() error: %v", err)
	}
	want := Stats{Words: 2, Characters: 11, Tokens: 2}
	if stats != want {
		t.Errorf("Measure() = %+v, want %+v", stats, want)
	}
}

func TestTopTerms(t *testing.T) {
	terms := []string{"mecz", "gol", "mecz", "liga", "gol", "mecz", "bramka"}

	tests := []struct {
		name string
		n    int
		want []Term
	}{
		{"top two", 2, []Term{{"mecz", 3}, {"gol", 2}}},
		{"ties alphabetical", 4, []Term{{"mecz", 3}, {"gol", 2}, {"bramka", 1}, {"liga", 1}}},
		{"all", 0, []Term{{"mecz", 3}, {"gol", 2}, {"bramka", 1}, {"liga", 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TopTerms(terms, tt.n); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopTerms(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}
