// Package counter measures page text for the inspect command: raw word,
// character and LLM token counts, and the most frequent normalized terms.
package counter

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Stats summarises a text.
type Stats struct {
	Words      int `json:"words"`
	Characters int `json:"characters"`
	Tokens     int `json:"tokens"`
}

// Measure counts the words, characters and tokens of text. When the token
// encoding cannot be loaded the word and character counts are still returned
// with the error.
func Measure(text string) (Stats, error) {
	stats := Stats{
		Words:      len(strings.Fields(text)),
		Characters: utf8.RuneCountInString(text),
	}
	tokens, err := NewTokenCounter()
	if err != nil {
		return stats, err
	}
	stats.Tokens = tokens.Count(text)
	return stats, nil
}

// Term is a term with its number of occurrences.
type Term struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// TopTerms returns the n most frequent terms, most frequent first and
// alphabetically among equals. n <= 0 returns every term.
func TopTerms(terms []string, n int) []Term {
	counts := make(map[string]int)
	for _, term := range terms {
		counts[term]++
	}

	top := make([]Term, 0, len(counts))
	for term, count := range counts {
		top = append(top, Term{Term: term, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Term < top[j].Term
	})

	if n > 0 && len(top) > n {
		top = top[:n]
	}
	return top
}
