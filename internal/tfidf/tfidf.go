// Package tfidf provides a TF-IDF (Term Frequency-Inverse Document Frequency) vectorizer.
//
// The vectorizer learns a bounded vocabulary from a training corpus and maps
// documents to L2-normalized sparse vectors over it. The fitted state is
// plain data and serializes to JSON, so a reloaded vectorizer produces the
// same features as the one it was saved from.
//
// The TF-IDF weight combines:
//   - Term Frequency (TF): the raw count of a term in the document
//   - Inverse Document Frequency (IDF): ln((1+n)/(1+df)) + 1, where n is the
//     number of training documents and df the number containing the term
//
// Usage Example:
//
//	v := tfidf.New(1000)
//	vectors, err := v.FitTransform(documents)
//
// Documents are expected to be normalized already: tokens are separated by
// whitespace and are not altered further.
package tfidf

import (
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/chriscorrea/sitecat/internal/sparse"
)

// DefaultMaxFeatures is the vocabulary cap used when none is given.
const DefaultMaxFeatures = 1000

// ErrNotFitted is returned by Transform before Fit has been called.
var ErrNotFitted = errors.New("vectorizer is not fitted")

// Vectorizer holds the vocabulary and IDF weights learned by Fit.
type Vectorizer struct {
	MaxFeatures int       `json:"max_features"`
	Vocabulary  []string  `json:"vocabulary"` // sorted; position is the feature index
	IDF         []float64 `json:"idf"`        // parallel to Vocabulary

	indexOnce sync.Once
	index     map[string]int
}

// New creates an unfitted vectorizer keeping at most maxFeatures terms.
// A non-positive maxFeatures selects DefaultMaxFeatures.
func New(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Vectorizer{MaxFeatures: maxFeatures}
}

// Fitted reports whether the vectorizer has learned a vocabulary.
func (v *Vectorizer) Fitted() bool {
	return v.IDF != nil
}

// Dim returns the number of features.
func (v *Vectorizer) Dim() int {
	return len(v.Vocabulary)
}

// Fit learns the vocabulary and IDF weights from documents, replacing any
// previous state. The MaxFeatures most frequent terms are kept, with ties
// broken alphabetically.
func (v *Vectorizer) Fit(documents []string) {
	if v.MaxFeatures <= 0 {
		v.MaxFeatures = DefaultMaxFeatures
	}

	totals := make(map[string]int)
	docFreqs := make(map[string]int)
	for _, doc := range documents {
		seen := make(map[string]bool)
		for _, token := range strings.Fields(doc) {
			totals[token]++
			if !seen[token] {
				seen[token] = true
				docFreqs[token]++
			}
		}
	}

	terms := make([]string, 0, len(totals))
	for term := range totals {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if totals[terms[i]] != totals[terms[j]] {
			return totals[terms[i]] > totals[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > v.MaxFeatures {
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(documents))
	v.Vocabulary = terms
	v.IDF = make([]float64, len(terms))
	for i, term := range terms {
		v.IDF[i] = math.Log((1+n)/(1+float64(docFreqs[term]))) + 1
	}
	v.index = v.lookup()

	slog.Debug("Fitted TF-IDF vectorizer", "documents", len(documents), "terms", len(totals), "features", len(terms))
}

// Transform maps documents to TF-IDF vectors over the fitted vocabulary.
// Terms outside the vocabulary are ignored; a document with no known terms
// becomes the zero vector.
func (v *Vectorizer) Transform(documents []string) ([]sparse.Vector, error) {
	if !v.Fitted() {
		return nil, ErrNotFitted
	}
	// a vectorizer decoded from JSON builds its index on first use
	v.indexOnce.Do(func() {
		if v.index == nil {
			v.index = v.lookup()
		}
	})
	index := v.index

	vectors := make([]sparse.Vector, len(documents))
	for d, doc := range documents {
		counts := make(map[int]float64)
		for _, token := range strings.Fields(doc) {
			if idx, ok := index[token]; ok {
				counts[idx]++
			}
		}

		indices := make([]int, 0, len(counts))
		for idx := range counts {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		values := make([]float64, len(indices))
		for i, idx := range indices {
			values[i] = counts[idx] * v.IDF[idx]
		}
		if norm := floats.Norm(values, 2); norm > 0 {
			floats.Scale(1/norm, values)
		}

		vectors[d] = sparse.Vector{Dim: len(v.Vocabulary), Indices: indices, Values: values}
	}
	return vectors, nil
}

// FitTransform fits on documents and transforms them.
func (v *Vectorizer) FitTransform(documents []string) ([]sparse.Vector, error) {
	v.Fit(documents)
	return v.Transform(documents)
}

// lookup maps each vocabulary term to its feature index.
func (v *Vectorizer) lookup() map[string]int {
	index := make(map[string]int, len(v.Vocabulary))
	for i, term := range v.Vocabulary {
		index[term] = i
	}
	return index
}
