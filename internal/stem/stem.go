// Package stem reduces words to approximate root forms.
//
// Polish words are handled by a light suffix-stripping stemmer; the languages
// supported by the Snowball project are delegated to github.com/kljensen/snowball.
// Every stemmer returned by New is stable: stemming a stem returns it unchanged.
package stem

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball"
)

// Stemmer reduces a single lowercase word to its stem.
type Stemmer interface {
	Stem(word string) string
}

// snowballLanguages lists the languages accepted by snowball.Stem.
var snowballLanguages = map[string]struct{}{
	"english":   {},
	"french":    {},
	"hungarian": {},
	"norwegian": {},
	"russian":   {},
	"spanish":   {},
	"swedish":   {},
}

// New returns a stable stemmer for the given language name.
func New(language string) (Stemmer, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "polish" {
		return Stable(Polish{}), nil
	}
	if _, ok := snowballLanguages[language]; ok {
		return Stable(Snowball{Language: language}), nil
	}
	return nil, fmt.Errorf("no stemmer for language %q", language)
}

// Snowball stems words with the Snowball algorithm for Language.
type Snowball struct {
	Language string
}

// Stem returns the Snowball stem of word, or word itself if stemming fails.
func (s Snowball) Stem(word string) string {
	stemmed, err := snowball.Stem(word, s.Language, true)
	if err != nil {
		return word
	}
	return stemmed
}

// maxStemRounds bounds the fixpoint loop; every productive round shortens the word.
const maxStemRounds = 32

type stable struct {
	inner Stemmer
}

// Stable wraps s so that its output is a fixpoint: the inner stemmer is applied
// until the word stops changing.
func Stable(s Stemmer) Stemmer {
	if _, ok := s.(stable); ok {
		return s
	}
	return stable{inner: s}
}

func (s stable) Stem(word string) string {
	for range maxStemRounds {
		next := s.inner.Stem(word)
		if next == word {
			return word
		}
		word = next
	}
	return word
}
