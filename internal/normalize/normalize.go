// Package normalize turns raw page content into the token stream the
// vectorizer is fitted on.
//
// The pipeline runs in a fixed order: visible-text extraction, line and
// phrase cleanup, word-boundary repair, tokenization, character stripping and
// lowercasing, stop-word removal, optional stemming (stems that are
// stop-words are dropped too), and finally removal of single-character
// tokens. Running the pipeline on its own output returns it unchanged.
package normalize

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/chriscorrea/sitecat/internal/extract"
	"github.com/chriscorrea/sitecat/internal/stem"
)

// Tokenizer splits cleaned text into words.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// ProseTokenizer tokenizes with prose, with tagging, segmentation and entity
// extraction switched off.
type ProseTokenizer struct{}

func (ProseTokenizer) Tokenize(text string) ([]string, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize text: %w", err)
	}

	tokens := doc.Tokens()
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		words = append(words, tok.Text)
	}
	return words, nil
}

// Normalizer holds the immutable configuration of the token pipeline.
type Normalizer struct {
	stopwords Stopwords
	stemmer   stem.Stemmer
	tokenizer Tokenizer
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStopwords sets the stop-word set. The set must not be modified afterwards.
func WithStopwords(s Stopwords) Option {
	return func(n *Normalizer) {
		n.stopwords = s
	}
}

// WithStemmer enables stemming. Stemmers are made stable so that stemming a
// stem returns it unchanged.
func WithStemmer(s stem.Stemmer) Option {
	return func(n *Normalizer) {
		if s != nil {
			n.stemmer = stem.Stable(s)
		}
	}
}

// WithTokenizer replaces the prose tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(n *Normalizer) {
		n.tokenizer = t
	}
}

// New creates a Normalizer. Without options it uses no stop-words and no stemming.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		stopwords: Stopwords{},
		tokenizer: ProseTokenizer{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize extracts the visible text of raw HTML and runs it through the
// token pipeline. Undecodable content fails with *extract.DecodingError.
func (n *Normalizer) Normalize(raw []byte) ([]string, error) {
	text, err := extract.Text(raw)
	if err != nil {
		return nil, err
	}
	return n.NormalizeText(text)
}

// Document is Normalize joined with single spaces, the form the vectorizer reads.
func (n *Normalizer) Document(raw []byte) (string, error) {
	tokens, err := n.Normalize(raw)
	if err != nil {
		return "", err
	}
	return strings.Join(tokens, " "), nil
}

// NormalizeText runs the pipeline on already extracted text.
func (n *Normalizer) NormalizeText(text string) ([]string, error) {
	text = splitWords(cleanPhrases(norm.NFC.String(text)))

	words, err := n.tokenizer.Tokenize(text)
	if err != nil {
		return nil, err
	}

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		token := strings.ToLower(stripNonAlnum(word))
		if token == "" || n.stopwords.Contains(token) {
			continue
		}
		if n.stemmer != nil {
			token = n.stemmer.Stem(token)
			if n.stopwords.Contains(token) {
				continue
			}
		}
		if utf8.RuneCountInString(token) <= 1 {
			continue
		}
		tokens = append(tokens, token)
	}

	slog.Debug("Normalized text", "words", len(words), "tokens", len(tokens))
	return tokens, nil
}

// cleanPhrases trims every line, splits lines on double spaces and joins the
// non-empty phrases with newlines.
func cleanPhrases(text string) string {
	var phrases []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				phrases = append(phrases, phrase)
			}
		}
	}
	return strings.Join(phrases, "\n")
}

// splitWords inserts a space before an uppercase letter glued to the previous
// word, as in "HelloWorld". Acronyms and quoted words are left alone.
func splitWords(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	prev := rune(-1)
	for _, r := range text {
		if prev != -1 && unicode.IsUpper(r) && !unicode.IsUpper(prev) &&
			!unicode.IsSpace(prev) && prev != '\'' && prev != '"' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func stripNonAlnum(word string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, word)
}
