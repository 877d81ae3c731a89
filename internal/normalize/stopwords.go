package normalize

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

//go:embed stopwords/*.txt
var embedded embed.FS

// Stopwords is an immutable set of words dropped from every document.
type Stopwords map[string]struct{}

// Contains reports whether word is a stop-word.
func (s Stopwords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// Hash returns a digest of the set that does not depend on insertion order.
func (s Stopwords) Hash() uint64 {
	words := make([]string, 0, len(s))
	for word := range s {
		words = append(words, word)
	}
	sort.Strings(words)

	d := xxhash.New()
	for _, word := range words {
		d.WriteString(word)
		d.WriteString("\n")
	}
	return d.Sum64()
}

// LoadStopwords reads one word per line. Blank lines and lines starting with
// '#' are skipped; words are lowercased and NFC-normalized so they compare
// equal to normalized tokens.
func LoadStopwords(r io.Reader) (Stopwords, error) {
	words := make(Stopwords)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[norm.NFC.String(strings.ToLower(line))] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stop-words: %w", err)
	}
	return words, nil
}

// DefaultStopwords returns the built-in list for language ("polish" or "english").
func DefaultStopwords(language string) (Stopwords, error) {
	f, err := embedded.Open("stopwords/" + strings.ToLower(language) + ".txt")
	if err != nil {
		return nil, fmt.Errorf("no built-in stop-words for language %q", language)
	}
	defer f.Close()

	return LoadStopwords(f)
}
