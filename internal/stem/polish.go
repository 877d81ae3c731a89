package stem

import (
	"strings"
	"unicode/utf8"
)

// suffixRule strips cut runes from the end of a word longer than minLen runes
// that ends with one of suffixes. When prefix is set the word must also start
// with it, and the prefix is removed as well.
type suffixRule struct {
	minLen   int
	prefix   string
	suffixes []string
	cut      int
}

func (r suffixRule) apply(word string) (string, bool) {
	n := utf8.RuneCountInString(word)
	if n <= r.minLen {
		return word, false
	}
	if r.prefix != "" && !strings.HasPrefix(word, r.prefix) {
		return word, false
	}
	for _, suffix := range r.suffixes {
		if !strings.HasSuffix(word, suffix) {
			continue
		}
		runes := []rune(strings.TrimPrefix(word, r.prefix))
		if r.cut >= len(runes) {
			return word, false
		}
		return string(runes[:len(runes)-r.cut]), true
	}
	return word, false
}

// pass is an ordered rule list; the first matching rule wins.
type pass []suffixRule

func (p pass) apply(word string) string {
	for _, rule := range p {
		if stemmed, ok := rule.apply(word); ok {
			return stemmed
		}
	}
	return word
}

var (
	adjectivePass = pass{
		{minLen: 7, prefix: "naj", suffixes: []string{"sze", "szy"}, cut: 3},
		{minLen: 7, prefix: "naj", suffixes: []string{"szych"}, cut: 5},
		{minLen: 6, suffixes: []string{"czny"}, cut: 4},
		{minLen: 5, suffixes: []string{"owy", "owa", "owe", "ych", "ego"}, cut: 3},
		{minLen: 5, suffixes: []string{"ej"}, cut: 2},
	}

	adverbPass = pass{
		{minLen: 4, suffixes: []string{"nie", "wie"}, cut: 2},
		{minLen: 4, suffixes: []string{"rze"}, cut: 2},
	}

	diminutivePass = pass{
		{minLen: 6, suffixes: []string{"eczek", "iczek", "iszek", "aszek", "uszek"}, cut: 5},
		{minLen: 6, suffixes: []string{"enek", "ejek", "erek"}, cut: 2},
		{minLen: 4, suffixes: []string{"ek", "ak"}, cut: 2},
	}

	generalPass = pass{
		{minLen: 4, suffixes: []string{"ia", "ie"}, cut: 2},
		{minLen: 4, suffixes: []string{"u", "ą", "i", "a", "ę", "y", "ł"}, cut: 1},
	}

	nounPass = pass{
		{minLen: 7, suffixes: []string{"zacja", "zacją", "zacji"}, cut: 4},
		{minLen: 6, suffixes: []string{"acja", "acji", "acją", "tach", "anie", "enie", "eniu", "aniu"}, cut: 4},
		{minLen: 6, suffixes: []string{"tyka"}, cut: 2},
		{minLen: 5, suffixes: []string{"ach", "ami", "nia", "niu", "cia", "ciu"}, cut: 3},
		{minLen: 5, suffixes: []string{"cji", "cja", "cją"}, cut: 2},
		{minLen: 5, suffixes: []string{"ce", "ta"}, cut: 2},
	}

	pluralPass = pass{
		{minLen: 4, suffixes: []string{"ów", "om"}, cut: 2},
		{minLen: 4, suffixes: []string{"ami"}, cut: 3},
	}

	verbPass = pass{
		{minLen: 5, suffixes: []string{"bym"}, cut: 3},
		{minLen: 5, suffixes: []string{"esz", "asz", "cie", "eść", "aść", "łem", "amy", "emy"}, cut: 3},
		{minLen: 3, suffixes: []string{"esz", "asz", "eść", "aść", "eć", "ać"}, cut: 2},
		{minLen: 3, suffixes: []string{"aj"}, cut: 1},
		{minLen: 3, suffixes: []string{"em", "am", "ał", "ił", "ić", "ąc"}, cut: 2},
	}
)

// polishPasses is the fixed order in which the passes run; each pass sees the
// output of the previous one.
var polishPasses = []pass{
	adjectivePass,
	adverbPass,
	diminutivePass,
	generalPass,
	nounPass,
	pluralPass,
	verbPass,
}

// Polish is a light suffix-stripping stemmer for Polish.
type Polish struct{}

// Stem runs every pass once, in order.
func (Polish) Stem(word string) string {
	for _, p := range polishPasses {
		word = p.apply(word)
	}
	return word
}
