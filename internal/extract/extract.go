// Package extract pulls visible text and page-level features out of raw HTML.
// It handles charset decoding, markup stripping, and the readable view used by inspect.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// MaxLinkTextRatio caps LinkTextRatio so that link-only pages stay below 1.
const MaxLinkTextRatio = 0.99

// menuPattern matches class and id values of navigation containers.
var menuPattern = regexp.MustCompile(`[Mm]enu|[Nn]av`)

var metaCharsetPattern = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([a-z0-9_:.-]+)`)

// DecodingError reports content that cannot be read as text.
type DecodingError struct {
	Reason string
	Err    error
}

func (e *DecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to decode content: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to decode content: %s", e.Reason)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// Decode converts raw page bytes to a string. Valid UTF-8 is returned as is;
// otherwise a charset declared by a byte order mark or <meta> tag is honoured.
// Content that is neither fails with a *DecodingError.
func Decode(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	enc, name := declaredEncoding(raw)
	if enc == nil {
		return "", &DecodingError{Reason: "invalid UTF-8 and no declared charset"}
	}
	if name == "utf-8" {
		return "", &DecodingError{Reason: "declared UTF-8 but content is not valid UTF-8"}
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", &DecodingError{Reason: "charset " + name, Err: err}
	}
	return string(decoded), nil
}

// declaredEncoding looks for a byte order mark, then a <meta> charset in the
// first kilobyte. It returns nil when the page declares nothing.
func declaredEncoding(raw []byte) (encoding.Encoding, string) {
	if enc, name, certain := charset.DetermineEncoding(raw, ""); certain {
		return enc, name
	}

	head := raw
	if len(head) > 1024 {
		head = head[:1024]
	}
	if m := metaCharsetPattern.FindSubmatch(head); m != nil {
		return charset.Lookup(string(m[1]))
	}
	return nil, ""
}

// Text returns the visible text of an HTML page with script and style
// elements removed. The extracted text is parsed a second time so that
// escaped markup surviving the first pass is stripped too.
func Text(raw []byte) (string, error) {
	content, err := Decode(raw)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style").Remove()

	// second pass over the extracted text
	again, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Text()))
	if err != nil {
		return "", fmt.Errorf("failed to parse extracted text: %w", err)
	}
	return again.Text(), nil
}

// LinkTextRatio returns the share of alphanumeric characters that sit inside
// links, capped at MaxLinkTextRatio. A page without text has ratio 0.
func LinkTextRatio(raw []byte) (float64, error) {
	content, err := Decode(raw)
	if err != nil {
		return 0, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return 0, fmt.Errorf("failed to parse HTML: %w", err)
	}

	linkLength := 0
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		linkLength += countAlnum(s.Text())
	})

	full, err := Text(raw)
	if err != nil {
		return 0, err
	}
	fullLength := countAlnum(full)
	if fullLength == 0 {
		return 0, nil
	}

	ratio := float64(linkLength) / float64(fullLength)
	if ratio >= 1 {
		ratio = MaxLinkTextRatio
	}
	return ratio, nil
}

// MenuText returns the text of elements whose class or id looks like a menu
// or navigation container, one element per line.
func MenuText(raw []byte) (string, error) {
	content, err := Decode(raw)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style").Remove()

	var parts []string
	doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		return menuPattern.MatchString(class) || menuPattern.MatchString(id)
	}).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	return strings.Join(parts, "\n"), nil
}

// Page is the readable view of an HTML page.
type Page struct {
	Title    string
	Markdown string
}

// Readable extracts the main article of a page with go-readability and
// renders it as Markdown. baseURL may be nil.
func Readable(raw []byte, baseURL *url.URL) (Page, error) {
	content, err := Decode(raw)
	if err != nil {
		return Page{}, err
	}

	if baseURL == nil {
		baseURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(content), baseURL)
	if err != nil {
		return Page{}, fmt.Errorf("failed to extract main content: %w", err)
	}

	markdown, err := convertToMarkdown(article.Content)
	if err != nil {
		return Page{}, err
	}

	return Page{Title: strings.TrimSpace(article.Title), Markdown: markdown}, nil
}

// convertToMarkdown converts an HTML fragment to tidy Markdown
func convertToMarkdown(htmlString string) (string, error) {
	converter := md.NewConverter("", true, nil)

	markdown, err := converter.ConvertString(htmlString)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	cleaned := strings.TrimSpace(markdown)
	for strings.Contains(cleaned, "\n\n\n") {
		cleaned = strings.ReplaceAll(cleaned, "\n\n\n", "\n\n")
	}
	return cleaned, nil
}

func countAlnum(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
