package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/chriscorrea/sitecat/internal/counter"
	"github.com/chriscorrea/sitecat/internal/extract"
	"github.com/chriscorrea/sitecat/internal/fetch"
)

// topTermCount is the number of frequent terms listed by Inspect.
const topTermCount = 10

// Report describes what the classifier sees of a page.
type Report struct {
	URL           string         `json:"url"`
	Title         string         `json:"title,omitempty"`
	Stats         counter.Stats  `json:"stats"`
	Terms         int            `json:"terms"`
	TopTerms      []counter.Term `json:"top_terms"`
	LinkTextRatio float64        `json:"link_text_ratio"`
	MenuText      string         `json:"menu_text,omitempty"`
}

// Inspect fetches url through the page cache and reports its text statistics,
// most frequent normalized terms, link-text ratio and menu text.
func (a *App) Inspect(ctx context.Context, rawURL string) (Report, error) {
	raw, err := a.pages.GetContent(ctx, rawURL, false)
	if err != nil {
		return Report{}, fmt.Errorf("failed to get content: %w", err)
	}

	report := Report{URL: fetch.FullURL(rawURL)}

	// title is best effort; many landing pages have no readable article
	base, _ := url.Parse(report.URL)
	if page, err := extract.Readable(raw, base); err == nil {
		report.Title = page.Title
	} else {
		slog.Debug("No readable article", "url", report.URL, "error", err)
	}

	text, err := extract.Text(raw)
	if err != nil {
		return Report{}, err
	}
	report.Stats, err = counter.Measure(text)
	if err != nil {
		slog.Warn("Token count unavailable", "error", err)
	}

	terms, err := a.normalizer.Normalize(raw)
	if err != nil {
		return Report{}, err
	}
	report.Terms = len(terms)
	report.TopTerms = counter.TopTerms(terms, topTermCount)

	if report.LinkTextRatio, err = extract.LinkTextRatio(raw); err != nil {
		return Report{}, err
	}
	if report.MenuText, err = extract.MenuText(raw); err != nil {
		return Report{}, err
	}
	return report, nil
}
