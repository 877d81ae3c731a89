// Package classify provides the website classifier.
//
// A Classifier turns (URL, category) entries into a trained model: every URL
// is fetched through a content store, normalized into a token document, and
// the documents are vectorized with TF-IDF and fed to a linear model. The
// classifier is Untrained until the first Train or Update succeeds, and it
// remembers every document it has seen so that Update can retrain on the
// whole history.
//
// Classify may be called concurrently with itself and with Train/Update; a
// training call builds a complete new model and swaps it in under a write
// lock, so readers always see a matching vectorizer and linear model.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/chriscorrea/sitecat/internal/dataset"
	"github.com/chriscorrea/sitecat/internal/linear"
	"github.com/chriscorrea/sitecat/internal/tfidf"
)

// ErrNotTrained is returned when classifying before any training.
var ErrNotTrained = errors.New("classifier is not trained")

// ErrFeaturesChanged is returned by Restore for a snapshot whose documents
// were normalized with other settings than the current ones.
var ErrFeaturesChanged = errors.New("normalizer settings changed")

// ContentStore returns the raw content of a URL.
type ContentStore interface {
	GetContent(ctx context.Context, url string, force bool) ([]byte, error)
}

// Normalizer turns raw content into a space-joined token document.
type Normalizer interface {
	Document(raw []byte) (string, error)
}

// Options control feature extraction and training.
type Options struct {
	MaxFeatures int
	Linear      linear.Options
	// Features describes the normalizer settings. It is saved with every
	// snapshot and must match on Restore.
	Features string
	// Force re-fetches every page instead of reading the page cache.
	Force bool
	// Progress, if set, is called after each document is prepared.
	Progress func(done, total int)
}

// Document is a normalized page with its label.
type Document struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Classifier is the trainable website classifier.
type Classifier struct {
	store      ContentStore
	normalizer Normalizer
	opts       Options

	// writeMu serialises Train and Update.
	writeMu sync.Mutex

	mu    sync.RWMutex
	model *Model
	docs  map[string]Document // by dataset.Key
}

// New creates an untrained classifier.
func New(store ContentStore, normalizer Normalizer, opts Options) *Classifier {
	return &Classifier{
		store:      store,
		normalizer: normalizer,
		opts:       opts,
		docs:       make(map[string]Document),
	}
}

// Trained reports whether a model is available.
func (c *Classifier) Trained() bool {
	return c.current() != nil
}

// Categories returns the labels the model can predict.
func (c *Classifier) Categories() []string {
	if m := c.current(); m != nil {
		return append([]string(nil), m.Linear.Classes...)
	}
	return nil
}

func (c *Classifier) current() *Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Train fits a new model on exactly entries. When a URL appears more than
// once the last entry decides its category. The documents are also added to
// the history used by Update. On failure the previous state is untouched.
func (c *Classifier) Train(ctx context.Context, entries []dataset.Entry) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	docs, err := c.documents(ctx, entries)
	if err != nil {
		return err
	}
	model, err := c.fit(docs)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
	for _, doc := range docs {
		c.docs[dataset.Key(doc.URL)] = doc
	}
	slog.Debug("Trained classifier", "documents", len(docs), "classes", len(model.Linear.Classes))
	return nil
}

// Update adds entries to the history and refits on everything seen so far.
// New entries override earlier ones for the same URL.
func (c *Classifier) Update(ctx context.Context, entries []dataset.Entry) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	fresh, err := c.documents(ctx, entries)
	if err != nil {
		return err
	}

	c.mu.RLock()
	merged := make(map[string]Document, len(c.docs)+len(fresh))
	for key, doc := range c.docs {
		merged[key] = doc
	}
	c.mu.RUnlock()
	for _, doc := range fresh {
		merged[dataset.Key(doc.URL)] = doc
	}

	all := sortedDocuments(merged)
	model, err := c.fit(all)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
	c.docs = merged
	slog.Debug("Updated classifier", "new", len(fresh), "documents", len(all))
	return nil
}

// Classify returns the predicted category of url.
func (c *Classifier) Classify(ctx context.Context, url string) (string, error) {
	model := c.current()
	if model == nil {
		return "", ErrNotTrained
	}

	text, err := c.text(ctx, url)
	if err != nil {
		return "", err
	}
	return model.Predict(text)
}

// documents fetches and normalizes the URLs of entries in key order. A URL
// given more than once, under any spelling, becomes one document with the
// last category.
func (c *Classifier) documents(ctx context.Context, entries []dataset.Entry) ([]Document, error) {
	unique := dataset.Unique(entries)
	sort.Slice(unique, func(i, j int) bool { return dataset.Key(unique[i].URL) < dataset.Key(unique[j].URL) })

	docs := make([]Document, 0, len(unique))
	for i, e := range unique {
		text, err := c.text(ctx, e.URL)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{URL: e.URL, Category: e.Category, Text: text})
		if c.opts.Progress != nil {
			c.opts.Progress(i+1, len(unique))
		}
	}
	return docs, nil
}

func (c *Classifier) text(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := c.store.GetContent(ctx, url, c.opts.Force)
	if err != nil {
		return "", fmt.Errorf("failed to get content of %s: %w", url, err)
	}
	text, err := c.normalizer.Document(raw)
	if err != nil {
		return "", fmt.Errorf("failed to normalize %s: %w", url, err)
	}
	return text, nil
}

// fit builds a new vectorizer and linear model from docs.
func (c *Classifier) fit(docs []Document) (*Model, error) {
	if len(docs) == 0 {
		return nil, errors.New("no entries to train on")
	}

	texts := make([]string, len(docs))
	labels := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
		labels[i] = doc.Category
	}

	vectorizer := tfidf.New(c.opts.MaxFeatures)
	X, err := vectorizer.FitTransform(texts)
	if err != nil {
		return nil, err
	}
	lm, err := linear.Fit(X, labels, c.opts.Linear)
	if err != nil {
		return nil, fmt.Errorf("failed to fit linear model: %w", err)
	}
	return &Model{Vectorizer: vectorizer, Linear: lm}, nil
}

func sortedDocuments(docs map[string]Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return dataset.Key(out[i].URL) < dataset.Key(out[j].URL) })
	return out
}
