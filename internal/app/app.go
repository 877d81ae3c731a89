// Package app contains the core application logic for sitecat. It wires the
// page cache, normalizer, classifier and model store together and implements
// the commands shared by the CLI and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/chriscorrea/sitecat/internal/classify"
	"github.com/chriscorrea/sitecat/internal/config"
	"github.com/chriscorrea/sitecat/internal/content"
	"github.com/chriscorrea/sitecat/internal/dataset"
	"github.com/chriscorrea/sitecat/internal/fetch"
	"github.com/chriscorrea/sitecat/internal/linear"
	"github.com/chriscorrea/sitecat/internal/modelstore"
	"github.com/chriscorrea/sitecat/internal/normalize"
	"github.com/chriscorrea/sitecat/internal/stem"
)

// FullRatio trains on the whole corpus. Classify and Update use the model
// trained with it.
const FullRatio = 1.0

// App holds the components built from a Config.
type App struct {
	cfg        *config.Config
	source     content.Source
	pages      *content.Store
	normalizer *normalize.Normalizer
	features   string
	models     *modelstore.Store
	browser    *fetch.BrowserFetcher
	progress   func(done, total int)

	mu          sync.Mutex
	classifiers map[modelstore.Key]*classify.Classifier

	// updateMu serialises update-and-save.
	updateMu sync.Mutex
}

// Option configures an App.
type Option func(*App)

// WithSource replaces the fetch strategy used on page cache misses.
func WithSource(source content.Source) Option {
	return func(a *App) {
		a.source = source
	}
}

// WithProgress sets a callback reporting how many pages of the current
// operation are ready.
func WithProgress(fn func(done, total int)) Option {
	return func(a *App) {
		a.progress = fn
	}
}

// New builds an App. The browser is only started on the first page fetch
// that needs it; call Close to shut it down.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:         cfg,
		models:      modelstore.NewStore(cfg.ModelDir),
		classifiers: make(map[modelstore.Key]*classify.Classifier),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.source == nil {
		a.source = a.newStrategy()
	}
	a.pages = content.NewStore(cfg.CacheDir, a.source)

	normalizer, features, err := newNormalizer(cfg)
	if err != nil {
		return nil, err
	}
	a.normalizer, a.features = normalizer, features

	return a, nil
}

func (a *App) newStrategy() *fetch.Strategy {
	httpOpts := []fetch.HTTPOption{fetch.WithHTTPTimeout(a.cfg.Fetch.HTTPTimeout)}
	browserOpts := []fetch.BrowserOption{fetch.WithBrowserTimeout(a.cfg.Fetch.BrowserTimeout)}
	if ua := a.cfg.Fetch.UserAgent; ua != "" {
		httpOpts = append(httpOpts, fetch.WithHTTPUserAgent(ua))
		browserOpts = append(browserOpts, fetch.WithBrowserUserAgent(ua))
	}

	strategy := &fetch.Strategy{Fallback: fetch.NewHTTPFetcher(httpOpts...)}
	if a.cfg.Fetch.Browser {
		a.browser = fetch.NewBrowserFetcher(browserOpts...)
		strategy.Primary = a.browser
	}
	return strategy
}

// newNormalizer builds the normalizer and a description of its settings.
// Documents normalized under one description must never meet a model saved
// under another.
func newNormalizer(cfg *config.Config) (*normalize.Normalizer, string, error) {
	var stopwords normalize.Stopwords
	if cfg.StopwordsFile != "" {
		f, err := os.Open(cfg.StopwordsFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open stop-words file: %w", err)
		}
		defer f.Close()
		if stopwords, err = normalize.LoadStopwords(f); err != nil {
			return nil, "", fmt.Errorf("failed to read stop-words file: %w", err)
		}
	} else {
		var err error
		if stopwords, err = normalize.DefaultStopwords(cfg.Language); err != nil {
			return nil, "", err
		}
	}

	opts := []normalize.Option{normalize.WithStopwords(stopwords)}
	if cfg.Stemming {
		stemmer, err := stem.New(cfg.Language)
		if err != nil {
			return nil, "", err
		}
		opts = append(opts, normalize.WithStemmer(stemmer))
	}

	features := fmt.Sprintf("language=%s stemming=%t stopwords=%016x",
		strings.ToLower(cfg.Language), cfg.Stemming, stopwords.Hash())
	slog.Debug("Normalizer ready", "language", cfg.Language, "stopwords", len(stopwords), "stemming", cfg.Stemming)
	return normalize.New(opts...), features, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases the headless browser, if one was started.
func (a *App) Close() error {
	if a.browser == nil {
		return nil
	}
	return a.browser.Close()
}

func (a *App) classifyOptions() classify.Options {
	return classify.Options{
		MaxFeatures: a.cfg.MaxFeatures,
		Linear: linear.Options{
			Alpha:  a.cfg.Train.Alpha,
			Epochs: a.cfg.Train.Epochs,
			Seed:   a.cfg.Seed,
		},
		Features: a.features,
		Progress: a.progress,
	}
}

func (a *App) key(ratio float64) modelstore.Key {
	return modelstore.Key{Corpus: a.cfg.Corpus, Ratio: ratio}
}

// entries reads the corpus with every URL listed once.
func (a *App) entries() ([]dataset.Entry, error) {
	entries, err := dataset.ReadEntries(a.cfg.Corpus)
	if err != nil {
		return nil, err
	}
	return dataset.Unique(entries), nil
}

func (a *App) partition(ratio float64) (dataset.Partition, error) {
	entries, err := a.entries()
	if err != nil {
		return dataset.Partition{}, err
	}
	return dataset.Split(entries, ratio, a.cfg.Seed)
}

// classifier returns the classifier trained on the given share of the corpus.
// It is taken from memory, then from the model store, and trained and saved
// when neither has it or retrain is set. A saved model that cannot be loaded
// is replaced.
func (a *App) classifier(ctx context.Context, ratio float64, retrain bool) (*classify.Classifier, error) {
	key := a.key(ratio)

	a.mu.Lock()
	defer a.mu.Unlock()

	if !retrain {
		if c, ok := a.classifiers[key]; ok {
			return c, nil
		}

		c, err := a.load(key)
		if err == nil {
			a.classifiers[key] = c
			return c, nil
		}
		if errors.Is(err, modelstore.ErrNotFound) {
			slog.Info("No saved model, training", "key", key.String())
		} else {
			slog.Warn("Saved model unusable, training", "key", key.String(), "error", err)
		}
	}

	partition, err := a.partition(ratio)
	if err != nil {
		return nil, err
	}
	c := classify.New(a.pages, a.normalizer, a.classifyOptions())
	if err := c.Train(ctx, partition.Train); err != nil {
		return nil, fmt.Errorf("failed to train classifier: %w", err)
	}
	if err := a.save(key, c); err != nil {
		return nil, err
	}
	a.classifiers[key] = c
	return c, nil
}

func (a *App) load(key modelstore.Key) (*classify.Classifier, error) {
	snapshot, err := a.models.Load(key)
	if err != nil {
		return nil, err
	}
	return classify.Restore(snapshot, a.pages, a.normalizer, a.classifyOptions())
}

func (a *App) save(key modelstore.Key, c *classify.Classifier) error {
	snapshot, err := c.Snapshot()
	if err != nil {
		return err
	}
	if err := a.models.Save(key, snapshot); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	return nil
}

// Classify returns the predicted category of url using the model trained on
// the whole corpus. retrain discards any saved model first.
func (a *App) Classify(ctx context.Context, url string, retrain bool) (string, error) {
	c, err := a.classifier(ctx, FullRatio, retrain)
	if err != nil {
		return "", err
	}
	category, err := c.Classify(ctx, url)
	if err != nil {
		return "", err
	}
	slog.Debug("Classified", "url", url, "category", category)
	return category, nil
}

// Accuracy trains on the ratio share of every category and evaluates on the
// rest.
func (a *App) Accuracy(ctx context.Context, ratio float64, retrain bool) (classify.Evaluation, error) {
	partition, err := a.partition(ratio)
	if err != nil {
		return classify.Evaluation{}, err
	}
	c, err := a.classifier(ctx, ratio, retrain)
	if err != nil {
		return classify.Evaluation{}, err
	}
	return c.Accuracy(ctx, partition.Eval)
}

// CrossValidate runs stratified k-fold cross-validation over the corpus. No
// model is saved.
func (a *App) CrossValidate(ctx context.Context, folds int) (classify.CrossValidation, error) {
	entries, err := a.entries()
	if err != nil {
		return classify.CrossValidation{}, err
	}
	c := classify.New(a.pages, a.normalizer, a.classifyOptions())
	return c.CrossValidate(ctx, entries, folds)
}

// Update teaches the full-corpus model that url belongs to category and
// saves the result. The corpus file is not changed.
func (a *App) Update(ctx context.Context, url, category string) error {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()

	c, err := a.classifier(ctx, FullRatio, false)
	if err != nil {
		return err
	}
	if err := c.Update(ctx, []dataset.Entry{{URL: url, Category: category}}); err != nil {
		return fmt.Errorf("failed to update classifier: %w", err)
	}
	if err := a.save(a.key(FullRatio), c); err != nil {
		return err
	}
	slog.Info("Updated classifier", "url", url, "category", category, "categories", c.Categories())
	return nil
}
