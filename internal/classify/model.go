package classify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chriscorrea/sitecat/internal/dataset"
	"github.com/chriscorrea/sitecat/internal/linear"
	"github.com/chriscorrea/sitecat/internal/tfidf"
)

// Model is a fitted vectorizer together with the linear model trained on its
// features. The two are only ever created, stored and replaced together.
type Model struct {
	Vectorizer *tfidf.Vectorizer `json:"vectorizer"`
	Linear     *linear.Model     `json:"linear"`
}

// Predict returns the category of a normalized document.
func (m *Model) Predict(document string) (string, error) {
	vectors, err := m.Vectorizer.Transform([]string{document})
	if err != nil {
		return "", err
	}
	if vectors[0].NNZ() == 0 {
		slog.Debug("Document has no known terms, predicting from intercepts")
	}
	return m.Linear.Predict(vectors[0]), nil
}

// validate checks that the linear model was trained on this vectorizer.
func (m *Model) validate() error {
	if m == nil || m.Vectorizer == nil || m.Linear == nil {
		return errors.New("model is incomplete")
	}
	if !m.Vectorizer.Fitted() {
		return tfidf.ErrNotFitted
	}
	if len(m.Linear.Classes) == 0 {
		return errors.New("model has no classes")
	}
	if len(m.Linear.Classes) == 1 {
		return nil
	}
	if len(m.Linear.Coef) != len(m.Linear.Classes) || len(m.Linear.Intercept) != len(m.Linear.Classes) {
		return errors.New("model weights do not match its classes")
	}
	for k, coef := range m.Linear.Coef {
		if len(coef) != m.Vectorizer.Dim() {
			return fmt.Errorf("weights of class %q have %d features, vectorizer has %d",
				m.Linear.Classes[k], len(coef), m.Vectorizer.Dim())
		}
	}
	return nil
}

// Snapshot is the persistent state of a trained classifier: the model and the
// document history that Update retrains on.
type Snapshot struct {
	Features  string     `json:"features"`
	Model     *Model     `json:"model"`
	Documents []Document `json:"documents"`
}

// Snapshot captures the current state. It fails with ErrNotTrained before
// the first successful training.
func (c *Classifier) Snapshot() (Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.model == nil {
		return Snapshot{}, ErrNotTrained
	}
	return Snapshot{Features: c.opts.Features, Model: c.model, Documents: sortedDocuments(c.docs)}, nil
}

// Restore creates a trained classifier from a snapshot. A snapshot taken
// with other Features fails with ErrFeaturesChanged.
func Restore(s Snapshot, store ContentStore, normalizer Normalizer, opts Options) (*Classifier, error) {
	if s.Features != opts.Features {
		return nil, fmt.Errorf("%w: saved %q, current %q", ErrFeaturesChanged, s.Features, opts.Features)
	}
	if err := s.Model.validate(); err != nil {
		return nil, fmt.Errorf("invalid model snapshot: %w", err)
	}

	c := New(store, normalizer, opts)
	c.model = s.Model
	for _, doc := range s.Documents {
		c.docs[dataset.Key(doc.URL)] = doc
	}
	return c, nil
}
