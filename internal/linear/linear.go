// Package linear implements a one-vs-rest linear classifier trained with
// stochastic gradient descent on the hinge loss (a linear SVM).
//
// Each class gets its own weight vector and intercept, trained to separate
// that class from all others. Prediction picks the class with the highest
// decision score. The fitted model is plain data and serializes to JSON.
package linear

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/chriscorrea/sitecat/internal/sparse"
)

const (
	DefaultAlpha  = 1e-4
	DefaultEpochs = 20
	DefaultSeed   = 123

	// interceptDecay slows intercept updates relative to the weights.
	interceptDecay = 0.01
)

// Options control training.
type Options struct {
	Alpha  float64 // L2 regularization strength
	Epochs int     // passes over the training data
	Seed   int64   // shuffle seed
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{Alpha: DefaultAlpha, Epochs: DefaultEpochs, Seed: DefaultSeed}
}

func (o Options) withDefaults() Options {
	if o.Alpha <= 0 {
		o.Alpha = DefaultAlpha
	}
	if o.Epochs <= 0 {
		o.Epochs = DefaultEpochs
	}
	return o
}

// Model is a fitted one-vs-rest classifier. Classes are sorted; Coef and
// Intercept are parallel to Classes. A single-class model has no weights.
type Model struct {
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// Fit trains a model on feature vectors X with labels y.
func Fit(X []sparse.Vector, y []string, opts Options) (*Model, error) {
	if len(X) == 0 {
		return nil, errors.New("no training examples")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("got %d examples but %d labels", len(X), len(y))
	}
	opts = opts.withDefaults()

	classes := uniqueSorted(y)
	model := &Model{Classes: classes}
	if len(classes) == 1 {
		slog.Debug("Single class training set", "class", classes[0])
		return model, nil
	}

	dim := 0
	for _, x := range X {
		dim = max(dim, x.Dim)
	}

	model.Coef = make([][]float64, len(classes))
	model.Intercept = make([]float64, len(classes))
	for k, class := range classes {
		targets := make([]float64, len(y))
		for i, label := range y {
			targets[i] = -1
			if label == class {
				targets[i] = 1
			}
		}
		model.Coef[k], model.Intercept[k] = fitBinary(X, targets, dim, opts)
	}

	slog.Debug("Fitted linear model", "examples", len(X), "classes", len(classes), "dim", dim)
	return model, nil
}

// fitBinary runs hinge-loss SGD for one class against the rest. Every class
// uses a fresh RNG with the same seed so results do not depend on class order.
func fitBinary(X []sparse.Vector, targets []float64, dim int, opts Options) ([]float64, float64) {
	w := make([]float64, dim)
	var b float64

	rng := rand.New(rand.NewSource(opts.Seed))
	t := 1.0
	for range opts.Epochs {
		for _, i := range rng.Perm(len(X)) {
			eta := 1 / (1 + opts.Alpha*t)
			margin := targets[i] * (X[i].Dot(w) + b)

			floats.Scale(1-eta*opts.Alpha, w)
			if margin < 1 {
				X[i].AddScaledTo(w, eta*targets[i])
				b += eta * targets[i] * interceptDecay
			}
			t++
		}
	}
	return w, b
}

// Scores returns the decision score of x for every class, parallel to Classes.
func (m *Model) Scores(x sparse.Vector) []float64 {
	scores := make([]float64, len(m.Classes))
	for k := range m.Coef {
		scores[k] = x.Dot(m.Coef[k]) + m.Intercept[k]
	}
	return scores
}

// Predict returns the highest scoring class; ties go to the earlier class.
func (m *Model) Predict(x sparse.Vector) string {
	if len(m.Classes) == 0 {
		return ""
	}
	scores := m.Scores(x)
	best := 0
	for k := 1; k < len(scores); k++ {
		if scores[k] > scores[best] {
			best = k
		}
	}
	return m.Classes[best]
}

// PredictAll predicts every vector in X.
func (m *Model) PredictAll(X []sparse.Vector) []string {
	labels := make([]string, len(X))
	for i, x := range X {
		labels[i] = m.Predict(x)
	}
	return labels
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	var out []string
	for _, label := range labels {
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out
}
