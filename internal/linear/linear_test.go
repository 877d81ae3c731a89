package linear

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/chriscorrea/sitecat/internal/sparse"
)

func vec(dim int, pairs ...float64) sparse.Vector {
	v := sparse.Vector{Dim: dim}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Indices = append(v.Indices, int(pairs[i]))
		v.Values = append(v.Values, pairs[i+1])
	}
	return v
}

// threeTopics has one dominant feature per class.
func threeTopics() ([]sparse.Vector, []string) {
	X := []sparse.Vector{
		vec(3, 0, 1), vec(3, 0, 0.9, 1, 0.1), vec(3, 0, 0.8, 2, 0.2),
		vec(3, 1, 1), vec(3, 1, 0.9, 2, 0.1), vec(3, 0, 0.2, 1, 0.8),
		vec(3, 2, 1), vec(3, 0, 0.1, 2, 0.9), vec(3, 1, 0.2, 2, 0.8),
	}
	y := []string{
		"sport", "sport", "sport",
		"news", "news", "news",
		"tech", "tech", "tech",
	}
	return X, y
}

func TestFitSeparable(t *testing.T) {
	X, y := threeTopics()

	model, err := Fit(X, y, DefaultOptions())
	if err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	if !reflect.DeepEqual(model.Classes, []string{"news", "sport", "tech"}) {
		t.Errorf("Classes = %v, want sorted labels", model.Classes)
	}

	tests := []struct {
		name string
		x    sparse.Vector
		want string
	}{
		{"sport feature", vec(3, 0, 1), "sport"},
		{"news feature", vec(3, 1, 1), "news"},
		{"tech feature", vec(3, 2, 1), "tech"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := model.Predict(tt.x); got != tt.want {
				t.Errorf("Predict() = %q, want %q (scores %v)", got, tt.want, model.Scores(tt.x))
			}
		})
	}

	got := model.PredictAll(X)
	if !reflect.DeepEqual(got, y) {
		t.Errorf("PredictAll() on training data = %v, want %v", got, y)
	}
}

func TestFitSingleClass(t *testing.T) {
	model, err := Fit([]sparse.Vector{vec(2, 0, 1)}, []string{"news"}, DefaultOptions())
	if err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	for _, x := range []sparse.Vector{vec(2, 0, 1), vec(2, 1, 1), vec(2)} {
		if got := model.Predict(x); got != "news" {
			t.Errorf("Predict() = %q, want %q", got, "news")
		}
	}
}

func TestFitErrors(t *testing.T) {
	tests := []struct {
		name string
		X    []sparse.Vector
		y    []string
	}{
		{"no examples", nil, nil},
		{"label count mismatch", []sparse.Vector{vec(1, 0, 1)}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Fit(tt.X, tt.y, DefaultOptions()); err == nil {
				t.Error("Fit() expected error, got nil")
			}
		})
	}
}

func TestFitIsDeterministic(t *testing.T) {
	X, y := threeTopics()
	opts := Options{Alpha: 1e-4, Epochs: 5, Seed: 7}

	a, err := Fit(X, y, opts)
	if err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	b, err := Fit(X, y, opts)
	if err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two fits with the same seed differ")
	}
}

func TestPredictTieGoesToFirstClass(t *testing.T) {
	model := &Model{
		Classes:   []string{"alpha", "beta"},
		Coef:      [][]float64{{0}, {0}},
		Intercept: []float64{0, 0},
	}
	if got := model.Predict(vec(1, 0, 1)); got != "alpha" {
		t.Errorf("Predict() = %q, want %q", got, "alpha")
	}
}

func TestModelJSONRoundTrip(t *testing.T) {
	X, y := threeTopics()
	model, err := Fit(X, y, DefaultOptions())
	if err != nil {
		t.Fatalf("Fit() error: %v", err)
	}

	data, err := json.Marshal(model)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var loaded Model
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(loaded.PredictAll(X), model.PredictAll(X)) {
		t.Error("reloaded model predicts differently")
	}
}
