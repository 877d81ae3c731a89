package classify

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/chriscorrea/sitecat/internal/dataset"
	"github.com/chriscorrea/sitecat/internal/linear"
	"github.com/chriscorrea/sitecat/internal/sparse"
	"github.com/chriscorrea/sitecat/internal/tfidf"
)

// Misclassification is an evaluation entry whose prediction was wrong.
type Misclassification struct {
	URL       string `json:"url"`
	Category  string `json:"category"`
	Predicted string `json:"predicted"`
}

// Evaluation is the result of Accuracy.
type Evaluation struct {
	Score         float64             `json:"score"`
	Total         int                 `json:"total"`
	Misclassified []Misclassification `json:"misclassified"`
}

// Accuracy classifies every entry and returns the fraction predicted
// correctly together with the entries that were not. An empty entry list
// scores 0.
func (c *Classifier) Accuracy(ctx context.Context, entries []dataset.Entry) (Evaluation, error) {
	if len(entries) == 0 {
		return Evaluation{}, nil
	}
	if !c.Trained() {
		return Evaluation{}, ErrNotTrained
	}

	eval := Evaluation{Total: len(entries)}
	correct := 0
	for i, e := range entries {
		predicted, err := c.Classify(ctx, e.URL)
		if err != nil {
			return Evaluation{}, err
		}
		if predicted == e.Category {
			correct++
		} else {
			eval.Misclassified = append(eval.Misclassified, Misclassification{
				URL: e.URL, Category: e.Category, Predicted: predicted,
			})
		}
		if c.opts.Progress != nil {
			c.opts.Progress(i+1, len(entries))
		}
	}

	eval.Score = float64(correct) / float64(len(entries))
	return eval, nil
}

// InsufficientDataError reports a fold count that the corpus cannot support.
type InsufficientDataError struct {
	Folds    int
	Category string // smallest category
	Count    int
}

func (e *InsufficientDataError) Error() string {
	switch {
	case e.Folds < 2:
		return fmt.Sprintf("cannot run %d-fold cross-validation: at least 2 folds are required", e.Folds)
	case e.Category == "":
		return fmt.Sprintf("cannot run %d-fold cross-validation: no entries", e.Folds)
	}
	return fmt.Sprintf("cannot run %d-fold cross-validation: category %q has only %d entries",
		e.Folds, e.Category, e.Count)
}

// CrossValidation holds the held-out accuracy of every fold and their mean.
type CrossValidation struct {
	Scores []float64 `json:"scores"`
	Mean   float64   `json:"mean"`
}

// CrossValidate runs stratified k-fold cross-validation of the linear model.
//
// The vectorizer is fitted once on the texts of all entries rather than per
// fold, so vocabulary and IDF weights see the held-out documents. Scores are
// therefore slightly optimistic. Within each category the documents are
// shuffled with the configured seed and dealt round-robin into folds.
//
// folds must be at least 2 and at most the size of the smallest category,
// otherwise *InsufficientDataError is returned before anything is fetched.
// The classifier's own state is not changed.
func (c *Classifier) CrossValidate(ctx context.Context, entries []dataset.Entry, folds int) (CrossValidation, error) {
	if err := checkFolds(entries, folds); err != nil {
		return CrossValidation{}, err
	}

	docs, err := c.documents(ctx, entries)
	if err != nil {
		return CrossValidation{}, err
	}

	texts := make([]string, len(docs))
	labels := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
		labels[i] = doc.Category
	}
	X, err := tfidf.New(c.opts.MaxFeatures).FitTransform(texts)
	if err != nil {
		return CrossValidation{}, err
	}

	assignment := assignFolds(labels, folds, c.opts.Linear.Seed)
	result := CrossValidation{Scores: make([]float64, folds)}
	for f := range folds {
		var trainX, testX []sparse.Vector
		var trainY, testY []string
		for i, fold := range assignment {
			if fold == f {
				testX, testY = append(testX, X[i]), append(testY, labels[i])
			} else {
				trainX, trainY = append(trainX, X[i]), append(trainY, labels[i])
			}
		}

		model, err := linear.Fit(trainX, trainY, c.opts.Linear)
		if err != nil {
			return CrossValidation{}, fmt.Errorf("failed to fit fold %d: %w", f+1, err)
		}
		correct := 0
		for i, predicted := range model.PredictAll(testX) {
			if predicted == testY[i] {
				correct++
			}
		}
		result.Scores[f] = float64(correct) / float64(len(testY))
		slog.Debug("Cross-validation fold", "fold", f+1, "train", len(trainY), "test", len(testY), "score", result.Scores[f])
	}

	result.Mean = stat.Mean(result.Scores, nil)
	return result, nil
}

// checkFolds validates folds against the smallest category, counting each URL
// once with its last category.
func checkFolds(entries []dataset.Entry, folds int) error {
	if folds < 2 {
		return &InsufficientDataError{Folds: folds}
	}

	counts := make(map[string]int)
	for _, category := range dataset.Index(entries) {
		counts[category]++
	}
	if len(counts) == 0 {
		return &InsufficientDataError{Folds: folds}
	}

	categories := dataset.Categories(counts)
	smallest, smallestCount := categories[0], counts[categories[0]]
	for _, category := range categories[1:] {
		if counts[category] < smallestCount {
			smallest, smallestCount = category, counts[category]
		}
	}
	if folds > smallestCount {
		return &InsufficientDataError{Folds: folds, Category: smallest, Count: smallestCount}
	}
	return nil
}

// assignFolds returns the fold of every example. Each class is shuffled with
// a generator seeded with seed and dealt round-robin, so every fold holds
// every class.
func assignFolds(labels []string, folds int, seed int64) []int {
	byClass := make(map[string][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}

	assignment := make([]int, len(labels))
	for _, class := range dataset.Categories(byClass) {
		members := byClass[class]
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		for j, i := range members {
			assignment[i] = j % folds
		}
	}
	return assignment
}
