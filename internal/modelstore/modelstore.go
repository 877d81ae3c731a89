// Package modelstore persists trained classifiers as versioned JSON files
// keyed by the corpus they were trained on and the partition ratio.
package modelstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/chriscorrea/sitecat/internal/classify"
	"github.com/chriscorrea/sitecat/internal/fsutil"
)

// Schema tags the file format.
const Schema = "sitecat.model/v1"

// ErrNotFound is returned by Load when no model was saved under the key.
// Callers should train a new model.
var ErrNotFound = errors.New("model not found")

// Key identifies a saved model.
type Key struct {
	Corpus string  // corpus identity, normally its path
	Ratio  float64 // share of the corpus used for training
}

func (k Key) String() string {
	return k.Corpus + "@" + strconv.FormatFloat(k.Ratio, 'f', -1, 64)
}

type file struct {
	Schema string            `json:"schema"`
	Corpus string            `json:"corpus"`
	Ratio  float64           `json:"ratio"`
	Model  classify.Snapshot `json:"snapshot"`
}

// Store saves models as files in a directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file that holds the model for key.
func (s *Store) Path(key Key) string {
	base := strings.TrimSuffix(filepath.Base(key.Corpus), filepath.Ext(key.Corpus))
	name := fmt.Sprintf("%s-%016x.json", base, xxhash.Sum64String(key.String()))
	return filepath.Join(s.dir, name)
}

// Save writes snapshot under key, replacing any earlier model atomically.
func (s *Store) Save(key Key, snapshot classify.Snapshot) error {
	data, err := json.Marshal(file{
		Schema: Schema,
		Corpus: key.Corpus,
		Ratio:  key.Ratio,
		Model:  snapshot,
	})
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	path := s.Path(key)
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	slog.Debug("Saved model", "key", key.String(), "path", path, "bytes", len(data))
	return nil
}

// Load reads the model saved under key. It returns ErrNotFound when there is
// none and an error for files of another schema or another key.
func (s *Store) Load(key Key) (classify.Snapshot, error) {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return classify.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return classify.Snapshot{}, fmt.Errorf("failed to read model: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return classify.Snapshot{}, fmt.Errorf("failed to decode model %s: %w", path, err)
	}
	if f.Schema != Schema {
		return classify.Snapshot{}, fmt.Errorf("model %s has schema %q, want %q", path, f.Schema, Schema)
	}
	if f.Corpus != key.Corpus || f.Ratio != key.Ratio {
		return classify.Snapshot{}, fmt.Errorf("model %s belongs to %s@%v", path, f.Corpus, f.Ratio)
	}

	slog.Debug("Loaded model", "key", key.String(), "path", path)
	return f.Model, nil
}
