package counter

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

// TokenCounter counts tiktoken tokens, giving a feel for how large a page
// would be as model input. The encoding is loaded once per process.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter creates a TokenCounter with the cl100k_base encoding.
func NewTokenCounter() (*TokenCounter, error) {
	encodingOnce.Do(func() {
		slog.Debug("Loading tiktoken encoding", "encoding", encodingName)
		encoding, encodingErr = tiktoken.GetEncoding(encodingName)
	})
	if encodingErr != nil {
		return nil, fmt.Errorf("failed to initialize %s encoding: %w", encodingName, encodingErr)
	}
	return &TokenCounter{encoding: encoding}, nil
}

// Count returns the number of tokens in text.
func (tc *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(tc.encoding.Encode(text, nil, nil))
}
