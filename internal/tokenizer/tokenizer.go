// Package tokenizer reports token counts for chunk records.
// Counts are informational only: chunks are always sized in code points.
package tokenizer

import (
	"fmt"
	"slices"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"go.uber.org/zap"

	"github.com/krakend/rag-preprocessor/internal/indexing"
)

// DefaultEncoding is used when no encoding is configured
const DefaultEncoding = "cl100k_base"

// Encodings lists the BPE encodings bundled with the offline loader
var Encodings = []string{"cl100k_base", "o200k_base", "p50k_base", "r50k_base"}

// Counter counts tokens in a text
type Counter interface {
	Count(text string) int
}

func init() {
	// Embedded dictionaries, no network requests
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TikTokenCounter counts tokens with a tiktoken BPE encoding
type TikTokenCounter struct {
	encoding string
	mu       sync.Mutex
	tk       *tiktoken.Tiktoken
}

// NewTikTokenCounter loads the named encoding ("" = DefaultEncoding)
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	if !slices.Contains(Encodings, encoding) {
		return nil, fmt.Errorf("unknown tiktoken encoding %q", encoding)
	}

	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding %q: %w", encoding, err)
	}

	return &TikTokenCounter{encoding: encoding, tk: tk}, nil
}

// Encoding returns the encoding name in use
func (c *TikTokenCounter) Encoding() string {
	return c.encoding
}

// Count returns the number of BPE tokens in text
func (c *TikTokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tk.Encode(text, nil, nil))
}

// EstimateCounter approximates tokens from the code point count
type EstimateCounter struct{}

// Count returns indexing.EstimateTokens(text)
func (EstimateCounter) Count(text string) int {
	return indexing.EstimateTokens(text)
}

// New returns a tiktoken counter for encoding, falling back to EstimateCounter
// when the encoding cannot be loaded
func New(encoding string, logger *zap.Logger) Counter {
	if logger == nil {
		logger = zap.NewNop()
	}

	counter, err := NewTikTokenCounter(encoding)
	if err != nil {
		logger.Warn("Falling back to estimated token counts", zap.String("encoding", encoding), zap.Error(err))
		return EstimateCounter{}
	}
	return counter
}
