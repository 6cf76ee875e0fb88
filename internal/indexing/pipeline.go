package indexing

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ProcessDocument cleans text, chunks it and extracts metadata per chunk
func ProcessDocument(text string, chunkSize, chunkOverlap int) ([]ChunkRecord, error) {
	cleaned := CleanText(text)

	chunks, err := ChunkText(cleaned, chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}

	records := make([]ChunkRecord, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, ChunkRecord{
			ChunkIndex: i,
			Text:       chunk,
			CharCount:  utf8.RuneCountInString(chunk), // True character count, not bytes
			Metadata:   ExtractMetadata(chunk),
		})
	}

	return records, nil
}

// TokenCounter counts tokens for the token_count field of a record
type TokenCounter interface {
	Count(text string) int
}

// ProcessorConfig configures a Processor
type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int

	// Counter fills TokenCount (nil = EstimateTokens)
	Counter TokenCounter
}

// Processor runs ProcessDocument over source documents with a fixed configuration
// and stamps each record with its source, ID and token count.
// It holds no mutable state and is safe for concurrent use.
type Processor struct {
	config ProcessorConfig
}

// NewProcessor validates the configuration once
func NewProcessor(cfg ProcessorConfig) (*Processor, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be greater than 0, got %d", ErrInvalidConfig, cfg.ChunkSize)
	}
	cfg.ChunkOverlap = clampOverlap(cfg.ChunkOverlap, cfg.ChunkSize)
	return &Processor{config: cfg}, nil
}

// Config returns the effective configuration (overlap already clamped)
func (p *Processor) Config() ProcessorConfig {
	return p.config
}

// Process runs the pipeline over one document
func (p *Processor) Process(doc Document) ([]ChunkRecord, error) {
	records, err := ProcessDocument(doc.Content, p.config.ChunkSize, p.config.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", displayName(doc.Filename), err)
	}

	for i := range records {
		records[i].ID = ChunkID(doc.Filename, records[i].ChunkIndex)
		records[i].SourceFile = doc.Filename
		records[i].TokenCount = p.countTokens(records[i].Text)
	}

	return records, nil
}

func (p *Processor) countTokens(text string) int {
	if p.config.Counter == nil {
		return EstimateTokens(text)
	}
	return p.config.Counter.Count(text)
}

// ChunkID builds a stable record ID from the source filename and chunk index
// Example: ("calls/acme_q1.txt", 3) -> "calls_acme_q1_chunk3"
func ChunkID(filename string, index int) string {
	if filename == "" {
		return fmt.Sprintf("chunk_%d", index)
	}
	base := strings.TrimSuffix(filepath.ToSlash(filename), filepath.Ext(filename))
	base = strings.ReplaceAll(base, "/", "_")
	return fmt.Sprintf("%s_chunk%d", base, index)
}

func displayName(filename string) string {
	if filename == "" {
		return "document"
	}
	return filename
}
