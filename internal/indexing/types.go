package indexing

import "errors"

// ErrInvalidConfig is returned when a chunk size is zero or negative
var ErrInvalidConfig = errors.New("invalid configuration")

// Metadata holds the entities extracted from a piece of text
type Metadata struct {
	MonetaryAmounts  []string `json:"monetary_amounts"`
	Percentages      []string `json:"percentages"`
	Dates            []string `json:"dates"`
	PotentialTickers []string `json:"potential_tickers"` // Deduplicated, sorted
}

// EntityCount returns the total number of extracted entities
func (m Metadata) EntityCount() int {
	return len(m.MonetaryAmounts) + len(m.Percentages) + len(m.Dates) + len(m.PotentialTickers)
}

// ChunkRecord represents one processed chunk ready for embedding or indexing
type ChunkRecord struct {
	ID         string   `json:"id,omitempty"`
	ChunkIndex int      `json:"chunk_index"`
	Text       string   `json:"text"`
	CharCount  int      `json:"char_count"`            // Unicode code points, not bytes
	TokenCount int      `json:"token_count,omitempty"` // Filled by Processor
	SourceFile string   `json:"source_file,omitempty"`
	Metadata   Metadata `json:"metadata"`
}

// Document is a raw source document
type Document struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}
