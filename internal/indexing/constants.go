package indexing

// Chunking strategy constants
const (
	// DefaultChunkSize is the target chunk size in code points (~375 tokens)
	DefaultChunkSize = 1500

	// DefaultChunkOverlap is the trailing context carried into the next chunk
	DefaultChunkOverlap = 200

	// CharsPerToken is the approximation for token estimation
	CharsPerToken = 4

	// ParagraphSeparator separates paragraphs in cleaned text
	ParagraphSeparator = "\n\n"

	// IndexSchemaVersion increments when chunking logic or the record layout changes
	// v1: sentence-aware chunking with financial metadata
	IndexSchemaVersion = 1
)
