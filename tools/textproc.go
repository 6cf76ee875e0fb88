package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/krakend/rag-preprocessor/internal/indexing"
	"github.com/krakend/rag-preprocessor/internal/metrics"
)

// TextToolsOptions configures the text processing tools
type TextToolsOptions struct {
	// Defaults used when a call omits its sizes
	ChunkSize    int
	ChunkOverlap int

	Counter indexing.TokenCounter

	CacheTTL      time.Duration
	CacheCapacity uint64
}

// TextTools serves clean_text, chunk_text, extract_metadata and process_document
type TextTools struct {
	opts  TextToolsOptions
	cache *processCache
}

// NewTextTools creates the text tools; Close stops the result cache
func NewTextTools(opts TextToolsOptions) *TextTools {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = indexing.DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	if opts.CacheCapacity == 0 {
		opts.CacheCapacity = defaultCacheCapacity
	}

	return &TextTools{
		opts:  opts,
		cache: newProcessCache(opts.CacheTTL, opts.CacheCapacity),
	}
}

// Close releases the cache
func (t *TextTools) Close() {
	t.cache.stop()
}

// CleanTextInput defines input for clean_text tool
type CleanTextInput struct {
	Text string `json:"text" jsonschema:"Raw text to normalize"`
}

// CleanTextOutput defines output for clean_text tool
type CleanTextOutput struct {
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
}

// CleanText normalizes Unicode, quotes, dashes and whitespace
func (t *TextTools) CleanText(ctx context.Context, req *mcp.CallToolRequest, input CleanTextInput) (*mcp.CallToolResult, CleanTextOutput, error) {
	cleaned := indexing.CleanText(input.Text)
	return nil, CleanTextOutput{Text: cleaned, CharCount: utf8.RuneCountInString(cleaned)}, nil
}

// ChunkTextInput defines input for chunk_text tool
type ChunkTextInput struct {
	Text       string `json:"text" jsonschema:"Text to split into sentence-aware chunks"`
	TargetSize *int   `json:"target_size,omitempty" jsonschema:"Target chunk size in characters (optional, defaults to 1500, must be greater than 0)"`
	Overlap    *int   `json:"overlap,omitempty" jsonschema:"Characters of trailing sentences carried into the next chunk (optional, defaults to 200)"`
}

// ChunkTextOutput defines output for chunk_text tool
type ChunkTextOutput struct {
	Chunks []string `json:"chunks"`
	Count  int      `json:"count"`
}

// ChunkText splits text into overlapping chunks without cleaning it first
func (t *TextTools) ChunkText(ctx context.Context, req *mcp.CallToolRequest, input ChunkTextInput) (*mcp.CallToolResult, ChunkTextOutput, error) {
	size, overlap := t.sizes(input.TargetSize, input.Overlap)

	chunks, err := indexing.ChunkText(input.Text, size, overlap)
	if err != nil {
		recordFailure(err)
		return nil, ChunkTextOutput{}, fmt.Errorf("chunking failed: %w", err)
	}

	return nil, ChunkTextOutput{Chunks: chunks, Count: len(chunks)}, nil
}

// ExtractMetadataInput defines input for extract_metadata tool
type ExtractMetadataInput struct {
	Text string `json:"text" jsonschema:"Text to extract monetary amounts, percentages, dates and tickers from"`
}

// ExtractMetadataOutput defines output for extract_metadata tool
type ExtractMetadataOutput struct {
	indexing.Metadata
	EntityCount int `json:"entity_count"`
}

// ExtractMetadata extracts financial entities from text
func (t *TextTools) ExtractMetadata(ctx context.Context, req *mcp.CallToolRequest, input ExtractMetadataInput) (*mcp.CallToolResult, ExtractMetadataOutput, error) {
	meta := indexing.ExtractMetadata(input.Text)
	return nil, ExtractMetadataOutput{Metadata: meta, EntityCount: meta.EntityCount()}, nil
}

// ProcessDocumentInput defines input for process_document tool
type ProcessDocumentInput struct {
	Text         string `json:"text,omitempty" jsonschema:"Document text (either text or path is required)"`
	Path         string `json:"path,omitempty" jsonschema:"Path of a UTF-8 text file to process instead of text"`
	ChunkSize    *int   `json:"chunk_size,omitempty" jsonschema:"Target chunk size in characters (optional, defaults to 1500)"`
	ChunkOverlap *int   `json:"chunk_overlap,omitempty" jsonschema:"Chunk overlap in characters (optional, defaults to 200)"`
}

// ProcessDocumentOutput defines output for process_document tool
type ProcessDocumentOutput struct {
	Chunks []indexing.ChunkRecord `json:"chunks"`
	Count  int                    `json:"count"`
	Cached bool                   `json:"cached"`
}

// ProcessDocument cleans, chunks and annotates a document
func (t *TextTools) ProcessDocument(ctx context.Context, req *mcp.CallToolRequest, input ProcessDocumentInput) (*mcp.CallToolResult, ProcessDocumentOutput, error) {
	doc, err := readDocument(input.Text, input.Path)
	if err != nil {
		return nil, ProcessDocumentOutput{}, err
	}

	size, overlap := t.sizes(input.ChunkSize, input.ChunkOverlap)

	proc, err := indexing.NewProcessor(indexing.ProcessorConfig{
		ChunkSize:    size,
		ChunkOverlap: overlap,
		Counter:      t.opts.Counter,
	})
	if err != nil {
		recordFailure(err)
		return nil, ProcessDocumentOutput{}, fmt.Errorf("processing failed: %w", err)
	}

	effective := proc.Config()
	key := cacheKey(doc.Filename, doc.Content, effective.ChunkSize, effective.ChunkOverlap)

	records, cached, err := t.cache.getOrProcess(key, func() ([]indexing.ChunkRecord, error) {
		start := time.Now()
		records, err := proc.Process(doc)
		if err != nil {
			return nil, err
		}
		metrics.RecordDocument(len(records), time.Since(start))
		return records, nil
	})
	if err != nil {
		recordFailure(err)
		return nil, ProcessDocumentOutput{}, fmt.Errorf("processing failed: %w", err)
	}

	logger.Debug("Processed document",
		zap.String("source", doc.Filename),
		zap.Int("chunks", len(records)),
		zap.Bool("cached", cached))

	return nil, ProcessDocumentOutput{Chunks: records, Count: len(records), Cached: cached}, nil
}

// sizes resolves optional sizes against the configured defaults
func (t *TextTools) sizes(size, overlap *int) (int, int) {
	s, o := t.opts.ChunkSize, t.opts.ChunkOverlap
	if size != nil {
		s = *size
	}
	if overlap != nil {
		o = *overlap
	}
	return s, o
}

// readDocument builds a document from inline text or a file path
func readDocument(text, path string) (indexing.Document, error) {
	if path == "" {
		if text == "" {
			return indexing.Document{}, errors.New("either text or path is required")
		}
		return indexing.Document{Content: text}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return indexing.Document{}, fmt.Errorf("failed to read document '%s': %w", path, err)
	}
	if !utf8.Valid(data) {
		return indexing.Document{}, fmt.Errorf("document '%s' is not valid UTF-8", path)
	}

	return indexing.Document{Filename: filepath.Base(path), Content: string(data)}, nil
}

func recordFailure(err error) {
	if errors.Is(err, indexing.ErrInvalidConfig) {
		metrics.RecordInvalidConfig()
	}
}

// RegisterTextTools registers the text processing tools
func RegisterTextTools(server *mcp.Server, t *TextTools) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "clean_text",
			Description: "Normalize text: NFKC Unicode normalization, straight quotes, ASCII hyphens, control characters removed, whitespace collapsed with paragraph breaks kept.",
		},
		t.CleanText,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "chunk_text",
			Description: "Split text into sentence-aware chunks of about target_size characters, carrying up to overlap characters of trailing sentences into the next chunk. Sentences are never split; text without sentence boundaries is cut into fixed windows.",
		},
		t.ChunkText,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "extract_metadata",
			Description: "Extract monetary amounts, percentages, dates and potential ticker symbols from text using pattern matching.",
		},
		t.ExtractMetadata,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "process_document",
			Description: "Run the full preprocessing pipeline (clean, chunk, extract metadata) on text or a file. Returns chunk records with index, text, character count, token count and metadata.",
		},
		t.ProcessDocument,
	)
}
