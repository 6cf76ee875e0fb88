package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/krakend/rag-preprocessor/internal/documents"
	"github.com/krakend/rag-preprocessor/internal/indexing"
	"github.com/krakend/rag-preprocessor/internal/search"
)

// Embedded transcripts used to seed an empty index
const samplesDir = "data/sample_transcripts"

// ChunkSearchOptions configures the chunk index and its tools
type ChunkSearchOptions struct {
	// IndexPath is the index directory; the lock file is IndexPath + ".lock"
	IndexPath string

	// Defaults for index_documents
	DataDir string
	Pattern string

	Processor *indexing.Processor
	Workers   int
}

// indexHolder manages concurrent access to the chunk index
type indexHolder struct {
	// current holds the active index pointer (atomic access for lock-free reads)
	current atomic.Pointer[search.Index]

	// refreshMu prevents concurrent rebuilds
	// NOT used for searches - they are lock-free via atomic pointer
	refreshMu sync.Mutex

	// wg tracks in-flight search operations for graceful cleanup of old indexes
	wg sync.WaitGroup
}

var (
	indexMgr   = &indexHolder{}
	searchOpts ChunkSearchOptions
)

func indexPath() string {
	return indexLocation
}

// InitializeChunkSearch opens the local chunk index, seeding it from the
// embedded sample transcripts when none exists or its schema is stale
func InitializeChunkSearch(ctx context.Context, opts ChunkSearchOptions) error {
	if opts.IndexPath != "" {
		indexLocation = opts.IndexPath
	}
	if opts.Processor == nil {
		proc, err := defaultProcessor()
		if err != nil {
			return err
		}
		opts.Processor = proc
	}
	searchOpts = opts

	return ensureIndex(ctx)
}

// ensureIndex loads or seeds the chunk index unless one is already active.
// It holds refreshMu, so concurrent first searches and index_documents runs
// never build side by side.
func ensureIndex(ctx context.Context) error {
	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()

	if indexMgr.current.Load() != nil {
		return nil
	}

	startTime := time.Now()

	if err := acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire index lock: %w", err)
	}

	// Strategy 1: open the local index from a previous run
	if _, err := os.Stat(indexPath()); err == nil {
		index, err := search.Open(indexPath())
		if err == nil {
			indexMgr.current.Store(&index)
			count, _ := index.DocCount()
			logger.Info("✓ Chunk search initialized from local index",
				zap.Uint64("chunks", count),
				zap.Duration("elapsed", time.Since(startTime).Round(time.Millisecond)))
			return nil
		}

		logger.Warn("Local index unusable, rebuilding", zap.Error(err))
		if err := search.Remove(indexPath()); err != nil {
			return fmt.Errorf("failed to remove stale index: %w", err)
		}
	}

	// Strategy 2: seed from the embedded samples
	docs, err := loadEmbeddedSamples()
	if err != nil {
		return fmt.Errorf("failed to load embedded samples: %w", err)
	}

	proc := searchOpts.Processor
	if proc == nil {
		if proc, err = defaultProcessor(); err != nil {
			return err
		}
	}

	records, _, err := documents.ProcessAll(ctx, proc, docs, searchOpts.Workers, logger)
	if err != nil {
		return fmt.Errorf("failed to process embedded samples: %w", err)
	}

	if _, err := rebuildIndex(records); err != nil {
		return err
	}

	logger.Info("✓ Chunk search initialized from embedded samples",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(records)),
		zap.Duration("elapsed", time.Since(startTime).Round(time.Millisecond)))
	return nil
}

func defaultProcessor() (*indexing.Processor, error) {
	return indexing.NewProcessor(indexing.ProcessorConfig{
		ChunkSize:    indexing.DefaultChunkSize,
		ChunkOverlap: indexing.DefaultChunkOverlap,
	})
}

// loadEmbeddedSamples reads the bundled transcripts, sorted by name
func loadEmbeddedSamples() ([]indexing.Document, error) {
	entries, err := defaultDataProvider.ReadDir(samplesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", samplesDir, err)
	}

	docs := make([]indexing.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}

		data, err := defaultDataProvider.ReadFile(path.Join(samplesDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded file %s: %w", entry.Name(), err)
		}
		docs = append(docs, indexing.Document{Filename: entry.Name(), Content: string(data)})
	}

	if len(docs) == 0 {
		return nil, documents.ErrNoDocuments
	}

	slices.SortFunc(docs, func(a, b indexing.Document) int {
		return strings.Compare(a.Filename, b.Filename)
	})
	return docs, nil
}

// rebuildIndex builds a new on-disk index and swaps it in atomically.
// The previous index is closed once in-flight searches drain.
func rebuildIndex(records []indexing.ChunkRecord) (int, error) {
	n, err := search.Build(indexPath(), records, logger)
	if err != nil {
		return 0, fmt.Errorf("indexing failed: %w", err)
	}

	index, err := search.Open(indexPath())
	if err != nil {
		return 0, fmt.Errorf("failed to open new index: %w", err)
	}

	mgr := indexMgr
	oldIndexPtr := mgr.current.Swap(&index)

	// Graceful cleanup of old index in background
	go func(oldPtr *search.Index) {
		if oldPtr == nil {
			return
		}

		// Wait for all in-flight searches on old index to complete
		mgr.wg.Wait()

		if err := (*oldPtr).Close(); err != nil {
			logger.Warn("Error closing old index", zap.Error(err))
		}
	}(oldIndexPtr)

	return n, nil
}

// SearchChunksInput defines input for search_chunks tool
type SearchChunksInput struct {
	Query      string `json:"query" jsonschema:"Full-text query over chunk text"`
	Ticker     string `json:"ticker,omitempty" jsonschema:"Only return chunks mentioning this ticker (optional)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to 10, max 50)"`
}

// SearchChunksOutput defines output for search_chunks tool
type SearchChunksOutput struct {
	Results   []search.Hit `json:"results"`
	Query     string       `json:"query"`
	TotalHits int          `json:"total_hits"`
}

// SearchChunks searches the indexed chunk records
func SearchChunks(ctx context.Context, req *mcp.CallToolRequest, input SearchChunksInput) (*mcp.CallToolResult, SearchChunksOutput, error) {
	// Track in-flight searches for graceful cleanup (MUST be before Load)
	indexMgr.wg.Add(1)
	defer indexMgr.wg.Done()

	indexPtr := indexMgr.current.Load()
	if indexPtr == nil {
		logger.Info("Chunk index not initialized, initializing now")
		if err := ensureIndex(ctx); err != nil {
			return nil, SearchChunksOutput{}, fmt.Errorf("failed to initialize chunk index: %w", err)
		}
		indexPtr = indexMgr.current.Load()
		if indexPtr == nil {
			return nil, SearchChunksOutput{}, errors.New("index still nil after initialization")
		}
	}

	result, err := search.Query(*indexPtr, search.Request{
		Text:   input.Query,
		Ticker: input.Ticker,
		Max:    input.MaxResults,
	})
	if err != nil {
		return nil, SearchChunksOutput{}, err
	}

	return nil, SearchChunksOutput{
		Results:   result.Hits,
		Query:     input.Query,
		TotalHits: result.TotalHits,
	}, nil
}

// IndexDocumentsInput defines input for index_documents tool
type IndexDocumentsInput struct {
	DataDir string `json:"data_dir,omitempty" jsonschema:"Directory of text documents to index (optional, defaults to the configured data_dir)"`
	Pattern string `json:"pattern,omitempty" jsonschema:"Glob pattern for documents, ** allowed (optional, defaults to *.txt)"`
}

// IndexDocumentsOutput defines output for index_documents tool
type IndexDocumentsOutput struct {
	Stats   documents.Stats `json:"stats"`
	Indexed int             `json:"chunks_indexed"`
	Message string          `json:"message"`
}

// IndexDocuments processes a directory and replaces the chunk index with its records
func IndexDocuments(ctx context.Context, req *mcp.CallToolRequest, input IndexDocumentsInput) (*mcp.CallToolResult, IndexDocumentsOutput, error) {
	dir := input.DataDir
	if dir == "" {
		dir = searchOpts.DataDir
	}
	pattern := input.Pattern
	if pattern == "" {
		pattern = searchOpts.Pattern
	}
	if pattern == "" {
		pattern = "*.txt"
	}
	if dir == "" {
		return nil, IndexDocumentsOutput{}, errors.New("data_dir is required")
	}
	if searchOpts.Processor == nil {
		return nil, IndexDocumentsOutput{}, errors.New("chunk search is not initialized")
	}

	startTime := time.Now()

	// Serialize rebuilds
	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()

	// Lock is released by CloseChunkSearch when the process exits
	if err := acquireLock(); err != nil {
		return nil, IndexDocumentsOutput{}, fmt.Errorf("failed to acquire lock for indexing: %w", err)
	}

	docs, err := documents.Load(ctx, dir, pattern, logger)
	if err != nil {
		return nil, IndexDocumentsOutput{}, err
	}

	records, stats, err := documents.ProcessAll(ctx, searchOpts.Processor, docs, searchOpts.Workers, logger)
	if err != nil {
		return nil, IndexDocumentsOutput{}, fmt.Errorf("processing failed: %w", err)
	}

	n, err := rebuildIndex(records)
	if err != nil {
		return nil, IndexDocumentsOutput{}, err
	}

	elapsed := time.Since(startTime).Round(time.Millisecond)
	return nil, IndexDocumentsOutput{
		Stats:   stats,
		Indexed: n,
		Message: fmt.Sprintf("Indexed %d chunks from %d documents in %v", n, stats.DocumentCount, elapsed),
	}, nil
}

// RegisterChunkSearchTools registers chunk indexing and search tools
func RegisterChunkSearchTools(ctx context.Context, server *mcp.Server, opts ChunkSearchOptions) {
	if err := InitializeChunkSearch(ctx, opts); err != nil {
		logger.Warn("Chunk search initialization failed, will retry on first use", zap.Error(err))
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_chunks",
			Description: "Full-text search over indexed chunk records. Returns scored chunks with their source file and extracted metadata, optionally restricted to a ticker.",
		},
		SearchChunks,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "index_documents",
			Description: "Process every matching text file in a directory through the preprocessing pipeline and atomically replace the chunk search index with the results.",
		},
		IndexDocuments,
	)
}

// CloseChunkSearch closes the chunk index and releases the lock
func CloseChunkSearch() error {
	var closeErr error

	// Atomically swap index to nil (prevents new searches)
	if indexPtr := indexMgr.current.Swap(nil); indexPtr != nil {
		// Wait for all in-flight searches to complete
		indexMgr.wg.Wait()

		if err := (*indexPtr).Close(); err != nil {
			closeErr = fmt.Errorf("failed to close index: %w", err)
		}
	}

	if err := releaseLock(); err != nil {
		if closeErr != nil {
			return errors.Join(closeErr, err)
		}
		return err
	}

	return closeErr
}
