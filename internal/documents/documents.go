// Package documents loads source text files, runs them through the
// preprocessing pipeline and writes the resulting chunk records.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/krakend/rag-preprocessor/internal/indexing"
	"github.com/krakend/rag-preprocessor/internal/metrics"
)

// ErrNoDocuments is returned when a directory holds no matching text file
var ErrNoDocuments = errors.New("no documents found")

// Stats summarizes a batch run
type Stats struct {
	DocumentCount int     `json:"document_count"`
	TotalChars    int     `json:"total_chars"`
	TotalChunks   int     `json:"total_chunks"`
	AvgChunkSize  float64 `json:"avg_chunk_size"`
}

// Load reads every file under dir matching pattern (doublestar syntax, e.g.
// "*.txt" or "**/*.txt"), sorted by relative path. Files that do not sniff as
// text are skipped.
func Load(ctx context.Context, dir, pattern string, logger *zap.Logger) ([]indexing.Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data path %s is not a directory", dir)
	}

	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q failed: %w", pattern, err)
	}
	slices.Sort(matches)

	docs := make([]indexing.Document, 0, len(matches))
	for _, name := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		if !isText(data) {
			logger.Warn("Skipping non-text file", zap.String("file", name))
			continue
		}

		docs = append(docs, indexing.Document{Filename: name, Content: string(data)})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %s matching %q", ErrNoDocuments, dir, pattern)
	}

	logger.Info("Loaded documents",
		zap.Int("document_count", len(docs)),
		zap.Int("total_chars", totalChars(docs)))

	return docs, nil
}

// isText reports whether data sniffs as a text/plain descendant and is valid UTF-8
func isText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for mt := mimetype.Detect(data); mt != nil; mt = mt.Parent() {
		if mt.Is("text/plain") {
			return true
		}
	}
	return false
}

func totalChars(docs []indexing.Document) int {
	total := 0
	for _, doc := range docs {
		total += utf8.RuneCountInString(doc.Content)
	}
	return total
}

// ProcessAll runs proc over docs with up to workers goroutines (0 = GOMAXPROCS).
// Records keep document order, then chunk order. The first error cancels the batch.
func ProcessAll(ctx context.Context, proc *indexing.Processor, docs []indexing.Document, workers int, logger *zap.Logger) ([]indexing.ChunkRecord, Stats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	perDoc := make([][]indexing.ChunkRecord, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			records, err := proc.Process(doc)
			if err != nil {
				if errors.Is(err, indexing.ErrInvalidConfig) {
					metrics.RecordInvalidConfig()
				}
				return err
			}

			metrics.RecordDocument(len(records), time.Since(start))
			recordEntities(records)
			perDoc[i] = records

			logger.Debug("Processed document",
				zap.String("file", doc.Filename),
				zap.Int("chunks", len(records)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	all := make([]indexing.ChunkRecord, 0, len(docs))
	for _, records := range perDoc {
		all = append(all, records...)
	}

	stats := Summarize(docs, all)
	logger.Info("Processed documents",
		zap.Int("documents_processed", stats.DocumentCount),
		zap.Int("total_chunks", stats.TotalChunks),
		zap.Float64("avg_chunk_size", stats.AvgChunkSize))

	return all, stats, nil
}

// Summarize computes batch statistics; AvgChunkSize is 0 with no chunks
func Summarize(docs []indexing.Document, records []indexing.ChunkRecord) Stats {
	stats := Stats{
		DocumentCount: len(docs),
		TotalChars:    totalChars(docs),
		TotalChunks:   len(records),
	}

	if len(records) > 0 {
		sum := 0
		for _, rec := range records {
			sum += rec.CharCount
		}
		stats.AvgChunkSize = float64(sum) / float64(len(records))
	}

	return stats
}

func recordEntities(records []indexing.ChunkRecord) {
	for _, rec := range records {
		metrics.RecordEntities(metrics.EntityMoney, len(rec.Metadata.MonetaryAmounts))
		metrics.RecordEntities(metrics.EntityPercentage, len(rec.Metadata.Percentages))
		metrics.RecordEntities(metrics.EntityDate, len(rec.Metadata.Dates))
		metrics.RecordEntities(metrics.EntityTicker, len(rec.Metadata.PotentialTickers))
	}
}

// Save writes records as indented JSON (non-ASCII kept as is), creating the
// parent directory. It returns the absolute path and the file size.
func Save(path string, records []indexing.ChunkRecord) (string, int64, error) {
	if records == nil {
		records = []indexing.ChunkRecord{}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to resolve output path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(absPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return "", 0, fmt.Errorf("failed to write records: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat output file: %w", err)
	}

	return absPath, info.Size(), nil
}
