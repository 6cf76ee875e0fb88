package search

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"

	"github.com/krakend/rag-preprocessor/internal/indexing"
)

const (
	batchSize = 100

	// Written next to the index directory
	versionFileName = ".index_version"
)

// ErrVersionMismatch is returned by Open when the on-disk index was built by
// an incompatible record layout
var ErrVersionMismatch = errors.New("index schema version mismatch")

// Build indexes records into a fresh index at path.
//
// The index is built in a temporary sibling directory and renamed into place,
// so readers never see a half-built index. Records without an ID get one from
// indexing.ChunkID. Returns the number of indexed records.
func Build(path string, records []indexing.ChunkRecord, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	startTime := time.Now()
	tempPath := path + ".tmp"

	// Clean up any leftover temp index from previous crash
	_ = os.RemoveAll(tempPath)

	if err := os.MkdirAll(filepath.Dir(tempPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create index directory: %w", err)
	}

	newIndex, err := bleve.New(tempPath, bleve.NewIndexMapping())
	if err != nil {
		return 0, fmt.Errorf("failed to create temp index: %w", err)
	}

	fail := func(err error) (int, error) {
		newIndex.Close()
		os.RemoveAll(tempPath)
		return 0, err
	}

	batch := newIndex.NewBatch()
	for i, rec := range records {
		id := rec.ID
		if id == "" {
			id = indexing.ChunkID(rec.SourceFile, rec.ChunkIndex)
			rec.ID = id
		}

		if err := batch.Index(id, rec); err != nil {
			return fail(fmt.Errorf("failed to add chunk %s to batch: %w", id, err))
		}

		// Submit batch every 100 documents
		if (i+1)%batchSize == 0 {
			if err := newIndex.Batch(batch); err != nil {
				return fail(fmt.Errorf("failed to index batch: %w", err))
			}
			batch = newIndex.NewBatch()
			logger.Debug("Indexed chunks", zap.Int("done", i+1), zap.Int("total", len(records)))
		}
	}

	// Submit remaining
	if batch.Size() > 0 {
		if err := newIndex.Batch(batch); err != nil {
			return fail(fmt.Errorf("failed to index final batch: %w", err))
		}
	}

	// Close temp index before moving
	if err := newIndex.Close(); err != nil {
		os.RemoveAll(tempPath)
		return 0, fmt.Errorf("failed to close temp index: %w", err)
	}

	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		os.RemoveAll(tempPath)
		return 0, fmt.Errorf("failed to remove old index: %w", err)
	}

	// Rename temp to final location (atomic operation on POSIX)
	if err := os.Rename(tempPath, path); err != nil {
		os.RemoveAll(tempPath)
		return 0, fmt.Errorf("failed to rename temp index: %w", err)
	}

	if err := writeVersion(path); err != nil {
		logger.Warn("Failed to write index version", zap.Error(err))
	}

	logger.Info("✓ Index built",
		zap.String("path", path),
		zap.Int("chunks", len(records)),
		zap.Duration("elapsed", time.Since(startTime).Round(time.Millisecond)))

	return len(records), nil
}

// Open opens the index at path after checking its schema version.
// A missing or stale version yields ErrVersionMismatch.
func Open(path string) (Index, error) {
	if version := ReadVersion(path); version != indexing.IndexSchemaVersion {
		return nil, fmt.Errorf("%w (have: v%d, want: v%d)", ErrVersionMismatch, version, indexing.IndexSchemaVersion)
	}

	index, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}

	return Wrap(index), nil
}

// Remove deletes the index at path and its version file
func Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	if err := os.Remove(versionPath(path)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReadVersion returns the schema version recorded for the index at path (0 if none)
func ReadVersion(path string) int {
	data, err := os.ReadFile(versionPath(path))
	if err != nil {
		return 0 // No version file = v0
	}

	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return version
}

func writeVersion(path string) error {
	content := strconv.Itoa(indexing.IndexSchemaVersion)
	return os.WriteFile(versionPath(path), []byte(content), 0644)
}

func versionPath(path string) string {
	return filepath.Join(filepath.Dir(path), versionFileName)
}
