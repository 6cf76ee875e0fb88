package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krakend/rag-preprocessor/internal/documents"
	"github.com/krakend/rag-preprocessor/internal/indexing"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process documents and save the chunk records as JSON",
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().StringP("output", "o", "", "Output JSON file (default output/processed_chunks.json)")
	mustBindPFlag("output", processCmd.Flags().Lookup("output"))
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, cleanup, e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	records, stats, err := loadAndProcess(ctx, e)
	if err != nil {
		return err
	}

	path, size, err := documents.Save(e.cfg.Output, records)
	if err != nil {
		e.logger.Error("Failed to save records", zap.Error(err))
		return err
	}

	printSummary(cmd, stats)
	printf(cmd, "  Output:           %s (%d bytes)\n", path, size)
	return nil
}

// loadAndProcess runs the pipeline over the configured data directory
func loadAndProcess(ctx context.Context, e *env) ([]indexing.ChunkRecord, documents.Stats, error) {
	startTime := time.Now()

	docs, err := documents.Load(ctx, e.cfg.DataDir, e.cfg.Pattern, e.logger)
	if err != nil {
		e.logger.Error("Failed to load documents", zap.Error(err))
		return nil, documents.Stats{}, err
	}

	records, stats, err := documents.ProcessAll(ctx, e.proc, docs, e.cfg.Workers, e.logger)
	if err != nil {
		e.logger.Error("Processing failed", zap.Error(err))
		return nil, documents.Stats{}, err
	}

	e.logger.Info("✓ Processing complete",
		zap.Duration("elapsed", time.Since(startTime).Round(time.Millisecond)))
	return records, stats, nil
}

func printSummary(cmd *cobra.Command, stats documents.Stats) {
	printf(cmd, "Processing summary:\n")
	printf(cmd, "  Documents:        %d\n", stats.DocumentCount)
	printf(cmd, "  Total characters: %d\n", stats.TotalChars)
	printf(cmd, "  Total chunks:     %d\n", stats.TotalChunks)
	printf(cmd, "  Avg chunk size:   %.1f chars\n", stats.AvgChunkSize)
}
