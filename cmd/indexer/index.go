package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krakend/rag-preprocessor/internal/indexing"
	"github.com/krakend/rag-preprocessor/internal/search"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Process documents and rebuild the full-text search index",
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cleanup, e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	records, stats, err := loadAndProcess(ctx, e)
	if err != nil {
		return err
	}

	n, err := search.Build(e.cfg.IndexDir, records, e.logger)
	if err != nil {
		e.logger.Error("Indexing failed", zap.Error(err))
		return err
	}

	printSummary(cmd, stats)
	printf(cmd, "  Indexed chunks:   %d\n", n)
	printf(cmd, "  Index:            %s (schema v%d)\n", e.cfg.IndexDir, indexing.IndexSchemaVersion)
	return nil
}
