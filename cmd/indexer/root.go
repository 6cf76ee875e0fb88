package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/krakend/rag-preprocessor/internal/config"
	"github.com/krakend/rag-preprocessor/internal/indexing"
	"github.com/krakend/rag-preprocessor/internal/logging"
	"github.com/krakend/rag-preprocessor/internal/tokenizer"
)

var (
	configFile string

	v = config.NewViper()
)

var rootCmd = &cobra.Command{
	Use:           "indexer",
	Short:         "Batch preprocessing of text documents into chunk records",
	Long:          `Clean, chunk and annotate every document in a directory, then save the records as JSON or index them for full-text search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to a YAML or JSON configuration file")
	flags.String("data-dir", config.DefaultDataDir, "Directory of documents to process")
	flags.String("pattern", config.DefaultPattern, "Glob pattern for documents (** allowed)")
	flags.Int("chunk-size", indexing.DefaultChunkSize, "Target chunk size in characters")
	flags.Int("chunk-overlap", indexing.DefaultChunkOverlap, "Chunk overlap in characters")
	flags.Int("workers", 0, "Concurrent documents (0 = GOMAXPROCS)")
	flags.String("encoding", config.DefaultEncoding, "Tokenizer encoding for token_count")
	flags.String("index-dir", "", "Search index directory (default ~/.rag-preprocessor/search/index)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	mustBindPFlag("data_dir", flags.Lookup("data-dir"))
	mustBindPFlag("pattern", flags.Lookup("pattern"))
	mustBindPFlag("chunk_size", flags.Lookup("chunk-size"))
	mustBindPFlag("chunk_overlap", flags.Lookup("chunk-overlap"))
	mustBindPFlag("workers", flags.Lookup("workers"))
	mustBindPFlag("tokenizer.encoding", flags.Lookup("encoding"))
	mustBindPFlag("index_dir", flags.Lookup("index-dir"))
	mustBindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(processCmd, indexCmd, searchCmd)
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// env is what every subcommand needs once configuration is loaded
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	proc   *indexing.Processor
}

// setup loads configuration and builds the logger and processor.
// The returned context is cancelled on SIGINT or SIGTERM.
func setup(ctx context.Context) (context.Context, context.CancelFunc, *env, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := logging.NewLogger(&logging.Config{
		Level: logging.Level(cfg.Log.Level),
		Style: logging.Style(cfg.Log.Style),
	})

	proc, err := indexing.NewProcessor(indexing.ProcessorConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Counter:      tokenizer.New(cfg.Tokenizer.Encoding, logger),
	})
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		cancel()
		_ = logger.Sync()
	}, &env{cfg: cfg, logger: logger, proc: proc}, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
