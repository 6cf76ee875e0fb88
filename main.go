package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krakend/rag-preprocessor/internal/config"
	"github.com/krakend/rag-preprocessor/internal/indexing"
	"github.com/krakend/rag-preprocessor/internal/logging"
	"github.com/krakend/rag-preprocessor/internal/metrics"
	"github.com/krakend/rag-preprocessor/internal/tokenizer"
	"github.com/krakend/rag-preprocessor/tools"
)

const (
	version     = "0.1.0"
	serverName  = "rag-preprocessor"
	description = "MCP server that cleans, chunks and annotates text for retrieval pipelines"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           serverName,
		Short:         description,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("%s version %s\n", serverName, version))
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML or JSON configuration file")

	return cmd
}

func run(ctx context.Context, configFile string) error {
	cfg, err := config.Load(config.NewViper(), configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return err
	}

	// Logs go to stderr (MCP uses stdout for protocol)
	logger := logging.NewLogger(&logging.Config{
		Level: logging.Level(cfg.Log.Level),
		Style: logging.Style(cfg.Log.Style),
	})
	defer func() { _ = logger.Sync() }()

	tools.SetLogger(logger)
	logger.Info("Starting", zap.String("server", serverName), zap.String("version", version))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger.Named("metrics")); err != nil {
				logger.Error("Metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	counter := tokenizer.New(cfg.Tokenizer.Encoding, logger)

	proc, err := indexing.NewProcessor(indexing.ProcessorConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Counter:      counter,
	})
	if err != nil {
		logger.Error("Invalid chunking configuration", zap.Error(err))
		return err
	}

	server := createMCPServer(logger)

	textTools := tools.NewTextTools(tools.TextToolsOptions{
		ChunkSize:     cfg.ChunkSize,
		ChunkOverlap:  cfg.ChunkOverlap,
		Counter:       counter,
		CacheTTL:      cfg.Cache.TTLDuration(),
		CacheCapacity: uint64(cfg.Cache.Capacity),
	})
	defer textTools.Close()

	tools.RegisterTextTools(server, textTools)
	tools.RegisterValidationTools(server)
	tools.RegisterChunkSearchTools(ctx, server, tools.ChunkSearchOptions{
		IndexPath: cfg.IndexDir,
		DataDir:   cfg.DataDir,
		Pattern:   cfg.Pattern,
		Processor: proc,
		Workers:   cfg.Workers,
	})

	// Set up cleanup on shutdown
	defer func() {
		if err := tools.CloseChunkSearch(); err != nil {
			logger.Warn("Error closing chunk search", zap.Error(err))
		}
	}()

	logger.Info("✓ Server ready and waiting for connections", zap.Int("tools", 7))

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	return nil
}

// createMCPServer initializes the MCP server
func createMCPServer(logger *zap.Logger) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		nil, // Default options
	)

	logger.Info("Server initialized", zap.String("name", serverName), zap.String("version", version))
	return server
}
