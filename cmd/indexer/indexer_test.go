package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krakend/rag-preprocessor/internal/indexing"
	"github.com/krakend/rag-preprocessor/internal/search"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestProcessIndexSearch(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "acme_q1.txt"),
		[]byte("ACME revenue grew 12.5% to $4.2 million in Q1 2024. Margins improved."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "globex_q2.txt"),
		[]byte("GLBX revenue was flat. Headcount fell 3%."), 0644))

	work := t.TempDir()
	output := filepath.Join(work, "out", "chunks.json")
	indexDir := filepath.Join(work, "search", "index")

	common := []string{
		"--data-dir", dataDir,
		"--chunk-size", "200",
		"--chunk-overlap", "20",
		"--index-dir", indexDir,
		"--log-level", "error",
	}

	out := execute(t, append([]string{"process", "--output", output}, common...)...)
	assert.Contains(t, out, "Documents:        2")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var records []indexing.ChunkRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "acme_q1_chunk0", records[0].ID)
	assert.Equal(t, []string{"$4.2 million"}, records[0].Metadata.MonetaryAmounts)

	out = execute(t, append([]string{"index"}, common...)...)
	assert.Contains(t, out, "Indexed chunks:   2")

	out = execute(t, append([]string{"search", "revenue", "--ticker", "GLBX"}, common...)...)
	var result search.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "globex_q2.txt", result.Hits[0].Chunk.SourceFile)
}

func TestProcess_InvalidChunkSize(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"process", "--data-dir", t.TempDir(), "--chunk-size", "0", "--log-level", "error"})

	err := rootCmd.ExecuteContext(context.Background())
	assert.Error(t, err)
}
