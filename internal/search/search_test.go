package search

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/krakend/rag-preprocessor/internal/indexing"
)

func sampleRecords(t *testing.T) []indexing.ChunkRecord {
	t.Helper()

	proc, err := indexing.NewProcessor(indexing.ProcessorConfig{ChunkSize: 200, ChunkOverlap: 20})
	require.NoError(t, err)

	var records []indexing.ChunkRecord
	for _, doc := range []indexing.Document{
		{Filename: "acme_q1.txt", Content: "ACME revenue grew 12.5% to $4.2 million in Q1 2024. Margins improved across segments."},
		{Filename: "globex_q2.txt", Content: "GLBX reported flat revenue. Headcount was reduced by 3% in Q2 2024."},
	} {
		recs, err := proc.Process(doc)
		require.NoError(t, err)
		records = append(records, recs...)
	}
	return records
}

func TestBuildAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search", "index")
	records := sampleRecords(t)

	n, err := Build(path, records, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, len(records), n)
	assert.Equal(t, indexing.IndexSchemaVersion, ReadVersion(path))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp index must be gone")

	index, err := Open(path)
	require.NoError(t, err)
	defer index.Close()

	count, err := index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(len(records)), count)

	result, err := Query(index, Request{Text: "revenue"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, 2, result.TotalHits)

	for _, hit := range result.Hits {
		assert.Positive(t, hit.Score)
		assert.NotEmpty(t, hit.Chunk.Text)
		assert.NotEmpty(t, hit.Chunk.SourceFile)
		assert.Equal(t, indexing.ChunkID(hit.Chunk.SourceFile, hit.Chunk.ChunkIndex), hit.Chunk.ID)
	}
}

func TestQueryTickerFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	_, err := Build(path, sampleRecords(t), nil)
	require.NoError(t, err)

	index, err := Open(path)
	require.NoError(t, err)
	defer index.Close()

	result, err := Query(index, Request{Text: "revenue", Ticker: "ACME"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)

	chunk := result.Hits[0].Chunk
	assert.Equal(t, "acme_q1.txt", chunk.SourceFile)
	assert.Equal(t, []string{"ACME"}, chunk.Metadata.PotentialTickers)
	assert.Contains(t, chunk.Metadata.MonetaryAmounts, "$4.2 million")
}

func TestBuildReplacesExistingIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	records := sampleRecords(t)

	_, err := Build(path, records, nil)
	require.NoError(t, err)
	_, err = Build(path, records[:1], nil)
	require.NoError(t, err)

	index, err := Open(path)
	require.NoError(t, err)
	defer index.Close()

	count, err := index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestOpenVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	_, err := Build(path, sampleRecords(t), nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), versionFileName), []byte("0"), 0644))

	_, err = Open(path)
	require.ErrorIs(t, err, ErrVersionMismatch)

	require.NoError(t, Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, ReadVersion(path))
}

func TestQueryEmpty(t *testing.T) {
	_, err := Query(&failingIndex{}, Request{Text: "   "})
	require.Error(t, err)
}

func TestQuerySearchError(t *testing.T) {
	_, err := Query(&failingIndex{err: errors.New("boom")}, Request{Text: "revenue"})
	require.Error(t, err)
}

func TestQueryMaxResultsCapped(t *testing.T) {
	idx := &failingIndex{}
	_, err := Query(idx, Request{Text: "revenue", Max: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxResultsLimit, idx.lastSize)

	_, err = Query(idx, Request{Text: "revenue"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxResults, idx.lastSize)
}

func TestRecordFromFields(t *testing.T) {
	rec := recordFromFields("a_chunk0", map[string]interface{}{
		"text":                       "ACME grew.",
		"source_file":                "a.txt",
		"chunk_index":                float64(0),
		"char_count":                 float64(10),
		"metadata.potential_tickers": "ACME",
		"metadata.percentages":       []interface{}{"1%", "2%"},
	})

	assert.Equal(t, "a_chunk0", rec.ID)
	assert.Equal(t, 10, rec.CharCount)
	assert.Equal(t, []string{"ACME"}, rec.Metadata.PotentialTickers)
	assert.Equal(t, []string{"1%", "2%"}, rec.Metadata.Percentages)
	assert.Equal(t, []string{}, rec.Metadata.Dates)
}

// failingIndex records the request size and returns err (or an empty result)
type failingIndex struct {
	err      error
	lastSize int
}

func (f *failingIndex) Search(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	f.lastSize = req.Size
	if f.err != nil {
		return nil, f.err
	}
	return &bleve.SearchResult{Request: req}, nil
}

func (f *failingIndex) DocCount() (uint64, error) { return 0, nil }
func (f *failingIndex) Close() error              { return nil }
