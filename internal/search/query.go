package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/krakend/rag-preprocessor/internal/indexing"
)

const (
	DefaultMaxResults = 10
	MaxResultsLimit   = 50

	tickerField = "metadata.potential_tickers"
)

// Request describes a chunk search
type Request struct {
	Text   string
	Ticker string // Optional, restricts hits to chunks mentioning this ticker
	Max    int    // 0 = DefaultMaxResults, capped at MaxResultsLimit
}

// Hit is a scored chunk record
type Hit struct {
	Chunk indexing.ChunkRecord `json:"chunk"`
	Score float64              `json:"score"`
}

// Result is the outcome of Query
type Result struct {
	Hits      []Hit `json:"hits"`
	TotalHits int   `json:"total_hits"`
}

// Query runs a full-text match over chunk text, optionally filtered by ticker
func Query(index Index, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, fmt.Errorf("search query must not be empty")
	}

	maxResults := req.Max
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	maxResults = min(maxResults, MaxResultsLimit)

	textQuery := bleve.NewMatchQuery(req.Text)
	textQuery.SetField("text")

	var q query.Query = textQuery
	if req.Ticker != "" {
		tickerQuery := bleve.NewMatchQuery(req.Ticker)
		tickerQuery.SetField(tickerField)
		q = bleve.NewConjunctionQuery(textQuery, tickerQuery)
	}

	search := bleve.NewSearchRequest(q)
	search.Size = maxResults
	search.Fields = []string{"*"}

	searchResults, err := index.Search(search)
	if err != nil {
		return Result{}, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		hits = append(hits, Hit{
			Chunk: recordFromFields(hit.ID, hit.Fields),
			Score: hit.Score,
		})
	}

	return Result{Hits: hits, TotalHits: int(searchResults.Total)}, nil
}

// recordFromFields rebuilds a record from stored fields.
// Bleve returns numbers as float64 and single-element arrays as a plain value.
func recordFromFields(id string, fields map[string]interface{}) indexing.ChunkRecord {
	rec := indexing.ChunkRecord{ID: id}

	if text, ok := fields["text"].(string); ok {
		rec.Text = text
	}
	if source, ok := fields["source_file"].(string); ok {
		rec.SourceFile = source
	}
	rec.ChunkIndex = intField(fields["chunk_index"])
	rec.CharCount = intField(fields["char_count"])
	rec.TokenCount = intField(fields["token_count"])

	rec.Metadata = indexing.Metadata{
		MonetaryAmounts:  stringsField(fields["metadata.monetary_amounts"]),
		Percentages:      stringsField(fields["metadata.percentages"]),
		Dates:            stringsField(fields["metadata.dates"]),
		PotentialTickers: stringsField(fields[tickerField]),
	}

	return rec
}

func intField(v interface{}) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

func stringsField(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
