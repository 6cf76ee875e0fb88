// Package search stores chunk records in a bleve full-text index and queries them.
package search

import "github.com/blevesearch/bleve/v2"

// Index is the subset of bleve.Index used to serve chunk searches.
// The MCP tools hold it behind an atomic pointer and swap it on rebuild.
type Index interface {
	Search(req *bleve.SearchRequest) (*bleve.SearchResult, error)

	// DocCount returns the number of indexed chunk records
	DocCount() (uint64, error)

	Close() error
}

type chunkIndex struct {
	bleve.Index
}

// Wrap adapts an open bleve index
func Wrap(index bleve.Index) Index {
	return chunkIndex{Index: index}
}
