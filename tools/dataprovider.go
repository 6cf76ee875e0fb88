package tools

import (
	"io/fs"
)

// DataProvider gives read access to bundled sample documents.
// Tests swap in an in-memory provider to seed the index with known text.
type DataProvider interface {
	// ReadFile reads the named file, relative to the data root
	// (e.g. "data/sample_transcripts/acme_q1_2024.txt")
	ReadFile(name string) ([]byte, error)

	// ReadDir lists the named directory
	ReadDir(name string) ([]fs.DirEntry, error)
}

// SetDefaultDataProvider replaces the provider used to seed the chunk index
func SetDefaultDataProvider(provider DataProvider) {
	defaultDataProvider = provider
}

// ResetDefaultDataProvider restores the embedded provider
func ResetDefaultDataProvider() {
	defaultDataProvider = NewEmbeddedDataProvider()
}
