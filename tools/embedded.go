package tools

import (
	"embed"
	"io/fs"
)

// Sample earnings-call transcripts are embedded so the server can seed a
// searchable chunk index without any data directory on disk.

//go:embed data/sample_transcripts/*.txt
var embeddedFS embed.FS

// embeddedDataProvider implements DataProvider using embed.FS
type embeddedDataProvider struct {
	fs embed.FS
}

// NewEmbeddedDataProvider creates a DataProvider backed by the embedded samples
func NewEmbeddedDataProvider() DataProvider {
	return &embeddedDataProvider{fs: embeddedFS}
}

func (p *embeddedDataProvider) ReadFile(name string) ([]byte, error) {
	return p.fs.ReadFile(name)
}

func (p *embeddedDataProvider) ReadDir(name string) ([]fs.DirEntry, error) {
	return p.fs.ReadDir(name)
}

var defaultDataProvider DataProvider = NewEmbeddedDataProvider()
