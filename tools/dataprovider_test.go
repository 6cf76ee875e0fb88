package tools

import (
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedDataProvider_Samples(t *testing.T) {
	provider := NewEmbeddedDataProvider()

	entries, err := provider.ReadDir(samplesDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		content, err := provider.ReadFile(samplesDir + "/" + entry.Name())
		require.NoError(t, err)
		assert.NotEmpty(t, content, entry.Name())
	}
}

func TestEmbeddedDataProvider_MatchesDataDir(t *testing.T) {
	onDisk, err := os.ReadDir("../" + samplesDir)
	require.NoError(t, err)

	embedded, err := NewEmbeddedDataProvider().ReadDir(samplesDir)
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))

	for i, entry := range onDisk {
		assert.Equal(t, entry.Name(), embedded[i].Name())

		want, err := os.ReadFile("../" + samplesDir + "/" + entry.Name())
		require.NoError(t, err)
		got, err := NewEmbeddedDataProvider().ReadFile(samplesDir + "/" + entry.Name())
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), entry.Name())
	}
}

func TestMockDataProvider(t *testing.T) {
	mock := newMockDataProvider()
	mock.AddFile("data/docs/b.txt", []byte("second"))
	mock.AddFile("data/docs/a.txt", []byte("first"))

	content, err := mock.ReadFile("data/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))

	_, err = mock.ReadFile("data/docs/missing.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	entries, err := mock.ReadDir("data/docs")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Name())

	_, err = mock.ReadDir("data/missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadEmbeddedSamples(t *testing.T) {
	mock := newMockDataProvider()
	mock.AddFile(samplesDir+"/zeta.txt", []byte("Zeta text."))
	mock.AddFile(samplesDir+"/alpha.txt", []byte("Alpha text."))
	mock.AddFile(samplesDir+"/notes.md", []byte("ignored"))

	SetDefaultDataProvider(mock)
	t.Cleanup(ResetDefaultDataProvider)

	docs, err := loadEmbeddedSamples()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha.txt", docs[0].Filename)
	assert.Equal(t, "Alpha text.", docs[0].Content)
	assert.Equal(t, "zeta.txt", docs[1].Filename)
}

func TestLoadEmbeddedSamples_Empty(t *testing.T) {
	mock := newMockDataProvider()
	mock.AddFile(samplesDir+"/readme.md", []byte("no text files"))

	SetDefaultDataProvider(mock)
	t.Cleanup(ResetDefaultDataProvider)

	_, err := loadEmbeddedSamples()
	assert.Error(t, err)
}
