package tools

import (
	"io/fs"
	"path"
	"sort"
	"time"
)

// mockDataProvider serves files from memory
type mockDataProvider struct {
	files map[string][]byte
}

func newMockDataProvider() *mockDataProvider {
	return &mockDataProvider{files: make(map[string][]byte)}
}

func (m *mockDataProvider) AddFile(name string, content []byte) {
	m.files[name] = content
}

func (m *mockDataProvider) ReadFile(name string) ([]byte, error) {
	content, exists := m.files[name]
	if !exists {
		return nil, fs.ErrNotExist
	}
	return content, nil
}

// ReadDir lists the files directly under name, sorted by name
func (m *mockDataProvider) ReadDir(name string) ([]fs.DirEntry, error) {
	var entries []fs.DirEntry
	for filePath := range m.files {
		if path.Dir(filePath) == name {
			entries = append(entries, &mockDirEntry{name: path.Base(filePath)})
		}
	}

	if len(entries) == 0 {
		return nil, fs.ErrNotExist
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

type mockDirEntry struct {
	name  string
	isDir bool
}

func (e *mockDirEntry) Name() string { return e.name }
func (e *mockDirEntry) IsDir() bool  { return e.isDir }

func (e *mockDirEntry) Type() fs.FileMode {
	if e.isDir {
		return fs.ModeDir
	}
	return 0
}

func (e *mockDirEntry) Info() (fs.FileInfo, error) {
	return &mockFileInfo{name: e.name, isDir: e.isDir}, nil
}

type mockFileInfo struct {
	name  string
	isDir bool
}

func (i *mockFileInfo) Name() string       { return i.name }
func (i *mockFileInfo) Size() int64        { return 0 }
func (i *mockFileInfo) Mode() fs.FileMode  { return 0 }
func (i *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (i *mockFileInfo) IsDir() bool        { return i.isDir }
func (i *mockFileInfo) Sys() any           { return nil }
