package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"evd-go/internal/evd"
	evdfs "evd-go/internal/fs"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing. Sniffing
// runs the real magic-byte table, so test fixtures must carry recognizable
// leading bytes (see PDFBytes).
type MockFilesystemManager struct {
	files map[string]*MockFile
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     time.Now(),
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.files[path] = &MockFile{
		Permissions: 0755,
		ModTime:     time.Now(),
		IsDirectory: true,
	}
}

// SetContent replaces a file's bytes in place, simulating on-disk change
// between pipeline stages.
func (m *MockFilesystemManager) SetContent(path string, content []byte) {
	if f, ok := m.files[path]; ok {
		f.Content = content
	}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*evd.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}

	info := &mockFileInfo{
		name:    filepath.Base(absPath),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}

	return evd.NewPath(absPath, file.IsDirectory, info), nil
}

func (m *MockFilesystemManager) Open(path *evd.Path) (io.ReadCloser, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

func (m *MockFilesystemManager) Sniff(path *evd.Path) (evd.ContentType, bool, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return evd.ContentType{}, false, fmt.Errorf("file not found: %s", path.String())
	}
	if len(file.Content) == 0 {
		return evd.ContentType{}, false, nil
	}

	head := file.Content
	if len(head) > 512 {
		head = head[:512]
	}
	ct, ok := evdfs.DetectContentType(head)
	return ct, ok, nil
}

func (m *MockFilesystemManager) FindFiles(path *evd.Path) ([]*evd.Path, error) {
	dir := path.String()
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}

	var names []string
	for p, f := range m.files {
		if f.IsDirectory {
			continue
		}
		if filepath.Dir(p)+string(filepath.Separator) == dir {
			names = append(names, p)
		}
	}
	sort.Strings(names)

	paths := make([]*evd.Path, 0, len(names))
	for _, n := range names {
		p, err := m.Resolve(n)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ evd.FilesystemManager = (*MockFilesystemManager)(nil)
