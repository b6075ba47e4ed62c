package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"evd-go/internal/evd"
)

// OSFilesystemManager is the real filesystem implementation of
// evd.FilesystemManager. It performs actual filesystem operations using the
// os package.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a new filesystem manager that operates on
// the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*evd.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	// Lstat, not Stat: a followed symlink never shows the symlink bit.
	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	// Check for special file types we don't support
	mode := info.Mode()
	if mode&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlinks not supported: %s", absPath)
	}
	if mode&os.ModeDevice != 0 {
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return evd.NewPath(absPath, info.IsDir(), info), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *evd.Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

// Sniff classifies a file's leading bytes against the accepted content
// types. Zero-length files never pass the gate.
func (m *OSFilesystemManager) Sniff(path *evd.Path) (evd.ContentType, bool, error) {
	if path.IsDir() {
		return evd.ContentType{}, false, fmt.Errorf("cannot sniff a directory: %s", path.String())
	}
	if path.Info().Size() == 0 {
		return evd.ContentType{}, false, nil
	}

	f, err := os.Open(path.String())
	if err != nil {
		return evd.ContentType{}, false, fmt.Errorf("opening file for sniff: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return evd.ContentType{}, false, fmt.Errorf("reading leading bytes: %w", err)
	}

	ct, ok := DetectContentType(head[:n])
	return ct, ok, nil
}

// FindFiles returns the regular files directly under a directory
// (os.ReadDir order, sorted by name).
func (m *OSFilesystemManager) FindFiles(path *evd.Path) ([]*evd.Path, error) {
	if !path.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path.String())
	}

	entries, err := os.ReadDir(path.String())
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var paths []*evd.Path
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		fullPath := filepath.Join(path.String(), entry.Name())
		paths = append(paths, evd.NewPath(fullPath, false, info))
	}

	return paths, nil
}

// Stat returns fresh file info for a path.
func (m *OSFilesystemManager) Stat(path *evd.Path) (fs.FileInfo, error) {
	return os.Stat(path.String())
}

// Compile-time check that OSFilesystemManager implements evd.FilesystemManager
var _ evd.FilesystemManager = (*OSFilesystemManager)(nil)
