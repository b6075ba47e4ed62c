package evd

import (
	"io"
	"io/fs"
)

// Path represents a validated filesystem path with cached metadata.
// Path objects are created by FilesystemManager.Resolve() which validates
// the path exists, resolves it to an absolute path, and caches stat info.
type Path struct {
	absPath string
	isDir   bool
	info    fs.FileInfo
}

// NewPath creates a Path from its components.
// This is primarily for use by FilesystemManager implementations.
func NewPath(absPath string, isDir bool, info fs.FileInfo) *Path {
	return &Path{absPath: absPath, isDir: isDir, info: info}
}

// String returns the absolute path as a string.
func (p *Path) String() string { return p.absPath }

// IsDir returns true if this path points to a directory.
func (p *Path) IsDir() bool { return p.isDir }

// Info returns the cached file info from when the path was resolved.
func (p *Path) Info() fs.FileInfo { return p.info }

// ContentType is the result of the intake gate's magic-byte sniff.
type ContentType struct {
	MIME string
	Ext  string // preferred extension, without the dot
}

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real
// filesystem.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path object. It resolves
	// the path to an absolute path, stats it, and validates it's a regular
	// file or directory (not a symlink, device, etc.).
	Resolve(rawPath string) (*Path, error)

	// Open opens a file for reading.
	Open(path *Path) (io.ReadCloser, error)

	// Sniff reads the file's leading bytes and classifies them against the
	// accepted content types. ok is false when the bytes match nothing the
	// pipeline accepts.
	Sniff(path *Path) (ct ContentType, ok bool, err error)

	// FindFiles returns the regular files directly under a directory.
	FindFiles(path *Path) ([]*Path, error)
}

// Resolver maps a raw filename or hint string to a case identifier.
// Implementations return UnassignedCase when nothing matches; resolution
// failure is a normal outcome, not an error.
type Resolver interface {
	Resolve(raw string) string
}
