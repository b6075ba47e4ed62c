package evd

import "io"

// Store is the canonical evidence store: the single authoritative per-case
// file tree. Placement is write-once; Put refuses to overwrite an existing
// canonical path. All paths are relative to the store root and use forward
// slashes.
type Store interface {
	// Put places content at the canonical path. Returns ErrPathExists if
	// the path is already occupied; the store never overwrites in place.
	Put(canonicalPath string, r io.Reader) error

	// Get opens stored content for reading.
	Get(canonicalPath string) (io.ReadCloser, error)

	// Exists reports whether a canonical path is occupied.
	Exists(canonicalPath string) (bool, error)

	// ListCase returns the canonical paths physically present under a
	// case's tree.
	ListCase(caseIdentifier string) ([]string, error)

	// Remove deletes a physical file. Only the orphan sweep may call this,
	// and only for paths absent from the manifest.
	Remove(canonicalPath string) error

	// Quarantine preserves bytes that could not be accepted, together with
	// a sidecar reason file. Returns the quarantine-relative path.
	Quarantine(id, originalName string, r io.Reader, reason string) (string, error)

	// Root returns the store root directory.
	Root() string
}
