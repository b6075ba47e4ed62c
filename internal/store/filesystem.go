// Package store implements the canonical evidence store: a write-once,
// human-browsable per-case file tree plus quarantine storage for files that
// could not be accepted.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"evd-go/internal/evd"
)

// quarantineDir is where rejected bytes are preserved, outside any case
// tree so the integrity auditor never confuses them with evidence.
const quarantineDir = ".quarantine"

// FileSystemStore is the filesystem implementation of evd.Store.
//
// Directory structure:
//
//	<root>/
//	  <case-identifier>/
//	    <date>_<type>_<slug>.<ext>    (evidence files, write-once)
//	  .quarantine/
//	    <id>_<original-name>          (preserved rejected bytes)
//	    <id>.reason                   (sidecar rejection reason)
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a store rooted at the given path.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(filepath.Join(root, quarantineDir), 0755); err != nil {
		return nil, fmt.Errorf("creating store root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// Put places content at the canonical path. The write is atomic (temp file
// plus hard link) and write-once: linking fails if the destination already
// exists, so two concurrent puts of the same path cannot both succeed and
// nothing is ever overwritten in place.
func (s *FileSystemStore) Put(canonicalPath string, r io.Reader) error {
	destPath, err := s.resolve(canonicalPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating case directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing content: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Link(tmpPath, destPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", evd.ErrPathExists, canonicalPath)
		}
		return fmt.Errorf("placing file: %w", err)
	}

	return nil
}

// Get opens stored content for reading.
func (s *FileSystemStore) Get(canonicalPath string) (io.ReadCloser, error) {
	srcPath, err := s.resolve(canonicalPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content not found: %s: %w", canonicalPath, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("opening content: %w", err)
	}
	return f, nil
}

// Exists reports whether a canonical path is occupied.
func (s *FileSystemStore) Exists(canonicalPath string) (bool, error) {
	destPath, err := s.resolve(canonicalPath)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(destPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat content: %w", err)
	}
	return true, nil
}

// ListCase returns the canonical paths physically present under a case's
// tree. A case with no directory yet has no files.
func (s *FileSystemStore) ListCase(caseIdentifier string) ([]string, error) {
	caseRoot, err := s.resolve(caseIdentifier)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(caseRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == caseRoot {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking case tree: %w", err)
	}
	return paths, nil
}

// Remove deletes a physical file. Callers are responsible for verifying the
// path is absent from the manifest and the case is not under hold; the
// store itself only guards against escaping the root.
func (s *FileSystemStore) Remove(canonicalPath string) error {
	destPath, err := s.resolve(canonicalPath)
	if err != nil {
		return err
	}
	if err := os.Remove(destPath); err != nil {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}

// Quarantine preserves bytes under the quarantine area with a sidecar
// reason file. Quarantined files are never deleted by the pipeline.
func (s *FileSystemStore) Quarantine(id, originalName string, r io.Reader, reason string) (string, error) {
	name := id + "_" + sanitizeName(originalName)
	relPath := quarantineDir + "/" + name
	destPath := filepath.Join(s.root, quarantineDir, name)

	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("creating quarantine file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("writing quarantine content: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing quarantine file: %w", err)
	}

	reasonPath := filepath.Join(s.root, quarantineDir, id+".reason")
	if err := os.WriteFile(reasonPath, []byte(reason+"\n"), 0644); err != nil {
		return "", fmt.Errorf("writing quarantine reason: %w", err)
	}

	return relPath, nil
}

// Root returns the store root directory.
func (s *FileSystemStore) Root() string { return s.root }

// resolve joins a canonical path onto the root and refuses anything that
// would escape it.
func (s *FileSystemStore) resolve(canonicalPath string) (string, error) {
	if canonicalPath == "" {
		return "", fmt.Errorf("empty canonical path")
	}
	clean := filepath.Clean(filepath.FromSlash(canonicalPath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("canonical path escapes store root: %s", canonicalPath)
	}
	return filepath.Join(s.root, clean), nil
}

// sanitizeName strips path separators and control characters from an
// uploaded filename before it is used inside the quarantine area.
func sanitizeName(name string) string {
	name = filepath.Base(filepath.FromSlash(name))
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == os.PathSeparator || r == '/' {
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

// Compile-time check that FileSystemStore implements evd.Store
var _ evd.Store = (*FileSystemStore)(nil)
