package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"evd-go/internal/evd"
)

// MemoryStore is an in-memory canonical store with write-once semantics.
// Safe for concurrent use.
type MemoryStore struct {
	mu         sync.Mutex
	files      map[string][]byte
	quarantine map[string][]byte

	// FailPuts makes the next N Put calls fail with a transient error,
	// for exercising the retry path.
	FailPuts int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:      make(map[string][]byte),
		quarantine: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(canonicalPath string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPuts > 0 {
		s.FailPuts--
		return fmt.Errorf("simulated write failure")
	}
	if _, ok := s.files[canonicalPath]; ok {
		return fmt.Errorf("placing %s: %w", canonicalPath, evd.ErrPathExists)
	}
	s.files[canonicalPath] = data
	return nil
}

func (s *MemoryStore) Get(canonicalPath string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.files[canonicalPath]
	if !ok {
		return nil, fmt.Errorf("opening %s: %w", canonicalPath, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Exists(canonicalPath string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[canonicalPath]
	return ok, nil
}

func (s *MemoryStore) ListCase(caseIdentifier string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var paths []string
	prefix := caseIdentifier + "/"
	for p := range s.files {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *MemoryStore) Remove(canonicalPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[canonicalPath]; !ok {
		return fmt.Errorf("removing %s: %w", canonicalPath, fs.ErrNotExist)
	}
	delete(s.files, canonicalPath)
	return nil
}

func (s *MemoryStore) Quarantine(id, originalName string, r io.Reader, reason string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	qpath := ".quarantine/" + id + "_" + originalName
	s.quarantine[qpath] = data
	return qpath, nil
}

func (s *MemoryStore) Root() string { return ":memory:" }

// Corrupt replaces stored bytes in place, simulating bit rot for audit
// tests. Bypasses the write-once rule on purpose.
func (s *MemoryStore) Corrupt(canonicalPath string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[canonicalPath] = data
}

// Drop deletes stored bytes without going through Remove, simulating a
// missing file.
func (s *MemoryStore) Drop(canonicalPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, canonicalPath)
}

// QuarantineContents returns the quarantined bytes for a path, if present.
func (s *MemoryStore) QuarantineContents(qpath string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.quarantine[qpath]
	return data, ok
}

// Compile-time check
var _ evd.Store = (*MemoryStore)(nil)
