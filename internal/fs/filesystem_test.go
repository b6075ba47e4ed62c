package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"evd-go/internal/fs"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, content, 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return p
}

func TestOSFilesystemManager_Resolve(t *testing.T) {
	m := fs.NewOSFilesystemManager()

	t.Run("resolves a regular file", func(t *testing.T) {
		dir := t.TempDir()
		p := writeFile(t, dir, "doc.pdf", []byte("%PDF-1.4"))

		resolved, err := m.Resolve(p)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if resolved.IsDir() {
			t.Error("IsDir() = true for a file")
		}
		if resolved.Info().Size() != 8 {
			t.Errorf("Size = %d, want 8", resolved.Info().Size())
		}
	})

	t.Run("resolves a directory", func(t *testing.T) {
		dir := t.TempDir()
		resolved, err := m.Resolve(dir)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !resolved.IsDir() {
			t.Error("IsDir() = false for a directory")
		}
	})

	t.Run("missing path is an error", func(t *testing.T) {
		if _, err := m.Resolve(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Fatal("Resolve() error = nil for missing path")
		}
	})

	t.Run("refuses symlinks", func(t *testing.T) {
		dir := t.TempDir()
		target := writeFile(t, dir, "target.pdf", []byte("%PDF-1.4"))
		link := filepath.Join(dir, "link.pdf")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		if _, err := m.Resolve(link); err == nil {
			t.Fatal("Resolve() error = nil for a symlink")
		}
		// The target itself still resolves.
		if _, err := m.Resolve(target); err != nil {
			t.Fatalf("Resolve(target) error = %v", err)
		}
	})
}

func TestOSFilesystemManager_Sniff(t *testing.T) {
	m := fs.NewOSFilesystemManager()

	t.Run("recognizes a pdf", func(t *testing.T) {
		dir := t.TempDir()
		p := writeFile(t, dir, "doc.pdf", []byte("%PDF-1.4\ncontent"))

		resolved, err := m.Resolve(p)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		ct, ok, err := m.Sniff(resolved)
		if err != nil {
			t.Fatalf("Sniff() error = %v", err)
		}
		if !ok || ct.MIME != "application/pdf" || ct.Ext != "pdf" {
			t.Errorf("Sniff() = %+v ok=%v, want pdf", ct, ok)
		}
	})

	t.Run("zero-length files never pass", func(t *testing.T) {
		dir := t.TempDir()
		p := writeFile(t, dir, "empty.pdf", nil)

		resolved, _ := m.Resolve(p)
		_, ok, err := m.Sniff(resolved)
		if err != nil {
			t.Fatalf("Sniff() error = %v", err)
		}
		if ok {
			t.Error("Sniff() ok = true for an empty file")
		}
	})

	t.Run("files shorter than the sniff window still classify", func(t *testing.T) {
		dir := t.TempDir()
		p := writeFile(t, dir, "short.txt", []byte("ok"))

		resolved, _ := m.Resolve(p)
		ct, ok, err := m.Sniff(resolved)
		if err != nil {
			t.Fatalf("Sniff() error = %v", err)
		}
		if !ok || ct.MIME != "text/plain" {
			t.Errorf("Sniff() = %+v ok=%v, want text/plain", ct, ok)
		}
	})
}

func TestOSFilesystemManager_FindFiles(t *testing.T) {
	m := fs.NewOSFilesystemManager()

	t.Run("lists only regular files, non-recursively", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "b.pdf", []byte("%PDF"))
		writeFile(t, dir, "a.pdf", []byte("%PDF"))
		if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		writeFile(t, filepath.Join(dir, "sub"), "nested.pdf", []byte("%PDF"))

		resolved, err := m.Resolve(dir)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		files, err := m.FindFiles(resolved)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("files = %d, want 2", len(files))
		}
		// os.ReadDir returns names sorted.
		if filepath.Base(files[0].String()) != "a.pdf" || filepath.Base(files[1].String()) != "b.pdf" {
			t.Errorf("order = %s, %s", files[0], files[1])
		}
	})

	t.Run("fails on a non-directory", func(t *testing.T) {
		dir := t.TempDir()
		p := writeFile(t, dir, "f.txt", []byte("x"))
		resolved, _ := m.Resolve(p)
		if _, err := m.FindFiles(resolved); err == nil {
			t.Fatal("FindFiles() error = nil for a file")
		}
	})
}
