package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestMemoryFileSystem_WriteReadOpen(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.WriteFile("data/a.prf", []byte{0xA5, 0x01}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := m.ReadFile("data/./a.prf")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "\xa5\x01" {
		t.Errorf("ReadFile = %x", got)
	}

	f, err := m.Open("data/a.prf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil || len(b) != 2 {
		t.Errorf("ReadAll = %x, %v", b, err)
	}
	info, err := f.Stat()
	if err != nil || info.Size() != 2 || info.Name() != "a.prf" || info.IsDir() {
		t.Errorf("Stat = %+v, %v", info, err)
	}
}

func TestMemoryFileSystem_ReadFileReturnsCopy(t *testing.T) {
	m := NewMemoryFileSystem()
	_ = m.WriteFile("x", []byte("abc"), 0o644)
	b, _ := m.ReadFile("x")
	b[0] = 'z'
	again, _ := m.ReadFile("x")
	if string(again) != "abc" {
		t.Errorf("stored data was modified: %q", again)
	}
}

func TestMemoryFileSystem_Missing(t *testing.T) {
	m := NewMemoryFileSystem()
	if _, err := m.Open("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open error = %v", err)
	}
	if _, err := m.ReadFile("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile error = %v", err)
	}
	if _, err := m.Stat("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat error = %v", err)
	}
	if m.Exists("nope") {
		t.Error("Exists reported a missing file")
	}
}

func TestOSFileSystem_RoundTrip(t *testing.T) {
	var osfs OSFileSystem
	path := filepath.Join(t.TempDir(), "b.vec")
	if osfs.Exists(path) {
		t.Fatal("file exists before write")
	}
	if err := osfs.WriteFile(path, []byte("frames"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !osfs.Exists(path) {
		t.Fatal("file missing after write")
	}
	info, err := osfs.Stat(path)
	if err != nil || info.Size() != 6 {
		t.Errorf("Stat = %v, %v", info, err)
	}
	f, err := osfs.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.Close()
	b, err := osfs.ReadFile(path)
	if err != nil || string(b) != "frames" {
		t.Errorf("ReadFile = %q, %v", b, err)
	}
}
