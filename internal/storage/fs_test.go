package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := tempVault(t)

	content := []byte("id: 2024-01-15-1430-abcd\nmessages: []\n")
	if err := s.Write("conversations/2024-01-15-1430-abcd.yaml", content); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read("conversations/2024-01-15-1430-abcd.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesMissingDirs(t *testing.T) {
	s := tempVault(t)

	// Entity dirs may not exist yet on a fresh vault.
	if err := s.Write("riffs/2024-01-15-1430-beef.md", []byte("draft")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Exists("riffs/2024-01-15-1430-beef.md") {
		t.Error("file should exist after write into a fresh dir")
	}
}

func TestDeleteAndExists(t *testing.T) {
	s := tempVault(t)

	_ = s.Write("notes/scratch.md", []byte("bye"))
	if !s.Exists("notes/scratch.md") {
		t.Error("Exists should be true before delete")
	}
	if err := s.Delete("notes/scratch.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("notes/scratch.md") {
		t.Error("Exists should be false after delete")
	}
	if _, err := s.Read("notes/scratch.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempVault(t)

	// Shape of a rename: same dir, id gains a title slug.
	_ = s.Write("triggers/2024-01-15-1430-abcd.yaml", []byte("title: x"))
	if err := s.Move("triggers/2024-01-15-1430-abcd.yaml", "triggers/2024-01-15-1430-abcd-check-inbox.yaml"); err != nil {
		t.Fatalf("Move: %v", err)
	}

	got, err := s.Read("triggers/2024-01-15-1430-abcd-check-inbox.yaml")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "title: x" {
		t.Errorf("content = %q", got)
	}
	if s.Exists("triggers/2024-01-15-1430-abcd.yaml") {
		t.Error("old path should be gone")
	}
}

func TestListTracksEntityFilesOnly(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("conversations/a.yaml", []byte("a"))
	_ = s.Write("riffs/b.md", []byte("b"))
	_ = s.Write("vellum.db", []byte("not tracked"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2 (only .yaml and .md tracked)", len(items))
	}

	byPath := map[string]FileMeta{}
	for _, it := range items {
		byPath[it.Path] = it
	}
	meta, ok := byPath["conversations/a.yaml"]
	if !ok {
		t.Fatalf("conversations/a.yaml missing from listing: %v", items)
	}
	if meta.Checksum != Checksum([]byte("a")) {
		t.Errorf("checksum = %q", meta.Checksum)
	}
	if meta.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not populated")
	}
}

func TestListSingleDir(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("conversations/a.yaml", []byte("a"))
	_ = s.Write("riffs/b.md", []byte("b"))

	items, err := s.List("riffs")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "riffs/b.md" {
		t.Errorf("items = %v, want just riffs/b.md", items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	for _, p := range []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("Read(%q) should fail", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("Write(%q) should fail", p)
		}
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := tempVault(t)

	_ = s.Write("atomic.md", []byte("first"))
	if err := s.Write("atomic.md", []byte("second")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, _ := s.Read("atomic.md")
	if string(got) != "second" {
		t.Errorf("content = %q, want the overwrite", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".vellum-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestChecksumStable(t *testing.T) {
	a := Checksum([]byte("same bytes"))
	b := Checksum([]byte("same bytes"))
	if a != b {
		t.Errorf("checksum not deterministic: %q vs %q", a, b)
	}
	if a == Checksum([]byte("other bytes")) {
		t.Error("different content produced the same checksum")
	}
}

func TestNewFSRejectsBadRoots(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for a non-existent root")
	}

	f, err := os.CreateTemp(t.TempDir(), "not-a-dir-*")
	if err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
