package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newVault(t *testing.T, files map[string]string, opts ...FSOption) *FS {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := NewFS(dir, opts...)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func listed(t *testing.T, fs *FS, dir string) map[string]string {
	t.Helper()
	items, err := fs.List(dir)
	if err != nil {
		t.Fatalf("List(%q): %v", dir, err)
	}
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.Path] = it.Checksum
	}
	return out
}

func TestRead(t *testing.T) {
	fs := newVault(t, map[string]string{"Daily/2024-01-01.md": "# Day\n"})
	got, err := fs.Read("Daily/2024-01-01.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "# Day\n" {
		t.Errorf("content = %q", got)
	}
	if _, err := fs.Read("Daily/missing.md"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want not-exist", err)
	}
}

func TestListSkipsHiddenAndChecksumsNotes(t *testing.T) {
	fs := newVault(t, map[string]string{
		"Note.md":                  "a",
		"projects/Plan.md":         "b",
		"assets/diagram.png":       "png",
		".obsidian/workspace.json": "{}",
		".trash/Old.md":            "x",
		"projects/.draft.md":       "x",
	})

	got := listed(t, fs, "")
	if len(got) != 3 {
		t.Fatalf("listed %v, want 3 visible files", got)
	}
	if got["projects/Plan.md"] == "" {
		t.Error("note should carry a checksum")
	}
	if cs, ok := got["assets/diagram.png"]; !ok || cs != "" {
		t.Errorf("asset checksum = %q (present=%v), want listed without checksum", cs, ok)
	}

	sub := listed(t, fs, "projects")
	if _, ok := sub["projects/Plan.md"]; !ok || len(sub) != 1 {
		t.Errorf("List(projects) = %v", sub)
	}
}

func TestWithIgnore(t *testing.T) {
	fs := newVault(t, map[string]string{
		"Note.md":             "a",
		"templates/Daily.md":  "t",
		"archive/2020/Old.md": "o",
		"archived/Keep.md":    "k",
	}, WithIgnore("templates/", "./archive", ""))

	got := listed(t, fs, "")
	for _, p := range []string{"templates/Daily.md", "archive/2020/Old.md"} {
		if _, ok := got[p]; ok {
			t.Errorf("%s should be ignored", p)
		}
	}
	for _, p := range []string{"Note.md", "archived/Keep.md"} {
		if _, ok := got[p]; !ok {
			t.Errorf("%s should be listed", p)
		}
	}
}

func TestIgnored(t *testing.T) {
	fs := newVault(t, nil, WithIgnore("templates"))
	cases := map[string]bool{
		"":                     false,
		"Note.md":              false,
		".obsidian":            true,
		"a/.git/config":        true,
		"templates":            true,
		"templates/Weekly.md":  true,
		"templates-old/Foo.md": false,
	}
	for rel, want := range cases {
		if got := fs.Ignored(rel); got != want {
			t.Errorf("Ignored(%q) = %v, want %v", rel, got, want)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	fs := newVault(t, nil)
	for _, p := range []string{"../../etc/passwd", "../outside.md"} {
		if _, err := fs.Read(p); !errors.Is(err, errEscapesRoot) {
			t.Errorf("Read(%q) = %v, want escape error", p, err)
		}
	}
	if _, err := fs.Read("/etc/shadow"); !errors.Is(err, errAbsolutePath) {
		t.Errorf("absolute path: got %v", err)
	}
	if _, err := fs.List("../"); err == nil {
		t.Error("expected error listing outside the vault")
	}
}

func TestNewFS_BadRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(file); err == nil {
		t.Error("expected error when root is a file")
	}
}
