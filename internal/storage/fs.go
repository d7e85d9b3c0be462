package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/linkpeek/internal/checksum"
	"github.com/starford/linkpeek/internal/models"
)

var (
	errAbsolutePath = errors.New("absolute paths not allowed")
	errEscapesRoot  = errors.New("path escapes vault root")
)

// FS implements Provider backed by the local file system.
type FS struct {
	root   string
	ignore []string // slash-separated folder prefixes, no trailing slash
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithIgnore excludes folders (relative to the root) from listing, so links
// never resolve into them. Matching is case-sensitive.
func WithIgnore(folders ...string) FSOption {
	return func(f *FS) {
		for _, d := range folders {
			d = strings.Trim(path.Clean(filepath.ToSlash(d)), "/")
			if d != "" && d != "." {
				f.ignore = append(f.ignore, d)
			}
		}
	}
}

// NewFS creates a provider rooted at an existing directory.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	switch info, err := os.Stat(abs); {
	case err != nil:
		return nil, fmt.Errorf("storage: stat root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{root: abs}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// Ignored implements Provider.
func (f *FS) Ignored(rel string) bool {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	for _, d := range f.ignore {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

// abs maps a vault-relative path to an absolute one inside the root.
func (f *FS) abs(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: %s: %w", rel, errAbsolutePath)
	}
	p := filepath.Join(f.root, cleaned)
	if p != f.root && !strings.HasPrefix(p, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: %s: %w", rel, errEscapesRoot)
	}
	return p, nil
}

// List walks dir and describes every file that is not ignored. Markdown notes
// carry a checksum so the link cache can skip unchanged ones; assets do not.
func (f *FS) List(dir string) ([]models.FileMeta, error) {
	base, err := f.abs(dir)
	if err != nil {
		return nil, err
	}

	var out []models.FileMeta
	walk := func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if p != base && f.Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		meta := models.FileMeta{Path: rel, Size: info.Size(), UpdatedAt: info.ModTime()}
		if meta.IsMarkdown() {
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			meta.Checksum = checksum.Sum(data)
		}
		out = append(out, meta)
		return nil
	}
	if err := filepath.WalkDir(base, walk); err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", dir, err)
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(rel string) ([]byte, error) {
	p, err := f.abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}
