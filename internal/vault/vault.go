// Package vault maps link paths to concrete files in the note vault, the
// way the host resolves [[links]]: exact path, implied .md extension,
// shortest unique basename match, then frontmatter aliases.
package vault

import (
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sahilm/fuzzy"

	"github.com/starford/linkpeek/internal/apperr"
	"github.com/starford/linkpeek/internal/debounce"
	"github.com/starford/linkpeek/internal/models"
	"github.com/starford/linkpeek/internal/parser"
	"github.com/starford/linkpeek/internal/storage"
)

type entry struct {
	meta     models.FileMeta
	title    string
	aliases  []string
	headings []string
	blocks   []string
}

func (e *entry) parse(data []byte) {
	r := parser.Parse(data)
	e.title = r.Title
	e.aliases = r.Aliases
	e.headings = r.Headings
	e.blocks = r.Blocks
}

// Vault is an in-memory index of vault files, rebuilt by Refresh.
type Vault struct {
	store  storage.Provider
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry    // path → entry
	byLower map[string]string   // lower(path) → path
	byBase  map[string][]string // lower(link name) → paths, shortest first
	byAlias map[string][]string // lower(alias) → paths, shortest first
	paths   []string            // sorted, for suggestions

	// pending is the running watcher's refresh debouncer, nil when not watching.
	pending atomic.Pointer[debounce.Debouncer]
}

// New creates an empty Vault over store. Call Refresh to populate it.
func New(store storage.Provider, logger *slog.Logger) *Vault {
	return &Vault{
		store:   store,
		logger:  logger,
		entries: make(map[string]entry),
	}
}

// Refresh rescans the vault. Notes whose checksum is unchanged keep their
// cached frontmatter and anchors; only changed notes are re-read.
func (v *Vault) Refresh() error {
	metas, err := v.store.List("")
	if err != nil {
		return fmt.Errorf("vault: refresh: %w", err)
	}

	v.mu.RLock()
	prev := v.entries
	v.mu.RUnlock()

	entries := make(map[string]entry, len(metas))
	for _, m := range metas {
		e := entry{meta: m}
		if m.IsMarkdown() {
			if old, ok := prev[m.Path]; ok && old.meta.Checksum == m.Checksum {
				e = old
				e.meta = m
			} else if data, readErr := v.store.Read(m.Path); readErr == nil {
				e.parse(data)
			} else {
				v.logger.Warn("vault: read failed", slog.String("path", m.Path), slog.String("error", readErr.Error()))
			}
		}
		entries[m.Path] = e
	}

	byLower := make(map[string]string, len(entries))
	byBase := make(map[string][]string, len(entries))
	byAlias := make(map[string][]string)
	paths := make([]string, 0, len(entries))
	for p, e := range entries {
		paths = append(paths, p)
		byLower[strings.ToLower(p)] = p
		key := linkName(p)
		byBase[key] = append(byBase[key], p)
		for _, a := range e.aliases {
			k := strings.ToLower(a)
			byAlias[k] = append(byAlias[k], p)
		}
	}
	sort.Strings(paths)
	for _, m := range []map[string][]string{byBase, byAlias} {
		for k := range m {
			sortShortest(m[k])
		}
	}

	v.mu.Lock()
	v.entries = entries
	v.byLower = byLower
	v.byBase = byBase
	v.byAlias = byAlias
	v.paths = paths
	v.mu.Unlock()

	v.logger.Debug("vault: refreshed", slog.Int("files", len(paths)))
	return nil
}

// Len returns the number of indexed files.
func (v *Vault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.paths)
}

// Resolve maps a link path to a vault-relative file path. A miss while the
// watcher holds a debounced refresh runs that refresh now and looks again,
// so a note created a moment ago already resolves.
func (v *Vault) Resolve(linkpath string) (string, error) {
	p, err := v.lookup(linkpath)
	if err == nil {
		return p, nil
	}
	if d := v.pending.Load(); d != nil && d.Flush() {
		return v.lookup(linkpath)
	}
	return "", err
}

func (v *Vault) lookup(linkpath string) (string, error) {
	q := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(linkpath)), "/")
	if q == "" || q == "." {
		return "", fmt.Errorf("vault: empty link path: %w", apperr.ErrUnresolvedResource)
	}
	lq := strings.ToLower(q)

	v.mu.RLock()
	defer v.mu.RUnlock()

	if p, ok := v.byLower[lq]; ok {
		return p, nil
	}
	if p, ok := v.byLower[lq+".md"]; ok {
		return p, nil
	}
	if cands := v.byBase[linkName(q)]; len(cands) > 0 {
		if !strings.Contains(q, "/") {
			return cands[0], nil
		}
		// Partial paths ("Folder/Note") must match a path suffix.
		for _, c := range cands {
			lc := strings.ToLower(c)
			if strings.HasSuffix(lc, "/"+lq) || strings.HasSuffix(lc, "/"+lq+".md") {
				return c, nil
			}
		}
	}
	if cands := v.byAlias[lq]; len(cands) > 0 {
		return cands[0], nil
	}
	return "", fmt.Errorf("vault: %q: %w", linkpath, apperr.ErrUnresolvedResource)
}

// Suggest returns up to n vault paths that fuzzy-match linkpath, best first.
func (v *Vault) Suggest(linkpath string, n int) []string {
	q := strings.TrimSpace(linkpath)
	if q == "" || n <= 0 {
		return nil
	}
	v.mu.RLock()
	paths := v.paths
	v.mu.RUnlock()

	matches := fuzzy.Find(q, paths)
	out := make([]string, 0, min(n, len(matches)))
	for _, m := range matches {
		if len(out) == n {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// Title returns the display title of a note: its frontmatter title, first H1,
// or file name without extension.
func (v *Vault) Title(p string) string {
	v.mu.RLock()
	e, ok := v.entries[p]
	v.mu.RUnlock()
	if ok && e.title != "" {
		return e.title
	}
	return strings.TrimSuffix(path.Base(p), ".md")
}

// HasFragment reports whether the note at p contains the heading or ^block
// the fragment names. Headings compare case-insensitively. Non-note files
// and unknown paths report false.
func (v *Vault) HasFragment(p, fragment string) bool {
	v.mu.RLock()
	e, ok := v.entries[p]
	v.mu.RUnlock()
	if !ok || !e.meta.IsMarkdown() {
		return false
	}
	if id, isBlock := strings.CutPrefix(fragment, "^"); isBlock {
		for _, b := range e.blocks {
			if strings.EqualFold(b, id) {
				return true
			}
		}
		return false
	}
	for _, h := range e.headings {
		if strings.EqualFold(h, strings.TrimSpace(fragment)) {
			return true
		}
	}
	return false
}

// linkName is the key a bare [[link]] matches: the lowercased base name,
// without the .md extension for notes.
func linkName(p string) string {
	return strings.TrimSuffix(strings.ToLower(path.Base(p)), ".md")
}

func sortShortest(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}
		return paths[i] < paths[j]
	})
}
