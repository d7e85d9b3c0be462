// Package models defines the vault types shared by storage and the vault cache.
package models

import "time"

// FileMeta is a lightweight description of one file in the vault.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsMarkdown reports whether the file is a markdown note.
func (m FileMeta) IsMarkdown() bool {
	return len(m.Path) > 3 && m.Path[len(m.Path)-3:] == ".md"
}
