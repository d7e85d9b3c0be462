package api

import (
	"errors"
	"time"

	"github.com/starford/linkpeek/internal/apperr"
	"github.com/starford/linkpeek/internal/link"
	"github.com/starford/linkpeek/internal/linkservice"
	"github.com/starford/linkpeek/internal/reconcile"
)

// LinkInput is what the plugin observed at a click or drop site. Line and
// Cursor describe an editing-mode hit; HTML carries the rendered element,
// with Target selecting the clicked node inside it.
type LinkInput struct {
	Line   string `json:"line,omitempty" example:"see [[Note#Heading]] here"`
	Cursor *int   `json:"cursor,omitempty" example:"8"`
	HTML   string `json:"html,omitempty" example:"<a data-linkpeek-target data-href=\"Note\">Note</a>"`
	Target string `json:"target,omitempty" example:"[data-linkpeek-target]"`
}

// toInput converts the request into a resolver input. A fragment without
// the target element carries no node rather than failing.
func (in LinkInput) toInput() (link.Input, error) {
	var out link.Input
	if in.Cursor != nil {
		out.Text = &link.TextContext{Line: in.Line, Cursor: *in.Cursor}
	}
	if in.HTML != "" {
		n, err := link.ParseFragment(in.HTML, in.Target)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return link.Input{}, err
		default:
			out.Node = n
		}
	}
	return out, nil
}

// Resolution is the resolve response type (aliased from the domain layer).
type Resolution = linkservice.Resolution

// View is a mirrored host view (aliased from the domain layer).
type View = reconcile.View

// Plan is a reconciliation plan (aliased from the domain layer).
type Plan = reconcile.Plan

// ViewRequest is the request body for registering or updating a view.
type ViewRequest struct {
	Kind           string `json:"kind" example:"markdown"`
	ResourcePath   string `json:"resource_path" example:"notes/hello.md"`
	GroupID        string `json:"group_id" example:"main"`
	ActiveTime     int64  `json:"active_time" example:"42"`
	Pinned         bool   `json:"pinned"`
	HasBackHistory bool   `json:"has_back_history"`
}

// ViewListResponse wraps view listings.
type ViewListResponse struct {
	Views []View `json:"views" validate:"required"`
}

// SessionRequest is the request body for creating a session.
type SessionRequest struct {
	WindowID string `json:"window_id" example:"main" validate:"required"`
}

// DragRequest is the request body for drag gestures. At defaults to the
// time the request is received.
type DragRequest struct {
	LinkInput
	At *time.Time `json:"at,omitempty"`
}

func (r DragRequest) at() time.Time {
	if r.At != nil {
		return *r.At
	}
	return time.Now()
}

// VaultResolveResponse is returned by GET /vault/resolve.
type VaultResolveResponse struct {
	Path        string   `json:"path" example:"Note" validate:"required"`
	File        string   `json:"file,omitempty" example:"notes/Note.md"`
	Suggestions []string `json:"suggestions,omitempty"`
}
