// Package apperr holds the sentinel errors shared across linkpeek packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnresolvedResource means a link path or view resource could not be
	// mapped to a concrete vault file or URL.
	ErrUnresolvedResource = errors.New("unresolved resource")

	// ErrReconcileSkipped is reported when a reconciliation request arrives for
	// a view whose pass is already in flight.
	ErrReconcileSkipped = errors.New("reconciliation skipped")
)
