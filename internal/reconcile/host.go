package reconcile

import (
	"context"
	"errors"
	"fmt"
)

// Host is the collaborator that owns the real views.
type Host interface {
	// Views returns all open views of the given resource kind ("" for all).
	Views(ctx context.Context, kind string) ([]View, error)
	// Close detaches a view. Closing is irreversible.
	Close(ctx context.Context, id string) error
	// Activate brings a view to the front; focus also moves input focus.
	// Activating the already-active view is a no-op.
	Activate(ctx context.Context, id string, focus bool) error
	// GoBack steps a view one entry back in its navigation history.
	GoBack(ctx context.Context, id string) error
}

// Apply executes p against host. Every command is attempted; failures are
// joined into the returned error.
func Apply(ctx context.Context, host Host, p Plan) error {
	var errs []error
	for _, id := range p.Close {
		if err := host.Close(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	if p.Back != "" {
		if err := host.GoBack(ctx, p.Back); err != nil {
			errs = append(errs, fmt.Errorf("back %s: %w", p.Back, err))
		}
	}
	if p.Activate != "" {
		if err := host.Activate(ctx, p.Activate, p.Focus); err != nil {
			errs = append(errs, fmt.Errorf("activate %s: %w", p.Activate, err))
		}
	}
	return errors.Join(errs...)
}
