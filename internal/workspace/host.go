package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/starford/linkpeek/internal/apperr"
	"github.com/starford/linkpeek/internal/reconcile"
	"github.com/starford/linkpeek/internal/sse"
)

// Publisher delivers commands to the connected plugin.
type Publisher interface {
	Publish(event sse.Event)
}

// Command event types sent to the plugin.
const (
	EventViewClose    = "view.close"
	EventViewActivate = "view.activate"
	EventViewBack     = "view.back"
)

// Host applies reconciliation commands to the mirror and forwards them to
// the plugin, which performs them on the real leaves.
type Host struct {
	repo   Repository
	pub    Publisher
	logger *slog.Logger

	mu     sync.Mutex
	active string
}

// Verify *Host satisfies reconcile.Host at compile time.
var _ reconcile.Host = (*Host)(nil)

// NewHost creates a Host over repo publishing to pub.
func NewHost(repo Repository, pub Publisher, logger *slog.Logger) *Host {
	return &Host{repo: repo, pub: pub, logger: logger}
}

// Views returns the mirrored views of kind.
func (h *Host) Views(ctx context.Context, kind string) ([]reconcile.View, error) {
	return h.repo.List(ctx, kind)
}

// Close detaches a view. A view the host already closed is not an error.
func (h *Host) Close(ctx context.Context, id string) error {
	if err := h.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		h.logger.Debug("workspace: close of unknown view", slog.String("view", id))
	}
	h.mu.Lock()
	if h.active == id {
		h.active = ""
	}
	h.mu.Unlock()

	h.pub.Publish(sse.Event{Type: EventViewClose, Data: map[string]string{"id": id}})
	return nil
}

// Activate brings a view to the front. Re-activating the active view leaves
// the mirror untouched; with focus it still sends view.activate so the
// plugin refocuses the survivor after its duplicates close.
func (h *Host) Activate(ctx context.Context, id string, focus bool) error {
	h.mu.Lock()
	already := h.active == id
	h.mu.Unlock()
	if already {
		if focus {
			h.pub.Publish(sse.Event{Type: EventViewActivate, Data: map[string]any{"id": id, "focus": true}})
		}
		return nil
	}

	if _, err := h.repo.Touch(ctx, id); err != nil {
		return err
	}
	h.MarkActive(id)
	h.pub.Publish(sse.Event{Type: EventViewActivate, Data: map[string]any{"id": id, "focus": focus}})
	return nil
}

// GoBack steps a view back one history entry.
func (h *Host) GoBack(ctx context.Context, id string) error {
	if err := h.repo.MarkBack(ctx, id); err != nil {
		return err
	}
	h.pub.Publish(sse.Event{Type: EventViewBack, Data: map[string]string{"id": id}})
	return nil
}

// MarkActive records id as the host's active view without emitting a command,
// for activations the plugin itself reported.
func (h *Host) MarkActive(id string) {
	h.mu.Lock()
	h.active = id
	h.mu.Unlock()
}

// Active returns the id of the active view, or "".
func (h *Host) Active() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}
