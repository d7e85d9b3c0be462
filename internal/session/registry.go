// Package session tracks per-window modal state explicitly, one entry per
// host window, with create and destroy driven by the host.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/linkpeek/internal/apperr"
	"github.com/starford/linkpeek/internal/drag"
	"github.com/starford/linkpeek/internal/link"
)

// State is the modal and gesture state of one host window.
type State struct {
	ID        string           `json:"id"`
	WindowID  string           `json:"window_id"`
	ModalOpen bool             `json:"modal_open"`
	Link      *link.Descriptor `json:"link,omitempty"`
	CreatedAt time.Time        `json:"created_at"`

	gate drag.Gate
}

// Registry owns all live sessions.
type Registry struct {
	dragThreshold time.Duration

	mu       sync.Mutex
	sessions map[string]*State
}

// NewRegistry creates an empty registry whose sessions gate drags on threshold.
func NewRegistry(dragThreshold time.Duration) *Registry {
	return &Registry{
		dragThreshold: dragThreshold,
		sessions:      make(map[string]*State),
	}
}

// Create starts a session for windowID.
func (r *Registry) Create(windowID string) State {
	s := &State{
		ID:        uuid.NewString(),
		WindowID:  windowID,
		CreatedAt: time.Now().UTC(),
		gate:      drag.Gate{Threshold: r.dragThreshold},
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return *s
}

// Destroy ends a session. It reports ErrNotFound for unknown ids.
func (r *Registry) Destroy(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	delete(r.sessions, id)
	return nil
}

// Get returns a copy of the session state.
func (r *Registry) Get(id string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return State{}, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return *s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// OpenModal records that the session's modal now shows d. A window has at
// most one modal, so a second open replaces the first.
func (r *Registry) OpenModal(id string, d link.Descriptor) error {
	return r.update(id, func(s *State) {
		s.ModalOpen = true
		s.Link = &d
	})
}

// CloseModal clears the session's modal.
func (r *Registry) CloseModal(id string) error {
	return r.update(id, func(s *State) {
		s.ModalOpen = false
		s.Link = nil
	})
}

// DragStart records the start of a drag gesture in the session.
func (r *Registry) DragStart(id string, at time.Time) error {
	return r.update(id, func(s *State) { s.gate.Start(at) })
}

// DragEnd finishes a drag gesture and reports whether it should open a link.
func (r *Registry) DragEnd(id string, at time.Time) (bool, error) {
	var fire bool
	err := r.update(id, func(s *State) { fire = s.gate.End(at) })
	return fire, err
}

func (r *Registry) update(id string, fn func(*State)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	fn(s)
	return nil
}
