package reconcile

import (
	"context"
	"sync"
)

// fakeHost is an in-memory Host. Views may block or panic on demand.
type fakeHost struct {
	mu       sync.Mutex
	views    []View
	active   string
	backs    []string
	noops    int
	closeErr error

	viewsCalls int
	beforeList func(call int)
}

func newFakeHost(views ...View) *fakeHost {
	return &fakeHost{views: append([]View(nil), views...)}
}

func (h *fakeHost) snapshot() []View {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]View(nil), h.views...)
}

func (h *fakeHost) ids() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.views))
	for _, v := range h.views {
		out = append(out, v.ID)
	}
	return out
}

func (h *fakeHost) activeID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *fakeHost) Views(_ context.Context, kind string) ([]View, error) {
	h.mu.Lock()
	h.viewsCalls++
	call := h.viewsCalls
	hook := h.beforeList
	h.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	var out []View
	for _, v := range h.views {
		if kind == "" || v.Kind == kind {
			out = append(out, v)
		}
	}
	return out, nil
}

func (h *fakeHost) Close(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closeErr != nil {
		return h.closeErr
	}
	for i, v := range h.views {
		if v.ID == id {
			h.views = append(h.views[:i], h.views[i+1:]...)
			break
		}
	}
	return nil
}

func (h *fakeHost) Activate(_ context.Context, id string, _ bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == id {
		h.noops++
		return nil
	}
	var max int64
	for _, v := range h.views {
		if v.ActiveTime > max {
			max = v.ActiveTime
		}
	}
	for i := range h.views {
		if h.views[i].ID == id {
			h.views[i].ActiveTime = max + 1
		}
	}
	h.active = id
	return nil
}

func (h *fakeHost) GoBack(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.backs = append(h.backs, id)
	for i := range h.views {
		if h.views[i].ID == id {
			h.views[i].HasBackHistory = false
		}
	}
	return nil
}
