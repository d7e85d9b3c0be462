package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkpeek/internal/linkservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *linkservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Link resolution.
	r.Post("/resolve", h.Resolve)
	r.Get("/vault/resolve", h.ResolveVaultPath)

	// View mirror and reconciliation.
	r.Get("/views", h.ListViews)
	r.Put("/views/{id}", h.PutView)
	r.Delete("/views/{id}", h.DeleteView)
	r.Post("/views/{id}/activate", h.ActivateView)
	r.Get("/views/{id}/plan", h.PlanReconcile)
	r.Get("/reconcile/stats", h.ReconcileStats)

	// Per-window sessions.
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Delete("/sessions/{id}", h.DestroySession)
	r.Post("/sessions/{id}/open", h.OpenLink)
	r.Post("/sessions/{id}/close", h.CloseModal)
	r.Post("/sessions/{id}/drag/start", h.DragStart)
	r.Post("/sessions/{id}/drag/end", h.DragEnd)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
