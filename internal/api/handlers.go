package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkpeek/internal/linkservice"
	"github.com/starford/linkpeek/internal/reconcile"
)

// maxBody caps request bodies; rendered fragments are small.
const maxBody = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *linkservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *linkservice.Service) *Handler {
	return &Handler{svc: svc}
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// Resolve handles POST /api/resolve.
//
//	@Summary		Resolve the link at a click or cursor position
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LinkInput	true	"Observed input"
//	@Success		200		{object}	Resolution
//	@Success		204		"No link at the position"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req LinkInput
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, _ := h.svc.Resolve(r.Context(), in)
	writeResolution(w, res)
}

// ResolveVaultPath handles GET /api/vault/resolve.
//
//	@Summary		Map a link path to a vault file
//	@Tags			links
//	@Produce		json
//	@Param			path	query		string	true	"Link path"
//	@Success		200		{object}	VaultResolveResponse
//	@Failure		404		{object}	VaultResolveResponse
//	@Security		BearerAuth
//	@Router			/vault/resolve [get]
func (h *Handler) ResolveVaultPath(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	file, suggestions, err := h.svc.ResolveVaultPath(path)
	resp := VaultResolveResponse{Path: path, File: file, Suggestions: suggestions}
	if err != nil {
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListViews handles GET /api/views.
//
//	@Summary		List mirrored views
//	@Tags			views
//	@Produce		json
//	@Param			kind	query		string	false	"Filter by view kind"
//	@Success		200		{object}	ViewListResponse
//	@Security		BearerAuth
//	@Router			/views [get]
func (h *Handler) ListViews(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListViews(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		writeServiceError(w, "list views", err)
		return
	}
	writeJSON(w, http.StatusOK, ViewListResponse{Views: views})
}

// PutView handles PUT /api/views/{id}.
//
//	@Summary		Register or update a view
//	@Tags			views
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"View id"
//	@Param			body	body		ViewRequest	true	"View state"
//	@Success		200		{object}	View
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/views/{id} [put]
func (h *Handler) PutView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.svc.PutView(r.Context(), reconcile.View{
		ID:             chi.URLParam(r, "id"),
		Kind:           req.Kind,
		ResourcePath:   req.ResourcePath,
		GroupID:        req.GroupID,
		ActiveTime:     req.ActiveTime,
		Pinned:         req.Pinned,
		HasBackHistory: req.HasBackHistory,
	})
	if err != nil {
		writeServiceError(w, "put view", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeleteView handles DELETE /api/views/{id}.
//
//	@Summary		Forget a view the user closed
//	@Tags			views
//	@Param			id	path	string	true	"View id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/views/{id} [delete]
func (h *Handler) DeleteView(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveView(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "delete view", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateView handles POST /api/views/{id}/activate.
//
//	@Summary		Report that a view became active
//	@Description	Bumps the view's activation time and schedules duplicate reconciliation.
//	@Tags			views
//	@Produce		json
//	@Param			id	path		string	true	"View id"
//	@Success		202	{object}	View
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/views/{id}/activate [post]
func (h *Handler) ActivateView(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.ActivateView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "activate view", err)
		return
	}
	writeJSON(w, http.StatusAccepted, v)
}

// PlanReconcile handles GET /api/views/{id}/plan.
//
//	@Summary		Dry-run reconciliation for a view
//	@Tags			views
//	@Produce		json
//	@Param			id	path		string	true	"View id"
//	@Success		200	{object}	Plan
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/views/{id}/plan [get]
func (h *Handler) PlanReconcile(w http.ResponseWriter, r *http.Request) {
	plan, err := h.svc.PlanReconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "plan reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// ReconcileStats handles GET /api/reconcile/stats.
func (h *Handler) ReconcileStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ReconcileStats())
}

// CreateSession handles POST /api/sessions.
//
//	@Summary		Start a session for a host window
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SessionRequest	true	"Window"
//	@Success		201		{object}	session.State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.WindowID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("window_id is required"))
		return
	}
	writeJSON(w, http.StatusCreated, h.svc.CreateSession(req.WindowID))
}

// GetSession handles GET /api/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DestroySession handles DELETE /api/sessions/{id}.
func (h *Handler) DestroySession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DestroySession(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "destroy session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenLink handles POST /api/sessions/{id}/open.
//
//	@Summary		Open the link at a click site in the session's modal
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session id"
//	@Param			body	body		LinkInput	true	"Observed input"
//	@Success		200		{object}	Resolution
//	@Success		204		"No link at the click site"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/open [post]
func (h *Handler) OpenLink(w http.ResponseWriter, r *http.Request) {
	var req LinkInput
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := h.svc.OpenLink(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, "open link", err)
		return
	}
	writeResolution(w, res)
}

// CloseModal handles POST /api/sessions/{id}/close.
func (h *Handler) CloseModal(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseModal(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "close modal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DragStart handles POST /api/sessions/{id}/drag/start.
func (h *Handler) DragStart(w http.ResponseWriter, r *http.Request) {
	var req DragRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if err := h.svc.DragStart(chi.URLParam(r, "id"), req.at()); err != nil {
		writeServiceError(w, "drag start", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DragEnd handles POST /api/sessions/{id}/drag/end.
//
//	@Summary		Finish a drag and open the dropped link
//	@Description	Opens the link only when the drag lasted at least the configured threshold.
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session id"
//	@Param			body	body		DragRequest	true	"Drop site"
//	@Success		200		{object}	Resolution
//	@Success		204		"Drop ignored"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/drag/end [post]
func (h *Handler) DragEnd(w http.ResponseWriter, r *http.Request) {
	var req DragRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := h.svc.DragEnd(r.Context(), chi.URLParam(r, "id"), req.at(), in)
	if err != nil {
		writeServiceError(w, "drag end", err)
		return
	}
	writeResolution(w, res)
}
