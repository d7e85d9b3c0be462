// Package linkservice coordinates link resolution, the vault, per-window
// sessions and the view mirror behind one API used by HTTP and MCP.
package linkservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/linkpeek/internal/link"
	"github.com/starford/linkpeek/internal/reconcile"
	"github.com/starford/linkpeek/internal/session"
	"github.com/starford/linkpeek/internal/sse"
	"github.com/starford/linkpeek/internal/vault"
	"github.com/starford/linkpeek/internal/workspace"
)

// Command event types emitted for sessions.
const (
	EventLinkOpen   = "link.open"
	EventModalClose = "modal.close"
)

// suggestLimit caps the near matches returned for an unresolved link.
const suggestLimit = 5

// Resolution is a resolved link plus where it lands in the vault.
type Resolution struct {
	Link link.Descriptor `json:"link"`
	// File is the vault file an internal link points at, empty for external
	// links, same-note fragments and unresolved links.
	File     string `json:"file,omitempty"`
	Title    string `json:"title,omitempty"`
	BlockRef bool   `json:"block_ref,omitempty"`
	// FragmentMissing is set when the file resolved but has no heading or
	// block matching the link's fragment.
	FragmentMissing bool     `json:"fragment_missing,omitempty"`
	Unresolved      bool     `json:"unresolved,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

// Deps are the collaborators a Service coordinates.
type Deps struct {
	Resolver    *link.Resolver
	Vault       *vault.Vault
	Sessions    *session.Registry
	Views       workspace.Repository
	Host        *workspace.Host
	Coordinator *reconcile.Coordinator
	Publisher   workspace.Publisher
	Logger      *slog.Logger
}

// Service is the application layer shared by the API and the MCP server.
type Service struct {
	resolver *link.Resolver
	vault    *vault.Vault
	sessions *session.Registry
	views    workspace.Repository
	host     *workspace.Host
	coord    *reconcile.Coordinator
	pub      workspace.Publisher
	logger   *slog.Logger
}

// NewService creates a link service.
func NewService(d Deps) *Service {
	return &Service{
		resolver: d.Resolver,
		vault:    d.Vault,
		sessions: d.Sessions,
		views:    d.Views,
		host:     d.Host,
		coord:    d.Coordinator,
		pub:      d.Publisher,
		logger:   d.Logger,
	}
}

// Resolve finds the link described by in. It reports false when there is
// no link, which is not an error.
func (s *Service) Resolve(_ context.Context, in link.Input) (*Resolution, bool) {
	d, ok := s.resolver.Resolve(in)
	if !ok {
		return nil, false
	}
	res := &Resolution{Link: d, BlockRef: d.IsBlockRef()}
	if d.Kind != link.InternalFile || d.Path == "" {
		return res, true
	}
	file, err := s.vault.Resolve(d.Path)
	if err != nil {
		res.Unresolved = true
		res.Suggestions = s.vault.Suggest(d.Path, suggestLimit)
		return res, true
	}
	res.File = file
	res.Title = s.vault.Title(file)
	if d.Fragment != "" && strings.HasSuffix(file, ".md") {
		res.FragmentMissing = !s.vault.HasFragment(file, d.Fragment)
	}
	return res, true
}

// ResolveVaultPath maps a link path to a vault file, with near matches when
// it does not resolve.
func (s *Service) ResolveVaultPath(path string) (string, []string, error) {
	file, err := s.vault.Resolve(path)
	if err != nil {
		return "", s.vault.Suggest(path, suggestLimit), err
	}
	return file, nil, nil
}

// ListViews returns the mirrored views of kind ("" for all).
func (s *Service) ListViews(ctx context.Context, kind string) ([]reconcile.View, error) {
	views, err := s.views.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(views), nil
}

// PutView registers or updates a view the plugin reported.
func (s *Service) PutView(ctx context.Context, v reconcile.View) (reconcile.View, error) {
	if err := s.views.Upsert(ctx, v); err != nil {
		return reconcile.View{}, err
	}
	return s.views.Get(ctx, v.ID)
}

// RemoveView forgets a view the user closed in the host.
func (s *Service) RemoveView(ctx context.Context, id string) error {
	return s.views.Delete(ctx, id)
}

// ActivateView records that the user focused view id and schedules a
// duplicate reconciliation for it.
func (s *Service) ActivateView(ctx context.Context, id string) (reconcile.View, error) {
	before, err := s.views.Get(ctx, id)
	if err != nil {
		return reconcile.View{}, err
	}
	at, err := s.views.Touch(ctx, id)
	if err != nil {
		return reconcile.View{}, err
	}
	s.host.MarkActive(id)
	s.coord.Notify(before)

	after := before
	after.ActiveTime = at
	return after, nil
}

// PlanReconcile computes what activating view id would do, without doing it.
func (s *Service) PlanReconcile(ctx context.Context, id string) (reconcile.Plan, error) {
	v, err := s.views.Get(ctx, id)
	if err != nil {
		return reconcile.Plan{}, err
	}
	return s.coord.Preview(ctx, v)
}

// ReconcileStatus reports whether duplicate reconciliation is on, with its
// outcome counters.
type ReconcileStatus struct {
	Enabled bool `json:"enabled"`
	reconcile.Stats
}

// ReconcileStats returns the coordinator's status.
func (s *Service) ReconcileStats() ReconcileStatus {
	return ReconcileStatus{Enabled: s.coord.Enabled(), Stats: s.coord.Stats()}
}

// RuleNames lists the reading-mode extraction rules in evaluation order.
func (s *Service) RuleNames() []string {
	rules := s.resolver.Rules()
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

// CreateSession starts a session for a host window.
func (s *Service) CreateSession(windowID string) session.State {
	st := s.sessions.Create(windowID)
	s.logger.Debug("session: created", slog.String("session", st.ID), slog.String("window", windowID))
	return st
}

// GetSession returns a session's state.
func (s *Service) GetSession(id string) (session.State, error) {
	return s.sessions.Get(id)
}

// DestroySession ends a session.
func (s *Service) DestroySession(id string) error {
	if err := s.sessions.Destroy(id); err != nil {
		return err
	}
	s.logger.Debug("session: destroyed", slog.String("session", id))
	return nil
}

// OpenLink resolves in and, if it names a link, opens it in the session's
// modal. A nil result means there was nothing to open.
func (s *Service) OpenLink(ctx context.Context, sessionID string, in link.Input) (*Resolution, error) {
	if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, err
	}
	res, ok := s.Resolve(ctx, in)
	if !ok {
		return nil, nil
	}
	if err := s.sessions.OpenModal(sessionID, res.Link); err != nil {
		return nil, err
	}
	s.pub.Publish(sse.Event{Type: EventLinkOpen, Data: map[string]any{
		"session":    sessionID,
		"link":       res.Link,
		"file":       res.File,
		"unresolved": res.Unresolved,
	}})
	return res, nil
}

// CloseModal closes the session's modal.
func (s *Service) CloseModal(sessionID string) error {
	if err := s.sessions.CloseModal(sessionID); err != nil {
		return err
	}
	s.pub.Publish(sse.Event{Type: EventModalClose, Data: map[string]string{"session": sessionID}})
	return nil
}

// DragStart records the start of a drag in the session.
func (s *Service) DragStart(sessionID string, at time.Time) error {
	return s.sessions.DragStart(sessionID, at)
}

// DragEnd finishes a drag. When the gesture lasted long enough and the drop
// site carries a link, the link opens in the session's modal. A nil result
// means the drop was ignored.
func (s *Service) DragEnd(ctx context.Context, sessionID string, at time.Time, in link.Input) (*Resolution, error) {
	fire, err := s.sessions.DragEnd(sessionID, at)
	if err != nil {
		return nil, err
	}
	if !fire {
		s.logger.Debug("drag: below threshold", slog.String("session", sessionID))
		return nil, nil
	}
	return s.OpenLink(ctx, sessionID, in)
}

// Ready reports whether the service can serve requests.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.views.Ping(ctx); err != nil {
		return fmt.Errorf("linkservice: view store: %w", err)
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
