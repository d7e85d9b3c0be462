package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/linkpeek/internal/apperr"
	"github.com/starford/linkpeek/internal/reconcile"
)

// Repository defines the view mirror operations.
// Consumers should depend on this interface rather than the concrete *Store.
type Repository interface {
	Upsert(ctx context.Context, v reconcile.View) error
	Get(ctx context.Context, id string) (reconcile.View, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, kind string) ([]reconcile.View, error)
	Touch(ctx context.Context, id string) (int64, error)
	MarkBack(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// Verify *Store satisfies Repository at compile time.
var _ Repository = (*Store)(nil)

const viewColumns = `id, kind, resource_path, group_id, active_time, pinned, has_back_history`

// Upsert inserts or replaces a view. New views keep their registration
// order in seq, which List uses to break ActiveTime ties.
func (s *Store) Upsert(ctx context.Context, v reconcile.View) error {
	if v.ID == "" {
		return fmt.Errorf("workspace: upsert: empty view id")
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO views (id, kind, resource_path, group_id, active_time, pinned, has_back_history, seq, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM views), CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			kind             = excluded.kind,
			resource_path    = excluded.resource_path,
			group_id         = excluded.group_id,
			active_time      = excluded.active_time,
			pinned           = excluded.pinned,
			has_back_history = excluded.has_back_history,
			updated_at       = excluded.updated_at
	`, v.ID, v.Kind, v.ResourcePath, v.GroupID, v.ActiveTime, v.Pinned, v.HasBackHistory)
	if err != nil {
		return fmt.Errorf("workspace: upsert view: %w", err)
	}
	return nil
}

// Get returns one view.
func (s *Store) Get(ctx context.Context, id string) (reconcile.View, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+viewColumns+` FROM views WHERE id = ?`, id)
	v, err := scanView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return reconcile.View{}, fmt.Errorf("view %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return reconcile.View{}, fmt.Errorf("workspace: get view: %w", err)
	}
	return v, nil
}

// Delete removes a view. Deleting an unknown view reports ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM views WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("workspace: delete view: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("view %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// List returns views of the given kind ("" for all) in registration order.
func (s *Store) List(ctx context.Context, kind string) ([]reconcile.View, error) {
	query := `SELECT ` + viewColumns + ` FROM views`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY seq`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("workspace: list views: %w", err)
	}
	defer rows.Close()

	var out []reconcile.View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("workspace: scan view: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Touch marks a view as the most recently active and returns its new
// ActiveTime, which is strictly greater than every other view's.
func (s *Store) Touch(ctx context.Context, id string) (int64, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("workspace: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(active_time), 0) + 1 FROM views`).Scan(&next); err != nil {
		return 0, fmt.Errorf("workspace: next active time: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE views SET active_time = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, next, id)
	if err != nil {
		return 0, fmt.Errorf("workspace: touch view: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("view %s: %w", id, apperr.ErrNotFound)
	}
	return next, tx.Commit()
}

// MarkBack records that a view stepped back in history. Its resource is
// unknown until the host reports it again, so it is cleared; a view without
// a resource never counts as a duplicate.
func (s *Store) MarkBack(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE views SET resource_path = '', has_back_history = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("workspace: mark back: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("view %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanView(row scanner) (reconcile.View, error) {
	var v reconcile.View
	err := row.Scan(&v.ID, &v.Kind, &v.ResourcePath, &v.GroupID, &v.ActiveTime, &v.Pinned, &v.HasBackHistory)
	return v, err
}
