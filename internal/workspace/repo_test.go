package workspace

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/linkpeek/internal/apperr"
	"github.com/starford/linkpeek/internal/reconcile"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "linkpeek-workspace-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	st, err := Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestUpsertGet(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	v := reconcile.View{ID: "leaf-1", Kind: "markdown", ResourcePath: "Note.md", GroupID: "g1", ActiveTime: 3, Pinned: true}
	if err := st.Upsert(ctx, v); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := st.Get(ctx, "leaf-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != v {
		t.Errorf("Get = %+v, want %+v", got, v)
	}

	v.ResourcePath = "Other.md"
	v.Pinned = false
	if err := st.Upsert(ctx, v); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	got, _ = st.Get(ctx, "leaf-1")
	if got.ResourcePath != "Other.md" || got.Pinned {
		t.Errorf("after update = %+v", got)
	}
}

func TestUpsertEmptyID(t *testing.T) {
	st := testStore(t)
	if err := st.Upsert(context.Background(), reconcile.View{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestGetDeleteMissing(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if _, err := st.Get(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
	if err := st.Delete(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
	if _, err := st.Touch(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Touch err = %v, want ErrNotFound", err)
	}
	if err := st.MarkBack(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("MarkBack err = %v, want ErrNotFound", err)
	}
}

func TestListKeepsRegistrationOrder(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	for _, v := range []reconcile.View{
		{ID: "c", Kind: "markdown"},
		{ID: "a", Kind: "canvas"},
		{ID: "b", Kind: "markdown"},
	} {
		if err := st.Upsert(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	// Re-upserting keeps the original position.
	if err := st.Upsert(ctx, reconcile.View{ID: "c", Kind: "markdown", ActiveTime: 9}); err != nil {
		t.Fatal(err)
	}

	all, err := st.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if ids := viewIDs(all); ids != "c,a,b" {
		t.Errorf("List all = %s, want c,a,b", ids)
	}

	md, err := st.List(ctx, "markdown")
	if err != nil {
		t.Fatalf("List markdown: %v", err)
	}
	if ids := viewIDs(md); ids != "c,b" {
		t.Errorf("List markdown = %s, want c,b", ids)
	}
}

func TestTouchIsMonotonic(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	st.Upsert(ctx, reconcile.View{ID: "a", ActiveTime: 10})
	st.Upsert(ctx, reconcile.View{ID: "b", ActiveTime: 4})

	at, err := st.Touch(ctx, "b")
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if at != 11 {
		t.Errorf("Touch = %d, want 11", at)
	}
	at, _ = st.Touch(ctx, "a")
	if at != 12 {
		t.Errorf("second Touch = %d, want 12", at)
	}
}

func TestMarkBackClearsResource(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	st.Upsert(ctx, reconcile.View{ID: "a", ResourcePath: "Note.md", HasBackHistory: true})
	if err := st.MarkBack(ctx, "a"); err != nil {
		t.Fatalf("MarkBack: %v", err)
	}
	got, _ := st.Get(ctx, "a")
	if got.ResourcePath != "" || got.HasBackHistory {
		t.Errorf("after MarkBack = %+v", got)
	}
}

func viewIDs(views []reconcile.View) string {
	s := ""
	for i, v := range views {
		if i > 0 {
			s += ","
		}
		s += v.ID
	}
	return s
}
