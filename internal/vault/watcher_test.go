package vault

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/starford/linkpeek/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileResolvable(t *testing.T) {
	v, dir := testVault(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go v.Watch(ctx, 20*time.Millisecond, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, dir, "fresh.md", "# Fresh")

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		_, err := v.Resolve("fresh")
		return err == nil
	}, "fresh.md never became resolvable")

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 || events[0] != "created:fresh.md" {
		t.Errorf("events = %v, want created:fresh.md first", events)
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	v, dir := testVault(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go v.Watch(ctx, 20*time.Millisecond, nil)
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, dir, "sub/inner.md", "# Inner")

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		got, err := v.Resolve("inner")
		return err == nil && got == "sub/inner.md"
	}, "sub/inner.md never became resolvable")
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	v, _ := testVault(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Watch(ctx, 0, nil) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatcher_IgnoresHiddenFolders(t *testing.T) {
	v, dir := testVault(t, map[string]string{".obsidian/app.json": "{}"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go v.Watch(ctx, 0, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, dir, ".obsidian/app.json", `{"x":1}`)
	testutil.WriteFile(t, dir, "visible.md", "# Visible")

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) > 0
	}, "no events for visible.md")

	mu.Lock()
	defer mu.Unlock()
	for _, e := range events {
		if e != "created:visible.md" && e != "updated:visible.md" {
			t.Errorf("unexpected event %q", e)
		}
	}
}

func TestWatcher_ResolveFlushesPendingRefresh(t *testing.T) {
	v, dir := testVault(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := make(chan string, 16)
	go v.Watch(ctx, time.Hour, func(kind, path string) { seen <- path })
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, dir, "just-made.md", "# New")
	select {
	case <-seen:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never reported just-made.md")
	}

	// The hour-long refresh window is still open; lookup must not wait for it.
	got, err := v.Resolve("just-made")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "just-made.md" {
		t.Errorf("resolved = %q", got)
	}
}
