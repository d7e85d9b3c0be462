package reconcile

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCoordinator_DisabledIsNoop(t *testing.T) {
	h := newFakeHost(trio()...)
	c := NewCoordinator(context.Background(), h, quietLogger(), Options{Enabled: false})
	defer c.Close()

	c.Notify(byID(trio(), "V2"))
	assert.Equal(t, c.Stats().Runs, int64(0))
	assert.Equal(t, len(h.ids()), 3)
}

func TestCoordinator_InlineReconcile(t *testing.T) {
	h := newFakeHost(trio()...)
	var plans []Plan
	c := NewCoordinator(context.Background(), h, quietLogger(), Options{
		Enabled: true,
		OnPlan:  func(_ View, p Plan) { plans = append(plans, p) },
	})
	defer c.Close()

	c.Notify(byID(trio(), "V1"))
	assert.DeepEqual(t, h.ids(), []string{"V1"})
	assert.Equal(t, h.activeID(), "V1")
	assert.Equal(t, len(plans), 1)
	assert.Equal(t, plans[0].Case, CaseOldest)

	// Nothing left to reconcile.
	c.Notify(byID(trio(), "V1"))
	assert.Equal(t, plans[1].Case, CaseNone)
}

func TestCoordinator_DebounceRunsLastOnly(t *testing.T) {
	h := newFakeHost(trio()...)
	var mu sync.Mutex
	var seen []string
	c := NewCoordinator(context.Background(), h, quietLogger(), Options{
		Enabled:  true,
		Debounce: 40 * time.Millisecond,
		OnPlan: func(v View, _ Plan) {
			mu.Lock()
			seen = append(seen, v.ID)
			mu.Unlock()
		},
	})
	defer c.Close()

	c.Notify(byID(trio(), "V1"))
	c.Notify(byID(trio(), "V3"))
	c.Notify(byID(trio(), "V2"))

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if c.Stats().Runs >= 1 {
			return poll.Success()
		}
		return poll.Continue("waiting for debounced pass")
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(10*time.Millisecond))

	time.Sleep(80 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.DeepEqual(t, seen, []string{"V2"})
	assert.DeepEqual(t, h.ids(), []string{"V2"})
}

func TestCoordinator_InFlightDropsSameIDAndQueuesOthers(t *testing.T) {
	views := trio()
	views = append(views, View{ID: "W1", ResourcePath: "Other.md", GroupID: "g", ActiveTime: 1})
	h := newFakeHost(views...)

	entered := make(chan struct{})
	release := make(chan struct{})
	h.beforeList = func(call int) {
		if call == 1 {
			close(entered)
			<-release
		}
	}

	var mu sync.Mutex
	var order []string
	c := NewCoordinator(context.Background(), h, quietLogger(), Options{
		Enabled: true,
		OnPlan: func(v View, _ Plan) {
			mu.Lock()
			order = append(order, v.ID)
			mu.Unlock()
		},
	})
	defer c.Close()

	done := make(chan struct{})
	go func() {
		c.Notify(byID(views, "V2"))
		close(done)
	}()
	<-entered

	c.Notify(byID(views, "V2")) // same id in flight: dropped
	c.Notify(byID(views, "W1")) // queued
	c.Notify(byID(views, "W1")) // collapses into the queued entry
	assert.Equal(t, c.Stats().Skipped, int64(1))

	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.DeepEqual(t, order, []string{"V2", "W1"})
	assert.Equal(t, c.Stats().Runs, int64(2))
}

func TestCoordinator_PanicReleasesGuard(t *testing.T) {
	h := newFakeHost(trio()...)
	h.beforeList = func(call int) {
		if call == 1 {
			panic("host exploded")
		}
	}
	c := NewCoordinator(context.Background(), h, quietLogger(), Options{Enabled: true})
	defer c.Close()

	c.Notify(byID(trio(), "V2"))
	assert.Equal(t, c.Stats().Failed, int64(1))

	c.Notify(byID(trio(), "V2"))
	assert.Equal(t, c.Stats().Runs, int64(2))
	assert.Equal(t, c.Stats().Skipped, int64(0))
	assert.DeepEqual(t, h.ids(), []string{"V2"})
}

func TestCoordinator_Preview(t *testing.T) {
	h := newFakeHost(trio()...)
	c := NewCoordinator(context.Background(), h, quietLogger(), Options{Enabled: true})
	defer c.Close()

	p, err := c.Preview(context.Background(), byID(trio(), "V3"))
	assert.NilError(t, err)
	assert.Equal(t, p.Case, CaseMiddle)
	assert.Equal(t, len(h.ids()), 3, "preview must not mutate the host")
}
