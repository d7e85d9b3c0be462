package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/linkpeek/internal/apperr"
	"github.com/starford/linkpeek/internal/debounce"
)

// Options configures a Coordinator.
type Options struct {
	// Enabled turns the duplicate policy on. A disabled coordinator ignores
	// every activation.
	Enabled bool
	// Debounce is the activation coalescing window; 0 reconciles inline.
	Debounce time.Duration
	// Timeout bounds one pass against the host.
	Timeout time.Duration
	// OnPlan, if set, observes every executed plan.
	OnPlan func(View, Plan)
}

// Stats counts coordinator outcomes since creation.
type Stats struct {
	Runs    int64 `json:"runs"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// Coordinator turns "view activated" events into reconciliation passes.
//
// Activations are debounced so only the last one in a burst runs. At most
// one pass executes at a time: an activation for the view already in flight
// is dropped, one for a different view is queued by id (repeats collapse)
// and runs when the current pass finishes.
type Coordinator struct {
	ctx     context.Context
	host    Host
	logger  *slog.Logger
	opts    Options
	trigger *debounce.Debouncer

	mu       sync.Mutex
	inFlight string
	queue    []View

	runs, skipped, failed atomic.Int64
}

// NewCoordinator creates a coordinator. ctx bounds every pass it runs.
func NewCoordinator(ctx context.Context, host Host, logger *slog.Logger, opts Options) *Coordinator {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Coordinator{
		ctx:     ctx,
		host:    host,
		logger:  logger,
		opts:    opts,
		trigger: debounce.New(opts.Debounce),
	}
}

// Enabled reports whether the duplicate policy is active.
func (c *Coordinator) Enabled() bool {
	return c.opts.Enabled
}

// Notify reports that v became active. v carries the view's state as of the
// activation, before the host bumped its ActiveTime.
func (c *Coordinator) Notify(v View) {
	if !c.opts.Enabled {
		return
	}
	c.trigger.Trigger(func() {
		if err := c.submit(v); err != nil {
			c.logger.Debug("reconcile: activation dropped",
				slog.String("view", v.ID),
				slog.String("error", err.Error()))
		}
	})
}

// Close cancels any pending activation and ignores later ones.
func (c *Coordinator) Close() {
	c.trigger.Stop()
}

// Stats returns outcome counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Runs:    c.runs.Load(),
		Skipped: c.skipped.Load(),
		Failed:  c.failed.Load(),
	}
}

// Preview computes the plan for activating v without executing it.
func (c *Coordinator) Preview(ctx context.Context, v View) (Plan, error) {
	views, err := c.host.Views(ctx, v.Kind)
	if err != nil {
		return Plan{}, fmt.Errorf("reconcile: list views: %w", err)
	}
	return Decide(v, views), nil
}

func (c *Coordinator) submit(v View) error {
	c.mu.Lock()
	switch {
	case c.inFlight == v.ID:
		c.mu.Unlock()
		c.skipped.Add(1)
		return fmt.Errorf("view %s: %w", v.ID, apperr.ErrReconcileSkipped)
	case c.inFlight != "":
		c.enqueueLocked(v)
		c.mu.Unlock()
		return nil
	}
	c.inFlight = v.ID
	c.mu.Unlock()

	c.drain(v)
	return nil
}

// enqueueLocked keeps one pending pass per view id, holding the latest snapshot.
func (c *Coordinator) enqueueLocked(v View) {
	for i := range c.queue {
		if c.queue[i].ID == v.ID {
			c.queue[i] = v
			return
		}
	}
	c.queue = append(c.queue, v)
}

// drain runs v, then every queued view, releasing the in-flight slot when
// the queue is empty.
func (c *Coordinator) drain(v View) {
	for {
		c.execute(v)

		c.mu.Lock()
		if len(c.queue) == 0 {
			c.inFlight = ""
			c.mu.Unlock()
			return
		}
		v = c.queue[0]
		c.queue = c.queue[1:]
		c.inFlight = v.ID
		c.mu.Unlock()
	}
}

// execute runs one pass. Panics from the host are recovered so the
// in-flight slot is always released.
func (c *Coordinator) execute(v View) {
	c.runs.Add(1)
	plan, err := c.run(v)
	if err != nil {
		c.failed.Add(1)
		c.logger.Warn("reconcile: pass failed",
			slog.String("view", v.ID),
			slog.String("error", err.Error()))
		return
	}
	c.logger.Debug("reconcile: pass done",
		slog.String("view", v.ID),
		slog.String("case", string(plan.Case)),
		slog.Int("closed", len(plan.Close)))
}

func (c *Coordinator) run(v View) (plan Plan, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reconcile: panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.Timeout)
	defer cancel()

	plan, err = c.Preview(ctx, v)
	if err != nil {
		return plan, err
	}
	if plan.Case == CaseSkipped {
		c.logger.Debug("reconcile: view has no resource", slog.String("view", v.ID))
	}
	if err := Apply(ctx, c.host, plan); err != nil {
		return plan, fmt.Errorf("reconcile: apply: %w", err)
	}
	if c.opts.OnPlan != nil {
		c.opts.OnPlan(v, plan)
	}
	return plan, nil
}
