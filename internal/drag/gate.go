// Package drag gates drag-to-open gestures on a minimum hold duration.
package drag

import "time"

// Gate tracks one drag sequence. The zero Gate fires on every started drop.
type Gate struct {
	Threshold time.Duration

	start time.Time
}

// Start records the beginning of a drag.
func (g *Gate) Start(at time.Time) {
	g.start = at
}

// Started reports whether a drag is in progress.
func (g *Gate) Started() bool {
	return !g.start.IsZero()
}

// End finishes the sequence and reports whether the open action should fire.
// A drop without a recorded start is abandoned. Otherwise a zero threshold
// always fires and a positive one requires the drag to be held that long.
func (g *Gate) End(at time.Time) bool {
	start := g.start
	g.start = time.Time{}

	if start.IsZero() {
		return false
	}
	return g.Threshold <= 0 || at.Sub(start) >= g.Threshold
}
