package drag

import (
	"testing"
	"time"
)

func TestGate(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		threshold time.Duration
		start     bool
		held      time.Duration
		want      bool
	}{
		{"zero threshold fires immediately", 0, true, 0, true},
		{"zero threshold still needs a start", 0, false, 0, false},
		{"held long enough", 200 * time.Millisecond, true, 200 * time.Millisecond, true},
		{"held too briefly", 200 * time.Millisecond, true, 199 * time.Millisecond, false},
		{"no start recorded", 200 * time.Millisecond, false, time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Gate{Threshold: tt.threshold}
			if tt.start {
				g.Start(t0)
			}
			if got := g.End(t0.Add(tt.held)); got != tt.want {
				t.Errorf("End() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_EndResetsStart(t *testing.T) {
	t0 := time.Now()
	g := Gate{Threshold: time.Millisecond}
	g.Start(t0)
	if !g.Started() {
		t.Fatal("expected started gate")
	}
	if !g.End(t0.Add(time.Second)) {
		t.Fatal("first drop should fire")
	}
	if g.Started() {
		t.Error("End should clear the start time")
	}
	if g.End(t0.Add(2 * time.Second)) {
		t.Error("second drop without a new start must be abandoned")
	}
}
