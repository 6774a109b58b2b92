package match

import (
	"fmt"
	"math"

	"github.com/okian/scout/internal/domain/types"
)

// Default period lengths in seconds.
const (
	DefaultAutoLength  = 15.0
	DefaultMatchLength = 135.0
)

// ClockState is the coarse state of the match clock.
type ClockState string

// Clock states.
const (
	ClockStopped ClockState = "stopped"
	ClockRunning ClockState = "running"
	ClockEnded   ClockState = "ended"
)

// clock holds match time. Phase is always computed from time.
type clock struct {
	time        float64
	running     bool
	autoLength  float64
	matchLength float64
}

func (c *clock) play() {
	if c.time < c.matchLength {
		c.running = true
	}
}

func (c *clock) pause() {
	c.running = false
}

func (c *clock) toggle() {
	if c.time < c.matchLength {
		c.running = !c.running
	}
}

func (c *clock) reset() {
	c.time = 0
	c.running = false
}

// advance moves time forward while running and stops at matchLength.
func (c *clock) advance(dt float64) {
	if c.running && dt > 0 && !math.IsInf(dt, 1) {
		c.time += dt
	}
	if c.time >= c.matchLength {
		c.time = c.matchLength
		c.running = false
	}
}

// set places the clock at t, clamped to the match bounds.
func (c *clock) set(t float64) {
	c.time = math.Min(math.Max(t, 0), c.matchLength)
	if c.time >= c.matchLength {
		c.running = false
	}
}

// phase is AUTO while time <= autoLength.
func (c *clock) phase() types.Phase {
	if c.time <= c.autoLength {
		return types.PhaseAuto
	}
	return types.PhaseTeleop
}

func (c *clock) state() ClockState {
	switch {
	case c.time >= c.matchLength:
		return ClockEnded
	case c.running:
		return ClockRunning
	default:
		return ClockStopped
	}
}

// FormatTimer renders seconds as M:SS.CC. Minutes are not padded, seconds
// and centiseconds are truncated, not rounded.
func FormatTimer(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	cs := int64(seconds*100 + 1e-6)
	return fmt.Sprintf("%d:%02d.%02d", cs/6000, cs/100%60, cs%100)
}
