// services/sched/cycle.go
package sched

import (
	"time"

	"growlight-go/types"
)

// The cycle is the scheduler's single source of truth for the current
// phase. It is mutated only from the timer callback; there is no separate
// latch to fall out of step with it. Whether the relay output defaults to
// energised at boot is a property of the relay bridge's startup sequence,
// not of the cycle.

type cycle interface {
	// Tick advances the state machine by one timer expiry and reports
	// whether the phase flipped, plus the phase now in effect.
	Tick() (flipped bool, now types.Phase)
	Phase() types.Phase
}

// -----------------------------------------------------------------------------
// Hourly strategy: fixed base tick, counted against per-phase targets
// -----------------------------------------------------------------------------

type hourlyCycle struct {
	phase      types.Phase
	elapsed    uint32 // ticks since the last flip
	lightTicks uint32
	darkTicks  uint32
}

// newHourlyCycle derives per-phase tick targets from the durations and the
// base tick, rounding up so a phase is never cut short.
func newHourlyCycle(initial types.Phase, light, dark, tick time.Duration) *hourlyCycle {
	return &hourlyCycle{
		phase:      initial,
		lightTicks: ticksFor(light, tick),
		darkTicks:  ticksFor(dark, tick),
	}
}

func ticksFor(d, tick time.Duration) uint32 {
	if tick <= 0 || d <= 0 {
		return 1
	}
	n := (d + tick - 1) / tick
	if n < 1 {
		n = 1
	}
	return uint32(n)
}

func (c *hourlyCycle) Phase() types.Phase { return c.phase }

func (c *hourlyCycle) Tick() (bool, types.Phase) {
	c.elapsed++
	target := c.darkTicks
	if c.phase == types.PhaseLight {
		target = c.lightTicks
	}
	if c.elapsed < target {
		return false, c.phase
	}
	c.elapsed = 0
	c.phase = c.phase.Next()
	return true, c.phase
}

// -----------------------------------------------------------------------------
// Interval strategy: the timer period is the phase duration
// -----------------------------------------------------------------------------

// intervalCycle has no counter: every expiry is a phase boundary, because
// the timer was armed for exactly the duration of the phase now ending.
type intervalCycle struct {
	phase types.Phase
}

func newIntervalCycle(initial types.Phase) *intervalCycle {
	return &intervalCycle{phase: initial}
}

func (c *intervalCycle) Phase() types.Phase { return c.phase }

func (c *intervalCycle) Tick() (bool, types.Phase) {
	c.phase = c.phase.Next()
	return true, c.phase
}
