package logic

import "time"

// DefaultDwell is the minimum time between confirmed transitions.
const DefaultDwell = 2 * time.Second

// Dwell holds the cooldown required before moving into each state.
// The cooldown is measured from the last confirmed transition.
type Dwell struct {
	Positive time.Duration
	Negative time.Duration
}

// SymmetricDwell uses d for both directions.
func SymmetricDwell(d time.Duration) Dwell {
	return Dwell{Positive: d, Negative: d}
}

func (d Dwell) forState(s State) time.Duration {
	if s == StatePositive {
		return d.Positive
	}
	return d.Negative
}

// Controller turns a noisy stream of classifications into debounced
// confirmed-state changes. It is not safe for concurrent use; Tick must be
// called from a single goroutine.
type Controller struct {
	dwell      Dwell
	confirmed  State
	lastChange time.Time
}

// NewController creates a controller in StateUnknown. start is the baseline
// for the first dwell window, so nothing can be confirmed before start+dwell.
func NewController(dwell Dwell, start time.Time) *Controller {
	return &Controller{
		dwell:      dwell,
		confirmed:  StateUnknown,
		lastChange: start,
	}
}

// Tick feeds one frame's classification. It returns the new confirmed state
// and true only when a transition happens on this frame.
//
// A None classification never changes anything: missing evidence is not a
// reason to actuate, and it neither resets nor advances the dwell timer.
func (c *Controller) Tick(cl Classification, now time.Time) (State, bool) {
	target, ok := stateFor(cl.Kind)
	if !ok {
		return c.confirmed, false
	}

	if target == c.confirmed {
		return c.confirmed, false
	}

	// Strictly greater: elapsed == dwell does not transition.
	if now.Sub(c.lastChange) <= c.dwell.forState(target) {
		return c.confirmed, false
	}

	c.confirmed = target
	c.lastChange = now
	return target, true
}

// Confirmed returns the last confirmed state.
func (c *Controller) Confirmed() State {
	return c.confirmed
}

// LastChange returns the time of the last confirmed transition, or the
// construction time if none has happened.
func (c *Controller) LastChange() time.Time {
	return c.lastChange
}
