// Package logic contains the pure decision logic for the mask gate.
// This package has NO external dependencies (no GPIO, audio, camera, MQTT or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Kind is the tri-state result of classifying a single frame.
type Kind string

const (
	KindNone     Kind = "NONE"
	KindPositive Kind = "POSITIVE"
	KindNegative Kind = "NEGATIVE"
)

// State is the confirmed actuation state owned by the Controller.
type State string

const (
	StateUnknown  State = "UNKNOWN"
	StatePositive State = "POSITIVE"
	StateNegative State = "NEGATIVE"
)

// stateFor maps an actionable kind to the state it would confirm.
// KindNone has no state; ok is false.
func stateFor(k Kind) (State, bool) {
	switch k {
	case KindPositive:
		return StatePositive, true
	case KindNegative:
		return StateNegative, true
	}
	return StateUnknown, false
}

// Box is a bounding box in normalized image coordinates [0,1],
// in the detector's native (ymin, xmin, ymax, xmax) order.
type Box struct {
	YMin float64
	XMin float64
	YMax float64
	XMax float64
}

// RawResult is the detector's output for one frame, sorted by descending
// score. Only the first entry is ever consulted.
type RawResult struct {
	Boxes   []Box
	Classes []int
	Scores  []float64
}

// Classification describes one frame's result.
type Classification struct {
	Kind Kind
	// Confidence is only meaningful when Kind != KindNone.
	Confidence float64
	// Label is the label-map entry of the top candidate, if it passed the threshold.
	Label string
	// Box is consumed only by rendering.
	Box *Box
}

// None is the classification for a frame with no actionable evidence.
var None = Classification{Kind: KindNone}

// EventType names a confirmed transition to be published.
type EventType string

const (
	EventGranted EventType = "ACCESS_GRANTED"
	EventDenied  EventType = "ACCESS_DENIED"
)

// Event represents a confirmed transition.
type Event struct {
	ID         string
	Timestamp  time.Time
	Type       EventType
	State      State
	Label      string
	Confidence float64
}

// NewEvent builds the event for a confirmed transition into state, triggered
// by classification c at now.
func NewEvent(id string, state State, c Classification, now time.Time) Event {
	t := EventGranted
	if state == StateNegative {
		t = EventDenied
	}
	return Event{
		ID:         id,
		Timestamp:  now,
		Type:       t,
		State:      state,
		Label:      c.Label,
		Confidence: c.Confidence,
	}
}

// EventCounts tracks the number of confirmed transitions since startup.
type EventCounts struct {
	Granted int
	Denied  int
}

// Add counts a transition into s. Unknown is ignored.
func (c *EventCounts) Add(s State) {
	switch s {
	case StatePositive:
		c.Granted++
	case StateNegative:
		c.Denied++
	}
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
