// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/mask-gate/internal/logic"
)

// Topic is the MQTT topic for access events.
const Topic = "access/mask-gate/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "access/mask-gate/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an access event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGNAL", "QUIT", "END_OF_STREAM" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Access AccessPayload `json:"access"`
}

// AccessPayload contains the access event details.
type AccessPayload struct {
	ID         string  `json:"id"`
	Timestamp  string  `json:"timestamp"`
	Event      string  `json:"event"`
	State      string  `json:"state"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
}

// FormatPayload creates the JSON payload for an access event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Access: AccessPayload{
			ID:         event.ID,
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			State:      string(event.State),
			Label:      event.Label,
			Confidence: event.Confidence,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// FormatWillPayload is the last-will message the broker publishes if the
// connection drops without a clean disconnect. It has no timestamp because
// it is registered at connect time.
func FormatWillPayload() []byte {
	data, _ := json.Marshal(SystemPayload{
		System: SystemPayloadInner{Event: "OFFLINE", Reason: "CONNECTION_LOST"},
	})
	return data
}

// Discard is a Publisher used when no broker is configured.
type Discard struct{}

// Publish drops the event.
func (Discard) Publish(logic.Event) error { return nil }

// PublishSystem drops the event.
func (Discard) PublishSystem(SystemEvent) error { return nil }

// Close does nothing.
func (Discard) Close() error { return nil }

// IsConnected is always false.
func (Discard) IsConnected() bool { return false }
