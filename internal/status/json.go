package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	LastChange    string       `json:"last_change"`
	Last          LastJSON     `json:"last_classification"`
	FPS           float64      `json:"fps"`
	Frames        uint64       `json:"frames"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// LastJSON is the most recent per-frame classification.
type LastJSON struct {
	Kind       string  `json:"kind"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Granted int `json:"granted"`
	Denied  int `json:"denied"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Threshold    float64 `json:"threshold"`
	GrantDwellMs int64   `json:"grant_dwell_ms"`
	DenyDwellMs  int64   `json:"deny_dwell_ms"`
	HeartbeatMs  int64   `json:"heartbeat_ms"`
	Camera       string  `json:"camera"`
	Headless     bool    `json:"headless"`
	Broker       string  `json:"broker"`
	HTTPAddr     string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}
	kind := string(snap.Last.Kind)
	if kind == "" {
		kind = "NONE"
	}
	lastChange := snap.LastChange
	if lastChange.IsZero() {
		lastChange = snap.StartTime
	}

	return StatusInner{
		State:      state,
		LastChange: lastChange.UTC().Format(time.RFC3339),
		Last: LastJSON{
			Kind:       kind,
			Label:      snap.Last.Label,
			Confidence: finite(snap.Last.Confidence),
		},
		FPS:           math.Round(finite(snap.FPS)*100) / 100,
		Frames:        snap.Frames,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Granted: snap.Counts.Granted,
			Denied:  snap.Counts.Denied,
		},
		Config: ConfigJSON{
			Threshold:    snap.Config.Threshold,
			GrantDwellMs: snap.Config.GrantDwellMs,
			DenyDwellMs:  snap.Config.DenyDwellMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Camera:       snap.Config.Camera,
			Headless:     snap.Config.Headless,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
		},
	}
}

// finite maps NaN and Inf to 0; encoding/json rejects them.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
