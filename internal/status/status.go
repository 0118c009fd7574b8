// Package status provides a thread-safe status tracker for the mask-gate daemon.
// It is read by the HTTP handlers and by lifecycle MQTT events.
package status

import (
	"os"
	"sync"
	"time"

	"github.com/sweeney/mask-gate/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Threshold    float64
	GrantDwellMs int64
	DenyDwellMs  int64
	HeartbeatMs  int64
	Camera       string
	Headless     bool
	Broker       string
	HTTPAddr     string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Last          logic.Classification
	LastChange    time.Time
	Counts        logic.EventCounts
	FPS           float64
	Frames        uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:      logic.StateUnknown,
			Last:       logic.None,
			LastChange: startTime,
			StartTime:  startTime,
			Config:     cfg,
		},
	}
}

// Update records the outcome of one loop iteration.
// Called from the frame loop on every frame.
func (t *Tracker) Update(state logic.State, lastChange time.Time, last logic.Classification, counts logic.EventCounts, fps float64, frames uint64) {
	last.Box = nil
	t.mu.Lock()
	t.snap.State = state
	t.snap.LastChange = lastChange
	t.snap.Last = last
	t.snap.Counts = counts
	t.snap.FPS = fps
	t.snap.Frames = frames
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// NetworkFromEnv reads network info exported by pi-helper.
// It returns nil when NETWORK_STATUS is unset.
func NetworkFromEnv() *NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
