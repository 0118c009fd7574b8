package logic

import "time"

// Heartbeat decides when a periodic liveness report is due.
type Heartbeat struct {
	interval  time.Duration
	startTime time.Time
	last      time.Time
}

// NewHeartbeat creates a heartbeat timer. The first beat is due one interval
// after startTime. An interval <= 0 disables it.
func NewHeartbeat(startTime time.Time, interval time.Duration) *Heartbeat {
	return &Heartbeat{
		interval:  interval,
		startTime: startTime,
		last:      startTime,
	}
}

// Check returns heartbeat data if the interval has elapsed since the last
// heartbeat (or startup). Returns nil if the interval has not elapsed or if
// the heartbeat is disabled.
func (h *Heartbeat) Check(now time.Time, counts EventCounts) *HeartbeatData {
	if h.interval <= 0 {
		return nil
	}

	if now.Sub(h.last) < h.interval {
		return nil
	}

	h.last = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
		Counts:    counts,
	}
}
