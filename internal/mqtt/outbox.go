package mqtt

import "log/slog"

// pendingMsg is a serialized message waiting for the broker to come back.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// expendable reports whether m may be evicted ahead of older messages.
// Transient system messages (heartbeats) go first; access events and
// retained lifecycle messages are kept as long as possible.
func (m pendingMsg) expendable() bool {
	return m.topic == TopicSystem && !m.retained
}

// outbox is a bounded FIFO of messages held while disconnected.
// Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	msgs     []pendingMsg
	capacity int
	dropped  int
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		msgs:     make([]pendingMsg, 0, capacity),
		capacity: capacity,
	}
}

// push appends msg. When full, the oldest expendable message is evicted,
// or the oldest message if none is expendable.
func (o *outbox) push(msg pendingMsg) {
	if len(o.msgs) == o.capacity {
		victim := 0
		for i, m := range o.msgs {
			if m.expendable() {
				victim = i
				break
			}
		}
		if o.dropped == 0 {
			slog.Warn("mqtt outbox full, dropping messages", "capacity", o.capacity)
		}
		o.dropped++
		o.msgs = append(o.msgs[:victim], o.msgs[victim+1:]...)
	}
	o.msgs = append(o.msgs, msg)
}

// drain returns the held messages oldest first and how many were dropped
// since the last drain, then empties the outbox.
func (o *outbox) drain() ([]pendingMsg, int) {
	if len(o.msgs) == 0 {
		dropped := o.dropped
		o.dropped = 0
		return nil, dropped
	}
	out := make([]pendingMsg, len(o.msgs))
	copy(out, o.msgs)
	dropped := o.dropped
	o.msgs = o.msgs[:0]
	o.dropped = 0
	return out, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
