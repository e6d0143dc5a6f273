// services/events.go - live pipeline progress feed.
package services

import (
	"sync"
	"time"
)

// Event is one pipeline progress notification.
type Event struct {
	RequestID string    `json:"request_id"`
	Instance  string    `json:"instance"`
	Database  string    `json:"database"`
	Step      string    `json:"step"`
	Status    string    `json:"status"` // "start", "ok", "error"
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Broadcaster fans events out to websocket subscribers. A slow subscriber
// drops events instead of blocking the pipeline.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a channel of events and a cancel function.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking.
func (b *Broadcaster) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	b.mu.Unlock()
}

// Events is the process-wide broadcaster used by the orchestrator and the
// websocket handler.
var Events = NewBroadcaster()
