// Package sse fans scan progress events out to connected clients.
package sse

import (
	"log/slog"
	"sync"
)

// Event is one server-sent event published to subscribers.
type Event struct {
	Type string // "progress", "scan", "stats"
	Data []byte // JSON payload
}

// Hub manages per-scan subscriptions. Subscribers receive the events
// published for the scan IDs they follow.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{} // scanID -> set of channels
	logger      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for the given scan ID. The returned
// cancel function must be called when the subscriber disconnects.
func (h *Hub) Subscribe(scanID string) (chan Event, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	if h.subscribers[scanID] == nil {
		h.subscribers[scanID] = make(map[chan Event]struct{})
	}
	h.subscribers[scanID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers[scanID], ch)
		if len(h.subscribers[scanID]) == 0 {
			delete(h.subscribers, scanID)
		}
		close(ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish sends an event to every subscriber of the given scan ID.
// Slow clients lose events rather than stalling the scan. The read
// lock is held across the send loop: sends never block, and a cancel
// cannot delete from the map or close a channel mid-iteration.
func (h *Hub) Publish(scanID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[scanID] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("sse: dropped event for slow client", "scan_id", scanID)
		}
	}
}

// SubscriberCount returns the number of active subscribers for a scan.
func (h *Hub) SubscriberCount(scanID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[scanID])
}
