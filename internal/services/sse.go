package services

import (
	"sync"
	"sync/atomic"
)

const sseBuffer = 64

// SSEHub fans engagement events out to the open streams of the users they
// concern. A user may hold several streams, one per browser tab.
type SSEHub struct {
	mu      sync.RWMutex
	byUser  map[uint]map[string]chan EngagementEvent
	owner   map[string]uint
	dropped atomic.Int64
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		byUser: make(map[uint]map[string]chan EngagementEvent),
		owner:  make(map[string]uint),
	}
}

// Subscribe opens a stream for userID. Re-using a clientID replaces the
// previous stream.
func (h *SSEHub) Subscribe(clientID string, userID uint) <-chan EngagementEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(clientID)

	ch := make(chan EngagementEvent, sseBuffer)
	streams, ok := h.byUser[userID]
	if !ok {
		streams = make(map[string]chan EngagementEvent)
		h.byUser[userID] = streams
	}
	streams[clientID] = ch
	h.owner[clientID] = userID
	return ch
}

func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(clientID)
}

func (h *SSEHub) removeLocked(clientID string) {
	userID, ok := h.owner[clientID]
	if !ok {
		return
	}
	streams := h.byUser[userID]
	close(streams[clientID])
	delete(streams, clientID)
	if len(streams) == 0 {
		delete(h.byUser, userID)
	}
	delete(h.owner, clientID)
}

// Publish delivers event to every stream of its recipients. A full stream
// misses the event and is counted in Dropped.
func (h *SSEHub) Publish(event EngagementEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[uint]bool, len(event.Recipients))
	for _, userID := range event.Recipients {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		for _, ch := range h.byUser[userID] {
			select {
			case ch <- event:
			default:
				h.dropped.Add(1)
			}
		}
	}
}

func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owner)
}

// Dropped reports events discarded because a stream was full.
func (h *SSEHub) Dropped() int64 {
	return h.dropped.Load()
}

var (
	globalSSEHub *SSEHub
	sseHubOnce   sync.Once
)

// GetSSEHub returns the process-wide hub
func GetSSEHub() *SSEHub {
	sseHubOnce.Do(func() {
		globalSSEHub = NewSSEHub()
	})
	return globalSSEHub
}
