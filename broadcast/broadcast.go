// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/wfunc/courtstream/logger"
	"github.com/wfunc/courtstream/models"
)

// Subscriber receives serialized snapshots. A Deliver error marks the
// subscriber dead; the hub evicts it and moves on.
type Subscriber interface {
	Deliver(data []byte) error
}

// Hub 会话级广播器
// Hub owns the per-session subscriber registry. All registry state is
// instance-owned and lock-protected; there is no package-level state.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[string]Subscriber

	// OnEvict, when set, is called after a failed delivery removes a
	// subscriber. Used to bump metrics.
	OnEvict func(sessionID, handleID string)
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[string]Subscriber),
	}
}

// Subscribe registers sub for a session and returns its handle. No past
// snapshots are replayed; pushing current state at connect time is the
// caller's job.
func (h *Hub) Subscribe(sessionID string, sub Subscriber) string {
	handleID := uuid.New().String()

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.sessions[sessionID]
	if !ok {
		subs = make(map[string]Subscriber)
		h.sessions[sessionID] = subs
	}
	subs[handleID] = sub
	return handleID
}

func (h *Hub) Unsubscribe(sessionID, handleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sessionID, handleID)
}

func (h *Hub) removeLocked(sessionID, handleID string) {
	subs, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(subs, handleID)
	if len(subs) == 0 {
		delete(h.sessions, sessionID)
	}
}

// SubscriberCount reports the live subscriber count for a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Publish serializes the snapshot once and delivers the same bytes to
// every current subscriber of the session. A failing subscriber is
// evicted and logged; delivery to the rest continues. Publish never
// returns an error to the caller.
func (h *Hub) Publish(sessionID string, snap models.SessionSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		logger.Log.Errorf("Failed to marshal snapshot for session %s: %v", sessionID, err)
		return
	}

	// Deliver against a copy of the registry so Subscribe/Unsubscribe are
	// never blocked by slow writes.
	h.mu.RLock()
	subs := make(map[string]Subscriber, len(h.sessions[sessionID]))
	for id, sub := range h.sessions[sessionID] {
		subs[id] = sub
	}
	h.mu.RUnlock()

	for handleID, sub := range subs {
		if err := sub.Deliver(data); err != nil {
			logger.Log.Warnf("Evicting subscriber %s from session %s: %v", handleID, sessionID, err)
			h.mu.Lock()
			h.removeLocked(sessionID, handleID)
			h.mu.Unlock()
			if h.OnEvict != nil {
				h.OnEvict(sessionID, handleID)
			}
		}
	}
}
