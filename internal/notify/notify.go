// Package notify implements the in-process subscription feed for aggregate
// changes: every committed ledger mutation is pushed to all active
// subscribers of that user, no polling involved.
package notify

import (
	"sync"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
)

type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(core.UserAccount)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]func(core.UserAccount))}
}

// Subscribe registers fn for a user's aggregate changes and returns the
// unsubscribe function. Abandoning the subscription without calling it leaks
// the callback, so callers tie it to their own lifecycle.
func (h *Hub) Subscribe(userID string, fn func(core.UserAccount)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]func(core.UserAccount))
	}
	h.subs[userID][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[userID], id)
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
	}
}

// Publish delivers the committed aggregate state to every subscriber of the
// user. Callbacks run outside the hub lock.
func (h *Hub) Publish(user core.UserAccount) {
	h.mu.Lock()
	callbacks := make([]func(core.UserAccount), 0, len(h.subs[user.ID]))
	for _, fn := range h.subs[user.ID] {
		callbacks = append(callbacks, fn)
	}
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(user)
	}
}

// subscriberCount reports active subscriptions for a user.
func (h *Hub) subscriberCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
