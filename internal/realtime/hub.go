// Package realtime fans per-user change events out to live subscribers.
package realtime

import (
	"context"
	"sync"
	"sync/atomic"
)

// EventType names what changed
type EventType string

const (
	EventProgress EventType = "progress"
	EventStreak   EventType = "streak"
)

// StreakSnapshot is the streak state carried by an event
type StreakSnapshot struct {
	Current          int    `json:"current"`
	Longest          int    `json:"longest"`
	LastActivityDate string `json:"last_activity_date"`
	Transition       string `json:"transition,omitempty"`
}

// Event is one change for one user
type Event struct {
	Type      EventType       `json:"type"`
	UserID    int64           `json:"user_id"`
	SprintID  int64           `json:"sprint_id,omitempty"`
	Day       int             `json:"day,omitempty"`
	Completed bool            `json:"completed,omitempty"`
	Streak    *StreakSnapshot `json:"streak,omitempty"`
}

// Publisher delivers events to subscribers, possibly on other replicas
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// DefaultBuffer is the per-subscriber channel capacity
const DefaultBuffer = 16

type subscriber struct {
	ch chan Event
}

// Hub is an in-process Publisher. Sends never block; a subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int64]map[*subscriber]struct{}
	buffer  int
	dropped atomic.Int64
}

// NewHub creates a hub with the given per-subscriber buffer
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[int64]map[*subscriber]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a listener for userID. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(userID int64) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], sub)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers e to the local subscribers of e.UserID
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.Deliver(e)
	return nil
}

// Deliver hands e to every local subscriber of e.UserID without blocking
func (h *Hub) Deliver(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[e.UserID] {
		select {
		case sub.ch <- e:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns how many listeners userID has
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Dropped returns how many events were discarded for slow subscribers
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
