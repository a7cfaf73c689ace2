package store

import (
	"sync"

	"github.com/stemsi/testdesk/internal/model"
)

// EventKind names a store mutation.
type EventKind string

const (
	EventTestsLoaded EventKind = "tests_loaded"
	EventTestAdded   EventKind = "test_added"
	EventTestUpdated EventKind = "test_updated"
	EventTestDeleted EventKind = "test_deleted"
)

// Event is published after every successful mutation. Tests is a copy of the
// whole list after the change.
type Event struct {
	Kind    EventKind    `json:"event"`
	ChatID  model.ChatID `json:"chat_id"`
	TestID  int          `json:"test_id,omitempty"`
	Tests   []model.Test `json:"tests"`
	Version uint64       `json:"-"`
}

const subscriberBuffer = 16

type subscriber struct {
	ch     chan Event
	chatID model.ChatID
}

// hub fans events out to subscribers. Slow subscribers miss events instead
// of blocking the publisher.
type hub struct {
	mu      sync.Mutex
	next    int
	subs    map[int]subscriber
	changes map[int]*Changes
}

func newHub() *hub {
	return &hub{subs: make(map[int]subscriber), changes: make(map[int]*Changes)}
}

// subscribe registers a listener for chatID, or for every chat when empty.
func (h *hub) subscribe(chatID model.ChatID) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	sub := subscriber{ch: make(chan Event, subscriberBuffer), chatID: chatID}
	h.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

// track registers a lossless collector of every chat's newest list.
func (h *hub) track() (*Changes, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	c := NewChanges()
	h.changes[id] = c
	return c, func() {
		h.mu.Lock()
		delete(h.changes, id)
		h.mu.Unlock()
	}
}

func (h *hub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e.ChatID != "" {
		for _, c := range h.changes {
			c.Put(e.ChatID, e.Tests, e.Version)
		}
	}
	for _, sub := range h.subs {
		if sub.chatID != "" && sub.chatID != e.ChatID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}
