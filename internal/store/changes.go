package store

import (
	"sync"

	"github.com/stemsi/testdesk/internal/model"
)

// Changes keeps the newest test list per chat until it is taken. Unlike a
// subscription it never drops anything: a burst of changes to one chat
// collapses into its latest list.
type Changes struct {
	mu      sync.Mutex
	pending map[model.ChatID][]model.Test
	// last is the newest version seen per chat, taken or not.
	last map[model.ChatID]uint64
}

func NewChanges() *Changes {
	return &Changes{
		pending: make(map[model.ChatID][]model.Test),
		last:    make(map[model.ChatID]uint64),
	}
}

// Put records tests as chatID's list at version. A version older than one
// already seen is ignored.
func (c *Changes) Put(chatID model.ChatID, tests []model.Test, version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version < c.last[chatID] {
		return
	}
	c.last[chatID] = version
	c.pending[chatID] = tests
}

// Take removes and returns every pending list.
func (c *Changes) Take() map[model.ChatID][]model.Test {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil
	}
	out := c.pending
	c.pending = make(map[model.ChatID][]model.Test)
	return out
}

// Retry puts a taken list back after a failed write, unless a newer one has
// arrived since.
func (c *Changes) Retry(chatID model.ChatID, tests []model.Test) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[chatID]; !ok {
		c.pending[chatID] = tests
	}
}

// Len returns the number of chats with an unsaved list.
func (c *Changes) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
