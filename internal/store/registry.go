package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/model"
)

// Snapshotter persists test lists between restarts.
type Snapshotter interface {
	Load(ctx context.Context, chatID model.ChatID) ([]model.Test, error)
	Save(ctx context.Context, chatID model.ChatID, tests []model.Test) error
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithSnapshotter hydrates new stores from snap.
func WithSnapshotter(snap Snapshotter) RegistryOption {
	return func(r *Registry) { r.snap = snap }
}

// WithOwnerFilter makes FetchTests request only the admin's own tests.
func WithOwnerFilter(enabled bool) RegistryOption {
	return func(r *Registry) { r.ownerOnly = enabled }
}

// WithLogger sets the logger handed to every store.
func WithLogger(log zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// Registry owns one Store per admin chat id. A store stays for the life of the
// process once FetchUser has confirmed an admin; lookups that fail drop it.
type Registry struct {
	api       API
	snap      Snapshotter
	ownerOnly bool
	hub       *hub
	log       zerolog.Logger

	mu     sync.Mutex
	stores map[model.ChatID]*Store
}

// NewRegistry creates an empty registry. Owner filtering is on by default.
func NewRegistry(api API, opts ...RegistryOption) *Registry {
	r := &Registry{
		api:       api,
		ownerOnly: true,
		hub:       newHub(),
		log:       zerolog.Nop(),
		stores:    make(map[model.ChatID]*Store),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With().Str("component", "store").Logger()
	return r
}

// Get returns the store for chatID, creating and hydrating it on first use.
func (r *Registry) Get(ctx context.Context, chatID model.ChatID) *Store {
	r.mu.Lock()
	s, ok := r.stores[chatID]
	if !ok {
		s = newStore(chatID, r.api, r.ownerOnly, r.hub, r.log)
		s.release = func() { r.forget(chatID, s) }
		r.stores[chatID] = s
	}
	r.mu.Unlock()

	if !ok && r.snap != nil && chatID != "" {
		tests, err := r.snap.Load(ctx, chatID)
		if err != nil {
			r.log.Warn().Err(err).Str("chat_id", chatID.String()).Msg("Snapshot load failed")
		} else if len(tests) > 0 {
			s.hydrate(tests)
			r.log.Debug().Str("chat_id", chatID.String()).Int("count", len(tests)).Msg("Store hydrated from snapshot")
		}
	}
	return s
}

func (r *Registry) forget(chatID model.ChatID, s *Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stores[chatID] == s {
		delete(r.stores, chatID)
		r.log.Debug().Str("chat_id", chatID.String()).Msg("Store released")
	}
}

// Len returns the number of stores held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Track collects the newest list of every chat that changes from now on,
// without ever dropping one. Call the returned func to stop.
func (r *Registry) Track() (*Changes, func()) {
	return r.hub.track()
}

// Subscribe streams events for chatID, or for every chat when chatID is
// empty. Call the returned func to stop.
func (r *Registry) Subscribe(chatID model.ChatID) (<-chan Event, func()) {
	return r.hub.subscribe(chatID)
}
