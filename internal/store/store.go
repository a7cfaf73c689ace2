package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/apiclient"
	"github.com/stemsi/testdesk/internal/model"
)

// API is the subset of the remote API the store calls.
type API interface {
	GetUser(ctx context.Context, chatID model.ChatID) (*model.User, error)
	ListTests(ctx context.Context) ([]model.Test, error)
	ListTestsByOwner(ctx context.Context, chatID model.ChatID) ([]model.Test, error)
	CreateTest(ctx context.Context, req model.CreateTestRequest) (*model.Test, error)
	UpdateTest(ctx context.Context, id int, req model.UpdateTestRequest) (*model.Test, error)
	DeleteTest(ctx context.Context, id int) error
}

// State is a copy of a store's contents.
type State struct {
	ChatID model.ChatID
	User   *model.User
	Tests  []model.Test
	Error  string
	Loaded bool
}

// Store holds one admin's user record and test list. Views read copies and
// change it only through the action methods.
type Store struct {
	chatID    model.ChatID
	api       API
	ownerOnly bool
	hub       *hub
	log       zerolog.Logger
	release   func() // drops the store from its registry

	mu      sync.RWMutex
	user    *model.User
	tests   []model.Test
	err     string
	loaded  bool
	version uint64
}

func newStore(chatID model.ChatID, api API, ownerOnly bool, h *hub, log zerolog.Logger) *Store {
	return &Store{
		chatID:    chatID,
		api:       api,
		ownerOnly: ownerOnly,
		hub:       h,
		log:       log.With().Str("chat_id", chatID.String()).Logger(),
		release:   func() {},
	}
}

// Resolve returns the first non-blank candidate chat id. Callers pass them in
// priority order: explicit argument, URL path, query parameter, default.
func Resolve(candidates ...string) (model.ChatID, error) {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return model.ChatID(c), nil
		}
	}
	return "", ErrMissingChatID
}

// ChatID returns the admin chat id this store belongs to.
func (s *Store) ChatID() model.ChatID { return s.chatID }

// State returns a copy of the current contents.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var user *model.User
	if s.user != nil {
		u := *s.user
		user = &u
	}
	return State{
		ChatID: s.chatID,
		User:   user,
		Tests:  copyTests(s.tests),
		Error:  s.err,
		Loaded: s.loaded,
	}
}

// User returns a copy of the loaded admin, or nil.
func (s *Store) User() *model.User {
	return s.State().User
}

// Tests returns a copy of the loaded list, sorted by id.
func (s *Store) Tests() []model.Test {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTests(s.tests)
}

// ClearError drops the last error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

// FetchUser loads the admin for the store's chat id. Only users with the admin
// role are kept. A store whose chat id is not an admin leaves the registry, as
// does one that never loaded an admin when the lookup fails.
func (s *Store) FetchUser(ctx context.Context) (*model.User, error) {
	if s.chatID == "" {
		s.setUser(nil, msgMissingChatID)
		s.release()
		return nil, ErrMissingChatID
	}

	user, err := s.api.GetUser(ctx, s.chatID)
	if err != nil {
		if apiclient.IsNotFound(err) {
			s.setUser(nil, msgUserNotFound)
			s.release()
			return nil, ErrUserNotFound
		}
		s.log.Error().Err(err).Msg("Fetch user failed")
		if s.User() == nil {
			s.release()
		}
		s.setUser(nil, msgFetchUser)
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	if !user.IsAdmin() {
		s.log.Warn().Str("role", user.Role).Msg("Rejected non-admin user")
		s.setUser(nil, msgNotAdmin)
		s.release()
		return nil, ErrNotAdmin
	}

	s.setUser(user, "")
	u := *user
	return &u, nil
}

// FetchTests reloads the test list from the API. It needs a loaded admin.
func (s *Store) FetchTests(ctx context.Context) ([]model.Test, error) {
	user := s.User()
	if user == nil {
		s.setError(msgNoUser)
		return nil, ErrNoUser
	}

	var (
		list []model.Test
		err  error
	)
	if s.ownerOnly {
		list, err = s.api.ListTestsByOwner(ctx, user.ChatID)
	} else {
		list, err = s.api.ListTests(ctx)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Fetch tests failed")
		s.setError(msgFetchTests)
		return nil, fmt.Errorf("fetch tests: %w", err)
	}

	live := make([]model.Test, 0, len(list))
	for _, t := range list {
		if !t.IsDeleted {
			live = append(live, t)
		}
	}
	sortByID(live)

	s.mu.Lock()
	s.tests = live
	s.loaded = true
	s.err = ""
	s.version++
	snapshot, version := copyTests(s.tests), s.version
	s.mu.Unlock()

	s.publish(EventTestsLoaded, 0, snapshot, version)
	return copyTests(snapshot), nil
}

// AddTest creates a test and appends the stored record. The request is sent
// as given apart from defaults; validation belongs to the caller.
func (s *Store) AddTest(ctx context.Context, req model.CreateTestRequest) (*model.Test, error) {
	created, err := s.api.CreateTest(ctx, req.WithDefaults())
	if err != nil {
		s.log.Error().Err(err).Str("name", req.Name).Msg("Add test failed")
		s.setError(msgAddTest)
		return nil, fmt.Errorf("add test: %w", err)
	}

	s.mu.Lock()
	s.tests = append(s.tests, *created)
	sortByID(s.tests)
	s.err = ""
	s.version++
	snapshot, version := copyTests(s.tests), s.version
	s.mu.Unlock()

	s.log.Info().Int("test_id", created.ID).Msg("Test added")
	s.publish(EventTestAdded, created.ID, snapshot, version)
	t := *created
	return &t, nil
}

// UpdateTest replaces test id and splices the returned record into the list.
func (s *Store) UpdateTest(ctx context.Context, id int, req model.UpdateTestRequest) (*model.Test, error) {
	updated, err := s.api.UpdateTest(ctx, id, req)
	if err != nil {
		s.log.Error().Err(err).Int("test_id", id).Msg("Update test failed")
		s.setError(msgUpdateTest)
		return nil, fmt.Errorf("update test %d: %w", id, err)
	}

	s.mu.Lock()
	if i := indexOf(s.tests, id); i >= 0 {
		s.tests[i] = *updated
	} else {
		s.tests = append(s.tests, *updated)
	}
	sortByID(s.tests)
	s.err = ""
	s.version++
	snapshot, version := copyTests(s.tests), s.version
	s.mu.Unlock()

	s.publish(EventTestUpdated, id, snapshot, version)
	t := *updated
	return &t, nil
}

// SetActive flips the active flag of a loaded test.
func (s *Store) SetActive(ctx context.Context, id int, active bool) (*model.Test, error) {
	current, ok := s.FindTest(id)
	if !ok {
		s.setError(msgTestNotFound)
		return nil, ErrTestNotFound
	}
	req := model.UpdateFromTest(current)
	req.IsActive = active
	return s.UpdateTest(ctx, id, req)
}

// DeleteTest removes test id locally first, then asks the API to delete it.
// An id that is not loaded is a no-op. A failed request is not rolled back;
// the next FetchTests brings the record back.
func (s *Store) DeleteTest(ctx context.Context, id int) error {
	s.mu.Lock()
	i := indexOf(s.tests, id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	s.tests = append(s.tests[:i], s.tests[i+1:]...)
	s.version++
	snapshot, version := copyTests(s.tests), s.version
	s.mu.Unlock()

	s.publish(EventTestDeleted, id, snapshot, version)

	if err := s.api.DeleteTest(ctx, id); err != nil && !apiclient.IsNotFound(err) {
		s.log.Error().Err(err).Int("test_id", id).Msg("Delete test failed")
		s.setError(msgDeleteTest)
		return fmt.Errorf("delete test %d: %w", id, err)
	}
	s.log.Info().Int("test_id", id).Msg("Test deleted")
	return nil
}

// FindTest looks id up in the loaded list without calling the API.
func (s *Store) FindTest(id int) (model.Test, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.tests, id); i >= 0 {
		t := s.tests[i]
		t.Answers = append(model.AnswerList(nil), t.Answers...)
		return t, true
	}
	return model.Test{}, false
}

// hydrate seeds the list from a snapshot unless a live fetch already ran.
func (s *Store) hydrate(tests []model.Test) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return
	}
	s.tests = copyTests(tests)
	sortByID(s.tests)
}

func (s *Store) setUser(u *model.User, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u != nil {
		cp := *u
		s.user = &cp
	} else {
		s.user = nil
	}
	s.err = msg
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *Store) publish(kind EventKind, id int, tests []model.Test, version uint64) {
	if s.hub == nil {
		return
	}
	s.hub.publish(Event{Kind: kind, ChatID: s.chatID, TestID: id, Tests: tests, Version: version})
}

// IsAccessError reports whether err should block the whole dashboard.
func IsAccessError(err error) bool {
	return errors.Is(err, ErrMissingChatID) || errors.Is(err, ErrNotAdmin) || errors.Is(err, ErrUserNotFound)
}

func indexOf(tests []model.Test, id int) int {
	for i := range tests {
		if tests[i].ID == id {
			return i
		}
	}
	return -1
}

func sortByID(tests []model.Test) {
	sort.SliceStable(tests, func(i, j int) bool { return tests[i].ID < tests[j].ID })
}

func copyTests(tests []model.Test) []model.Test {
	out := make([]model.Test, len(tests))
	for i, t := range tests {
		t.Answers = append(model.AnswerList(nil), t.Answers...)
		out[i] = t
	}
	return out
}
