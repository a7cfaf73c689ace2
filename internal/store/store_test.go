package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/apiclient"
	"github.com/stemsi/testdesk/internal/apiclient/apitest"
	"github.com/stemsi/testdesk/internal/model"
	"github.com/stemsi/testdesk/internal/store"
	"github.com/stretchr/testify/require"
)

const adminChat = model.ChatID("42")

func setup(t *testing.T, opts ...store.RegistryOption) (*apitest.Fake, *store.Store, *store.Registry) {
	t.Helper()
	fake := apitest.NewServer(t)
	fake.AddUser(model.User{ID: 1, FullName: "Admin", ChatID: adminChat, Role: model.RoleAdmin})
	fake.AddUser(model.User{ID: 2, FullName: "Pupil", ChatID: "7", Role: "user"})

	api := apiclient.New(fake.URL, 5*time.Second, zerolog.Nop())
	reg := store.NewRegistry(api, opts...)
	return fake, reg.Get(context.Background(), adminChat), reg
}

func loaded(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	_, err := s.FetchUser(ctx)
	require.NoError(t, err)
	_, err = s.FetchTests(ctx)
	require.NoError(t, err)
}

func TestResolvePriority(t *testing.T) {
	id, err := store.Resolve("", " 12 ", "34", "default")
	require.NoError(t, err)
	require.Equal(t, model.ChatID("12"), id)

	id, err = store.Resolve("", "", "", "default")
	require.NoError(t, err)
	require.Equal(t, model.ChatID("default"), id)

	_, err = store.Resolve("", " ")
	require.ErrorIs(t, err, store.ErrMissingChatID)
}

func TestFetchUserRoles(t *testing.T) {
	_, s, reg := setup(t)
	ctx := context.Background()

	u, err := s.FetchUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "Admin", u.FullName)
	require.Empty(t, s.State().Error)

	pupil := reg.Get(ctx, "7")
	_, err = pupil.FetchUser(ctx)
	require.ErrorIs(t, err, store.ErrNotAdmin)
	require.Nil(t, pupil.User())
	require.NotEmpty(t, pupil.State().Error)
	require.True(t, store.IsAccessError(err))

	ghost := reg.Get(ctx, "999")
	_, err = ghost.FetchUser(ctx)
	require.ErrorIs(t, err, store.ErrUserNotFound)

	empty := reg.Get(ctx, "")
	_, err = empty.FetchUser(ctx)
	require.ErrorIs(t, err, store.ErrMissingChatID)
}

func TestRegistryKeepsOnlyAdmins(t *testing.T) {
	fake, s, reg := setup(t)
	ctx := context.Background()
	loaded(t, s)

	for _, id := range []model.ChatID{"7", "999", ""} {
		_, err := reg.Get(ctx, id).FetchUser(ctx)
		require.Error(t, err, id)
	}
	require.Equal(t, 1, reg.Len())
	require.Same(t, s, reg.Get(ctx, adminChat))

	// A loaded admin survives a transport error, a fresh store does not.
	fake.FailNext("GET /users/:chat_id", 1)
	_, err := s.FetchUser(ctx)
	require.Error(t, err)
	require.Same(t, s, reg.Get(ctx, adminChat))

	fake.AddUser(model.User{ID: 3, ChatID: "43", Role: model.RoleAdmin})
	fake.FailNext("GET /users/:chat_id", 1)
	_, err = reg.Get(ctx, "43").FetchUser(ctx)
	require.Error(t, err)
	require.Equal(t, 1, reg.Len())
}

func TestFetchUserTransportError(t *testing.T) {
	fake, s, _ := setup(t)
	fake.FailNext("GET /users/:chat_id", 1)

	_, err := s.FetchUser(context.Background())
	require.Error(t, err)
	require.False(t, store.IsAccessError(err))
	require.NotEmpty(t, s.State().Error)
}

func TestFetchTestsNeedsUser(t *testing.T) {
	_, s, _ := setup(t)
	_, err := s.FetchTests(context.Background())
	require.ErrorIs(t, err, store.ErrNoUser)
}

func TestFetchTestsSortsAndFilters(t *testing.T) {
	fake, s, _ := setup(t)
	fake.AddTest(model.Test{ID: 3, Name: "c", OwnerChatID: adminChat})
	fake.AddTest(model.Test{ID: 1, Name: "a", OwnerChatID: adminChat})
	fake.AddTest(model.Test{ID: 2, Name: "gone", OwnerChatID: adminChat, IsDeleted: true})
	fake.AddTest(model.Test{ID: 4, Name: "other", OwnerChatID: "7"})

	loaded(t, s)

	tests := s.Tests()
	require.Len(t, tests, 2)
	require.Equal(t, 1, tests[0].ID)
	require.Equal(t, 3, tests[1].ID)
	require.True(t, s.State().Loaded)
}

func TestFetchAllTestsWithoutOwnerFilter(t *testing.T) {
	fake, s, _ := setup(t, store.WithOwnerFilter(false))
	fake.AddTest(model.Test{ID: 1, OwnerChatID: adminChat})
	fake.AddTest(model.Test{ID: 2, OwnerChatID: "7"})

	loaded(t, s)
	require.Len(t, s.Tests(), 2)
	require.Equal(t, 1, fake.Calls("GET /tests"))
}

func TestAddTestGrowsListByOne(t *testing.T) {
	fake, s, _ := setup(t)
	fake.AddTest(model.Test{ID: 5, OwnerChatID: adminChat})
	loaded(t, s)
	before := len(s.Tests())

	created, err := s.AddTest(context.Background(), model.CreateTestRequest{
		Name:        "New",
		OwnerChatID: adminChat,
		TestCount:   3,
		Answers:     model.NewAnswerList([]string{"A", "B", "C"}),
	})
	require.NoError(t, err)

	tests := s.Tests()
	require.Len(t, tests, before+1)
	got, ok := s.FindTest(created.ID)
	require.True(t, ok)
	require.Len(t, got.Answers, 3)
	require.Equal(t, 3, got.TestCount)
	require.False(t, *fake.LastCreate().IsPrivate)
	for i := 1; i < len(tests); i++ {
		require.Less(t, tests[i-1].ID, tests[i].ID)
	}
}

func TestAddTestFailureKeepsList(t *testing.T) {
	fake, s, _ := setup(t)
	loaded(t, s)
	fake.FailNext("POST /tests", 1)

	_, err := s.AddTest(context.Background(), model.CreateTestRequest{Name: "x", TestCount: 1})
	require.Error(t, err)
	require.Empty(t, s.Tests())
	require.NotEmpty(t, s.State().Error)
}

func TestUpdateNameOnlyKeepsAnswers(t *testing.T) {
	fake, s, _ := setup(t)
	fake.AddTest(model.Test{
		ID: 1, Name: "Old", OwnerChatID: adminChat, TestCount: 2, IsActive: true,
		Answers: model.NewAnswerList([]string{"A", "B"}),
	})
	loaded(t, s)

	current, _ := s.FindTest(1)
	req := model.UpdateFromTest(current)
	req.Name = "New"
	_, err := s.UpdateTest(context.Background(), 1, req)
	require.NoError(t, err)

	got, _ := s.FindTest(1)
	require.Equal(t, "New", got.Name)
	require.Equal(t, 2, got.TestCount)
	require.Equal(t, []string{"A", "B"}, got.Answers.Values())
}

func TestDeleteAbsentIDIsNoop(t *testing.T) {
	fake, s, _ := setup(t)
	fake.AddTest(model.Test{ID: 1, OwnerChatID: adminChat})
	loaded(t, s)

	require.NoError(t, s.DeleteTest(context.Background(), 99))
	require.Len(t, s.Tests(), 1)
	require.Zero(t, fake.Calls("DELETE /tests/:id"))
}

func TestRapidDoubleDeleteRemovesOnce(t *testing.T) {
	fake, s, _ := setup(t)
	fake.AddTest(model.Test{ID: 1, OwnerChatID: adminChat})
	fake.AddTest(model.Test{ID: 2, OwnerChatID: adminChat})
	loaded(t, s)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.DeleteTest(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Len(t, s.Tests(), 1)
	require.Equal(t, 1, fake.Calls("DELETE /tests/:id"))
}

func TestDeleteFailureReconcilesOnNextFetch(t *testing.T) {
	fake, s, _ := setup(t)
	fake.AddTest(model.Test{ID: 1, OwnerChatID: adminChat})
	loaded(t, s)
	fake.FailNext("DELETE /tests/:id", 1)

	err := s.DeleteTest(context.Background(), 1)
	require.Error(t, err)
	require.Empty(t, s.Tests(), "optimistic removal is not rolled back")
	require.NotEmpty(t, s.State().Error)

	_, err = s.FetchTests(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Tests(), 1)
}

func TestLookupScenario(t *testing.T) {
	fake, s, _ := setup(t)
	fake.AddTest(model.Test{
		ID: 1, Name: "Quiz", OwnerChatID: adminChat, TestCount: 2, IsActive: true,
		Answers: model.NewAnswerList([]string{"A", "B"}),
	})
	loaded(t, s)

	res := s.Lookup(1)
	require.Equal(t, store.LookupOpen, res.Status)
	require.Equal(t, []string{"A", "B"}, res.Answers)

	require.Equal(t, store.LookupNotFound, s.Lookup(2).Status)

	_, err := s.SetActive(context.Background(), 1, false)
	require.NoError(t, err)
	res = s.Lookup(1)
	require.Equal(t, store.LookupClosed, res.Status)
	require.Empty(t, res.Answers)
}

func TestSetActiveUnknownID(t *testing.T) {
	_, s, _ := setup(t)
	loaded(t, s)
	_, err := s.SetActive(context.Background(), 3, true)
	require.ErrorIs(t, err, store.ErrTestNotFound)
}

func TestSubscribersReceiveEvents(t *testing.T) {
	fake, s, reg := setup(t)
	fake.AddTest(model.Test{ID: 1, OwnerChatID: adminChat})

	mine, stopMine := reg.Subscribe(adminChat)
	defer stopMine()
	others, stopOthers := reg.Subscribe("7")
	defer stopOthers()

	loaded(t, s)
	require.NoError(t, s.DeleteTest(context.Background(), 1))

	e := <-mine
	require.Equal(t, store.EventTestsLoaded, e.Kind)
	require.Len(t, e.Tests, 1)
	e = <-mine
	require.Equal(t, store.EventTestDeleted, e.Kind)
	require.Equal(t, 1, e.TestID)
	require.Empty(t, e.Tests)

	select {
	case e := <-others:
		t.Fatalf("unexpected event for another chat: %v", e)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	_, _, reg := setup(t)
	ch, stop := reg.Subscribe("")
	stop()
	stop()
	_, open := <-ch
	require.False(t, open)
}

type memSnapshots struct {
	mu    sync.Mutex
	data  map[model.ChatID][]model.Test
	fails bool
}

func (m *memSnapshots) Load(_ context.Context, chatID model.ChatID) ([]model.Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails {
		return nil, errors.New("unavailable")
	}
	return m.data[chatID], nil
}

func (m *memSnapshots) Save(_ context.Context, chatID model.ChatID, tests []model.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[chatID] = tests
	return nil
}

func TestRegistryHydratesFromSnapshot(t *testing.T) {
	snap := &memSnapshots{data: map[model.ChatID][]model.Test{
		adminChat: {{ID: 9, Name: "cached"}, {ID: 2, Name: "older"}},
	}}
	fake, s, _ := setup(t, store.WithSnapshotter(snap))

	tests := s.Tests()
	require.Len(t, tests, 2)
	require.Equal(t, 2, tests[0].ID)
	require.False(t, s.State().Loaded)

	// A live fetch supersedes the snapshot.
	fake.AddTest(model.Test{ID: 1, OwnerChatID: adminChat})
	loaded(t, s)
	require.Len(t, s.Tests(), 1)
}

func TestRegistryIgnoresSnapshotErrors(t *testing.T) {
	snap := &memSnapshots{fails: true}
	_, s, _ := setup(t, store.WithSnapshotter(snap))
	require.Empty(t, s.Tests())
}

func TestRegistryReturnsSameStore(t *testing.T) {
	_, s, reg := setup(t)
	require.Same(t, s, reg.Get(context.Background(), adminChat))
	require.Equal(t, adminChat, s.ChatID())
}
