package viewmodel

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MikhailRaia/bookmark-manager/internal/apperror"
	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	listFunc   func(ctx context.Context, owner string) ([]model.Bookmark, error)
	insertFunc func(ctx context.Context, b model.NewBookmark) (model.Bookmark, error)
	deleteFunc func(ctx context.Context, id, owner string) error

	inserts atomic.Int32
	deletes atomic.Int32
}

func (m *mockStore) ListByOwner(ctx context.Context, owner string) ([]model.Bookmark, error) {
	if m.listFunc == nil {
		return nil, nil
	}
	return m.listFunc(ctx, owner)
}

func (m *mockStore) Insert(ctx context.Context, b model.NewBookmark) (model.Bookmark, error) {
	m.inserts.Add(1)
	return m.insertFunc(ctx, b)
}

func (m *mockStore) Delete(ctx context.Context, id, owner string) error {
	m.deletes.Add(1)
	return m.deleteFunc(ctx, id, owner)
}

type recordedErrors struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordedErrors) policy(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordedErrors) all() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func seededStore(t *testing.T, owner string, titles ...string) *memory.Storage {
	t.Helper()

	store := memory.NewStorage(memory.WithClock(steppingClock()))
	for _, title := range titles {
		_, err := store.Insert(context.Background(), model.NewBookmark{Title: title, URL: "https://" + title, Owner: owner})
		require.NoError(t, err)
	}
	return store
}

func titles(list []model.Bookmark) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.Title)
	}
	return out
}

func TestViewModel_StartsLoading(t *testing.T) {
	vm := New(memory.NewStorage(), "user-42")

	assert.Equal(t, Loading, vm.State())
	assert.Empty(t, vm.Bookmarks())
	assert.False(t, vm.Empty(), "loading is not the empty condition")
	assert.Equal(t, "user-42", vm.Owner())
}

func TestViewModel_LoadNewestFirst(t *testing.T) {
	store := seededStore(t, "user-42", "first", "second", "third")
	_, err := store.Insert(context.Background(), model.NewBookmark{Title: "other", URL: "https://x", Owner: "user-7"})
	require.NoError(t, err)

	vm := New(store, "user-42")
	list, err := vm.Load(context.Background(), "user-42")
	require.NoError(t, err)

	assert.Equal(t, Ready, vm.State())
	assert.Equal(t, []string{"third", "second", "first"}, titles(list))
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].CreatedAt.After(list[i].CreatedAt))
	}
	for _, b := range list {
		assert.Equal(t, "user-42", b.Owner)
	}
}

func TestViewModel_LoadZeroBookmarks(t *testing.T) {
	vm := New(memory.NewStorage(), "user-42")

	list, err := vm.Load(context.Background(), "user-42")
	require.NoError(t, err)

	assert.Empty(t, list)
	assert.Equal(t, Ready, vm.State())
	assert.True(t, vm.Empty())
}

func TestViewModel_LoadFailure(t *testing.T) {
	rec := &recordedErrors{}
	store := &mockStore{
		listFunc: func(context.Context, string) ([]model.Bookmark, error) {
			return nil, errors.New("connection refused")
		},
	}
	vm := New(store, "user-42", WithErrorPolicy(rec.policy))

	list, err := vm.Load(context.Background(), "user-42")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindFetch))
	assert.Equal(t, OpList, apperror.OpOf(err))

	assert.Empty(t, list)
	assert.Equal(t, Ready, vm.State(), "failed initial load still ends loading")
	assert.True(t, vm.Empty())
	require.Len(t, rec.all(), 1)
}

func TestViewModel_ReloadFailureKeepsList(t *testing.T) {
	fail := false
	store := &mockStore{
		listFunc: func(context.Context, string) ([]model.Bookmark, error) {
			if fail {
				return nil, errors.New("timeout")
			}
			return []model.Bookmark{{ID: "1", Title: "kept", Owner: "user-42"}}, nil
		},
	}
	vm := New(store, "user-42", WithErrorPolicy(func(error) {}))

	_, err := vm.Load(context.Background(), "user-42")
	require.NoError(t, err)

	fail = true
	_, err = vm.Load(context.Background(), "user-42")
	require.Error(t, err)

	assert.Equal(t, []string{"kept"}, titles(vm.Bookmarks()))
	assert.Equal(t, Ready, vm.State(), "never returns to loading")
}

func TestViewModel_AddIncompleteIsNoop(t *testing.T) {
	tests := []struct {
		name  string
		title string
		url   string
		owner string
	}{
		{name: "empty title", title: "", url: "https://example.com", owner: "user-42"},
		{name: "empty url", title: "Example", url: "", owner: "user-42"},
		{name: "no owner", title: "Example", url: "https://example.com", owner: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordedErrors{}
			store := &mockStore{
				listFunc: func(context.Context, string) ([]model.Bookmark, error) {
					return []model.Bookmark{{ID: "1", Title: "existing"}}, nil
				},
			}
			vm := New(store, "user-42", WithErrorPolicy(rec.policy))
			_, err := vm.Load(context.Background(), "user-42")
			require.NoError(t, err)
			vm.SetInputs(tt.title, tt.url)

			_, err = vm.Add(context.Background(), tt.title, tt.url, tt.owner)
			assert.ErrorIs(t, err, ErrIncomplete)

			assert.Len(t, vm.Bookmarks(), 1)
			assert.Zero(t, store.inserts.Load(), "no write request")
			assert.Empty(t, rec.all(), "silent no-op")
			assert.Equal(t, Inputs{Title: tt.title, URL: tt.url}, vm.Inputs())
		})
	}
}

func TestViewModel_AddPrepends(t *testing.T) {
	vm := New(seededStore(t, "user-42", "older"), "user-42")
	_, err := vm.Load(context.Background(), "user-42")
	require.NoError(t, err)

	vm.SetInputs("Example", "https://example.com")
	created, err := vm.Add(context.Background(), "Example", "https://example.com", "user-42")
	require.NoError(t, err)

	list := vm.Bookmarks()
	require.Len(t, list, 2)
	assert.Equal(t, created, list[0])
	assert.Equal(t, "older", list[1].Title)

	count := 0
	for _, b := range list {
		if b.ID == created.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, Inputs{}, vm.Inputs(), "inputs are cleared")
}

func TestViewModel_AddScenario(t *testing.T) {
	vm := New(memory.NewStorage(), "user-42")
	_, err := vm.Load(context.Background(), "user-42")
	require.NoError(t, err)

	_, err = vm.Add(context.Background(), "Example", "https://example.com", "user-42")
	require.NoError(t, err)

	list := vm.Bookmarks()
	require.Len(t, list, 1)
	assert.Equal(t, "Example", list[0].Title)
	assert.Equal(t, "https://example.com", list[0].URL)
	assert.Equal(t, "user-42", list[0].Owner)
	assert.NotEmpty(t, list[0].ID)
	assert.False(t, list[0].CreatedAt.IsZero())
}

func TestViewModel_AddFailure(t *testing.T) {
	rec := &recordedErrors{}
	store := &mockStore{
		insertFunc: func(context.Context, model.NewBookmark) (model.Bookmark, error) {
			return model.Bookmark{}, errors.New("permission denied")
		},
	}
	vm := New(store, "user-42", WithErrorPolicy(rec.policy))
	_, err := vm.Load(context.Background(), "user-42")
	require.NoError(t, err)

	vm.SetInputs("Example", "https://example.com")
	_, err = vm.Add(context.Background(), "Example", "https://example.com", "user-42")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindWrite))
	assert.Equal(t, OpInsert, apperror.OpOf(err))

	assert.Empty(t, vm.Bookmarks())
	assert.Equal(t, Inputs{Title: "Example", URL: "https://example.com"}, vm.Inputs(), "inputs kept for retry")
	assert.Len(t, rec.all(), 1)
}

func TestViewModel_Remove(t *testing.T) {
	store := seededStore(t, "user-42", "a", "b", "c", "d")
	vm := New(store, "user-42")
	list, err := vm.Load(context.Background(), "user-42")
	require.NoError(t, err)

	require.NoError(t, vm.Remove(context.Background(), list[1].ID))

	after := vm.Bookmarks()
	assert.Equal(t, []string{"d", "b", "a"}, titles(after))
	for _, b := range after {
		assert.NotEqual(t, list[1].ID, b.ID)
	}

	remote, err := store.ListByOwner(context.Background(), "user-42")
	require.NoError(t, err)
	assert.Len(t, remote, 3)
}

func TestViewModel_RemoveUnknownID(t *testing.T) {
	vm := New(seededStore(t, "user-42", "a", "b"), "user-42")
	before, err := vm.Load(context.Background(), "user-42")
	require.NoError(t, err)

	require.NoError(t, vm.Remove(context.Background(), "missing"))
	assert.Equal(t, before, vm.Bookmarks())
}

func TestViewModel_RemoveFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	store := &mockStore{
		listFunc: func(context.Context, string) ([]model.Bookmark, error) {
			return []model.Bookmark{{ID: "1", Title: "a"}, {ID: "2", Title: "b"}}, nil
		},
		deleteFunc: func(context.Context, string, string) error {
			return errors.New("network down")
		},
	}
	vm := New(store, "user-42")
	before, err := vm.Load(context.Background(), "user-42")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		err = vm.Remove(context.Background(), "1")
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindWrite))

	assert.Equal(t, before, vm.Bookmarks())
	assert.Contains(t, buf.String(), "DELETE ERROR")
	assert.Contains(t, buf.String(), "network down")
}

func TestViewModel_SerialisesMutations(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	var seq atomic.Int32

	store := &mockStore{
		insertFunc: func(_ context.Context, b model.NewBookmark) (model.Bookmark, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			id := seq.Add(1)
			return model.Bookmark{ID: string(rune('a' + id)), Title: b.Title, URL: b.URL, Owner: b.Owner}, nil
		},
	}
	vm := New(store, "user-42")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := vm.Add(context.Background(), "t", "u", "user-42")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Len(t, vm.Bookmarks(), 8)
}

func TestLogErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "fetch", err: apperror.Fetch(OpList, errors.New("x")), want: "FETCH ERROR"},
		{name: "insert", err: apperror.Write(OpInsert, errors.New("x")), want: "INSERT ERROR"},
		{name: "delete", err: apperror.Write(OpDelete, errors.New("x")), want: "DELETE ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			prev := log.Logger
			log.Logger = zerolog.New(&buf)
			defer func() { log.Logger = prev }()

			LogErrors(tt.err)
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), `"level":"error"`)
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "ready", Ready.String())
}
