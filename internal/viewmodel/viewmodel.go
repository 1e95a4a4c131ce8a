// Package viewmodel holds the current user's bookmark list for one page mount
// and keeps it in step with the store after every mutation.
package viewmodel

import (
	"context"
	"errors"
	"sync"

	"github.com/MikhailRaia/bookmark-manager/internal/apperror"
	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/storage"
	"github.com/rs/zerolog/log"
)

// Operation names recorded on collaborator errors.
const (
	OpList   = "list"
	OpInsert = "insert"
	OpDelete = "delete"
)

// ErrIncomplete is returned by Add when title, url or owner is empty. No
// request is made and the error policy is not invoked.
var ErrIncomplete = errors.New("title, url and owner are required")

type State int

const (
	Loading State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "loading"
}

// Inputs are the pending values of the add form.
type Inputs struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Snapshot is a consistent copy of the view model for rendering.
type Snapshot struct {
	State     State
	Owner     string
	Bookmarks []model.Bookmark
	Inputs    Inputs
}

// Empty reports the "no bookmarks" condition: loaded and nothing to show.
func (s Snapshot) Empty() bool {
	return s.State == Ready && len(s.Bookmarks) == 0
}

// ErrorPolicy receives every typed collaborator error.
type ErrorPolicy func(err error)

// LogErrors is the default policy: log and carry on.
func LogErrors(err error) {
	kind, _ := apperror.KindOf(err)
	op := apperror.OpOf(err)

	msg := "VIEWMODEL ERROR"
	switch op {
	case OpList:
		msg = "FETCH ERROR"
	case OpInsert:
		msg = "INSERT ERROR"
	case OpDelete:
		msg = "DELETE ERROR"
	}

	log.Error().Err(err).Str("kind", kind.String()).Str("op", op).Msg(msg)
}

type Option func(*ViewModel)

func WithErrorPolicy(p ErrorPolicy) Option {
	return func(vm *ViewModel) {
		if p != nil {
			vm.onError = p
		}
	}
}

// ViewModel is the local, non-authoritative copy of one owner's bookmarks.
//
// Operations are serialised: a mutation waits for the one in flight to finish
// before it is sent, so local updates apply in request order.
type ViewModel struct {
	store   storage.BookmarkStore
	owner   string
	onError ErrorPolicy

	flight sync.Mutex

	mu        sync.RWMutex
	state     State
	bookmarks []model.Bookmark
	inputs    Inputs
}

// New returns a view model in the Loading state for owner.
func New(store storage.BookmarkStore, owner string, opts ...Option) *ViewModel {
	vm := &ViewModel{
		store:     store,
		owner:     owner,
		onError:   LogErrors,
		state:     Loading,
		bookmarks: []model.Bookmark{},
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Load fetches the owner's bookmarks newest first and replaces the local list.
// On failure the list is left as it was. Either way the view model is Ready
// afterwards.
func (vm *ViewModel) Load(ctx context.Context, owner string) ([]model.Bookmark, error) {
	vm.flight.Lock()
	defer vm.flight.Unlock()

	list, err := vm.store.ListByOwner(ctx, owner)

	vm.mu.Lock()
	vm.state = Ready
	if err == nil {
		if list == nil {
			list = []model.Bookmark{}
		}
		vm.bookmarks = list
	}
	current := cloneBookmarks(vm.bookmarks)
	vm.mu.Unlock()

	if err != nil {
		err = apperror.Fetch(OpList, err)
		vm.onError(err)
		return current, err
	}
	return current, nil
}

// Add creates a bookmark. An incomplete request is a silent no-op returning
// ErrIncomplete. On success the stored record is prepended and the inputs are
// cleared; on failure nothing local changes.
func (vm *ViewModel) Add(ctx context.Context, title, url, owner string) (model.Bookmark, error) {
	nb := model.NewBookmark{Title: title, URL: url, Owner: owner}
	if !nb.Complete() {
		return model.Bookmark{}, ErrIncomplete
	}

	vm.flight.Lock()
	defer vm.flight.Unlock()

	created, err := vm.store.Insert(ctx, nb)
	if err != nil {
		err = apperror.Write(OpInsert, err)
		vm.onError(err)
		return model.Bookmark{}, err
	}

	vm.mu.Lock()
	list := make([]model.Bookmark, 0, len(vm.bookmarks)+1)
	list = append(list, created)
	for _, b := range vm.bookmarks {
		if b.ID != created.ID {
			list = append(list, b)
		}
	}
	vm.bookmarks = list
	vm.inputs = Inputs{}
	vm.mu.Unlock()

	return created, nil
}

// Remove deletes the bookmark with id and drops it from the local list. On
// failure the list is unchanged.
func (vm *ViewModel) Remove(ctx context.Context, id string) error {
	vm.flight.Lock()
	defer vm.flight.Unlock()

	if err := vm.store.Delete(ctx, id, vm.owner); err != nil {
		err = apperror.Write(OpDelete, err)
		vm.onError(err)
		return err
	}

	vm.mu.Lock()
	list := make([]model.Bookmark, 0, len(vm.bookmarks))
	for _, b := range vm.bookmarks {
		if b.ID != id {
			list = append(list, b)
		}
	}
	vm.bookmarks = list
	vm.mu.Unlock()

	return nil
}

// SetInputs records the add form values so they survive a failed add.
func (vm *ViewModel) SetInputs(title, url string) {
	vm.mu.Lock()
	vm.inputs = Inputs{Title: title, URL: url}
	vm.mu.Unlock()
}

func (vm *ViewModel) Inputs() Inputs {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.inputs
}

func (vm *ViewModel) State() State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.state
}

// Bookmarks returns a copy of the local list.
func (vm *ViewModel) Bookmarks() []model.Bookmark {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return cloneBookmarks(vm.bookmarks)
}

func (vm *ViewModel) Empty() bool {
	return vm.Snapshot().Empty()
}

func (vm *ViewModel) Owner() string {
	return vm.owner
}

func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return Snapshot{
		State:     vm.state,
		Owner:     vm.owner,
		Bookmarks: cloneBookmarks(vm.bookmarks),
		Inputs:    vm.inputs,
	}
}

func cloneBookmarks(in []model.Bookmark) []model.Bookmark {
	out := make([]model.Bookmark, len(in))
	copy(out, in)
	return out
}
