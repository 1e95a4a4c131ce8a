package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/storage"
	"github.com/MikhailRaia/bookmark-manager/internal/viewmodel"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
)

// DefaultCacheSize bounds the number of live view models.
const DefaultCacheSize = 1024

// BookmarkService keeps one view model per session, the server-side
// equivalent of a mounted dashboard page.
type BookmarkService struct {
	store  storage.BookmarkStore
	opts   []viewmodel.Option
	mounts *lru.Cache
	mu     sync.Mutex
}

// NewBookmarkService creates a BookmarkService holding up to cacheSize view
// models. The least recently used one is dropped when the cache is full.
func NewBookmarkService(store storage.BookmarkStore, cacheSize int, opts ...viewmodel.Option) (*BookmarkService, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	mounts, err := lru.NewWithEvict(cacheSize, func(key, _ interface{}) {
		log.Debug().Interface("session", key).Msg("View model evicted")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create view model cache: %w", err)
	}

	return &BookmarkService{
		store:  store,
		opts:   opts,
		mounts: mounts,
	}, nil
}

func mountKey(identity model.Identity) string {
	if identity.SessionID != "" {
		return identity.SessionID
	}
	return identity.UserID
}

// Mount discards any view model for the session, creates a fresh one and runs
// its initial load. The view model is returned even when the load fails.
func (s *BookmarkService) Mount(ctx context.Context, identity model.Identity) (*viewmodel.ViewModel, error) {
	vm := viewmodel.New(s.store, identity.UserID, s.opts...)

	s.mu.Lock()
	s.mounts.Add(mountKey(identity), vm)
	s.mu.Unlock()

	_, err := vm.Load(ctx, identity.UserID)
	return vm, err
}

// Current returns the session's view model, mounting one if none is cached.
func (s *BookmarkService) Current(ctx context.Context, identity model.Identity) (*viewmodel.ViewModel, error) {
	s.mu.Lock()
	if cached, ok := s.mounts.Get(mountKey(identity)); ok {
		vm := cached.(*viewmodel.ViewModel)
		if vm.Owner() == identity.UserID {
			s.mu.Unlock()
			return vm, nil
		}
	}
	s.mu.Unlock()

	return s.Mount(ctx, identity)
}

// Add creates a bookmark through the session's view model.
func (s *BookmarkService) Add(ctx context.Context, identity model.Identity, title, url string) (*viewmodel.ViewModel, model.Bookmark, error) {
	vm, _ := s.Current(ctx, identity)
	vm.SetInputs(title, url)

	created, err := vm.Add(ctx, title, url, identity.UserID)
	return vm, created, err
}

// Remove deletes a bookmark through the session's view model.
func (s *BookmarkService) Remove(ctx context.Context, identity model.Identity, id string) (*viewmodel.ViewModel, error) {
	vm, _ := s.Current(ctx, identity)
	return vm, vm.Remove(ctx, id)
}

// Discard drops the session's view model, typically on sign-out.
func (s *BookmarkService) Discard(identity model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts.Remove(mountKey(identity))
}

// Mounted returns the number of cached view models.
func (s *BookmarkService) Mounted() int {
	return s.mounts.Len()
}
