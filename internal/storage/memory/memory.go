package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/storage"
	"github.com/google/uuid"
)

// Storage implements an in-memory BookmarkStore for testing and development.
type Storage struct {
	byOwner map[string][]model.Bookmark
	now     func() time.Time
	mutex   sync.RWMutex
}

// Option configures Storage.
type Option func(*Storage)

// WithClock overrides the timestamp source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

// NewStorage creates a new in-memory storage instance.
func NewStorage(opts ...Option) *Storage {
	s := &Storage{
		byOwner: make(map[string][]model.Bookmark),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListByOwner returns the owner's bookmarks ordered by created_at descending.
// Rows sharing a timestamp keep newest-inserted-first order.
func (s *Storage) ListByOwner(_ context.Context, owner string) ([]model.Bookmark, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows := s.byOwner[owner]
	result := make([]model.Bookmark, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		result = append(result, rows[i])
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// Insert stores a bookmark, assigning a UUID and the current time.
func (s *Storage) Insert(_ context.Context, b model.NewBookmark) (model.Bookmark, error) {
	if !b.Complete() {
		return model.Bookmark{}, storage.ErrInvalidBookmark
	}

	bookmark := model.Bookmark{
		ID:        uuid.NewString(),
		Title:     b.Title,
		URL:       b.URL,
		Owner:     b.Owner,
		CreatedAt: s.now().UTC(),
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.byOwner[b.Owner] = append(s.byOwner[b.Owner], bookmark)
	return bookmark, nil
}

// Delete removes the owner's bookmark with the given id.
func (s *Storage) Delete(_ context.Context, id, owner string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rows := s.byOwner[owner]
	for i, row := range rows {
		if row.ID == id {
			s.byOwner[owner] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// Stats returns the total number of bookmarks and owners.
func (s *Storage) Stats() (int, int) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	total := 0
	for _, rows := range s.byOwner {
		total += len(rows)
	}
	return total, len(s.byOwner)
}
