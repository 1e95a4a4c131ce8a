package storage

import (
	"context"
	"errors"

	"github.com/MikhailRaia/bookmark-manager/internal/model"
)

// ErrInvalidBookmark is returned when a bookmark misses a required field.
var ErrInvalidBookmark = errors.New("bookmark title, url and owner are required")

// BookmarkStore is the data side of the hosted backend.
//
// Every implementation scopes rows to their owner: ListByOwner never returns
// another user's rows and Delete only removes a row when both id and owner match.
type BookmarkStore interface {
	// ListByOwner returns the owner's bookmarks, newest first.
	ListByOwner(ctx context.Context, owner string) ([]model.Bookmark, error)
	// Insert stores a bookmark and returns it with its generated id and timestamp.
	Insert(ctx context.Context, b model.NewBookmark) (model.Bookmark, error)
	// Delete removes the bookmark. An unknown id is not an error.
	Delete(ctx context.Context, id, owner string) error
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
