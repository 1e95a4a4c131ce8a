package model

import "time"

// Bookmark is a stored bookmark as returned by the store.
type Bookmark struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Owner     string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBookmark carries the user-supplied fields of a bookmark to be created.
type NewBookmark struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Owner string `json:"user_id"`
}

// Complete reports whether every field required for creation is present.
func (b NewBookmark) Complete() bool {
	return b.Title != "" && b.URL != "" && b.Owner != ""
}

// BookmarkRecord is one line of the file store.
type BookmarkRecord struct {
	Bookmark
	IsDeleted bool `json:"is_deleted"`
}
