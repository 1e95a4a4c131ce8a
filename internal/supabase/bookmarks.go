package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/storage"
)

const bookmarksPath = "/rest/v1/bookmarks"

// Bookmarks is the bookmarks table behind PostgREST. Requests carry the
// access token of the identity on the context.
type Bookmarks struct {
	client *Client
}

func NewBookmarks(client *Client) *Bookmarks {
	return &Bookmarks{client: client}
}

func (b *Bookmarks) ListByOwner(ctx context.Context, owner string) ([]model.Bookmark, error) {
	query := url.Values{
		"select":  {"*"},
		"user_id": {"eq." + owner},
		"order":   {"created_at.desc"},
	}
	req, err := b.client.newRequest(ctx, http.MethodGet, bookmarksPath, query, nil, tokenFromContext(ctx))
	if err != nil {
		return nil, err
	}

	var rows []model.Bookmark
	if err := b.client.do(req, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Bookmark{}
	}
	return rows, nil
}

func (b *Bookmarks) Insert(ctx context.Context, nb model.NewBookmark) (model.Bookmark, error) {
	if !nb.Complete() {
		return model.Bookmark{}, storage.ErrInvalidBookmark
	}

	req, err := b.client.newRequest(ctx, http.MethodPost, bookmarksPath, nil, []model.NewBookmark{nb}, tokenFromContext(ctx))
	if err != nil {
		return model.Bookmark{}, err
	}
	req.Header.Set("Prefer", "return=representation")

	var rows []model.Bookmark
	if err := b.client.do(req, &rows); err != nil {
		return model.Bookmark{}, err
	}
	if len(rows) == 0 {
		return model.Bookmark{}, errors.New("insert returned no row")
	}
	return rows[0], nil
}

func (b *Bookmarks) Delete(ctx context.Context, id, owner string) error {
	query := url.Values{
		"id":      {"eq." + id},
		"user_id": {"eq." + owner},
	}
	req, err := b.client.newRequest(ctx, http.MethodDelete, bookmarksPath, query, nil, tokenFromContext(ctx))
	if err != nil {
		return err
	}
	return b.client.do(req, nil)
}

func (b *Bookmarks) Ping(ctx context.Context) error {
	return b.client.Ping(ctx)
}
