package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/storage"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage_EmptyDSN(t *testing.T) {
	_, err := NewStorage(context.Background(), "")
	assert.Error(t, err)
}

func TestInsert_IncompleteSkipsDatabase(t *testing.T) {
	s := &Storage{}

	_, err := s.Insert(context.Background(), model.NewBookmark{Title: "Example", Owner: "user-1"})
	assert.ErrorIs(t, err, storage.ErrInvalidBookmark)
}

func TestClassifyInsertError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantInvalid bool
	}{
		{
			name:        "Check violation",
			err:         &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "bookmarks_title_check"},
			wantInvalid: true,
		},
		{
			name:        "Not null violation",
			err:         &pgconn.PgError{Code: pgerrcode.NotNullViolation},
			wantInvalid: true,
		},
		{
			name: "Unique violation",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation},
		},
		{
			name: "Connection error",
			err:  errors.New("connection reset by peer"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyInsertError(tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.wantInvalid, errors.Is(err, storage.ErrInvalidBookmark))
			assert.ErrorIs(t, err, tt.err, "original error stays in the chain")
		})
	}
}

// TestStorage_RoundTrip runs against a real database when TEST_DATABASE_DSN is set.
func TestStorage_RoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	s, err := NewStorage(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	owner := "roundtrip-" + t.Name()
	first, err := s.Insert(ctx, model.NewBookmark{Title: "First", URL: "https://first.example.com", Owner: owner})
	require.NoError(t, err)
	second, err := s.Insert(ctx, model.NewBookmark{Title: "Second", URL: "https://second.example.com", Owner: owner})
	require.NoError(t, err)

	list, err := s.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	require.NoError(t, s.Delete(ctx, first.ID, "someone-else"))
	require.NoError(t, s.Delete(ctx, second.ID, owner))
	require.NoError(t, s.Delete(ctx, first.ID, owner))

	list, err = s.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)
}
