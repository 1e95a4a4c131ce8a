package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/storage"
	"github.com/google/uuid"
)

// Storage implements BookmarkStore backed by an append-only JSONL file.
// Deletes are appended as tombstone records and applied on replay.
type Storage struct {
	filePath    string
	byOwner     map[string][]model.Bookmark
	now         func() time.Time
	mu          sync.RWMutex
	fileWriteMu sync.Mutex
}

// NewStorage creates a file-backed storage at the provided path.
func NewStorage(filePath string) (*Storage, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s := &Storage{
		filePath: filePath,
		byOwner:  make(map[string][]model.Bookmark),
		now:      time.Now,
	}

	if err := s.loadFromFile(); err != nil {
		return nil, err
	}

	return s, nil
}

// ListByOwner returns the owner's bookmarks ordered by created_at descending.
func (s *Storage) ListByOwner(_ context.Context, owner string) ([]model.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

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

// Insert appends a bookmark record to the file and indexes it.
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

	if err := s.saveRecordToFile(model.BookmarkRecord{Bookmark: bookmark}); err != nil {
		return model.Bookmark{}, err
	}

	s.mu.Lock()
	s.byOwner[b.Owner] = append(s.byOwner[b.Owner], bookmark)
	s.mu.Unlock()

	return bookmark, nil
}

// Delete appends a tombstone for the owner's bookmark when it exists.
func (s *Storage) Delete(_ context.Context, id, owner string) error {
	s.mu.RLock()
	var found *model.Bookmark
	for _, row := range s.byOwner[owner] {
		if row.ID == id {
			row := row
			found = &row
			break
		}
	}
	s.mu.RUnlock()

	if found == nil {
		return nil
	}

	if err := s.saveRecordToFile(model.BookmarkRecord{Bookmark: *found, IsDeleted: true}); err != nil {
		return err
	}

	s.mu.Lock()
	s.remove(id, owner)
	s.mu.Unlock()

	return nil
}

// Ping checks the storage file is still reachable.
func (s *Storage) Ping(context.Context) error {
	_, err := os.Stat(s.filePath)
	return err
}

func (s *Storage) remove(id, owner string) {
	rows := s.byOwner[owner]
	for i, row := range rows {
		if row.ID == id {
			s.byOwner[owner] = append(rows[:i:i], rows[i+1:]...)
			return
		}
	}
}

func (s *Storage) loadFromFile() error {
	file, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record model.BookmarkRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}

		if record.IsDeleted {
			s.remove(record.ID, record.Owner)
			continue
		}
		s.byOwner[record.Owner] = append(s.byOwner[record.Owner], record.Bookmark)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	return nil
}

func (s *Storage) saveRecordToFile(record model.BookmarkRecord) error {
	s.fileWriteMu.Lock()
	defer s.fileWriteMu.Unlock()

	file, err := os.OpenFile(s.filePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file for writing: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	data = append(data, '\n')
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return nil
}
