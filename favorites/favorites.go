// Package favorites persists the photos a user has marked as favorite.
package favorites

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"photosearch/logging"
	"photosearch/types"
)

// ErrInvalidPhoto is returned for photos without an id
var ErrInvalidPhoto = errors.New("invalid photo")

// Store keeps favorites in the favorites table, in the order they were added
type Store struct {
	db *sql.DB
}

// NewStore creates a store on a database opened with database.InitDatabase
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add marks photo as favorite. Adding a photo twice keeps the first entry.
func (s *Store) Add(ctx context.Context, photo types.Photo) error {
	if photo.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPhoto)
	}

	data, err := json.Marshal(photo)
	if err != nil {
		return fmt.Errorf("cannot encode photo %s: %w", photo.ID, err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO favorites (id, photo, created_at) VALUES (?, ?, ?)",
		photo.ID, string(data), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cannot add favorite %s: %w", photo.ID, err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		logging.DebugLog("Added favorite %s", photo.ID)
	}
	return nil
}

// Remove deletes the favorite with the given id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("cannot remove favorite %s: %w", id, err)
	}
	return nil
}

// Contains reports whether id is a favorite
func (s *Store) Contains(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM favorites WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("cannot look up favorite %s: %w", id, err)
	}
	return count > 0, nil
}

// List returns all favorites in insertion order
func (s *Store) List(ctx context.Context) ([]types.Photo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT photo FROM favorites ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("cannot list favorites: %w", err)
	}
	defer rows.Close()

	photos := []types.Photo{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("cannot read favorite: %w", err)
		}

		var photo types.Photo
		if err := json.Unmarshal([]byte(data), &photo); err != nil {
			return nil, fmt.Errorf("cannot decode favorite: %w", err)
		}
		photos = append(photos, photo)
	}

	return photos, rows.Err()
}

// Photo returns the favorite at position index of List
func (s *Store) Photo(ctx context.Context, index int) (types.Photo, bool, error) {
	if index < 0 {
		return types.Photo{}, false, nil
	}

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT photo FROM favorites ORDER BY rowid LIMIT 1 OFFSET ?", index).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Photo{}, false, nil
	}
	if err != nil {
		return types.Photo{}, false, fmt.Errorf("cannot read favorite %d: %w", index, err)
	}

	var photo types.Photo
	if err := json.Unmarshal([]byte(data), &photo); err != nil {
		return types.Photo{}, false, fmt.Errorf("cannot decode favorite %d: %w", index, err)
	}
	return photo, true, nil
}

// Count returns the number of favorites
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM favorites").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("cannot count favorites: %w", err)
	}
	return count, nil
}
