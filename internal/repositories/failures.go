package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// FailureRepository persists source ids with no known target in match_failures.
type FailureRepository struct {
	db *sql.DB
}

// NewFailureRepository creates a new FailureRepository with the given database connection
func NewFailureRepository(db *sql.DB) *FailureRepository {
	return &FailureRepository{db: db}
}

// Has reports whether sourceID is marked as not found.
func (r *FailureRepository) Has(sourceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM match_failures WHERE source_id = ?)", sourceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check failure for %s: %w", sourceID, err)
	}
	return exists, nil
}

// Cache marks sourceID as not found. Ids that already have a match are left alone.
func (r *FailureRepository) Cache(sourceID string) error {
	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO match_failures (source_id, created_at)
		SELECT ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM track_matches WHERE source_id = ?)
	`, sourceID, time.Now().UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to cache failure: %w", err)
	}
	return nil
}

// Remove clears the failure marker for sourceID.
func (r *FailureRepository) Remove(sourceID string) error {
	if _, err := r.db.Exec("DELETE FROM match_failures WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to remove failure: %w", err)
	}
	return nil
}

// Count returns the number of cached failures.
func (r *FailureRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM match_failures").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return n, nil
}

// Clear removes every failure marker and returns how many were dropped.
func (r *FailureRepository) Clear() (int64, error) {
	res, err := r.db.Exec("DELETE FROM match_failures")
	if err != nil {
		return 0, fmt.Errorf("failed to clear failures: %w", err)
	}
	return res.RowsAffected()
}
