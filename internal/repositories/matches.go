package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// MatchRepository persists [models.MatchRecord] rows in track_matches.
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository creates a new MatchRepository with the given database connection
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Get returns the target id cached for sourceID.
func (r *MatchRepository) Get(sourceID string) (string, bool, error) {
	var targetID string
	err := r.db.QueryRow("SELECT target_id FROM track_matches WHERE source_id = ?", sourceID).Scan(&targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get match for %s: %w", sourceID, err)
	}
	return targetID, true, nil
}

// Insert stores the pair, overwriting any previous target for the source id,
// and clears a cached failure for the same id.
func (r *MatchRepository) Insert(m models.MatchRecord) error {
	if m.SourceID == "" || m.TargetID == "" {
		return fmt.Errorf("%w: match needs both ids, got %q -> %q", shared.ErrInvalidArgument, m.SourceID, m.TargetID)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.Exec(`
		INSERT INTO track_matches (source_id, target_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET target_id = excluded.target_id, updated_at = excluded.updated_at
	`, m.SourceID, m.TargetID, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM match_failures WHERE source_id = ?", m.SourceID); err != nil {
		return fmt.Errorf("failed to clear failure: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match: %w", err)
	}
	return nil
}

// Delete forgets the match for sourceID. Deleting an unknown id is not an error.
func (r *MatchRepository) Delete(sourceID string) error {
	if _, err := r.db.Exec("DELETE FROM track_matches WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	return nil
}

// Count returns the number of cached matches.
func (r *MatchRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM track_matches").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}
