package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/plsync/internal/shared"
)

// Store owns the cache database for the duration of a run.
type Store struct {
	db       *sql.DB
	matches  *MatchRepository
	failures *FailureRepository
}

// OpenStore opens (creating if needed) the SQLite database at path and applies migrations.
func OpenStore(path string) (*Store, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	return NewStore(db), nil
}

// NewStore wraps an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		matches:  NewMatchRepository(db),
		failures: NewFailureRepository(db),
	}
}

// Matches returns the match relation.
func (s *Store) Matches() *MatchRepository { return s.matches }

// Failures returns the failure set.
func (s *Store) Failures() *FailureRepository { return s.failures }

// DB exposes the connection for pool tuning.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
