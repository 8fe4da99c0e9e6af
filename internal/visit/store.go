// Package visit creates privacy-rounded visit records and detects
// duplicate visits within the same time bucket.
package visit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/brewtrail/brewtrail/internal/db"
	"github.com/brewtrail/brewtrail/internal/model"
)

// Store is the visit persistence interface.
type Store interface {
	// Exists reports whether a visit already exists for the (user, venue)
	// pair at the exact (already rounded) arrival time.
	Exists(ctx context.Context, userID, venueID string, arrival time.Time) (bool, error)

	// Create inserts the visit.
	Create(ctx context.Context, v *model.Visit) error
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a visit store backed by the given pool.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Exists(ctx context.Context, userID, venueID string, arrival time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM visits
			WHERE user_id = $1 AND venue_id = $2 AND arrival = $3
		)`,
		userID, venueID, arrival,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "visit: exists")
	}
	return exists, nil
}

func (s *PostgresStore) Create(ctx context.Context, v *model.Visit) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.ImportedAt.IsZero() {
		v.ImportedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO visits (id, user_id, venue_id, arrival, departure, active, source, imported_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, v.UserID, v.VenueID, v.ArrivalTime, v.DepartureTime,
		v.Active, v.Source, v.ImportedAt)
	return eris.Wrap(err, "visit: insert")
}
