package visit

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
)

// RoundingGrid is the privacy grid: exact timestamps are never persisted
// for imported visits.
const RoundingGrid = 15 * time.Minute

// RoundToGrid rounds a timestamp to the nearest 15-minute boundary.
func RoundToGrid(t time.Time) time.Time {
	return t.Round(RoundingGrid)
}

// Creator builds imported visit records.
type Creator struct {
	store Store
}

// NewCreator creates a visit Creator.
func NewCreator(store Store) *Creator {
	return &Creator{store: store}
}

// DetectDuplicate reports whether a visit already exists for the
// (user, venue) pair in the same 15-minute arrival bucket. A store error
// defaults to "not a duplicate": over-creation beats silently dropping
// data.
func (c *Creator) DetectDuplicate(ctx context.Context, userID, venueID string, arrival time.Time) bool {
	exists, err := c.store.Exists(ctx, userID, venueID, RoundToGrid(arrival))
	if err != nil {
		zap.L().Warn("duplicate check failed, assuming not duplicate",
			zap.String("user_id", userID), zap.String("venue_id", venueID), zap.Error(err))
		return false
	}
	return exists
}

// CreateImported persists a visit with both timestamps rounded to the
// privacy grid, inactive, sourced as an import.
func (c *Creator) CreateImported(ctx context.Context, userID, venueID string, arrival, departure time.Time) (*model.Visit, error) {
	v := &model.Visit{
		UserID:        userID,
		VenueID:       venueID,
		ArrivalTime:   RoundToGrid(arrival),
		DepartureTime: RoundToGrid(departure),
		Active:        false,
		Source:        model.VisitSourceImport,
		ImportedAt:    time.Now().UTC(),
	}

	if err := c.store.Create(ctx, v); err != nil {
		return nil, eris.Wrap(err, "visit: create imported")
	}
	return v, nil
}
