// Package venue resolves classified places to persisted venues: exact
// external-id match, geospatial+fuzzy-name proximity match, or creation.
package venue

import (
	"context"

	"github.com/brewtrail/brewtrail/internal/model"
)

// NearbyVenue is a proximity search hit with its distance from the query
// point.
type NearbyVenue struct {
	model.Venue
	DistanceM float64
}

// Store is the venue persistence interface.
type Store interface {
	// Get returns a venue by id, or nil when absent.
	Get(ctx context.Context, id string) (*model.Venue, error)

	// GetByExternalID returns the venue carrying the external place id,
	// or nil when absent.
	GetByExternalID(ctx context.Context, externalID string) (*model.Venue, error)

	// FindNearby returns venues within radiusM of the point, closest first.
	FindNearby(ctx context.Context, lat, lng, radiusM float64) ([]NearbyVenue, error)

	// Create inserts the venue, assigning an id. When a concurrent import
	// already created the same venue (unique-index conflict) the existing
	// row is returned instead.
	Create(ctx context.Context, v *model.Venue) (*model.Venue, error)
}
