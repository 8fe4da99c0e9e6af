package venue

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
)

// Matching thresholds. The name check is a precision booster when a name is
// available; coordinates alone are acceptable at reduced confidence because
// mobile exports frequently omit names.
const (
	proximityRadiusM      = 100.0
	minNameSimilarity     = 0.80
	namelessProximityConf = 0.75
)

// Matcher resolves classified places to venues: exact external-id match,
// then proximity (+fuzzy name), then creation.
type Matcher struct {
	store      Store
	similarity SimilarityFunc
}

// NewMatcher creates a Matcher with the default token-set similarity.
func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store, similarity: TokenSetSimilarity}
}

// WithSimilarity replaces the name-similarity function.
func (m *Matcher) WithSimilarity(fn SimilarityFunc) *Matcher {
	m.similarity = fn
	return m
}

// Resolve runs the three matching strategies in order; first hit wins.
// tier records which verification tier vouched for the place when a new
// venue has to be created.
func (m *Matcher) Resolve(ctx context.Context, place model.PlaceVisit, venueType model.VenueType, tier int) (*model.VenueMatch, error) {
	// Strategy 1: exact external id.
	if place.ExternalPlaceID != "" {
		existing, err := m.store.GetByExternalID(ctx, place.ExternalPlaceID)
		if err != nil {
			return nil, eris.Wrap(err, "matcher: external id lookup")
		}
		if existing != nil {
			return &model.VenueMatch{
				Venue:      existing,
				MatchType:  model.MatchExternalID,
				Confidence: 1.0,
			}, nil
		}
	}

	// Strategy 2: geospatial proximity.
	nearby, err := m.store.FindNearby(ctx, place.Latitude, place.Longitude, proximityRadiusM)
	if err != nil {
		return nil, eris.Wrap(err, "matcher: proximity search")
	}
	if match := m.bestProximityMatch(place, nearby); match != nil {
		return match, nil
	}

	// Strategy 3: create.
	created, err := m.createVenue(ctx, place, venueType, tier)
	if err != nil {
		return nil, err
	}
	return &model.VenueMatch{
		Venue:      created,
		MatchType:  model.MatchCreated,
		Confidence: 1.0,
	}, nil
}

// bestProximityMatch picks a venue from the proximity candidates (closest
// first). With a usable name, fuzzy similarity must clear the threshold;
// without one, the closest candidate is accepted at reduced confidence.
func (m *Matcher) bestProximityMatch(place model.PlaceVisit, nearby []NearbyVenue) *model.VenueMatch {
	if len(nearby) == 0 {
		return nil
	}

	if place.Name == "" {
		closest := nearby[0]
		return &model.VenueMatch{
			Venue:      &closest.Venue,
			MatchType:  model.MatchProximity,
			Confidence: namelessProximityConf,
		}
	}

	var (
		best    *NearbyVenue
		bestSim float64
	)
	for i := range nearby {
		sim := m.similarity(place.Name, nearby[i].Name)
		if sim >= minNameSimilarity && sim > bestSim {
			best = &nearby[i]
			bestSim = sim
		}
	}
	if best == nil {
		return nil
	}

	return &model.VenueMatch{
		Venue:      &best.Venue,
		MatchType:  model.MatchProximity,
		Confidence: bestSim,
	}
}

func (m *Matcher) createVenue(ctx context.Context, place model.PlaceVisit, venueType model.VenueType, tier int) (*model.Venue, error) {
	name := place.Name
	if name == "" {
		name = fmt.Sprintf("Unknown %s (%.5f, %.5f)", venueType, place.Latitude, place.Longitude)
	}

	v := &model.Venue{
		Name:             name,
		Street:           place.Address,
		Latitude:         place.Latitude,
		Longitude:        place.Longitude,
		Type:             venueType,
		Source:           model.VenueSourceImport,
		ExternalPlaceID:  place.ExternalPlaceID,
		VerificationTier: tier,
	}

	created, err := m.store.Create(ctx, v)
	if err != nil {
		return nil, eris.Wrap(err, "matcher: create venue")
	}

	zap.L().Debug("created venue",
		zap.String("id", created.ID),
		zap.String("name", created.Name),
		zap.String("type", string(venueType)),
	)
	return created, nil
}
