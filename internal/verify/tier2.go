// Package verify implements the external verification tiers: the brewery
// directory lookup (tier 2), web-search corroboration (tier 3), and
// map-data discovery. Every tier degrades to "no result" on upstream
// failure — verification never aborts an import.
package verify

import (
	"context"

	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
	"github.com/brewtrail/brewtrail/internal/resilience"
	"github.com/brewtrail/brewtrail/internal/vcache"
	"github.com/brewtrail/brewtrail/pkg/brewerydir"
)

// Tier2 distance cutoff and confidence bands. Confidence is distance-based
// rather than name-based because mobile exports frequently omit usable
// names.
const (
	tier2MaxDistanceM = 5000.0

	tier2OutageThreshold = 5
)

// Tier2Verifier verifies places against the brewery directory by proximity.
type Tier2Verifier struct {
	dir     brewerydir.Client
	cache   *vcache.Cache
	tracker *resilience.FailureTracker
	perPage int
}

// NewTier2Verifier creates the tier-2 verifier. Five consecutive upstream
// failures flag a service outage without stopping the pipeline.
func NewTier2Verifier(dir brewerydir.Client, cache *vcache.Cache, perPage int) *Tier2Verifier {
	if perPage <= 0 {
		perPage = 10
	}
	return &Tier2Verifier{
		dir:     dir,
		cache:   cache,
		tracker: resilience.NewFailureTracker("brewery_directory", tier2OutageThreshold),
		perPage: perPage,
	}
}

// Tracker exposes the outage counters for status reporting.
func (v *Tier2Verifier) Tracker() *resilience.FailureTracker {
	return v.tracker
}

// Verify looks up the closest directory brewery within 5 km of the place.
// Returns nil when the directory has no match or is unavailable. Matches
// are cached for 30 days; misses are not cached because directory coverage
// improves over time.
func (v *Tier2Verifier) Verify(ctx context.Context, name string, lat, lng float64) *model.VerificationResult {
	key := vcache.NameLocationKey(name, lat, lng)
	if cached := v.cache.GetVerification(ctx, vcache.KindTier2, key); cached != nil {
		return cached
	}

	breweries, err := v.dir.SearchByDistance(ctx, lat, lng, v.perPage)
	if err != nil {
		v.tracker.RecordFailure()
		zap.L().Warn("tier2 directory lookup failed",
			zap.Float64("lat", lat), zap.Float64("lng", lng), zap.Error(err))
		return nil
	}
	v.tracker.RecordSuccess()

	closest, distance := closestBrewery(breweries, lat, lng)
	if closest == nil || distance > tier2MaxDistanceM {
		return nil
	}

	result := &model.VerificationResult{
		Tier:       2,
		VenueType:  model.VenueTypeBrewery, // the directory covers breweries only
		Verified:   true,
		Confidence: distanceConfidence(distance),
		Source:     model.VenueSourceDirectory,
	}
	v.cache.SetVerification(ctx, vcache.KindTier2, key, result, vcache.Tier2TTL)

	return result
}

// Discover returns up to perPage nearby directory records for proactive
// area population. No verification semantics.
func (v *Tier2Verifier) Discover(ctx context.Context, lat, lng float64, perPage int) ([]brewerydir.Brewery, error) {
	if perPage <= 0 {
		perPage = v.perPage
	}
	breweries, err := v.dir.SearchByDistance(ctx, lat, lng, perPage)
	if err != nil {
		v.tracker.RecordFailure()
		return nil, err
	}
	v.tracker.RecordSuccess()
	return breweries, nil
}

func closestBrewery(breweries []brewerydir.Brewery, lat, lng float64) (*brewerydir.Brewery, float64) {
	var (
		closest  *brewerydir.Brewery
		distance float64
	)
	for i := range breweries {
		bLat, bLng, ok := breweries[i].Coordinates()
		if !ok {
			continue
		}
		d := HaversineMeters(lat, lng, bLat, bLng)
		if closest == nil || d < distance {
			closest = &breweries[i]
			distance = d
		}
	}
	return closest, distance
}

// distanceConfidence maps match distance to confidence, monotonically
// non-increasing, zero beyond the 5 km cutoff.
func distanceConfidence(meters float64) float64 {
	switch {
	case meters <= 100:
		return 0.95
	case meters <= 500:
		return 0.85
	case meters <= 1000:
		return 0.75
	case meters <= tier2MaxDistanceM:
		return 0.65
	default:
		return 0
	}
}
