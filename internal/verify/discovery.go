package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
	"github.com/brewtrail/brewtrail/internal/vcache"
	"github.com/brewtrail/brewtrail/pkg/overpass"
)

// verifyPointRadiusKM bounds the escalation query; a tagged feature must be
// within verifyPointMaxM of the place to corroborate it.
const (
	verifyPointRadiusKM = 1.0
	verifyPointMaxM     = 150.0
)

// Discoverer finds venues in the open geographic database, both as a
// verification fallback and for proactive area population.
type Discoverer struct {
	client overpass.Client
	cache  *vcache.Cache
}

// NewDiscoverer creates a map-data discoverer.
func NewDiscoverer(client overpass.Client, cache *vcache.Cache) *Discoverer {
	return &Discoverer{client: client, cache: cache}
}

// VerifyPoint checks whether a brewery/winery tagged feature sits within
// 150 m of the place. Used as the last escalation step when tiers 2 and 3
// both come back empty. Returns nil when nothing corroborates.
func (d *Discoverer) VerifyPoint(ctx context.Context, lat, lng float64) *model.VerificationResult {
	elements, err := d.client.FindVenues(ctx, lat, lng, verifyPointRadiusKM)
	if err != nil {
		zap.L().Warn("map-data point verification failed", zap.Error(err))
		return nil
	}

	var (
		best     *overpass.Element
		bestDist float64
	)
	for i := range elements {
		eLat, eLng := elements[i].Coordinates()
		dist := HaversineMeters(lat, lng, eLat, eLng)
		if dist > verifyPointMaxM {
			continue
		}
		if best == nil || dist < bestDist {
			best = &elements[i]
			bestDist = dist
		}
	}
	if best == nil {
		return nil
	}

	return &model.VerificationResult{
		Tier:       3,
		VenueType:  elementVenueType(*best),
		Verified:   true,
		Confidence: 0.8,
		Source:     model.VenueSourceOSM,
	}
}

// SearchArea proactively finds venues within radiusKM of a point, for area
// population. The result is marked in the cache for 24 h so repeated
// searches near the same area do not re-query the database. Returns nil
// with no error when the area was already searched recently.
func (d *Discoverer) SearchArea(ctx context.Context, lat, lng, radiusKM float64) ([]model.Venue, error) {
	key := vcache.AreaKey(lat, lng, radiusKM)
	if d.cache.HasMarker(ctx, vcache.KindAreaSearch, key) {
		zap.L().Debug("area already searched recently",
			zap.Float64("lat", lat), zap.Float64("lng", lng))
		return nil, nil
	}

	elements, err := d.client.FindVenues(ctx, lat, lng, radiusKM)
	if err != nil {
		return nil, err
	}

	d.cache.SetMarker(ctx, vcache.KindAreaSearch, key, vcache.AreaSearchTTL)

	return dedupeElements(elements), nil
}

// dedupeElements drops duplicate features by name + rounded coordinates
// within a single response (the same venue often appears as both a node
// and a way).
func dedupeElements(elements []overpass.Element) []model.Venue {
	seen := make(map[string]bool, len(elements))
	venues := make([]model.Venue, 0, len(elements))

	for _, el := range elements {
		lat, lng := el.Coordinates()
		name := el.Name()
		if name == "" {
			continue
		}

		key := fmt.Sprintf("%s|%.4f,%.4f", vcache.NormalizeText(name),
			vcache.RoundCoord(lat), vcache.RoundCoord(lng))
		if seen[key] {
			continue
		}
		seen[key] = true

		venues = append(venues, model.Venue{
			Name:             name,
			Street:           el.Tags["addr:street"],
			City:             el.Tags["addr:city"],
			State:            el.Tags["addr:state"],
			PostalCode:       el.Tags["addr:postcode"],
			Country:          el.Tags["addr:country"],
			Latitude:         lat,
			Longitude:        lng,
			Type:             elementVenueType(el),
			Source:           model.VenueSourceOSM,
			VerificationTier: 3,
			Metadata: map[string]string{
				"osm_type": el.Type,
				"osm_id":   fmt.Sprintf("%d", el.ID),
			},
			CreatedAt: time.Now().UTC(),
		})
	}

	return venues
}

func elementVenueType(el overpass.Element) model.VenueType {
	switch {
	case el.Tags["craft"] == "winery", el.Tags["shop"] == "wine":
		return model.VenueTypeWinery
	default:
		return model.VenueTypeBrewery
	}
}
