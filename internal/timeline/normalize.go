// Package timeline parses exported location-history ("Timeline") JSON into
// canonical place visits. Two export shapes are recognized: the legacy flat
// timelineObjects list and the mobile semanticSegments format. Normalization
// is pure: no I/O beyond logging.
package timeline

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
)

// ErrUnknownFormat is returned when the payload parses as JSON but matches
// neither known export shape.
var ErrUnknownFormat = eris.New("timeline: unrecognized export format")

// e7Scale converts fixed-point E7 coordinates to decimal degrees.
const e7Scale = 1e7

type export struct {
	TimelineObjects  []timelineObject  `json:"timelineObjects"`
	SemanticSegments []semanticSegment `json:"semanticSegments"`
}

type timelineObject struct {
	PlaceVisit *flatPlaceVisit `json:"placeVisit"`
}

type flatPlaceVisit struct {
	Location flatLocation `json:"location"`
	Duration duration     `json:"duration"`
	// VisitConfidence is a 0-100 percentage in the legacy export.
	VisitConfidence float64 `json:"visitConfidence"`
}

type flatLocation struct {
	PlaceID     string  `json:"placeId"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	LatitudeE7  int64   `json:"latitudeE7"`
	LongitudeE7 int64   `json:"longitudeE7"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type duration struct {
	StartTimestamp string `json:"startTimestamp"`
	EndTimestamp   string `json:"endTimestamp"`
}

type semanticSegment struct {
	StartTime string         `json:"startTime"`
	EndTime   string         `json:"endTime"`
	Visit     *semanticVisit `json:"visit"`
}

type semanticVisit struct {
	TopCandidate *candidate `json:"topCandidate"`
	// Probability is 0-1 in the semantic export.
	Probability float64 `json:"probability"`
}

type candidate struct {
	PlaceID       string         `json:"placeId"`
	SemanticType  string         `json:"semanticType"`
	Probability   float64        `json:"probability"`
	PlaceLocation *placeLocation `json:"placeLocation"`
	Name          string         `json:"name"`
	Address       string         `json:"address"`
}

type placeLocation struct {
	// LatLng is a string-encoded pair like "47.6062°, -122.3321°".
	LatLng      string  `json:"latLng"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	LatitudeE7  int64   `json:"latitudeE7"`
	LongitudeE7 int64   `json:"longitudeE7"`
}

// Normalize detects the export shape and converts it into canonical place
// visits, preserving input order. Entries with invalid coordinates or
// missing timestamps are dropped and logged, never fatal. An unrecognized
// root shape or malformed JSON fails the whole call.
func Normalize(raw []byte) ([]model.PlaceVisit, error) {
	var exp export
	if err := json.Unmarshal(raw, &exp); err != nil {
		return nil, eris.Wrap(err, "timeline: parse export")
	}

	switch {
	case exp.TimelineObjects != nil:
		return normalizeFlat(exp.TimelineObjects), nil
	case exp.SemanticSegments != nil:
		return normalizeSemantic(exp.SemanticSegments), nil
	default:
		return nil, ErrUnknownFormat
	}
}

func normalizeFlat(objects []timelineObject) []model.PlaceVisit {
	visits := make([]model.PlaceVisit, 0, len(objects))
	dropped := 0

	for _, obj := range objects {
		if obj.PlaceVisit == nil {
			continue // activity segments etc.
		}
		pv := obj.PlaceVisit

		start, end, ok := parseSpan(pv.Duration.StartTimestamp, pv.Duration.EndTimestamp)
		if !ok {
			dropped++
			continue
		}

		lat, lng := pv.Location.Latitude, pv.Location.Longitude
		if pv.Location.LatitudeE7 != 0 || pv.Location.LongitudeE7 != 0 {
			lat = float64(pv.Location.LatitudeE7) / e7Scale
			lng = float64(pv.Location.LongitudeE7) / e7Scale
		}

		visit := model.PlaceVisit{
			ExternalPlaceID: pv.Location.PlaceID,
			Name:            strings.TrimSpace(pv.Location.Name),
			Address:         strings.TrimSpace(pv.Location.Address),
			Latitude:        lat,
			Longitude:       lng,
			ArrivalTime:     start,
			DepartureTime:   end,
			Confidence:      pv.VisitConfidence / 100,
		}
		if !visit.HasValidCoordinates() {
			dropped++
			continue
		}

		visits = append(visits, visit)
	}

	if dropped > 0 {
		zap.L().Info("dropped invalid timeline entries",
			zap.String("format", "timelineObjects"), zap.Int("dropped", dropped))
	}
	return visits
}

func normalizeSemantic(segments []semanticSegment) []model.PlaceVisit {
	visits := make([]model.PlaceVisit, 0, len(segments))
	dropped := 0

	for _, seg := range segments {
		if seg.Visit == nil || seg.Visit.TopCandidate == nil {
			continue // path/activity segments.
		}
		cand := seg.Visit.TopCandidate

		start, end, ok := parseSpan(seg.StartTime, seg.EndTime)
		if !ok {
			dropped++
			continue
		}

		lat, lng, ok := resolveCoordinates(cand.PlaceLocation)
		if !ok {
			dropped++
			continue
		}

		confidence := seg.Visit.Probability
		if confidence == 0 {
			confidence = cand.Probability
		}

		visit := model.PlaceVisit{
			ExternalPlaceID: cand.PlaceID,
			Name:            strings.TrimSpace(cand.Name),
			Address:         strings.TrimSpace(cand.Address),
			Latitude:        lat,
			Longitude:       lng,
			ArrivalTime:     start,
			DepartureTime:   end,
			Confidence:      confidence,
		}
		if !visit.HasValidCoordinates() {
			dropped++
			continue
		}

		visits = append(visits, visit)
	}

	if dropped > 0 {
		zap.L().Info("dropped invalid timeline entries",
			zap.String("format", "semanticSegments"), zap.Int("dropped", dropped))
	}
	return visits
}

// parseSpan parses both timestamps; entries missing either are dropped.
func parseSpan(startRaw, endRaw string) (start, end time.Time, ok bool) {
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// resolveCoordinates handles the three candidate-location encodings:
// geo-string latLng, decimal fields, and fixed-point E7 fields.
func resolveCoordinates(loc *placeLocation) (lat, lng float64, ok bool) {
	if loc == nil {
		return 0, 0, false
	}

	if loc.LatLng != "" {
		return parseLatLngString(loc.LatLng)
	}
	if loc.LatitudeE7 != 0 || loc.LongitudeE7 != 0 {
		return float64(loc.LatitudeE7) / e7Scale, float64(loc.LongitudeE7) / e7Scale, true
	}
	if loc.Latitude != 0 || loc.Longitude != 0 {
		return loc.Latitude, loc.Longitude, true
	}
	return 0, 0, false
}

// parseLatLngString parses the "47.6062°, -122.3321°" encoding.
func parseLatLngString(s string) (lat, lng float64, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}

	clean := func(p string) string {
		return strings.TrimSpace(strings.ReplaceAll(p, "°", ""))
	}

	lat, err := strconv.ParseFloat(clean(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(clean(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
