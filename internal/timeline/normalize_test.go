package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFlatFormat(t *testing.T) {
	raw := []byte(`{
		"timelineObjects": [
			{
				"placeVisit": {
					"location": {
						"placeId": "ChIJabc123",
						"name": "Fremont Brewing",
						"address": "1050 N 34th St, Seattle, WA",
						"latitudeE7": 476549000,
						"longitudeE7": -1223498000
					},
					"duration": {
						"startTimestamp": "2025-06-01T18:00:00Z",
						"endTimestamp": "2025-06-01T19:30:00Z"
					},
					"visitConfidence": 87
				}
			}
		]
	}`)

	places, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, places, 1)

	p := places[0]
	assert.Equal(t, "ChIJabc123", p.ExternalPlaceID)
	assert.Equal(t, "Fremont Brewing", p.Name)
	assert.InDelta(t, 47.6549, p.Latitude, 1e-6)
	assert.InDelta(t, -122.3498, p.Longitude, 1e-6)
	assert.Equal(t, time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC), p.ArrivalTime)
	assert.InDelta(t, 0.87, p.Confidence, 1e-9)
}

func TestNormalizeSemanticFormat(t *testing.T) {
	raw := []byte(`{
		"semanticSegments": [
			{
				"startTime": "2025-06-02T12:00:00Z",
				"endTime": "2025-06-02T13:00:00Z",
				"visit": {
					"topCandidate": {
						"placeId": "ChIJdef456",
						"semanticType": "Chateau Ste Michelle",
						"placeLocation": {
							"latLng": "47.7301°, -122.1512°"
						},
						"probability": 0.9
					}
				}
			},
			{
				"startTime": "2025-06-02T15:00:00Z",
				"endTime": "2025-06-02T15:30:00Z",
				"activity": {"type": "WALKING"}
			}
		]
	}`)

	places, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, places, 1)

	p := places[0]
	assert.Equal(t, "ChIJdef456", p.ExternalPlaceID)
	assert.InDelta(t, 47.7301, p.Latitude, 1e-6)
	assert.InDelta(t, -122.1512, p.Longitude, 1e-6)
}

func TestNormalizeDropsInvalidRecords(t *testing.T) {
	raw := []byte(`{
		"timelineObjects": [
			{
				"placeVisit": {
					"location": {"name": "Bad Coords", "latitudeE7": 950000000, "longitudeE7": 0},
					"duration": {"startTimestamp": "2025-06-01T10:00:00Z", "endTimestamp": "2025-06-01T11:00:00Z"}
				}
			},
			{
				"placeVisit": {
					"location": {"name": "Bad Times", "latitudeE7": 476549000, "longitudeE7": -1223498000},
					"duration": {"startTimestamp": "not-a-time", "endTimestamp": "2025-06-01T11:00:00Z"}
				}
			},
			{
				"placeVisit": {
					"location": {"name": "Good", "latitudeE7": 476549000, "longitudeE7": -1223498000},
					"duration": {"startTimestamp": "2025-06-01T10:00:00Z", "endTimestamp": "2025-06-01T11:00:00Z"}
				}
			}
		]
	}`)

	places, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Good", places[0].Name)
}

func TestNormalizePreservesOrder(t *testing.T) {
	raw := []byte(`{
		"timelineObjects": [
			{"placeVisit": {"location": {"name": "First", "latitudeE7": 10000000, "longitudeE7": 10000000}, "duration": {"startTimestamp": "2025-06-01T10:00:00Z", "endTimestamp": "2025-06-01T11:00:00Z"}}},
			{"placeVisit": {"location": {"name": "Second", "latitudeE7": 20000000, "longitudeE7": 20000000}, "duration": {"startTimestamp": "2025-06-01T08:00:00Z", "endTimestamp": "2025-06-01T09:00:00Z"}}}
		]
	}`)

	places, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "First", places[0].Name)
	assert.Equal(t, "Second", places[1].Name)
}

func TestNormalizeUnknownFormat(t *testing.T) {
	_, err := Normalize([]byte(`{"somethingElse": []}`))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Normalize([]byte(`not json at all`))
	assert.Error(t, err)
}

func TestNormalizeEmptyObjects(t *testing.T) {
	places, err := Normalize([]byte(`{"timelineObjects": []}`))
	require.NoError(t, err)
	assert.Empty(t, places)
}
