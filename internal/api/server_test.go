package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewtrail/brewtrail/internal/classify"
	"github.com/brewtrail/brewtrail/internal/importer"
	"github.com/brewtrail/brewtrail/internal/jobs"
	"github.com/brewtrail/brewtrail/internal/model"
)

// mockResolver implements importer.VenueResolver for testing.
type mockResolver struct{}

func (m *mockResolver) Resolve(_ context.Context, place model.PlaceVisit, venueType model.VenueType, _ int) (*model.VenueMatch, error) {
	return &model.VenueMatch{
		Venue:      &model.Venue{ID: "v-" + place.Name, Name: place.Name, Type: venueType},
		MatchType:  model.MatchCreated,
		Confidence: 1.0,
	}, nil
}

// mockVisits implements importer.VisitCreator for testing.
type mockVisits struct{}

func (m *mockVisits) DetectDuplicate(_ context.Context, _, _ string, _ time.Time) bool {
	return false
}

func (m *mockVisits) CreateImported(_ context.Context, userID, venueID string, arrival, departure time.Time) (*model.Visit, error) {
	return &model.Visit{UserID: userID, VenueID: venueID, ArrivalTime: arrival, DepartureTime: departure}, nil
}

// mockPoller implements JobPoller for testing.
type mockPoller struct {
	job *model.ImportJob
}

func (m *mockPoller) Status(_ context.Context, id string) (*model.ImportJob, error) {
	if m.job == nil || m.job.ID != id {
		return nil, jobs.ErrNotFound
	}
	return m.job, nil
}

func testServer(t *testing.T, poller JobPoller, maxPayload int64) *Server {
	t.Helper()
	classifier, err := classify.New()
	require.NoError(t, err)

	pipeline := importer.NewPipeline(classifier, nil, nil, nil, &mockResolver{}, &mockVisits{}, nil)
	service := importer.NewService(pipeline, nil, nil, 100, maxPayload)
	return NewServer(service, poller, nil, nil, maxPayload)
}

const sampleExport = `{
	"timelineObjects": [
		{
			"placeVisit": {
				"location": {
					"name": "Fremont Brewing Brewery",
					"latitudeE7": 476549000,
					"longitudeE7": -1223498000
				},
				"duration": {
					"startTimestamp": "2025-06-01T18:00:00Z",
					"endTimestamp": "2025-06-01T19:00:00Z"
				}
			}
		}
	]
}`

func TestHandleImportSync(t *testing.T) {
	srv := testServer(t, nil, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/import/google-timeline",
		strings.NewReader(sampleExport))
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result importer.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Summary)
	assert.True(t, result.Summary.Success)
	assert.Equal(t, 1, result.Summary.VisitsCreated)
}

func TestHandleImportMissingUser(t *testing.T) {
	srv := testServer(t, nil, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/import/google-timeline",
		strings.NewReader(sampleExport))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleImportOversizedPayload(t *testing.T) {
	srv := testServer(t, nil, 64)

	req := httptest.NewRequest(http.MethodPost, "/import/google-timeline",
		strings.NewReader(sampleExport))
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleImportUnparseableRoot(t *testing.T) {
	srv := testServer(t, nil, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/import/google-timeline",
		strings.NewReader(`{"unknown": []}`))
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result importer.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Summary)
	assert.False(t, result.Summary.Success)
	assert.NotEmpty(t, result.Summary.Errors)
}

func TestHandleJobStatus(t *testing.T) {
	poller := &mockPoller{job: &model.ImportJob{
		ID:      "import-u1-1",
		Status:  model.JobStatusActive,
		Payload: []byte(`{"user_id":"u1"}`),
		Progress: &model.JobProgress{
			Stage: "processing", Processed: 0, Total: 500,
		},
	}}
	srv := testServer(t, poller, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/import/status/import-u1-1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "max-age=5", rec.Header().Get("Cache-Control"))

	var job model.ImportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, model.JobStatusActive, job.Status)
	assert.Nil(t, job.Payload)
	require.NotNil(t, job.Progress)
	assert.Equal(t, 500, job.Progress.Total)
}

func TestHandleJobStatusNotFound(t *testing.T) {
	srv := testServer(t, &mockPoller{}, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/import/status/unknown", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(t, nil, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleHistoryRequiresUser(t *testing.T) {
	srv := testServer(t, nil, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/import/history", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
