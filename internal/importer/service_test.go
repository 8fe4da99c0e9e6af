package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewtrail/brewtrail/internal/classify"
	"github.com/brewtrail/brewtrail/internal/model"
)

// mockQueue implements Queue for testing.
type mockQueue struct {
	enqueued []model.JobPayload
}

func (m *mockQueue) Enqueue(_ context.Context, payload model.JobPayload) (*model.ImportJob, error) {
	m.enqueued = append(m.enqueued, payload)
	return &model.ImportJob{ID: fmt.Sprintf("import-%s-0", payload.UserID), Status: model.JobStatusWaiting}, nil
}

func testService(t *testing.T, queue Queue, asyncThreshold int, maxPayload int64) (*Service, *mockVisits) {
	t.Helper()
	classifier, err := classify.New()
	require.NoError(t, err)

	visits := &mockVisits{}
	pipeline := NewPipeline(classifier, nil, nil, nil, &mockResolver{}, visits, nil)
	return NewService(pipeline, queue, nil, asyncThreshold, maxPayload), visits
}

func exportJSON(t *testing.T, names ...string) []byte {
	t.Helper()
	objects := make([]map[string]any, 0, len(names))
	for i, name := range names {
		objects = append(objects, map[string]any{
			"placeVisit": map[string]any{
				"location": map[string]any{
					"name":        name,
					"latitudeE7":  476000000 + i,
					"longitudeE7": -1223000000,
				},
				"duration": map[string]any{
					"startTimestamp": "2025-06-01T18:00:00Z",
					"endTimestamp":   "2025-06-01T19:00:00Z",
				},
			},
		})
	}
	raw, err := json.Marshal(map[string]any{"timelineObjects": objects})
	require.NoError(t, err)
	return raw
}

func TestImportSyncPath(t *testing.T) {
	svc, visits := testService(t, &mockQueue{}, 100, 0)

	result, err := svc.Import(context.Background(), "u1",
		exportJSON(t, "Fremont Brewing Brewery"), "takeout.json")
	require.NoError(t, err)
	require.NotNil(t, result.Summary)
	assert.Empty(t, result.JobID)
	assert.True(t, result.Summary.Success)
	assert.Equal(t, 1, result.Summary.VisitsCreated)
	assert.Len(t, visits.created, 1)
}

func TestImportAsyncAboveThreshold(t *testing.T) {
	queue := &mockQueue{}
	svc, visits := testService(t, queue, 2, 0)

	result, err := svc.Import(context.Background(), "u1",
		exportJSON(t, "A Brewery", "B Brewery", "C Brewery"), "big.json")
	require.NoError(t, err)
	assert.Nil(t, result.Summary)
	assert.NotEmpty(t, result.JobID)
	require.Len(t, queue.enqueued, 1)
	assert.Len(t, queue.enqueued[0].Places, 3)
	assert.Empty(t, visits.created)
}

func TestImportAtThresholdStaysSync(t *testing.T) {
	queue := &mockQueue{}
	svc, _ := testService(t, queue, 2, 0)

	result, err := svc.Import(context.Background(), "u1",
		exportJSON(t, "A Brewery", "B Brewery"), "")
	require.NoError(t, err)
	require.NotNil(t, result.Summary)
	assert.Empty(t, queue.enqueued)
}

func TestImportOversizedPayloadRejected(t *testing.T) {
	svc, _ := testService(t, &mockQueue{}, 100, 10)

	_, err := svc.Import(context.Background(), "u1",
		exportJSON(t, "Fremont Brewing Brewery"), "")
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestImportUnparseableRootFailsCleanly(t *testing.T) {
	svc, visits := testService(t, &mockQueue{}, 100, 0)

	result, err := svc.Import(context.Background(), "u1",
		[]byte(`{"unexpected": true}`), "")
	require.NoError(t, err)
	require.NotNil(t, result.Summary)
	assert.False(t, result.Summary.Success)
	require.NotEmpty(t, result.Summary.Errors)
	assert.Equal(t, model.ErrCodeInvalidFormat, result.Summary.Errors[0].Code)
	assert.Zero(t, result.Summary.VisitsCreated)
	assert.Empty(t, visits.created)
}

func TestImportMalformedJSONFailsCleanly(t *testing.T) {
	svc, _ := testService(t, &mockQueue{}, 100, 0)

	result, err := svc.Import(context.Background(), "u1", []byte(`{{{`), "")
	require.NoError(t, err)
	require.NotNil(t, result.Summary)
	assert.False(t, result.Summary.Success)
	assert.NotEmpty(t, result.Summary.Errors)
}

func TestImportReimportIsIdempotent(t *testing.T) {
	classifier, err := classify.New()
	require.NoError(t, err)

	visits := &mockVisits{duplicates: map[string]bool{}}
	pipeline := NewPipeline(classifier, nil, nil, nil, &mockResolver{}, visits, nil)
	svc := NewService(pipeline, nil, nil, 100, 0)

	raw := exportJSON(t, "Fremont Brewing Brewery")

	first, err := svc.Import(context.Background(), "u1", raw, "")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Summary.VisitsCreated)

	// Second run sees the visit already recorded.
	visits.duplicates["venue-Fremont Brewing Brewery"] = true

	second, err := svc.Import(context.Background(), "u1", raw, "")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Summary.VisitsCreated)
	assert.Equal(t, 1, second.Summary.VisitsSkipped)
	require.Len(t, second.Summary.Errors, 1)
	assert.Equal(t, model.ErrCodeDuplicateVisit, second.Summary.Errors[0].Code)
}
