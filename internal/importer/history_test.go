package importer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewtrail/brewtrail/internal/model"
)

func newMockHistoryStore(t *testing.T) (*PostgresHistoryStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresHistoryStore{pool: mock}
	return s, mock
}

func TestHistoryStore_Create(t *testing.T) {
	s, mock := newMockHistoryStore(t)

	mock.ExpectExec(`INSERT INTO import_history`).
		WithArgs(pgxmock.AnyArg(), "u1", "google_timeline", "takeout.json", "",
			10, 7, 3, 2, 5, int64(1200),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := &model.ImportHistoryRecord{
		UserID:           "u1",
		Source:           "google_timeline",
		FileName:         "takeout.json",
		TotalPlaces:      10,
		VisitsCreated:    7,
		VisitsSkipped:    3,
		NewVenues:        2,
		MatchedVenues:    5,
		ProcessingTimeMS: 1200,
		TierStats:        model.TierStats{Tier1: 4, Tier2: 2, Tier3: 1, Unverified: 3},
	}

	require.NoError(t, s.Create(context.Background(), rec))
	assert.NotEmpty(t, rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_List(t *testing.T) {
	s, mock := newMockHistoryStore(t)

	tierJSON, err := json.Marshal(model.TierStats{Tier1: 2})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT count\(\*\) FROM import_history`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	mock.ExpectQuery(`SELECT .+ FROM import_history`).
		WithArgs("u1", 2, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "source", "file_name", "job_id",
			"total_places", "visits_created", "visits_skipped", "new_venues",
			"matched_venues", "processing_time_ms", "errors", "tier_stats", "created_at",
		}).AddRow(
			"h1", "u1", "google_timeline", "a.json", "",
			2, 2, 0, 1, 1, int64(300), []byte(nil), tierJSON, time.Now().UTC(),
		))

	records, total, err := s.List(context.Background(), "u1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, records, 1)
	assert.Equal(t, "h1", records[0].ID)
	assert.Equal(t, 2, records[0].TierStats.Tier1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_ListCapsPageSize(t *testing.T) {
	s, mock := newMockHistoryStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM import_history`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(`SELECT .+ FROM import_history`).
		WithArgs("u1", maxHistoryPageSize, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "source", "file_name", "job_id",
			"total_places", "visits_created", "visits_skipped", "new_venues",
			"matched_venues", "processing_time_ms", "errors", "tier_stats", "created_at",
		}))

	records, total, err := s.List(context.Background(), "u1", 5000, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}
