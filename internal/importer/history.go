package importer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/brewtrail/brewtrail/internal/db"
	"github.com/brewtrail/brewtrail/internal/model"
)

// maxHistoryPageSize caps a single history page.
const maxHistoryPageSize = 100

// PostgresHistoryStore persists import-history records in PostgreSQL.
type PostgresHistoryStore struct {
	pool db.Pool
}

// NewPostgresHistoryStore creates a history store backed by the given pool.
func NewPostgresHistoryStore(pool db.Pool) *PostgresHistoryStore {
	return &PostgresHistoryStore{pool: pool}
}

func (s *PostgresHistoryStore) Create(ctx context.Context, rec *model.ImportHistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	errorsJSON, err := json.Marshal(rec.Errors)
	if err != nil {
		return eris.Wrap(err, "history: marshal errors")
	}
	tierJSON, err := json.Marshal(rec.TierStats)
	if err != nil {
		return eris.Wrap(err, "history: marshal tier stats")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_history
			(id, user_id, source, file_name, job_id, total_places, visits_created,
			 visits_skipped, new_venues, matched_venues, processing_time_ms,
			 errors, tier_stats, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.UserID, rec.Source, rec.FileName, rec.JobID,
		rec.TotalPlaces, rec.VisitsCreated, rec.VisitsSkipped,
		rec.NewVenues, rec.MatchedVenues, rec.ProcessingTimeMS,
		errorsJSON, tierJSON, rec.CreatedAt)
	return eris.Wrap(err, "history: insert")
}

// List returns a user's import history, newest first, along with the total
// record count for pagination.
func (s *PostgresHistoryStore) List(ctx context.Context, userID string, limit, offset int) ([]model.ImportHistoryRecord, int, error) {
	if limit <= 0 || limit > maxHistoryPageSize {
		limit = maxHistoryPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM import_history WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, eris.Wrap(err, "history: count")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, source, file_name, COALESCE(job_id, ''),
			total_places, visits_created, visits_skipped, new_venues,
			matched_venues, processing_time_ms, errors, tier_stats, created_at
		 FROM import_history
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, eris.Wrap(err, "history: list")
	}
	defer rows.Close()

	records := []model.ImportHistoryRecord{}
	for rows.Next() {
		var (
			rec        model.ImportHistoryRecord
			errorsJSON []byte
			tierJSON   []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Source, &rec.FileName, &rec.JobID,
			&rec.TotalPlaces, &rec.VisitsCreated, &rec.VisitsSkipped,
			&rec.NewVenues, &rec.MatchedVenues, &rec.ProcessingTimeMS,
			&errorsJSON, &tierJSON, &rec.CreatedAt,
		); err != nil {
			return nil, 0, eris.Wrap(err, "history: scan")
		}
		if len(errorsJSON) > 0 {
			if err := json.Unmarshal(errorsJSON, &rec.Errors); err != nil {
				return nil, 0, eris.Wrap(err, "history: unmarshal errors")
			}
		}
		if len(tierJSON) > 0 {
			if err := json.Unmarshal(tierJSON, &rec.TierStats); err != nil {
				return nil, 0, eris.Wrap(err, "history: unmarshal tier stats")
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, eris.Wrap(err, "history: rows")
	}

	return records, total, nil
}
