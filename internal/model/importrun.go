package model

import (
	"encoding/json"
	"time"
)

// ErrorCode is a stable per-place failure code recorded in import summaries.
type ErrorCode string

const (
	ErrCodeInvalidFormat       ErrorCode = "INVALID_FORMAT"
	ErrCodeInvalidCoordinates  ErrorCode = "INVALID_COORDINATES"
	ErrCodeVerificationFailed  ErrorCode = "VERIFICATION_FAILED"
	ErrCodeDuplicateVisit      ErrorCode = "DUPLICATE_VISIT"
	ErrCodeVenueCreationFailed ErrorCode = "VENUE_CREATION_FAILED"
	ErrCodeVisitCreationFailed ErrorCode = "VISIT_CREATION_FAILED"
)

// ImportError records a single place's failure without aborting the run.
type ImportError struct {
	PlaceName string    `json:"place_name,omitempty"`
	Address   string    `json:"address,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Code      ErrorCode `json:"code"`
}

// TierStats counts how each place was resolved.
type TierStats struct {
	Tier1      int `json:"tier1_matches"`
	Tier2      int `json:"tier2_matches"`
	Tier3      int `json:"tier3_matches"`
	Unverified int `json:"unverified"`
}

// Total returns the number of places the stats account for.
func (t TierStats) Total() int {
	return t.Tier1 + t.Tier2 + t.Tier3 + t.Unverified
}

// ImportSummary is the result of one import run, identical for the sync and
// async paths.
type ImportSummary struct {
	Success          bool          `json:"success"`
	TotalPlaces      int           `json:"total_places"`
	VisitsCreated    int           `json:"visits_created"`
	VisitsSkipped    int           `json:"visits_skipped"`
	NewVenues        int           `json:"new_venues_created"`
	MatchedVenues    int           `json:"existing_venues_matched"`
	TierStats        TierStats     `json:"tier_statistics"`
	Errors           []ImportError `json:"errors"`
	ProcessingTimeMS int64         `json:"processing_time_ms"`
}

// ImportHistoryRecord is the persisted record of a completed import run.
// Immutable after write.
type ImportHistoryRecord struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	Source           string        `json:"source"`
	FileName         string        `json:"file_name,omitempty"`
	JobID            string        `json:"job_id,omitempty"`
	TotalPlaces      int           `json:"total_places"`
	VisitsCreated    int           `json:"visits_created"`
	VisitsSkipped    int           `json:"visits_skipped"`
	NewVenues        int           `json:"new_venues_created"`
	MatchedVenues    int           `json:"existing_venues_matched"`
	ProcessingTimeMS int64         `json:"processing_time_ms"`
	Errors           []ImportError `json:"errors,omitempty"`
	TierStats        TierStats     `json:"tier_statistics"`
	CreatedAt        time.Time     `json:"created_at"`
}

// JobStatus is the lifecycle state of an async import job.
type JobStatus string

const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobProgress is a coarse progress snapshot for client polling.
type JobProgress struct {
	Stage     string `json:"stage"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// ImportJob is a queued asynchronous import. Terminal rows are retained so
// status can be polled after completion.
type ImportJob struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	FileName  string          `json:"file_name,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Status    JobStatus       `json:"status"`
	Progress  *JobProgress    `json:"progress,omitempty"`
	Result    *ImportSummary  `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Attempts  int             `json:"attempts"`
	RunAfter  time.Time       `json:"run_after"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JobPayload is the serialized work an import job carries.
type JobPayload struct {
	UserID   string       `json:"user_id"`
	FileName string       `json:"file_name,omitempty"`
	Places   []PlaceVisit `json:"places"`
}
