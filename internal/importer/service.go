package importer

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
	"github.com/brewtrail/brewtrail/internal/timeline"
)

// ErrPayloadTooLarge rejects oversized uploads before any parsing work.
var ErrPayloadTooLarge = eris.New("importer: payload exceeds size limit")

// Queue enqueues imports for asynchronous processing.
type Queue interface {
	Enqueue(ctx context.Context, payload model.JobPayload) (*model.ImportJob, error)
}

// HistoryLister pages a user's import history.
type HistoryLister interface {
	List(ctx context.Context, userID string, limit, offset int) ([]model.ImportHistoryRecord, int, error)
}

// Service is the import front door shared by the HTTP API and the CLI. It
// parses the raw export, then either runs the pipeline inline or hands the
// work to the job queue based on size.
type Service struct {
	pipeline        *Pipeline
	queue           Queue
	history         HistoryLister
	asyncThreshold  int
	maxPayloadBytes int64
}

// NewService wires the import service. queue may be nil, in which case every
// import runs synchronously regardless of size.
func NewService(pipeline *Pipeline, queue Queue, history HistoryLister, asyncThreshold int, maxPayloadBytes int64) *Service {
	return &Service{
		pipeline:        pipeline,
		queue:           queue,
		history:         history,
		asyncThreshold:  asyncThreshold,
		maxPayloadBytes: maxPayloadBytes,
	}
}

// ImportResult is either a completed summary (sync path) or a job id to
// poll (async path). Exactly one is set.
type ImportResult struct {
	Summary *model.ImportSummary `json:"summary,omitempty"`
	JobID   string               `json:"job_id,omitempty"`
}

// Import ingests one Timeline export for a user. Oversized payloads are
// rejected with ErrPayloadTooLarge before parsing; unparseable payloads
// produce a failed summary rather than an error so callers always get the
// same response shape for content problems.
func (s *Service) Import(ctx context.Context, userID string, raw []byte, fileName string) (*ImportResult, error) {
	if s.maxPayloadBytes > 0 && int64(len(raw)) > s.maxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}

	places, err := timeline.Normalize(raw)
	if err != nil {
		if errors.Is(err, timeline.ErrUnknownFormat) {
			return &ImportResult{Summary: FailureSummary(
				"unrecognized timeline export format", model.ErrCodeInvalidFormat)}, nil
		}
		return &ImportResult{Summary: FailureSummary(
			"timeline export could not be parsed", model.ErrCodeInvalidFormat)}, nil
	}

	if s.queue != nil && len(places) > s.asyncThreshold {
		job, err := s.queue.Enqueue(ctx, model.JobPayload{
			UserID:   userID,
			FileName: fileName,
			Places:   places,
		})
		if err != nil {
			return nil, eris.Wrap(err, "importer: enqueue")
		}
		zap.L().Info("import queued",
			zap.String("user_id", userID),
			zap.String("job_id", job.ID),
			zap.Int("places", len(places)))
		return &ImportResult{JobID: job.ID}, nil
	}

	return &ImportResult{Summary: s.pipeline.Run(ctx, userID, places, fileName, "")}, nil
}

// History returns a page of the user's import runs plus the total count.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]model.ImportHistoryRecord, int, error) {
	if s.history == nil {
		return []model.ImportHistoryRecord{}, 0, nil
	}
	return s.history.List(ctx, userID, limit, offset)
}
