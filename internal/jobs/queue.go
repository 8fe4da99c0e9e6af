package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
)

// Queue enqueues imports and answers status polls.
type Queue struct {
	store Store
	now   func() time.Time
}

// NewQueue creates a queue on the given store.
func NewQueue(store Store) *Queue {
	return &Queue{store: store, now: time.Now}
}

// Enqueue persists a waiting import job. The id embeds the user and the
// enqueue second, which makes accidental double-submits from UI retries
// collide instead of importing twice.
func (q *Queue) Enqueue(ctx context.Context, payload model.JobPayload) (*model.ImportJob, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: marshal payload")
	}

	now := q.now().UTC()
	job := &model.ImportJob{
		ID:       fmt.Sprintf("import-%s-%d", payload.UserID, now.Unix()),
		UserID:   payload.UserID,
		FileName: payload.FileName,
		Payload:  raw,
		Status:   model.JobStatusWaiting,
		RunAfter: now,
	}

	if err := q.store.Insert(ctx, job); err != nil {
		return nil, err
	}

	zap.L().Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("user_id", payload.UserID),
		zap.Int("places", len(payload.Places)))
	return job, nil
}

// Status returns the job for polling. ErrNotFound for unknown ids.
func (q *Queue) Status(ctx context.Context, id string) (*model.ImportJob, error) {
	return q.store.Get(ctx, id)
}

// List returns recent jobs, newest first.
func (q *Queue) List(ctx context.Context, limit int) ([]model.ImportJob, error) {
	return q.store.List(ctx, limit)
}
