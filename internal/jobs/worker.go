package jobs

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brewtrail/brewtrail/internal/model"
	"github.com/brewtrail/brewtrail/internal/resilience"
)

// Runner executes one import run. Satisfied by the importer pipeline.
type Runner interface {
	Run(ctx context.Context, userID string, places []model.PlaceVisit, fileName, jobID string) *model.ImportSummary
}

// WorkerConfig tunes the worker pool.
type WorkerConfig struct {
	Concurrency    int
	MaxAttempts    int
	InitialBackoff time.Duration
	PollInterval   time.Duration
}

// DefaultWorkerConfig returns the production worker settings.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Concurrency:    5,
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		PollInterval:   time.Second,
	}
}

// Worker polls the queue and runs claimed jobs on a bounded pool.
type Worker struct {
	store  Store
	runner Runner
	cfg    WorkerConfig
}

// NewWorker creates a worker pool over the store and runner.
func NewWorker(store Store, runner Runner, cfg WorkerConfig) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Worker{store: store, runner: runner, cfg: cfg}
}

// Start runs the pool until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		worker := i
		g.Go(func() error {
			return w.loop(ctx, worker)
		})
	}
	return g.Wait()
}

func (w *Worker) loop(ctx context.Context, worker int) error {
	log := zap.L().With(zap.Int("worker", worker))
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		job, err := w.store.ClaimNext(ctx)
		if err != nil {
			log.Warn("claim failed", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}

		w.process(ctx, log, job)
	}
}

func (w *Worker) process(ctx context.Context, log *zap.Logger, job *model.ImportJob) {
	log = log.With(zap.String("job_id", job.ID), zap.Int("attempt", job.Attempts))
	log.Info("job started")

	var payload model.JobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		// A payload that never unmarshals will never succeed; fail outright.
		log.Error("job payload corrupt", zap.Error(err))
		w.finishFailed(ctx, log, job.ID, "corrupt job payload")
		return
	}

	w.checkpoint(ctx, log, job.ID, model.JobProgress{
		Stage: "processing", Processed: 0, Total: len(payload.Places),
	})

	summary := w.runner.Run(ctx, payload.UserID, payload.Places, payload.FileName, job.ID)

	if !summary.Success {
		w.handleFailure(ctx, log, job, "import run failed")
		return
	}

	w.checkpoint(ctx, log, job.ID, model.JobProgress{
		Stage: "completed", Processed: len(payload.Places), Total: len(payload.Places),
	})

	if err := w.store.Complete(ctx, job.ID, summary); err != nil {
		log.Error("job completion write failed", zap.Error(err))
		return
	}
	log.Info("job completed",
		zap.Int("visits_created", summary.VisitsCreated),
		zap.Int64("elapsed_ms", summary.ProcessingTimeMS))
}

// handleFailure requeues with doubling backoff until attempts run out.
func (w *Worker) handleFailure(ctx context.Context, log *zap.Logger, job *model.ImportJob, reason string) {
	if job.Attempts >= w.cfg.MaxAttempts {
		w.finishFailed(ctx, log, job.ID, reason)
		return
	}

	backoff := resilience.Backoff(job.Attempts-1, resilience.RetryConfig{
		InitialBackoff: w.cfg.InitialBackoff,
		JitterFraction: 0,
	})
	runAfter := time.Now().UTC().Add(backoff)
	if err := w.store.Retry(ctx, job.ID, reason, runAfter); err != nil {
		log.Error("job retry write failed", zap.Error(err))
		return
	}
	log.Warn("job requeued", zap.Duration("backoff", backoff))
}

func (w *Worker) finishFailed(ctx context.Context, log *zap.Logger, id, reason string) {
	if err := w.store.Fail(ctx, id, reason); err != nil {
		log.Error("job failure write failed", zap.Error(err))
		return
	}
	log.Error("job failed permanently", zap.String("reason", reason))
}

func (w *Worker) checkpoint(ctx context.Context, log *zap.Logger, id string, progress model.JobProgress) {
	if err := w.store.UpdateProgress(ctx, id, progress); err != nil {
		log.Warn("progress write failed", zap.Error(err))
	}
}
