package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/classify"
	"github.com/brewtrail/brewtrail/internal/db"
	"github.com/brewtrail/brewtrail/internal/importer"
	"github.com/brewtrail/brewtrail/internal/jobs"
	"github.com/brewtrail/brewtrail/internal/resilience"
	"github.com/brewtrail/brewtrail/internal/vcache"
	"github.com/brewtrail/brewtrail/internal/venue"
	"github.com/brewtrail/brewtrail/internal/verify"
	"github.com/brewtrail/brewtrail/internal/visit"
	"github.com/brewtrail/brewtrail/pkg/brewerydir"
	"github.com/brewtrail/brewtrail/pkg/overpass"
	"github.com/brewtrail/brewtrail/pkg/websearch"
)

// pipelineEnv bundles everything a command needs to run imports.
type pipelineEnv struct {
	Pool       *pgxpool.Pool
	Cache      *vcache.Cache
	Pipeline   *importer.Pipeline
	Service    *importer.Service
	Queue      *jobs.Queue
	JobStore   jobs.Store
	Discoverer *verify.Discoverer
	VenueStore venue.Store
	Trackers   []*resilience.FailureTracker
}

// Close releases the env's resources.
func (e *pipelineEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("cache close failed", zap.Error(err))
		}
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
}

func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	cache, err := vcache.Open(vcache.Options{
		Path:             cfg.Cache.Path,
		MemoryMaxEntries: cfg.Cache.MemoryMaxEntries,
		MemoryTTL:        cfg.Cache.MemoryTTL(),
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	classifier, err := classify.New()
	if err != nil {
		cache.Close()
		pool.Close()
		return nil, err
	}

	dirClient := brewerydir.NewClient(cfg.Directory.BaseURL,
		brewerydir.WithRequestsPerHour(cfg.Directory.RequestsPerHr))
	searchOpts := []websearch.Option{
		websearch.WithMinInterval(time.Duration(cfg.Search.MinIntervalMS) * time.Millisecond),
	}
	if len(cfg.Search.UserAgents) > 0 {
		searchOpts = append(searchOpts, websearch.WithUserAgents(cfg.Search.UserAgents))
	}
	searchClient := websearch.NewClient(cfg.Search.BaseURL, searchOpts...)
	osmClient := overpass.NewClient(cfg.Overpass.BaseURL,
		overpass.WithInterval(time.Duration(cfg.Overpass.IntervalSecs)*time.Second))

	tier2 := verify.NewTier2Verifier(dirClient, cache, cfg.Directory.PerPageResults)
	tier3 := verify.NewTier3Verifier(searchClient, cache)
	discoverer := verify.NewDiscoverer(osmClient, cache)

	venueStore := venue.NewPostgresStore(pool)
	matcher := venue.NewMatcher(venueStore)
	visits := visit.NewCreator(visit.NewPostgresStore(pool))
	history := importer.NewPostgresHistoryStore(pool)

	pipeline := importer.NewPipeline(classifier, tier2, tier3, discoverer, matcher, visits, history)

	jobStore := jobs.NewPostgresStore(pool)
	queue := jobs.NewQueue(jobStore)

	service := importer.NewService(pipeline, queue, history,
		cfg.Import.AsyncThreshold, cfg.Import.MaxPayloadBytes)

	return &pipelineEnv{
		Pool:       pool,
		Cache:      cache,
		Pipeline:   pipeline,
		Service:    service,
		Queue:      queue,
		JobStore:   jobStore,
		Discoverer: discoverer,
		VenueStore: venueStore,
		Trackers:   []*resilience.FailureTracker{tier2.Tracker(), tier3.Tracker()},
	}, nil
}
