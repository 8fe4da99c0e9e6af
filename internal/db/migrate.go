package db

import (
	"context"

	"github.com/rotisserie/eris"
)

// migration is the full schema. PostGIS backs venue proximity search; the
// partial unique index on rounded coordinates + name stops concurrent
// imports from racing to create near-duplicate venues.
const migration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS venues (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	street            TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	state             TEXT NOT NULL DEFAULT '',
	postal_code       TEXT NOT NULL DEFAULT '',
	country           TEXT NOT NULL DEFAULT '',
	latitude          DOUBLE PRECISION NOT NULL,
	longitude         DOUBLE PRECISION NOT NULL,
	geog              GEOGRAPHY(Point, 4326) NOT NULL,
	type              TEXT NOT NULL,
	source            TEXT NOT NULL,
	external_place_id TEXT,
	verification_tier INTEGER NOT NULL DEFAULT 0,
	metadata          JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_venues_external_place_id
	ON venues(external_place_id) WHERE external_place_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_venues_rounded_coords_name
	ON venues(round(latitude::numeric, 4), round(longitude::numeric, 4), lower(name));
CREATE INDEX IF NOT EXISTS idx_venues_geog ON venues USING GIST(geog);

CREATE TABLE IF NOT EXISTS visits (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	venue_id    TEXT NOT NULL REFERENCES venues(id),
	arrival     TIMESTAMPTZ NOT NULL,
	departure   TIMESTAMPTZ NOT NULL,
	active      BOOLEAN NOT NULL DEFAULT FALSE,
	source      TEXT NOT NULL,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_visits_user_venue_arrival
	ON visits(user_id, venue_id, arrival);
CREATE INDEX IF NOT EXISTS idx_visits_user_id ON visits(user_id);

CREATE TABLE IF NOT EXISTS import_history (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	source             TEXT NOT NULL,
	file_name          TEXT NOT NULL DEFAULT '',
	job_id             TEXT,
	total_places       INTEGER NOT NULL,
	visits_created     INTEGER NOT NULL,
	visits_skipped     INTEGER NOT NULL,
	new_venues         INTEGER NOT NULL,
	matched_venues     INTEGER NOT NULL,
	processing_time_ms BIGINT NOT NULL,
	errors             JSONB,
	tier_stats         JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_import_history_user_id
	ON import_history(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS import_jobs (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	file_name  TEXT NOT NULL DEFAULT '',
	payload    JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'waiting',
	progress   JSONB,
	result     JSONB,
	error      TEXT NOT NULL DEFAULT '',
	attempts   INTEGER NOT NULL DEFAULT 0,
	run_after  TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_import_jobs_status
	ON import_jobs(status, run_after);
`

// Migrate creates the schema. Idempotent.
func Migrate(ctx context.Context, pool Pool) error {
	_, err := pool.Exec(ctx, migration)
	return eris.Wrap(err, "db: migrate")
}
