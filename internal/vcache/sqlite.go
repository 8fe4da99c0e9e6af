package vcache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// sqliteTier is the persistent cache tier, a local SQLite database in WAL
// mode. It survives restarts so verified results outlive the process.
type sqliteTier struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS verification_cache (
	kind       TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	PRIMARY KEY (kind, key)
);

CREATE INDEX IF NOT EXISTS idx_verification_cache_expires_at
	ON verification_cache(expires_at);
`

func openSQLiteTier(path string) (*sqliteTier, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "vcache: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "vcache: exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "vcache: migrate")
	}
	return &sqliteTier{db: db}, nil
}

func (s *sqliteTier) get(ctx context.Context, kind Kind, key string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM verification_cache
		 WHERE kind = ? AND key = ? AND expires_at > ?`,
		string(kind), key, time.Now().UTC(),
	)

	var value []byte
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "vcache: get")
	}
	return value, nil
}

func (s *sqliteTier) set(ctx context.Context, kind Kind, key string, value []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_cache (kind, key, value, cached_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (kind, key) DO UPDATE SET
		   value = excluded.value,
		   cached_at = excluded.cached_at,
		   expires_at = excluded.expires_at`,
		string(kind), key, value, now, now.Add(ttl),
	)
	return eris.Wrap(err, "vcache: set")
}

func (s *sqliteTier) clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM verification_cache`)
	return eris.Wrap(err, "vcache: clear")
}

func (s *sqliteTier) purgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM verification_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "vcache: purge expired")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "vcache: rows affected")
}

func (s *sqliteTier) count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_cache WHERE expires_at > ?`, time.Now().UTC(),
	).Scan(&n)
	return n, eris.Wrap(err, "vcache: count")
}

func (s *sqliteTier) close() error {
	return s.db.Close()
}
