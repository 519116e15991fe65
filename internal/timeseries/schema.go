package timeseries

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS monitor_targets (
	id                BIGSERIAL PRIMARY KEY,
	ip                TEXT NOT NULL UNIQUE,
	frequency_seconds INTEGER NOT NULL,
	is_active         BOOLEAN NOT NULL DEFAULT TRUE,
	deleted           BOOLEAN NOT NULL DEFAULT FALSE,
	url               TEXT,
	notes             TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	geo_country_code  TEXT,
	geo_country_name  TEXT,
	geo_city          TEXT,
	geo_latitude      DOUBLE PRECISION,
	geo_longitude     DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS event_log (
	id         BIGSERIAL PRIMARY KEY,
	target_id  BIGINT REFERENCES monitor_targets(id),
	event_type TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_event_log_target ON event_log(target_id, created_at DESC);

CREATE TABLE IF NOT EXISTS ping_samples (
	time        TIMESTAMPTZ NOT NULL,
	target_id   BIGINT NOT NULL REFERENCES monitor_targets(id),
	latency_ms  DOUBLE PRECISION,
	hops        INTEGER,
	packet_loss BOOLEAN NOT NULL,
	PRIMARY KEY (time, target_id)
);
CREATE INDEX IF NOT EXISTS idx_ping_samples_target_time ON ping_samples(target_id, time);

CREATE TABLE IF NOT EXISTS ping_minute_aggregates (
	bucket      TIMESTAMPTZ NOT NULL,
	target_id   BIGINT NOT NULL REFERENCES monitor_targets(id),
	avg_latency DOUBLE PRECISION,
	min_latency DOUBLE PRECISION,
	max_latency DOUBLE PRECISION,
	loss_count  INTEGER NOT NULL,
	samples     INTEGER NOT NULL,
	PRIMARY KEY (bucket, target_id)
);
CREATE INDEX IF NOT EXISTS idx_ping_minute_target_bucket ON ping_minute_aggregates(target_id, bucket);

CREATE TABLE IF NOT EXISTS ping_hour_aggregates (
	bucket      TIMESTAMPTZ NOT NULL,
	target_id   BIGINT NOT NULL REFERENCES monitor_targets(id),
	avg_latency DOUBLE PRECISION,
	min_latency DOUBLE PRECISION,
	max_latency DOUBLE PRECISION,
	loss_count  INTEGER NOT NULL,
	samples     INTEGER NOT NULL,
	PRIMARY KEY (bucket, target_id)
);
CREATE INDEX IF NOT EXISTS idx_ping_hour_target_bucket ON ping_hour_aggregates(target_id, bucket);
`

// InitSchema creates every table and index the store needs, and — when the
// running instance has the TimescaleDB extension installed — converts
// ping_samples into a hypertable. A plain PostgreSQL instance (e.g. in CI)
// is left with an ordinary indexed table; every query below works
// identically against either.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("timeseries: create schema: %w", err)
	}

	var hasTimescale bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'timescaledb')`,
	).Scan(&hasTimescale)
	if err != nil || !hasTimescale {
		return nil
	}

	// Best effort: a table that's already a hypertable, or one with existing
	// rows incompatible with conversion, simply stays as-is.
	_, _ = pool.Exec(ctx,
		`SELECT create_hypertable('ping_samples', 'time', if_not_exists => TRUE, migrate_data => TRUE)`)
	return nil
}
