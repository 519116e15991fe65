package timeseries

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Poutchouli/PingMeDaddy/internal/apierr"
)

// Store is the time-series persistence and query surface: append-only raw
// writes, idempotent on (time, target_id), and reads over raw/minute/hour
// resolutions.
type Store struct {
	pool    *pgxpool.Pool
	writer  *writer
	streams *Broadcaster
}

// New wraps an already-connected pool. Callers are expected to have run
// InitSchema against the same pool (or an equivalent migration) first.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, writer: newWriter(256), streams: newBroadcaster()}
}

// Subscribe registers for a live tail of newly inserted samples for
// targetID, for the /stream WebSocket handler.
func (s *Store) Subscribe(targetID int64) (<-chan PingSample, func()) {
	return s.streams.Subscribe(targetID)
}

// Close stops the serialized writer goroutine. It does not close the pool,
// which the construction root owns.
func (s *Store) Close() {
	s.writer.close()
}

// InsertSample is idempotent on (time, target_id): a duplicate insert for
// the same key is a no-op, never an error.
func (s *Store) InsertSample(ctx context.Context, sample PingSample) error {
	return s.InsertSamples(ctx, []PingSample{sample})
}

// InsertSamples writes a batch atomically and idempotently. Order within
// the batch does not need to be time-sorted; out-of-order inserts (e.g.
// batch seeding) are supported without corrupting aggregates, since roll-up
// recomputes over a defined source window rather than incrementally.
func (s *Store) InsertSamples(ctx context.Context, batch []PingSample) error {
	if len(batch) == 0 {
		return nil
	}
	err := s.writer.submit(ctx, func(ctx context.Context) error {
		return s.insertBatchDirect(ctx, batch)
	})
	if err == nil {
		for _, sm := range batch {
			s.streams.publish(sm)
		}
	}
	return err
}

// insertBatchDirect builds a single multi-row upsert so a batch is one
// round trip and one transaction-free statement, idempotent via
// ON CONFLICT DO NOTHING on the (time, target_id) primary key.
func (s *Store) insertBatchDirect(ctx context.Context, batch []PingSample) error {
	const perRow = 5
	args := make([]any, 0, len(batch)*perRow)
	values := ""
	for i, sm := range batch {
		if i > 0 {
			values += ","
		}
		base := i * perRow
		values += fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, sm.Time.UTC(), sm.TargetID, sm.LatencyMs, sm.Hops, sm.PacketLoss)
	}

	query := `INSERT INTO ping_samples (time, target_id, latency_ms, hops, packet_loss)
		VALUES ` + values + `
		ON CONFLICT (time, target_id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query, args...)
	return err
}

// QueryRaw returns up to limit raw samples for a target, oldest-first,
// since the given instant. limit is not clamped here: the logs handler
// clamps it to [1, 1000], while the insights handler and
// queryRawAsAggregate pass 100000.
func (s *Store) QueryRaw(ctx context.Context, targetID int64, since time.Time, limit int) ([]PingSample, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT time, target_id, latency_ms, hops, packet_loss
		 FROM ping_samples
		 WHERE target_id = $1 AND time >= $2
		 ORDER BY time ASC
		 LIMIT $3`,
		targetID, since.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("timeseries: query raw: %w: %w", apierr.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanSamples(rows)
}

func scanSamples(rows pgx.Rows) ([]PingSample, error) {
	var out []PingSample
	for rows.Next() {
		var sm PingSample
		if err := rows.Scan(&sm.Time, &sm.TargetID, &sm.LatencyMs, &sm.Hops, &sm.PacketLoss); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// StreamRawFunc is invoked once per sample, in ascending time order; the
// store never materialises the full result set in memory.
type StreamRawFunc func(PingSample) error

// StreamRaw streams every raw sample for a target, scanning and emitting
// result rows one at a time as they are read, used by the CSV export
// handler so an arbitrarily long history never blows up process memory.
func (s *Store) StreamRaw(ctx context.Context, targetID int64, emit StreamRawFunc) error {
	rows, err := s.pool.Query(ctx,
		`SELECT time, target_id, latency_ms, hops, packet_loss
		 FROM ping_samples
		 WHERE target_id = $1
		 ORDER BY time ASC`,
		targetID,
	)
	if err != nil {
		return fmt.Errorf("timeseries: stream raw: %w: %w", apierr.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sm PingSample
		if err := rows.Scan(&sm.Time, &sm.TargetID, &sm.LatencyMs, &sm.Hops, &sm.PacketLoss); err != nil {
			return err
		}
		if err := emit(sm); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r Resolution) table() string {
	switch r {
	case ResolutionMinute:
		return "ping_minute_aggregates"
	case ResolutionHour:
		return "ping_hour_aggregates"
	default:
		return ""
	}
}

// QueryAggregate returns aggregate rows in [from, to) at the requested
// resolution. ResolutionRaw synthesizes one AggregateRow per raw sample
// (samples=1, loss_count=0 or 1) so analytics can treat every resolution
// uniformly; ResolutionAuto is resolved by the caller (internal/analytics
// owns that policy).
func (s *Store) QueryAggregate(ctx context.Context, targetID int64, from, to time.Time, resolution Resolution) ([]AggregateRow, error) {
	if resolution == ResolutionRaw {
		return s.queryRawAsAggregate(ctx, targetID, from, to)
	}

	table := resolution.table()
	if table == "" {
		return nil, fmt.Errorf("timeseries: unsupported resolution %q", resolution)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT bucket, target_id, avg_latency, min_latency, max_latency, loss_count, samples
		 FROM `+table+`
		 WHERE target_id = $1 AND bucket >= $2 AND bucket < $3
		 ORDER BY bucket ASC`,
		targetID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("timeseries: query aggregate: %w: %w", apierr.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []AggregateRow
	for rows.Next() {
		var row AggregateRow
		if err := rows.Scan(&row.Bucket, &row.TargetID, &row.AvgLatency, &row.MinLatency, &row.MaxLatency, &row.LossCount, &row.Samples); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// targetsWithSamplesSince returns the distinct targets with at least one raw
// sample at or after since — the candidate set for a minute roll-up pass.
func (s *Store) targetsWithSamplesSince(ctx context.Context, since time.Time) ([]int64, error) {
	return s.targetIDsSince(ctx, "ping_samples", "time", since)
}

// targetsWithMinuteAggSince returns the distinct targets with at least one
// minute aggregate bucket at or after since — the candidate set for an hour
// roll-up pass.
func (s *Store) targetsWithMinuteAggSince(ctx context.Context, since time.Time) ([]int64, error) {
	return s.targetIDsSince(ctx, "ping_minute_aggregates", "bucket", since)
}

func (s *Store) targetIDsSince(ctx context.Context, table, column string, since time.Time) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT target_id FROM `+table+` WHERE `+column+` >= $1`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("timeseries: target ids since: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// computeBucketFromRaw aggregates raw ping_samples in [bucketStart, bucketEnd)
// into a single AggregateRow, used to materialise a minute bucket.
func (s *Store) computeBucketFromRaw(ctx context.Context, targetID int64, bucketStart, bucketEnd time.Time) (AggregateRow, error) {
	return s.computeBucket(ctx, "ping_samples", "time", "latency_ms", "packet_loss", targetID, bucketStart, bucketEnd)
}

// computeBucketFromMinute aggregates minute buckets in [bucketStart, bucketEnd)
// into a single AggregateRow, used to materialise an hour bucket. An hour
// bucket's loss_count and samples are sums of the underlying minute counts,
// not re-derived from raw data, so a purged minute source still rolls up
// correctly as long as the hour pass runs before purge (I4).
func (s *Store) computeBucketFromMinute(ctx context.Context, targetID int64, bucketStart, bucketEnd time.Time) (AggregateRow, error) {
	row := AggregateRow{Bucket: bucketStart, TargetID: targetID}

	var avg, min, max *float64
	var lossSum, sampleSum int
	err := s.pool.QueryRow(ctx,
		`SELECT avg(avg_latency), min(min_latency), max(max_latency),
		        coalesce(sum(loss_count), 0), coalesce(sum(samples), 0)
		 FROM ping_minute_aggregates
		 WHERE target_id = $1 AND bucket >= $2 AND bucket < $3`,
		targetID, bucketStart.UTC(), bucketEnd.UTC(),
	).Scan(&avg, &min, &max, &lossSum, &sampleSum)
	if err != nil {
		return AggregateRow{}, fmt.Errorf("timeseries: compute hour bucket: %w", err)
	}

	row.AvgLatency = avg
	row.MinLatency = min
	row.MaxLatency = max
	row.LossCount = lossSum
	row.Samples = sampleSum
	return row, nil
}

func (s *Store) computeBucket(ctx context.Context, table, timeCol, latencyCol, lossCol string, targetID int64, bucketStart, bucketEnd time.Time) (AggregateRow, error) {
	row := AggregateRow{Bucket: bucketStart, TargetID: targetID}

	var avg, min, max *float64
	var lossCount, total int
	err := s.pool.QueryRow(ctx,
		`SELECT avg(`+latencyCol+`), min(`+latencyCol+`), max(`+latencyCol+`),
		        coalesce(sum(CASE WHEN `+lossCol+` THEN 1 ELSE 0 END), 0), count(*)
		 FROM `+table+`
		 WHERE target_id = $1 AND `+timeCol+` >= $2 AND `+timeCol+` < $3`,
		targetID, bucketStart.UTC(), bucketEnd.UTC(),
	).Scan(&avg, &min, &max, &lossCount, &total)
	if err != nil {
		return AggregateRow{}, fmt.Errorf("timeseries: compute bucket: %w", err)
	}

	row.AvgLatency = avg
	row.MinLatency = min
	row.MaxLatency = max
	row.LossCount = lossCount
	row.Samples = total
	return row, nil
}

// upsertAggregate materialises agg into the given level's table. Re-running
// over the same bucket replaces its values rather than erroring or
// duplicating, so a roll-up pass can safely overlap the previous one's
// window (I4).
func (s *Store) upsertAggregate(ctx context.Context, level Resolution, agg AggregateRow) error {
	table := level.table()
	if table == "" {
		return fmt.Errorf("timeseries: unsupported roll-up level %q", level)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+table+` (bucket, target_id, avg_latency, min_latency, max_latency, loss_count, samples)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (bucket, target_id) DO UPDATE SET
		   avg_latency = EXCLUDED.avg_latency,
		   min_latency = EXCLUDED.min_latency,
		   max_latency = EXCLUDED.max_latency,
		   loss_count  = EXCLUDED.loss_count,
		   samples     = EXCLUDED.samples`,
		agg.Bucket.UTC(), agg.TargetID, agg.AvgLatency, agg.MinLatency, agg.MaxLatency, agg.LossCount, agg.Samples,
	)
	return err
}

// purgeBefore deletes every row in table with timeCol < cutoff and reports
// how many rows were removed.
func (s *Store) purgeBefore(ctx context.Context, table, timeCol string, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+table+` WHERE `+timeCol+` < $1`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) queryRawAsAggregate(ctx context.Context, targetID int64, from, to time.Time) ([]AggregateRow, error) {
	samples, err := s.QueryRaw(ctx, targetID, from.UTC(), 100000)
	if err != nil {
		return nil, err
	}
	out := make([]AggregateRow, 0, len(samples))
	for _, sm := range samples {
		if sm.Time.After(to) || sm.Time.Equal(to) {
			continue
		}
		row := AggregateRow{Bucket: sm.Time, TargetID: sm.TargetID, Samples: 1}
		if sm.PacketLoss {
			row.LossCount = 1
		} else {
			row.AvgLatency = sm.LatencyMs
			row.MinLatency = sm.LatencyMs
			row.MaxLatency = sm.LatencyMs
		}
		out = append(out, row)
	}
	return out, nil
}
