// Package timeseries is the durable, hypertable-style store for ping
// samples: raw writes, minute/hour roll-up, and retention across a
// three-level resolution table. All timestamps are UTC.
package timeseries

import "time"

// PingSample is a single probe outcome at the raw resolution.
type PingSample struct {
	Time       time.Time `json:"time"`
	TargetID   int64     `json:"target_id"`
	LatencyMs  *float64  `json:"latency_ms"`
	Hops       *int      `json:"hops"`
	PacketLoss bool      `json:"packet_loss"`
}

// Resolution selects which retention level a query is served from.
type Resolution string

const (
	ResolutionRaw    Resolution = "raw"
	ResolutionMinute Resolution = "minute"
	ResolutionHour   Resolution = "hour"
	ResolutionAuto   Resolution = "auto"
)

// Retention windows and native bucket sizes per resolution level.
const (
	RawRetention    = 3 * 24 * time.Hour
	MinuteRetention = 30 * 24 * time.Hour
	// Hour-level aggregates are retained indefinitely (no auto-purge).

	RawBucket    = time.Second
	MinuteBucket = time.Minute
	HourBucket   = time.Hour

	// RollupLagMinute bounds how far the minute aggregate trails live data;
	// the current, still-filling bucket is never materialised (EndOffset).
	RollupLagMinute = 5 * time.Minute
	RollupEndOffset = time.Minute
	// RollupLagHour bounds how far the hour aggregate trails live data.
	RollupLagHour = time.Hour
)

// AggregateRow is one bucket of a MinuteAggregate or HourAggregate.
type AggregateRow struct {
	Bucket     time.Time
	TargetID   int64
	AvgLatency *float64
	MinLatency *float64
	MaxLatency *float64
	LossCount  int
	Samples    int
}

// truncate rounds t down to the nearest multiple of bucket, in UTC.
func truncate(t time.Time, bucket time.Duration) time.Time {
	return t.UTC().Truncate(bucket)
}
