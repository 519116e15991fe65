// Package analytics computes the Insights payload for a target over a
// rolling window: uptime, latency statistics, and a resolution-appropriate
// timeline. Every function here is pure — it operates on already-fetched
// []AggregateRow / []PingSample slices — so the windowing and statistics
// algorithm can be tested without a database.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/Poutchouli/PingMeDaddy/internal/timeseries"
)

// PercentileMode records whether latency percentiles were computed from raw
// samples (exact) or approximated from pre-aggregated buckets.
type PercentileMode string

const (
	PercentileExact       PercentileMode = "exact"
	PercentileApproximate PercentileMode = "approximate"
)

// TimelinePoint is one bucket of the rendered timeline.
type TimelinePoint struct {
	Bucket     time.Time `json:"bucket"`
	AvgLatency *float64  `json:"avg_latency"`
	MinLatency *float64  `json:"min_latency"`
	MaxLatency *float64  `json:"max_latency"`
	LossCount  int       `json:"loss_count"`
	Samples    int       `json:"samples"`
}

// Insights is the full computed payload for a target window.
type Insights struct {
	WindowStart time.Time             `json:"window_start"`
	WindowEnd   time.Time             `json:"window_end"`
	Resolution  timeseries.Resolution `json:"resolution"`
	// BucketSeconds is the native bucket width actually used, which may be
	// coarser than the caller requested when the chosen resolution is.
	BucketSeconds int `json:"bucket_seconds"`

	SampleCount int `json:"sample_count"`
	LossCount   int `json:"loss_count"`
	// UptimePercent is nil when SampleCount is 0 — there's nothing to
	// compute an uptime ratio from.
	UptimePercent *float64 `json:"uptime_percent"`

	MinLatency *float64 `json:"min_latency"`
	MaxLatency *float64 `json:"max_latency"`
	AvgLatency *float64 `json:"avg_latency"`

	P50  *float64       `json:"p50"`
	P95  *float64       `json:"p95"`
	P99  *float64       `json:"p99"`
	Mode PercentileMode `json:"percentile_mode"`

	Timeline []TimelinePoint `json:"timeline"`
}

// PickResolution implements step 2 of the windowing algorithm: raw if the
// window fits raw retention and the caller wants sub-minute granularity,
// else minute if it fits minute retention and wants sub-hour granularity,
// else hour.
func PickResolution(windowMinutes int, bucketSeconds int) timeseries.Resolution {
	windowSpan := time.Duration(windowMinutes) * time.Minute

	if bucketSeconds < 60 && windowSpan <= timeseries.RawRetention {
		return timeseries.ResolutionRaw
	}
	if bucketSeconds < 3600 && windowSpan <= timeseries.MinuteRetention {
		return timeseries.ResolutionMinute
	}
	return timeseries.ResolutionHour
}

// AlignWindow implements step 1: derive [window_start, window_end], both
// aligned down to the nearest bucketSeconds boundary.
func AlignWindow(now time.Time, windowMinutes, bucketSeconds int) (start, end time.Time) {
	bucket := time.Duration(bucketSeconds) * time.Second
	if bucket <= 0 {
		bucket = time.Second
	}
	end = now.UTC().Truncate(bucket)
	start = end.Add(-time.Duration(windowMinutes) * time.Minute).Truncate(bucket)
	return start, end
}

// nativeBucketSeconds returns the bucket width a resolution actually stores
// data at, used to label the response when it's coarser than requested.
func nativeBucketSeconds(r timeseries.Resolution) int {
	switch r {
	case timeseries.ResolutionMinute:
		return 60
	case timeseries.ResolutionHour:
		return 3600
	default:
		return 1
	}
}

// Compute implements steps 3-6 over an already-fetched set of aggregate
// rows. rawSamples is only consulted when resolution is raw, to compute
// exact percentiles (step 5); it may be nil otherwise.
func Compute(resolution timeseries.Resolution, requestedBucketSeconds int, start, end time.Time, rows []timeseries.AggregateRow, rawSamples []timeseries.PingSample) Insights {
	out := Insights{
		WindowStart:   start,
		WindowEnd:     end,
		Resolution:    resolution,
		BucketSeconds: nativeBucketSeconds(resolution),
	}
	for _, row := range rows {
		out.SampleCount += row.Samples
		out.LossCount += row.LossCount
	}

	if out.SampleCount == 0 {
		out.Mode = modeFor(resolution)
		return out
	}
	out.UptimePercent = ptr(100 * (1 - float64(out.LossCount)/float64(out.SampleCount)))

	out.MinLatency, out.MaxLatency, out.AvgLatency = latencyStats(rows)
	out.Timeline = buildTimeline(rows, out.BucketSeconds, requestedBucketSeconds)

	if resolution == timeseries.ResolutionRaw {
		out.Mode = PercentileExact
		out.P50, out.P95, out.P99 = exactPercentiles(rawSamples)
	} else {
		out.Mode = PercentileApproximate
		out.P50, out.P95, out.P99 = approximatePercentiles(rows, out.AvgLatency, out.MaxLatency)
	}

	return out
}

func modeFor(r timeseries.Resolution) PercentileMode {
	if r == timeseries.ResolutionRaw {
		return PercentileExact
	}
	return PercentileApproximate
}

// latencyStats computes min/max/avg over non-loss buckets, weighting the
// average by each bucket's sample count so a bucket with more samples
// contributes proportionally more to the window average.
func latencyStats(rows []timeseries.AggregateRow) (min, max, avg *float64) {
	var weightedSum float64
	var weight int
	var lo, hi float64
	has := false

	for _, row := range rows {
		nonLoss := row.Samples - row.LossCount
		if nonLoss <= 0 || row.AvgLatency == nil {
			continue
		}
		weightedSum += *row.AvgLatency * float64(nonLoss)
		weight += nonLoss

		if row.MinLatency != nil && (!has || *row.MinLatency < lo) {
			lo = *row.MinLatency
		}
		if row.MaxLatency != nil && (!has || *row.MaxLatency > hi) {
			hi = *row.MaxLatency
		}
		has = true
	}

	if !has || weight == 0 {
		return nil, nil, nil
	}
	avgVal := weightedSum / float64(weight)
	return ptr(lo), ptr(hi), ptr(avgVal)
}

// exactPercentiles computes p50/p95/p99 directly from raw non-loss samples,
// available only at raw resolution.
func exactPercentiles(samples []timeseries.PingSample) (p50, p95, p99 *float64) {
	values := make([]float64, 0, len(samples))
	for _, sm := range samples {
		if sm.PacketLoss || sm.LatencyMs == nil {
			continue
		}
		values = append(values, *sm.LatencyMs)
	}
	if len(values) == 0 {
		return nil, nil, nil
	}
	sort.Float64s(values)
	return ptr(percentile(values, 50)), ptr(percentile(values, 95)), ptr(percentile(values, 99))
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// approximatePercentiles implements the documented fallback for
// aggregate-only data: p50 ≈ avg, p95 ≈ the max latency among buckets in the
// top decile by avg latency, p99 ≈ the window max.
func approximatePercentiles(rows []timeseries.AggregateRow, avg, windowMax *float64) (p50, p95, p99 *float64) {
	if avg == nil || windowMax == nil {
		return nil, nil, nil
	}
	p50 = ptr(*avg)
	p99 = ptr(*windowMax)

	type scored struct {
		avg float64
		max float64
	}
	var withAvg []scored
	for _, row := range rows {
		if row.AvgLatency == nil || row.MaxLatency == nil {
			continue
		}
		withAvg = append(withAvg, scored{avg: *row.AvgLatency, max: *row.MaxLatency})
	}
	if len(withAvg) == 0 {
		p95 = ptr(*windowMax)
		return p50, p95, p99
	}

	sort.Slice(withAvg, func(i, j int) bool { return withAvg[i].avg < withAvg[j].avg })
	decileStart := len(withAvg) - int(math.Ceil(float64(len(withAvg))*0.1))
	if decileStart < 0 {
		decileStart = 0
	}
	topDecile := withAvg[decileStart:]

	topMax := topDecile[0].max
	for _, s := range topDecile {
		if s.max > topMax {
			topMax = s.max
		}
	}
	p95 = ptr(topMax)
	return p50, p95, p99
}

// buildTimeline renders rows as timeline points. When the resolution's
// native bucket width is finer than the caller's requested bucket width
// (e.g. raw/1s rows but bucket_seconds=30), rows are merged into buckets of
// the requested width instead of emitted one-for-one.
func buildTimeline(rows []timeseries.AggregateRow, nativeBucketSeconds, requestedBucketSeconds int) []TimelinePoint {
	if requestedBucketSeconds <= nativeBucketSeconds || requestedBucketSeconds <= 0 {
		out := make([]TimelinePoint, 0, len(rows))
		for _, row := range rows {
			out = append(out, TimelinePoint{
				Bucket:     row.Bucket,
				AvgLatency: row.AvgLatency,
				MinLatency: row.MinLatency,
				MaxLatency: row.MaxLatency,
				LossCount:  row.LossCount,
				Samples:    row.Samples,
			})
		}
		return out
	}
	return mergeTimeline(rows, time.Duration(requestedBucketSeconds)*time.Second)
}

// mergeTimeline groups rows into buckets of the given width, merging sample
// counts, loss counts, and latency stats within each merged bucket.
func mergeTimeline(rows []timeseries.AggregateRow, bucket time.Duration) []TimelinePoint {
	type acc struct {
		point       TimelinePoint
		weightedSum float64
		weight      int
		hasLatency  bool
	}
	order := make([]time.Time, 0)
	merged := make(map[time.Time]*acc)

	for _, row := range rows {
		key := row.Bucket.Truncate(bucket)
		a, ok := merged[key]
		if !ok {
			a = &acc{point: TimelinePoint{Bucket: key}}
			merged[key] = a
			order = append(order, key)
		}
		a.point.Samples += row.Samples
		a.point.LossCount += row.LossCount

		nonLoss := row.Samples - row.LossCount
		if nonLoss > 0 && row.AvgLatency != nil {
			a.weightedSum += *row.AvgLatency * float64(nonLoss)
			a.weight += nonLoss
			if row.MinLatency != nil && (!a.hasLatency || *row.MinLatency < *a.point.MinLatency) {
				a.point.MinLatency = row.MinLatency
			}
			if row.MaxLatency != nil && (!a.hasLatency || *row.MaxLatency > *a.point.MaxLatency) {
				a.point.MaxLatency = row.MaxLatency
			}
			a.hasLatency = true
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	out := make([]TimelinePoint, 0, len(order))
	for _, key := range order {
		a := merged[key]
		if a.weight > 0 {
			a.point.AvgLatency = ptr(a.weightedSum / float64(a.weight))
		}
		out = append(out, a.point)
	}
	return out
}

func ptr(v float64) *float64 { return &v }
