package analytics

import (
	"testing"
	"time"

	"github.com/Poutchouli/PingMeDaddy/internal/timeseries"
)

func f(v float64) *float64 { return &v }

func TestPickResolution(t *testing.T) {
	cases := []struct {
		name          string
		windowMinutes int
		bucketSeconds int
		want          timeseries.Resolution
	}{
		{"sub-minute bucket, short window -> raw", 30, 10, timeseries.ResolutionRaw},
		{"sub-hour bucket, mid window -> minute", 60 * 24 * 10, 300, timeseries.ResolutionMinute},
		{"hour bucket, long window -> hour", 60 * 24 * 60, 7200, timeseries.ResolutionHour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PickResolution(tc.windowMinutes, tc.bucketSeconds)
			if got != tc.want {
				t.Fatalf("PickResolution(%d, %d) = %s, want %s", tc.windowMinutes, tc.bucketSeconds, got, tc.want)
			}
		})
	}
}

func TestAlignWindowTruncatesToBucket(t *testing.T) {
	now := time.Date(2026, 7, 29, 10, 4, 37, 0, time.UTC)
	start, end := AlignWindow(now, 60, 300)

	wantEnd := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	if !end.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", end, wantEnd)
	}
	wantStart := wantEnd.Add(-time.Hour)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", start, wantStart)
	}
}

func TestComputeZeroSamplesReturnsNullUptimeAndLatency(t *testing.T) {
	got := Compute(timeseries.ResolutionMinute, 60, time.Time{}, time.Time{}, nil, nil)
	if got.UptimePercent != nil {
		t.Fatalf("expected nil uptime for zero samples, got %v", *got.UptimePercent)
	}
	if got.MinLatency != nil || got.MaxLatency != nil || got.AvgLatency != nil {
		t.Fatalf("expected nil latency fields for zero samples, got %+v", got)
	}
}

func TestComputeUptimeAndWeightedAverage(t *testing.T) {
	rows := []timeseries.AggregateRow{
		{Bucket: time.Unix(0, 0), Samples: 10, LossCount: 2, AvgLatency: f(10), MinLatency: f(5), MaxLatency: f(15)},
		{Bucket: time.Unix(60, 0), Samples: 10, LossCount: 0, AvgLatency: f(20), MinLatency: f(18), MaxLatency: f(22)},
	}
	got := Compute(timeseries.ResolutionMinute, 60, time.Time{}, time.Time{}, rows, nil)

	if got.SampleCount != 20 || got.LossCount != 2 {
		t.Fatalf("unexpected sample/loss counts: %+v", got)
	}
	wantUptime := 100 * (1 - 2.0/20.0)
	if got.UptimePercent == nil || *got.UptimePercent != wantUptime {
		t.Fatalf("uptime = %v, want %v", got.UptimePercent, wantUptime)
	}

	// 8 non-loss samples avg 10 + 10 non-loss samples avg 20, weighted.
	wantAvg := (8*10.0 + 10*20.0) / 18.0
	if got.AvgLatency == nil || *got.AvgLatency != wantAvg {
		t.Fatalf("avg latency = %v, want %v", got.AvgLatency, wantAvg)
	}
	if got.MinLatency == nil || *got.MinLatency != 5 {
		t.Fatalf("min latency = %v, want 5", got.MinLatency)
	}
	if got.MaxLatency == nil || *got.MaxLatency != 22 {
		t.Fatalf("max latency = %v, want 22", got.MaxLatency)
	}
	if got.Mode != PercentileApproximate {
		t.Fatalf("expected approximate percentile mode for aggregate rows, got %s", got.Mode)
	}
}

func TestComputeRawUsesExactPercentiles(t *testing.T) {
	samples := []timeseries.PingSample{
		{LatencyMs: f(10)}, {LatencyMs: f(20)}, {LatencyMs: f(30)}, {LatencyMs: f(40)},
		{PacketLoss: true},
	}
	rows := []timeseries.AggregateRow{
		{Samples: 5, LossCount: 1, AvgLatency: f(25), MinLatency: f(10), MaxLatency: f(40)},
	}
	got := Compute(timeseries.ResolutionRaw, 1, time.Time{}, time.Time{}, rows, samples)

	if got.Mode != PercentileExact {
		t.Fatalf("expected exact percentile mode at raw resolution, got %s", got.Mode)
	}
	if got.P99 == nil || *got.P99 != 40 {
		t.Fatalf("p99 = %v, want 40", got.P99)
	}
	if got.P50 == nil {
		t.Fatalf("expected non-nil p50")
	}
}
