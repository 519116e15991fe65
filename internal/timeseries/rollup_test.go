package timeseries

import (
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	ts := time.Date(2026, 7, 29, 14, 37, 52, 0, time.UTC)

	if got := truncate(ts, time.Minute); !got.Equal(time.Date(2026, 7, 29, 14, 37, 0, 0, time.UTC)) {
		t.Fatalf("truncate to minute: got %v", got)
	}
	if got := truncate(ts, time.Hour); !got.Equal(time.Date(2026, 7, 29, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("truncate to hour: got %v", got)
	}
}

func TestRollupWindowMinute(t *testing.T) {
	now := time.Date(2026, 7, 29, 14, 37, 30, 0, time.UTC)
	start, end := rollupWindow(now, RollupEndOffset, 5*time.Minute, MinuteBucket)

	// End excludes the still-filling current minute bucket.
	wantEnd := time.Date(2026, 7, 29, 14, 36, 0, 0, time.UTC)
	if !end.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", end, wantEnd)
	}
	wantStart := wantEnd.Add(-5*time.Minute - time.Minute)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", start, wantStart)
	}
}

func TestRollupWindowHour(t *testing.T) {
	now := time.Date(2026, 7, 29, 14, 37, 30, 0, time.UTC)
	start, end := rollupWindow(now, 0, time.Hour, HourBucket)

	// Hour-bucket truncation alone excludes the still-filling current hour;
	// lag is zero for the hour worker.
	wantEnd := time.Date(2026, 7, 29, 14, 0, 0, 0, time.UTC)
	if !end.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", end, wantEnd)
	}
	wantStart := wantEnd.Add(-time.Hour - time.Hour)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", start, wantStart)
	}
}
