package timeseries

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// RollupWorker periodically materialises one aggregate level (minute or
// hour) from its source level. It runs as an independent goroutine with its
// own ticker and stop channel, so the scheduler's probe loops are never
// blocked by it.
type RollupWorker struct {
	store    *Store
	level    Resolution
	interval time.Duration
	lag      time.Duration
	bucket   time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewMinuteRollup builds the worker that materialises ping_minute_aggregates
// from ping_samples, ticking every tickEvery (default 5 minutes).
func NewMinuteRollup(store *Store, tickEvery time.Duration) *RollupWorker {
	return &RollupWorker{
		store:    store,
		level:    ResolutionMinute,
		interval: tickEvery,
		lag:      RollupEndOffset,
		bucket:   MinuteBucket,
		stop:     make(chan struct{}),
	}
}

// NewHourRollup builds the worker that materialises ping_hour_aggregates
// from ping_minute_aggregates only. Raw samples are not consulted: an hour
// whose minute buckets were never produced gets no hour row.
func NewHourRollup(store *Store, tickEvery time.Duration) *RollupWorker {
	return &RollupWorker{
		store:    store,
		level:    ResolutionHour,
		interval: tickEvery,
		lag:      0,
		bucket:   HourBucket,
		stop:     make(chan struct{}),
	}
}

// Start begins the periodic roll-up loop.
func (w *RollupWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop signals the loop to exit and waits for it to do so.
func (w *RollupWorker) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *RollupWorker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if err := w.runOnce(context.Background()); err != nil {
				log.Printf("rollup[%s]: %v", w.level, err)
			}
		}
	}
}

// runOnce materialises every fully-closed bucket up to now minus the
// roll-up lag and end offset, across every target with samples in range.
// Re-running over an already-settled bucket is safe: the upsert below is
// idempotent (I4 holds after the upsert regardless of how many times a
// given bucket is recomputed).
func (w *RollupWorker) runOnce(ctx context.Context) error {
	windowStart, windowEnd := rollupWindow(time.Now(), w.lag, w.interval, w.bucket)

	var targetIDs []int64
	var err error
	switch w.level {
	case ResolutionMinute:
		targetIDs, err = w.store.targetsWithSamplesSince(ctx, windowStart)
	case ResolutionHour:
		targetIDs, err = w.store.targetsWithMinuteAggSince(ctx, windowStart)
	}
	if err != nil {
		return fmt.Errorf("list targets: %w", err)
	}

	for _, id := range targetIDs {
		if err := w.rollupTarget(ctx, id, windowStart, windowEnd); err != nil {
			return fmt.Errorf("target %d: %w", id, err)
		}
	}
	return nil
}

// rollupWindow computes the [start, end) span a roll-up pass should cover:
// end is the most recent fully-closed bucket boundary once lag is applied,
// and start reaches back one tick-interval plus one bucket so a pass always
// re-covers the tail of the previous pass's window (safe, since the upsert
// below is idempotent).
func rollupWindow(now time.Time, lag, interval, bucket time.Duration) (start, end time.Time) {
	end = truncate(now.Add(-lag), bucket)
	start = end.Add(-interval - bucket)
	return start, end
}

func (w *RollupWorker) rollupTarget(ctx context.Context, targetID int64, windowStart, windowEnd time.Time) error {
	for bucketStart := truncate(windowStart, w.bucket); bucketStart.Before(windowEnd); bucketStart = bucketStart.Add(w.bucket) {
		bucketEnd := bucketStart.Add(w.bucket)

		var agg AggregateRow
		var err error
		switch w.level {
		case ResolutionMinute:
			agg, err = w.store.computeBucketFromRaw(ctx, targetID, bucketStart, bucketEnd)
		case ResolutionHour:
			agg, err = w.store.computeBucketFromMinute(ctx, targetID, bucketStart, bucketEnd)
		}
		if err != nil {
			return err
		}
		if agg.Samples == 0 {
			continue
		}
		if err := w.store.upsertAggregate(ctx, w.level, agg); err != nil {
			return err
		}
	}
	return nil
}
