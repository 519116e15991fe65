package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Poutchouli/PingMeDaddy/internal/probe"
	"github.com/Poutchouli/PingMeDaddy/internal/registry"
	"github.com/Poutchouli/PingMeDaddy/internal/timeseries"
)

type stubRunner struct {
	calls int64
}

func (r *stubRunner) Ping(ctx context.Context, ip string, timeout time.Duration) probe.ProbeResult {
	atomic.AddInt64(&r.calls, 1)
	latency := 5.0
	return probe.ProbeResult{LatencyMs: &latency}
}

type recordingStore struct {
	mu      sync.Mutex
	samples []timeseries.PingSample
}

func (s *recordingStore) InsertSample(ctx context.Context, sample timeseries.PingSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

type failingStore struct {
	attempts int64
}

func (s *failingStore) InsertSample(ctx context.Context, sample timeseries.PingSample) error {
	atomic.AddInt64(&s.attempts, 1)
	return context.DeadlineExceeded
}

func TestSchedulerLaunchProbesOnCadence(t *testing.T) {
	store := &recordingStore{}
	runner := &stubRunner{}
	s := New(store, 200*time.Millisecond, 10).WithRunner(runner)

	target := registry.Target{ID: 1, IP: "203.0.113.50", FrequencySeconds: 1, IsActive: true}
	s.Launch(target)
	defer s.Shutdown()

	time.Sleep(50 * time.Millisecond)
	if store.count() < 1 {
		t.Fatalf("expected at least one sample written shortly after launch, got %d", store.count())
	}
	if st, ok := s.State(1); !ok || st != StateRunning {
		t.Fatalf("expected StateRunning, got %v (ok=%v)", st, ok)
	}
}

func TestSchedulerCancelStopsLoop(t *testing.T) {
	store := &recordingStore{}
	runner := &stubRunner{}
	s := New(store, 200*time.Millisecond, 10).WithRunner(runner)

	target := registry.Target{ID: 2, IP: "203.0.113.51", FrequencySeconds: 1, IsActive: true}
	s.Launch(target)
	time.Sleep(20 * time.Millisecond)

	if err := s.Cancel(context.Background(), 2); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if st, ok := s.State(2); ok && st != StateIdle {
		t.Fatalf("expected loop to settle at StateIdle after cancel, got %v", st)
	}
}

func TestSchedulerRetriesWriteOnceThenDrops(t *testing.T) {
	store := &failingStore{}
	runner := &stubRunner{}
	s := New(store, 200*time.Millisecond, 10).WithRunner(runner)

	target := registry.Target{ID: 3, IP: "203.0.113.52", FrequencySeconds: 1, IsActive: true}
	s.Launch(target)
	defer s.Shutdown()

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt64(&store.attempts) < 2 {
		t.Fatalf("expected at least 2 insert attempts (retry once), got %d", store.attempts)
	}
}

func TestSchedulerBootLaunchesOnlyActiveTargets(t *testing.T) {
	store := &recordingStore{}
	runner := &stubRunner{}
	s := New(store, 200*time.Millisecond, 10).WithRunner(runner)

	targets := []registry.Target{
		{ID: 10, IP: "203.0.113.60", FrequencySeconds: 1, IsActive: true},
		{ID: 11, IP: "203.0.113.61", FrequencySeconds: 1, IsActive: false},
		{ID: 12, IP: "203.0.113.62", FrequencySeconds: 1, IsActive: true, Deleted: true},
	}
	s.Boot(targets)
	defer s.Shutdown()

	if _, ok := s.State(10); !ok {
		t.Fatalf("expected active target 10 to have a running loop")
	}
	if _, ok := s.State(11); ok {
		t.Fatalf("expected inactive target 11 to have no loop")
	}
	if _, ok := s.State(12); ok {
		t.Fatalf("expected deleted target 12 to have no loop")
	}
}
