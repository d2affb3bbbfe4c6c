package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerMetrics accumulates counters across a scheduler's lifetime.
// Never copy a SchedulerMetrics by value; use Snapshot to read it.
type SchedulerMetrics struct {
	mu              sync.Mutex
	TotalExecutions int64
	ErrorCount      int64
	JourneysChecked int64
	LastDurationMs  int64
	LastRunAt       time.Time
}

// MetricsSnapshot is a lockless copy of SchedulerMetrics' counters,
// safe to pass around and encode.
type MetricsSnapshot struct {
	TotalExecutions int64
	ErrorCount      int64
	JourneysChecked int64
	LastDurationMs  int64
	LastRunAt       time.Time
}

func (m *SchedulerMetrics) recordSuccess(result CycleResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalExecutions++
	m.JourneysChecked += int64(result.JourneysChecked)
	m.LastDurationMs = result.DurationMs
	m.LastRunAt = time.Now().UTC()
}

func (m *SchedulerMetrics) recordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalExecutions++
	m.ErrorCount++
	m.LastRunAt = time.Now().UTC()
}

// Snapshot returns a lockless copy of the current counters.
func (m *SchedulerMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		TotalExecutions: m.TotalExecutions,
		ErrorCount:      m.ErrorCount,
		JourneysChecked: m.JourneysChecked,
		LastDurationMs:  m.LastDurationMs,
		LastRunAt:       m.LastRunAt,
	}
}

// TickScheduler fires the detection orchestrator at a fixed cadence
// derived from a cron expression, enforcing non-reentrancy within this
// process and surviving cycle-level errors without terminating.
type TickScheduler struct {
	orchestrator *DetectionOrchestrator
	interval     time.Duration
	metrics      *SchedulerMetrics

	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	inFlight int32
}

// NewTickScheduler builds a scheduler whose cadence is derived from a
// cron expression (standard 5-field form); an empty or invalid
// expression falls back to a direct interval.
func NewTickScheduler(orchestrator *DetectionOrchestrator, cronExpression string, fallbackInterval time.Duration) *TickScheduler {
	interval := fallbackInterval
	if cronExpression != "" {
		if derived, ok := intervalFromCron(cronExpression); ok {
			interval = derived
		}
	}
	if interval <= 0 {
		interval = defaultTickInterval
	}

	return &TickScheduler{
		orchestrator: orchestrator,
		interval:     interval,
		metrics:      &SchedulerMetrics{},
		stopCh:       make(chan struct{}),
	}
}

// intervalFromCron approximates a fixed interval from a cron
// expression by measuring the gap between its next two fire times.
// Irregular expressions (daily-at-a-fixed-hour, say) still produce a
// usable interval for this service's polling loop.
func intervalFromCron(expr string) (time.Duration, bool) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		log.Printf("tick scheduler: invalid cron expression %q, falling back to default interval: %v", expr, err)
		return 0, false
	}

	now := time.Now().UTC()
	first := schedule.Next(now)
	second := schedule.Next(first)
	return second.Sub(first), true
}

// Start installs a repeating timer and fires one tick immediately.
// Calling Start twice is a no-op.
func (s *TickScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	log.Printf("tick scheduler: starting with %v interval", s.interval)

	s.wg.Add(1)
	go s.loop()
}

func (s *TickScheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Execute(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Execute(context.Background())
		case <-s.stopCh:
			log.Printf("tick scheduler: stopping")
			return
		}
	}
}

// Stop cancels the timer and waits for an in-flight tick to drain.
// Calling Stop when already stopped is a no-op.
func (s *TickScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ch := s.stopCh
	s.mu.Unlock()

	close(ch)
	s.wg.Wait()
}

// Execute runs one tick if no other tick is currently in flight in
// this process. A tick that begins while another runs is dropped, not
// queued.
func (s *TickScheduler) Execute(ctx context.Context) {
	if !s.tryEnter() {
		log.Printf("tick scheduler: tick already in flight, skipping")
		return
	}
	defer s.exit()

	result, err := s.orchestrator.RunCycle(ctx)
	if err != nil {
		log.Printf("tick scheduler: cycle failed: %v", err)
		s.metrics.recordError()
		return
	}

	s.metrics.recordSuccess(result)
	if result.JourneysChecked > 0 {
		log.Printf("tick scheduler: checked=%d delays=%d claims=%d duration=%dms",
			result.JourneysChecked, result.DelaysDetected, result.ClaimsTriggered, result.DurationMs)
	}
}

func (s *TickScheduler) tryEnter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight != 0 {
		return false
	}
	s.inFlight = 1
	return true
}

func (s *TickScheduler) exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = 0
}

// Metrics returns a snapshot of the accumulated counters.
func (s *TickScheduler) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}
