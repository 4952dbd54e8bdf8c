package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atlas-monitor/agent/internal/models"
	"github.com/atlas-monitor/agent/internal/registration"
	"github.com/atlas-monitor/agent/internal/telemetry"
)

const interval = 10 * time.Second

var errUnreachable = errors.New("connection refused")

type panickySampler struct {
	mu      sync.Mutex
	calls   int
	panicOn map[int]bool
}

func (s *panickySampler) Sample(context.Context) models.MetricSample {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if s.panicOn[n] {
		panic("sensor exploded")
	}
	return models.DefaultSample()
}

type scriptedReporter struct {
	mu   sync.Mutex
	ids  []models.ServerID
	fail func(call int) error
}

func (r *scriptedReporter) Report(_ context.Context, id models.ServerID, _ models.MetricSample) error {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	n := len(r.ids)
	r.mu.Unlock()
	if r.fail == nil {
		return nil
	}
	return r.fail(n)
}

func (r *scriptedReporter) reported() []models.ServerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ServerID(nil), r.ids...)
}

// failBetween fails calls in [from, to].
func failBetween(from, to int) func(int) error {
	return func(n int) error {
		if n >= from && n <= to {
			return errUnreachable
		}
		return nil
	}
}

type scriptedIdentity struct {
	mu    sync.Mutex
	calls int
	ids   []models.ServerID
	err   error
}

func (s *scriptedIdentity) AcquireIdentity(context.Context) (models.ServerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.ids[s.calls-1], nil
}

func (s *scriptedIdentity) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type harness struct {
	fc     *clockwork.FakeClock
	logs   *observer.ObservedLogs
	cancel context.CancelFunc
	done   chan error

	mu      sync.Mutex
	changes []models.ServerID
}

// start runs the loop under "srv-1" and returns once the first cycle has
// completed and the loop is waiting for the next one.
func start(t *testing.T, sampler Sampler, reporter Reporter, identity IdentitySource, maxFailures int) *harness {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	h := &harness{
		fc:   clockwork.NewFakeClock(),
		logs: logs,
		done: make(chan error, 1),
	}

	s := New(sampler, reporter, identity, Config{Interval: interval, MaxConsecutiveFailures: maxFailures},
		h.fc, telemetry.New(), zap.New(core))
	s.OnIdentityChange(func(id models.ServerID) {
		h.mu.Lock()
		h.changes = append(h.changes, id)
		h.mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- s.Run(ctx, "srv-1") }()

	h.waitIdle(t)
	t.Cleanup(cancel)
	return h
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.fc.BlockUntilContext(ctx, 1), "loop never went idle")
}

// cycles lets n more cycles run to completion.
func (h *harness) cycles(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h.fc.Advance(interval)
		h.waitIdle(t)
	}
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func (h *harness) identityChanges() []models.ServerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.ServerID(nil), h.changes...)
}

func repeat(id models.ServerID, n int) []models.ServerID {
	out := make([]models.ServerID, n)
	for i := range out {
		out[i] = id
	}
	return out
}

func TestRun_FirstCycleIsImmediate(t *testing.T) {
	reporter := &scriptedReporter{}
	h := start(t, &panickySampler{}, reporter, &scriptedIdentity{}, 5)

	assert.Equal(t, []models.ServerID{"srv-1"}, reporter.reported())
	h.stop(t)
}

func TestRun_IntervalIsMeasuredStartToStart(t *testing.T) {
	var fc *clockwork.FakeClock
	reporter := &scriptedReporter{fail: func(n int) error {
		if n == 1 {
			fc.Advance(3 * time.Second)
		}
		return nil
	}}

	core, _ := observer.New(zap.InfoLevel)
	fc = clockwork.NewFakeClock()
	s := New(&panickySampler{}, reporter, &scriptedIdentity{}, Config{Interval: interval, MaxConsecutiveFailures: 5}, fc, nil, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "srv-1") }()

	h := &harness{fc: fc, cancel: cancel, done: done}
	h.waitIdle(t)

	fc.Advance(6 * time.Second)
	h.waitIdle(t)
	assert.Len(t, reporter.reported(), 1, "second cycle started early")

	fc.Advance(time.Second)
	h.waitIdle(t)
	assert.Len(t, reporter.reported(), 2)
	h.stop(t)
}

func TestRun_ReregistersAfterConsecutiveFailures(t *testing.T) {
	reporter := &scriptedReporter{fail: failBetween(5, 9)}
	identity := &scriptedIdentity{ids: []models.ServerID{"srv-2"}}
	h := start(t, &panickySampler{}, reporter, identity, 5)

	h.cycles(t, 7)
	assert.Equal(t, 0, identity.callCount(), "four failures must not re-register")

	h.cycles(t, 1)
	assert.Equal(t, 1, identity.callCount(), "fifth failure re-registers")

	h.cycles(t, 1)
	h.stop(t)

	want := append(repeat("srv-1", 9), "srv-2")
	assert.Equal(t, want, reporter.reported())
	assert.Equal(t, 1, identity.callCount())
	assert.Equal(t, []models.ServerID{"srv-2"}, h.identityChanges())
	assert.Equal(t, 5, h.logs.FilterMessage("Metrics send failed").Len())
	assert.Equal(t, 1, h.logs.FilterMessage("Re-registered with collector").Len())
}

func TestRun_SuccessResetsFailureCount(t *testing.T) {
	reporter := &scriptedReporter{fail: func(n int) error {
		if n == 5 {
			return nil
		}
		return errUnreachable
	}}
	identity := &scriptedIdentity{ids: []models.ServerID{"srv-2"}}
	h := start(t, &panickySampler{}, reporter, identity, 5)

	h.cycles(t, 8)
	assert.Equal(t, 0, identity.callCount())

	h.cycles(t, 1)
	assert.Equal(t, 1, identity.callCount())
	h.stop(t)

	streaks := h.logs.FilterMessage("Metrics send failed").All()
	require.Len(t, streaks, 9)
	assert.EqualValues(t, 4, streaks[3].ContextMap()["consecutive_failures"])
	assert.EqualValues(t, 1, streaks[4].ContextMap()["consecutive_failures"])
}

func TestRun_FailedReregistrationKeepsRunning(t *testing.T) {
	reporter := &scriptedReporter{fail: func(int) error { return errUnreachable }}
	identity := &scriptedIdentity{err: registration.ErrRetriesExhausted}
	h := start(t, &panickySampler{}, reporter, identity, 5)

	h.cycles(t, 4)
	assert.Equal(t, 1, identity.callCount())

	h.cycles(t, 2)
	assert.Equal(t, 3, identity.callCount(), "re-registration retried on every failed cycle past the limit")
	h.stop(t)

	assert.Equal(t, repeat("srv-1", 7), reporter.reported())
	assert.Empty(t, h.identityChanges())
	assert.Equal(t, 3, h.logs.FilterMessage("Re-registration failed").Len())
}

func TestRun_PanicCountsAsFailure(t *testing.T) {
	sampler := &panickySampler{panicOn: map[int]bool{2: true}}
	reporter := &scriptedReporter{}
	identity := &scriptedIdentity{ids: []models.ServerID{"srv-9"}}
	h := start(t, sampler, reporter, identity, 1)

	h.cycles(t, 2)
	h.stop(t)

	assert.Equal(t, 1, identity.callCount())
	assert.Equal(t, []models.ServerID{"srv-1", "srv-9"}, reporter.reported())
	assert.Equal(t, 1, h.logs.FilterMessage("Unexpected error in main loop").Len())
}

func TestRun_CancelWhileWaiting(t *testing.T) {
	identity := &scriptedIdentity{}
	h := start(t, &panickySampler{}, &scriptedReporter{}, identity, 5)

	h.stop(t)
	assert.Equal(t, 0, identity.callCount())
	assert.Equal(t, 1, h.logs.FilterMessage("Reporting loop stopped").Len())
}

func TestRun_AlreadyCancelled(t *testing.T) {
	reporter := &scriptedReporter{}
	s := New(&panickySampler{}, reporter, &scriptedIdentity{}, Config{Interval: interval}, clockwork.NewFakeClock(), nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx, "srv-1"))
	assert.Empty(t, reporter.reported())
}
