// Package scheduler implements the reporting loop: sample, report, evaluate,
// wait. It counts consecutive reporting failures and re-registers the host
// once the count reaches the configured limit. The loop only ends when its
// context is cancelled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/atlas-monitor/agent/internal/models"
	"github.com/atlas-monitor/agent/internal/telemetry"
)

var errCyclePanic = errors.New("reporting cycle panicked")

// Sampler produces a metric sample. It must not fail.
type Sampler interface {
	Sample(ctx context.Context) models.MetricSample
}

// Reporter sends a sample for a server id.
type Reporter interface {
	Report(ctx context.Context, id models.ServerID, sample models.MetricSample) error
}

// IdentitySource obtains a fresh server id.
type IdentitySource interface {
	AcquireIdentity(ctx context.Context) (models.ServerID, error)
}

// Config holds the loop settings.
type Config struct {
	Interval               time.Duration
	MaxConsecutiveFailures int
}

// Scheduler runs the reporting loop. It is not safe for concurrent use.
type Scheduler struct {
	sampler  Sampler
	reporter Reporter
	identity IdentitySource
	cfg      Config
	clock    clockwork.Clock
	metrics  *telemetry.Metrics
	logger   *zap.Logger

	onIdentityChange func(models.ServerID)

	cycle    uint64
	failures int
}

// New creates a new Scheduler. A nil clock means the real clock.
func New(sampler Sampler, reporter Reporter, identity IdentitySource, cfg Config, clock clockwork.Clock, metrics *telemetry.Metrics, logger *zap.Logger) *Scheduler {
	if cfg.MaxConsecutiveFailures < 1 {
		cfg.MaxConsecutiveFailures = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		sampler:  sampler,
		reporter: reporter,
		identity: identity,
		cfg:      cfg,
		clock:    clock,
		metrics:  metrics,
		logger:   logger.Named("scheduler"),
	}
}

// OnIdentityChange sets the callback invoked after a successful re-registration.
func (s *Scheduler) OnIdentityChange(fn func(models.ServerID)) {
	s.onIdentityChange = fn
}

// Run reports under id until ctx is cancelled, then returns nil. The first
// cycle starts immediately; later cycles start Interval after the previous
// one started, or right away if the previous cycle overran.
func (s *Scheduler) Run(ctx context.Context, id models.ServerID) error {
	s.logger.Info("Starting metrics collection",
		zap.Duration("interval", s.cfg.Interval),
		zap.String("server_id", id.String()))

	for {
		if ctx.Err() != nil {
			s.logger.Info("Reporting loop stopped")
			return nil
		}

		start := s.clock.Now()
		id = s.runCycle(ctx, id)

		wait := s.cfg.Interval - s.clock.Since(start)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Reporting loop stopped")
			return nil
		case <-s.clock.After(wait):
		}
	}
}

// runCycle performs one sample+report and returns the id to use next.
func (s *Scheduler) runCycle(ctx context.Context, id models.ServerID) models.ServerID {
	s.cycle++

	err := s.report(ctx, id)
	if err == nil {
		s.failures = 0
		s.metrics.Report(true, 0, s.clock.Now())
		return id
	}
	if ctx.Err() != nil {
		return id
	}

	s.failures++
	s.metrics.Report(false, s.failures, s.clock.Now())

	fields := []zap.Field{
		zap.Uint64("cycle", s.cycle),
		zap.Int("consecutive_failures", s.failures),
		zap.Error(err),
	}
	if errors.Is(err, errCyclePanic) {
		s.logger.Error("Unexpected error in main loop", fields...)
	} else {
		s.logger.Warn("Metrics send failed", fields...)
	}

	if s.failures >= s.cfg.MaxConsecutiveFailures {
		return s.reregister(ctx, id)
	}
	return id
}

// report samples and sends. A panic from either collaborator is returned
// as an error.
func (s *Scheduler) report(ctx context.Context, id models.ServerID) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", errCyclePanic, p)
		}
	}()

	sample := s.sampler.Sample(ctx)
	return s.reporter.Report(ctx, id, sample)
}

// reregister asks for a fresh id. Failure keeps the current id and the
// failure count; it never ends the loop.
func (s *Scheduler) reregister(ctx context.Context, id models.ServerID) models.ServerID {
	s.logger.Warn("Too many consecutive failures, attempting to re-register",
		zap.Int("consecutive_failures", s.failures))
	s.metrics.Reregistration()

	newID, err := s.acquire(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Re-registration failed", zap.Error(err))
		}
		return id
	}

	s.failures = 0
	s.logger.Info("Re-registered with collector",
		zap.String("previous_id", id.String()),
		zap.String("server_id", newID.String()))
	if s.onIdentityChange != nil {
		s.onIdentityChange(newID)
	}
	return newID
}

func (s *Scheduler) acquire(ctx context.Context) (id models.ServerID, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", errCyclePanic, p)
		}
	}()
	return s.identity.AcquireIdentity(ctx)
}
