// Package agent composes startup registration and the reporting loop and
// owns the server id the agent currently reports under.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/atlas-monitor/agent/internal/client"
	"github.com/atlas-monitor/agent/internal/collector"
	"github.com/atlas-monitor/agent/internal/config"
	"github.com/atlas-monitor/agent/internal/models"
	"github.com/atlas-monitor/agent/internal/platform"
	"github.com/atlas-monitor/agent/internal/registration"
	"github.com/atlas-monitor/agent/internal/scheduler"
	"github.com/atlas-monitor/agent/internal/telemetry"
)

// ErrRegistrationFailed is returned by Run when no server id could be
// obtained at startup. The process should exit with status 1.
var ErrRegistrationFailed = errors.New("startup registration failed")

// Agent runs the registration-then-report lifecycle.
type Agent struct {
	identity scheduler.IdentitySource
	loop     *scheduler.Scheduler
	logger   *zap.Logger

	mu sync.RWMutex
	id models.ServerID
}

// New creates an Agent from its collaborators. A nil clock means the real clock.
func New(identity scheduler.IdentitySource, sampler scheduler.Sampler, reporter scheduler.Reporter,
	cfg scheduler.Config, clock clockwork.Clock, metrics *telemetry.Metrics, logger *zap.Logger) *Agent {
	a := &Agent{
		identity: identity,
		logger:   logger.Named("agent"),
	}
	a.loop = scheduler.New(sampler, reporter, identity, cfg, clock, metrics, logger)
	a.loop.OnIdentityChange(a.setServerID)
	return a
}

// FromConfig wires the production collaborators for cfg.
func FromConfig(cfg *config.Config, version string, metrics *telemetry.Metrics, logger *zap.Logger) *Agent {
	p := platform.New()
	logger.Info("Platform detected", zap.String("platform", p.Name()))

	source := collector.NewSource(p, collector.Options{
		Location: cfg.Host.Location,
		DiskPath: cfg.Host.DiskPath,
	}, logger)

	api := client.New(client.Config{
		BaseURL:        cfg.Server.URL,
		Token:          cfg.Server.Token,
		RequestTimeout: cfg.Server.RequestTimeout.Duration,
		Compress:       cfg.Server.Compress,
		UserAgent:      "atlas-agent/" + version,
	}, logger)

	registrar := registration.New(source, api, registration.Policy{
		MaxRetries: cfg.Registration.MaxRetries,
		RetryDelay: cfg.Registration.RetryDelay.Duration,
	}, nil, metrics, logger)

	return New(registrar, source, api, scheduler.Config{
		Interval:               cfg.Reporting.Interval.Duration,
		MaxConsecutiveFailures: cfg.Reporting.MaxConsecutiveFailures,
	}, nil, metrics, logger)
}

// Run registers the host and then reports until ctx is cancelled.
// It returns nil on cancellation and ErrRegistrationFailed if startup
// registration exhausts its attempts.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("Registering with collector")

	id, err := a.identity.AcquireIdentity(ctx)
	if err != nil {
		if ctx.Err() != nil {
			a.logger.Info("Shutdown requested during registration")
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	a.setServerID(id)

	return a.loop.Run(ctx, id)
}

// ServerID returns the id currently in use, or "" before registration.
func (a *Agent) ServerID() models.ServerID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.id
}

func (a *Agent) setServerID(id models.ServerID) {
	a.mu.Lock()
	a.id = id
	a.mu.Unlock()
}
