// Package registration acquires a server identity from the collector.
// Each attempt describes the host afresh and posts it; failed attempts are
// retried after a constant delay up to a fixed attempt budget.
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/atlas-monitor/agent/internal/client"
	"github.com/atlas-monitor/agent/internal/models"
	"github.com/atlas-monitor/agent/internal/telemetry"
)

// ErrRetriesExhausted is returned when every attempt failed.
var ErrRetriesExhausted = errors.New("registration failed after all attempts")

// HostDescriber describes the local machine.
type HostDescriber interface {
	DescribeHost(ctx context.Context) models.HostDescriptor
}

// Registrar exchanges a host descriptor for a server id.
type Registrar interface {
	Register(ctx context.Context, host models.HostDescriptor) (models.ServerID, error)
}

// Policy bounds the attempts.
type Policy struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Controller owns the registration retry policy.
type Controller struct {
	host      HostDescriber
	registrar Registrar
	policy    Policy
	clock     clockwork.Clock
	metrics   *telemetry.Metrics
	logger    *zap.Logger
}

// New creates a Controller. A nil clock means the real clock.
func New(host HostDescriber, registrar Registrar, policy Policy, clock clockwork.Clock, metrics *telemetry.Metrics, logger *zap.Logger) *Controller {
	if policy.MaxRetries < 1 {
		policy.MaxRetries = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		host:      host,
		registrar: registrar,
		policy:    policy,
		clock:     clock,
		metrics:   metrics,
		logger:    logger.Named("registration"),
	}
}

// AcquireIdentity registers the host and returns the issued id. It never
// reuses a previous id. It returns ErrRetriesExhausted once every attempt
// has failed, or ctx.Err() if cancelled while waiting between attempts.
func (c *Controller) AcquireIdentity(ctx context.Context) (models.ServerID, error) {
	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id, err := c.attempt(ctx)
		c.metrics.RegistrationAttempt(err == nil)
		if err == nil {
			c.logger.Info("Successfully registered/connected",
				zap.String("server_id", id.String()),
				zap.Int("attempt", attempt))
			return id, nil
		}
		lastErr = err
		c.logFailure(attempt, err)

		if attempt < c.policy.MaxRetries {
			c.logger.Info("Retrying registration", zap.Duration("delay", c.policy.RetryDelay))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-c.clock.After(c.policy.RetryDelay):
			}
		}
	}

	c.logger.Error("Failed to register after all attempts",
		zap.Int("attempts", c.policy.MaxRetries),
		zap.Error(lastErr))
	return "", fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

func (c *Controller) attempt(ctx context.Context) (models.ServerID, error) {
	host := c.host.DescribeHost(ctx)
	return c.registrar.Register(ctx, host)
}

func (c *Controller) logFailure(attempt int, err error) {
	fields := []zap.Field{
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", c.policy.MaxRetries),
		zap.Error(err),
	}
	var se *client.StatusError
	switch {
	case client.IsTransient(err):
		c.logger.Error("Connection failed", fields...)
	case errors.As(err, &se):
		c.logger.Error("Registration rejected", append(fields, zap.Int("status", se.StatusCode))...)
	default:
		c.logger.Error("Registration error", fields...)
	}
}
