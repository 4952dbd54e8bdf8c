// Registry of metric collectors.
// Collectors are registered at startup; the Source queries the registry
// once per reporting cycle.

package collector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Registry manages all registered collectors and runs them in registration order.
type Registry struct {
	collectors []Collector
	logger     *zap.Logger
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		collectors: make([]Collector, 0),
		logger:     logger,
	}
}

// Register adds a collector if it's available on the current platform.
// Unavailable collectors are logged and skipped.
func (r *Registry) Register(c Collector) {
	if c.IsAvailable() {
		r.collectors = append(r.collectors, c)
		r.logger.Debug("Registered collector", zap.String("name", c.Name()))
	} else {
		r.logger.Warn("Collector not available, skipping", zap.String("name", c.Name()))
	}
}

// CollectAll runs every registered collector one after another and returns a
// map of collector name -> result data. Failed or panicking collectors are
// logged, left out of the map, and reported in the joined error.
func (r *Registry) CollectAll(ctx context.Context) (map[string]interface{}, error) {
	results := make(map[string]interface{}, len(r.collectors))
	var errs []error

	for _, c := range r.collectors {
		data, err := safeCollect(ctx, c)
		if err != nil {
			r.logger.Warn("Collection failed",
				zap.String("collector", c.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		results[c.Name()] = data
	}

	return results, errors.Join(errs...)
}

// Collectors returns a copy of all registered collectors.
func (r *Registry) Collectors() []Collector {
	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}

func safeCollect(ctx context.Context, c Collector) (data interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("collector panicked: %v", p)
		}
	}()
	return c.Collect(ctx)
}
