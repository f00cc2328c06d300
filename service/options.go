package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

type config struct {
	stripes    int
	registerer prometheus.Registerer
}

// Option is a functional option for the price service.
type Option func(*config)

// WithStripes sets the lock stripe count of the latest-value table, rounded
// up to a power of two. Nonpositive values select the default.
func WithStripes(n int) Option {
	return func(c *config) {
		c.stripes = n
	}
}

// WithTelemetry registers the service's Prometheus metrics on reg. Without
// this option the service records no metrics.
func WithTelemetry(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}
