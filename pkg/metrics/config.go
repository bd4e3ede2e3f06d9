package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config selects where boundq collectors are registered and how they are named.
type Config struct {
	// Enabled turns recording on. A disabled queue only forwards calls.
	Enabled bool

	// Registry receives the collectors; nil means prometheus.DefaultRegisterer.
	// Queues configured with the same Registry share one set of collectors.
	Registry prometheus.Registerer

	// Namespace replaces the "boundq" metric prefix.
	Namespace string

	// Labels are constant labels attached to every series.
	Labels prometheus.Labels
}

// DefaultConfig records on the process-wide registry served by
// promhttp.Handler. Every queue built from it reports through DefaultRegistry.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
	}
}

func (c Config) registerer() prometheus.Registerer {
	if c.Registry == nil {
		return prometheus.DefaultRegisterer
	}
	return c.Registry
}

func (c Config) namespace() string {
	if c.Namespace == "" {
		return DefaultNamespace
	}
	return c.Namespace
}

// isDefault reports whether c describes the collectors held by DefaultRegistry.
func (c Config) isDefault() bool {
	return c.registerer() == prometheus.DefaultRegisterer &&
		c.namespace() == DefaultNamespace &&
		len(c.Labels) == 0
}

// Instrumentable is implemented by components whose metrics can be switched
// on and off after construction.
type Instrumentable interface {
	// EnableMetrics starts recording as described by config.
	EnableMetrics(config Config) error

	// DisableMetrics stops recording. Collected values are kept.
	DisableMetrics()

	// MetricsEnabled reports whether recording is on.
	MetricsEnabled() bool
}
