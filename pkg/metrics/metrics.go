// Package metrics provides Prometheus instrumentation for boundq components.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every boundq metric name.
const DefaultNamespace = "boundq"

// Registry holds all metric instances for boundq components.
type Registry struct {
	// Queue Metrics
	QueueCapacity       *prometheus.GaugeVec
	QueueDepth          *prometheus.GaugeVec
	QueueInserts        *prometheus.CounterVec
	QueueRemoves        *prometheus.CounterVec
	QueueBlockedInserts *prometheus.CounterVec
	QueueBlockedRemoves *prometheus.CounterVec
	QueueDelay          *prometheus.HistogramVec
	QueueFinished       *prometheus.GaugeVec

	// Task Metrics
	TasksExecuted         *prometheus.CounterVec
	TasksCompleted        *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec

	// Sink Metrics
	SinkErrors *prometheus.CounterVec
}

// DefaultRegistry holds the collectors registered on
// prometheus.DefaultRegisterer under DefaultNamespace.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

var queueLabel = []string{"queue_name"}

// NewRegistry returns the boundq collectors registered on reg. It panics if
// reg already holds an incompatible collector under a boundq metric name.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r, err := NewRegistryWithConfig(Config{Enabled: true, Registry: reg})
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistryWithConfig returns the collectors for config's registerer,
// namespace and constant labels. Collectors already registered there with the
// same description are reused, so any number of queues can share one
// registerer, each under its own queue_name. DefaultConfig resolves to
// DefaultRegistry.
func NewRegistryWithConfig(config Config) (*Registry, error) {
	if config.isDefault() && DefaultRegistry != nil {
		return DefaultRegistry, nil
	}
	ns := config.namespace()
	labels := config.Labels

	r := &registrar{reg: config.registerer()}
	registry := &Registry{
		QueueCapacity: register(r, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "queue",
				Name:        "capacity",
				Help:        "Fixed capacity of the queue buffer",
				ConstLabels: labels,
			},
			queueLabel,
		)),

		QueueDepth: register(r, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "queue",
				Name:        "depth",
				Help:        "Number of descriptors currently buffered",
				ConstLabels: labels,
			},
			queueLabel,
		)),

		QueueInserts: register(r, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "queue",
				Name:        "inserts_total",
				Help:        "Total number of descriptors inserted",
				ConstLabels: labels,
			},
			queueLabel,
		)),

		QueueRemoves: register(r, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "queue",
				Name:        "removes_total",
				Help:        "Total number of descriptors removed",
				ConstLabels: labels,
			},
			queueLabel,
		)),

		QueueBlockedInserts: register(r, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "queue",
				Name:        "blocked_inserts_total",
				Help:        "Total number of inserts that waited for free space",
				ConstLabels: labels,
			},
			queueLabel,
		)),

		QueueBlockedRemoves: register(r, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "queue",
				Name:        "blocked_removes_total",
				Help:        "Total number of removes that waited for work",
				ConstLabels: labels,
			},
			queueLabel,
		)),

		QueueDelay: register(r, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "queue",
				Name:        "delay_seconds",
				Help:        "Time a descriptor spent buffered between insert and remove",
				Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
				ConstLabels: labels,
			},
			queueLabel,
		)),

		QueueFinished: register(r, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "queue",
				Name:        "finished",
				Help:        "1 once the queue has been marked finished",
				ConstLabels: labels,
			},
			queueLabel,
		)),

		TasksExecuted: register(r, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "task",
				Name:        "executed_total",
				Help:        "Total number of tasks executed",
				ConstLabels: labels,
			},
			queueLabel,
		)),

		TasksCompleted: register(r, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "task",
				Name:        "completed_total",
				Help:        "Total number of tasks completed successfully",
				ConstLabels: labels,
			},
			queueLabel,
		)),

		TasksFailed: register(r, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "task",
				Name:        "failed_total",
				Help:        "Total number of tasks that failed or panicked",
				ConstLabels: labels,
			},
			queueLabel,
		)),

		TaskExecutionDuration: register(r, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "task",
				Name:        "duration_seconds",
				Help:        "Time spent executing tasks",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			queueLabel,
		)),

		SinkErrors: register(r, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "sink",
				Name:        "errors_total",
				Help:        "Total number of results a sink failed to record",
				ConstLabels: labels,
			},
			queueLabel,
		)),
	}
	if r.err != nil {
		return nil, r.err
	}
	return registry, nil
}

type registrar struct {
	reg prometheus.Registerer
	err error
}

// register adds c to r.reg, or returns the collector already registered with
// the same description. After the first failure it registers nothing.
func register[C prometheus.Collector](r *registrar, c C) C {
	if r.err != nil {
		return c
	}
	err := r.reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	r.err = fmt.Errorf("metrics: register collector: %w", err)
	return c
}
