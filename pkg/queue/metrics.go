package queue

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/boundq/pkg/metrics"
)

// MetricsQueue wraps a Queue with Prometheus metrics collection.
type MetricsQueue struct {
	queue    *Queue
	name     string
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a queue with metrics on its own Prometheus registry.
func NewWithMetrics(capacity int, name string, opts ...Option) (*MetricsQueue, error) {
	return NewWithConfigAndMetrics(capacity, name, metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	}, opts...)
}

// NewWithConfigAndMetrics creates a queue whose metrics are registered as
// described by metricsConfig. Queues sharing a registerer share its
// collectors under their own name. With metrics disabled the wrapper only
// forwards.
func NewWithConfigAndMetrics(capacity int, name string, metricsConfig metrics.Config, opts ...Option) (*MetricsQueue, error) {
	mq := &MetricsQueue{
		name:    name,
		enabled: metricsConfig.Enabled,
	}

	if mq.enabled {
		registry, err := metrics.NewRegistryWithConfig(metricsConfig)
		if err != nil {
			return nil, err
		}
		mq.registry = registry
		opts = append(opts, WithOnBlock(mq.onBlock))
	}

	q, err := New(capacity, opts...)
	if err != nil {
		return nil, err
	}
	mq.queue = q

	if mq.enabled {
		mq.registry.QueueCapacity.WithLabelValues(name).Set(float64(capacity))
		mq.updateMetrics()
	}

	return mq, nil
}

// Registry returns the metric vectors the queue reports to, or nil when
// metrics are disabled.
func (mq *MetricsQueue) Registry() *metrics.Registry {
	if !mq.enabled {
		return nil
	}
	return mq.registry
}

// Name returns the queue_name label value.
func (mq *MetricsQueue) Name() string {
	return mq.name
}

// Unwrap returns the underlying Queue.
func (mq *MetricsQueue) Unwrap() *Queue {
	return mq.queue
}

// onBlock runs under the queue lock; it only touches counters.
func (mq *MetricsQueue) onBlock(op Op) {
	if !mq.enabled {
		return
	}
	if op == OpInsert {
		mq.registry.QueueBlockedInserts.WithLabelValues(mq.name).Inc()
	} else {
		mq.registry.QueueBlockedRemoves.WithLabelValues(mq.name).Inc()
	}
}

// updateMetrics updates the current state metrics.
func (mq *MetricsQueue) updateMetrics() {
	if !mq.enabled {
		return
	}

	mq.registry.QueueDepth.WithLabelValues(mq.name).Set(float64(mq.queue.Len()))
	finished := 0.0
	if mq.queue.IsFinished() {
		finished = 1
	}
	mq.registry.QueueFinished.WithLabelValues(mq.name).Set(finished)
}

func (mq *MetricsQueue) recordInsert() {
	if !mq.enabled {
		return
	}
	mq.registry.QueueInserts.WithLabelValues(mq.name).Inc()
	mq.updateMetrics()
}

func (mq *MetricsQueue) recordRemove(d Descriptor) {
	if !mq.enabled {
		return
	}
	delay := mq.queue.clock.Now().Sub(d.EnqueuedAt)
	mq.registry.QueueRemoves.WithLabelValues(mq.name).Inc()
	mq.registry.QueueDelay.WithLabelValues(mq.name).Observe(delay.Seconds())
	mq.updateMetrics()
}

// Insert stores d, blocking while the queue is full.
func (mq *MetricsQueue) Insert(d Descriptor) {
	mq.queue.Insert(d)
	mq.recordInsert()
}

// InsertContext stores d, blocking until space frees up or ctx is done.
func (mq *MetricsQueue) InsertContext(ctx context.Context, d Descriptor) error {
	if err := mq.queue.InsertContext(ctx, d); err != nil {
		return err
	}
	mq.recordInsert()
	return nil
}

// Remove takes the oldest descriptor; ok is false at end-of-stream.
func (mq *MetricsQueue) Remove() (Descriptor, bool) {
	d, ok := mq.queue.Remove()
	if ok {
		mq.recordRemove(d)
	}
	return d, ok
}

// RemoveContext takes the oldest descriptor, waiting until one arrives, the
// queue ends or ctx is done.
func (mq *MetricsQueue) RemoveContext(ctx context.Context) (Descriptor, error) {
	d, err := mq.queue.RemoveContext(ctx)
	if err == nil {
		mq.recordRemove(d)
	}
	return d, err
}

// MarkFinished declares that no producer will insert again.
func (mq *MetricsQueue) MarkFinished() {
	mq.queue.MarkFinished()
	mq.updateMetrics()
}

// Destroy releases the underlying queue.
func (mq *MetricsQueue) Destroy() {
	mq.queue.Destroy()
	if mq.enabled {
		mq.registry.QueueDepth.WithLabelValues(mq.name).Set(0)
	}
}

// Len returns the number of buffered descriptors.
func (mq *MetricsQueue) Len() int {
	n := mq.queue.Len()

	if mq.enabled {
		mq.registry.QueueDepth.WithLabelValues(mq.name).Set(float64(n))
	}

	return n
}

// Cap returns the fixed capacity.
func (mq *MetricsQueue) Cap() int {
	return mq.queue.Cap()
}

// IsFinished reports whether MarkFinished has been called.
func (mq *MetricsQueue) IsFinished() bool {
	return mq.queue.IsFinished()
}

// State returns the current lifecycle phase.
func (mq *MetricsQueue) State() State {
	return mq.queue.State()
}

// Stats returns a snapshot of the queue counters.
func (mq *MetricsQueue) Stats() Stats {
	return mq.queue.Stats()
}

// EnableMetrics enables metrics collection. Blocking counters are only collected
// when the queue was built with metrics enabled. EnableMetrics and DisableMetrics
// must not race with queue operations.
func (mq *MetricsQueue) EnableMetrics(config metrics.Config) error {
	if config.Registry != nil || mq.registry == nil {
		registry, err := metrics.NewRegistryWithConfig(config)
		if err != nil {
			return err
		}
		mq.registry = registry
	}
	mq.enabled = config.Enabled

	if mq.enabled {
		mq.registry.QueueCapacity.WithLabelValues(mq.name).Set(float64(mq.queue.Cap()))
		mq.updateMetrics()
	}

	return nil
}

// DisableMetrics disables metrics collection.
func (mq *MetricsQueue) DisableMetrics() {
	mq.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mq *MetricsQueue) MetricsEnabled() bool {
	return mq.enabled
}

var (
	_ WorkQueue              = (*Queue)(nil)
	_ WorkQueue              = (*MetricsQueue)(nil)
	_ metrics.Instrumentable = (*MetricsQueue)(nil)
)
