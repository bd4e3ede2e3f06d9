package supervisor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vnykmshr/boundq/pkg/metrics"
	"github.com/vnykmshr/boundq/pkg/queue"
)

// SubmitFunc inserts a task into the supervised queue on behalf of one
// producer. It blocks while the queue is full and fails only if ctx is done.
type SubmitFunc func(ctx context.Context, task queue.Task) error

// Producer generates tasks. Produce returns when the producer has nothing more
// to submit; returning is what allows the queue to be marked finished.
type Producer interface {
	Produce(ctx context.Context, producerID int, submit SubmitFunc) error
}

// ProducerFunc is a function type that implements the Producer interface.
type ProducerFunc func(ctx context.Context, producerID int, submit SubmitFunc) error

// Produce implements the Producer interface for ProducerFunc.
func (f ProducerFunc) Produce(ctx context.Context, producerID int, submit SubmitFunc) error {
	return f(ctx, producerID, submit)
}

// Repeat returns a Producer that submits n tasks built by build, in order.
func Repeat(n int, build func(producerID, i int) queue.Task) Producer {
	return ProducerFunc(func(ctx context.Context, producerID int, submit SubmitFunc) error {
		for i := 0; i < n; i++ {
			if err := submit(ctx, build(producerID, i)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Result is the outcome of one executed descriptor.
type Result struct {
	RunID      string
	Seq        uint64
	ProducerID int
	ConsumerID int

	// EnqueuedAt is when the queue stored the descriptor; DequeuedAt is when
	// the consumer started on it. QueueDelay is the difference.
	EnqueuedAt time.Time
	DequeuedAt time.Time
	QueueDelay time.Duration

	// Duration is how long the task took to execute
	Duration time.Duration

	Value any
	Error error
}

// Sink records task results. Implementations must be safe for concurrent use;
// every consumer calls Record directly.
type Sink interface {
	Record(ctx context.Context, r Result) error
}

// SinkFunc is a function type that implements the Sink interface.
type SinkFunc func(ctx context.Context, r Result) error

// Record implements the Sink interface for SinkFunc.
func (f SinkFunc) Record(ctx context.Context, r Result) error {
	return f(ctx, r)
}

// Report summarises a run. Snapshot returns the same shape while running.
type Report struct {
	RunID     string
	Producers int
	Consumers int

	Produced   int64
	Consumed   int64
	Failed     int64
	SinkErrors int64

	MeanQueueDelay time.Duration
	MaxQueueDelay  time.Duration
	Elapsed        time.Duration

	Queue queue.Stats
}

// Config holds configuration options for a Supervisor.
type Config struct {
	// Queue is the shared work queue. Required. The supervisor marks it
	// finished and destroys it at the end of Run.
	Queue queue.WorkQueue

	// Producer is run once per producer goroutine. Required when Producers > 0.
	Producer Producer

	// Producers is the number of producer goroutines. Zero is allowed: the
	// queue is then finished immediately.
	Producers int

	// Consumers is the number of consumer goroutines. Must be greater than 0.
	Consumers int

	// Sink receives every result. Nil discards results.
	Sink Sink

	// TaskTimeout bounds each task execution. Zero means no timeout.
	TaskTimeout time.Duration

	// Clock timestamps dequeues; it should match the queue's clock.
	// Defaults to queue.SystemClock.
	Clock queue.Clock

	// Logger receives lifecycle logs. Defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger

	// Metrics, when set, receives task outcome metrics labelled MetricsName.
	Metrics     *metrics.Registry
	MetricsName string

	// PanicHandler is called when a task panics. The panic is always
	// converted into a failed Result as well.
	PanicHandler func(d queue.Descriptor, recovered interface{})

	// OnProducerStart and OnProducerStop bracket each producer goroutine.
	OnProducerStart func(producerID int)
	OnProducerStop  func(producerID int, err error)

	// OnConsumerStart and OnConsumerStop bracket each consumer goroutine.
	OnConsumerStart func(consumerID int)
	OnConsumerStop  func(consumerID int)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(consumerID int, result Result)
}
