package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	bqerrors "github.com/vnykmshr/boundq/pkg/common/errors"
	"github.com/vnykmshr/boundq/pkg/common/validation"
	"github.com/vnykmshr/boundq/pkg/queue"
)

// Supervisor owns the producer and consumer goroutines around one queue and
// performs the shutdown in its required order: join producers, mark the queue
// finished, join consumers, destroy the queue.
type Supervisor struct {
	config Config
	runID  string
	log    logrus.FieldLogger

	started atomic.Bool

	produced   atomic.Int64
	consumed   atomic.Int64
	failed     atomic.Int64
	sinkErrors atomic.Int64

	mu         sync.Mutex
	startAt    time.Time
	delays     int64
	delayTotal time.Duration
	delayMax   time.Duration
}

// New validates config and returns a Supervisor ready to Run.
func New(config Config) (*Supervisor, error) {
	if err := validation.ValidateNotNil("supervisor", "queue", config.Queue); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("supervisor", "producers", config.Producers); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("supervisor", "consumers", config.Consumers); err != nil {
		return nil, err
	}
	if config.Producers > 0 {
		if err := validation.ValidateNotNil("supervisor", "producer", config.Producer); err != nil {
			return nil, err
		}
	}
	if config.TaskTimeout < 0 {
		return nil, bqerrors.NewValidationError("supervisor", "task_timeout", config.TaskTimeout, "cannot be negative")
	}

	if config.Clock == nil {
		config.Clock = queue.SystemClock
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.MetricsName == "" {
		config.MetricsName = "default"
	}

	runID := uuid.NewString()
	return &Supervisor{
		config: config,
		runID:  runID,
		log: config.Logger.WithFields(logrus.Fields{
			"component": "supervisor",
			"run_id":    runID,
		}),
	}, nil
}

// RunID identifies this supervisor in logs and sink keys.
func (s *Supervisor) RunID() string {
	return s.runID
}

// Run starts all consumers and producers and blocks until the queue is
// drained and destroyed. Cancelling ctx stops producers that are waiting for
// space; whatever was already queued is still executed, with ctx passed to
// each task. The returned error joins the producers' errors.
//
// Run may be called only once.
func (s *Supervisor) Run(ctx context.Context) (Report, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Report{}, fmt.Errorf("supervisor %s: %w", s.runID, bqerrors.ErrClosed)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startAt = time.Now()
	s.mu.Unlock()

	q := s.config.Queue
	s.log.WithFields(logrus.Fields{
		"producers": s.config.Producers,
		"consumers": s.config.Consumers,
		"capacity":  q.Cap(),
	}).Info("run started")

	var consumers sync.WaitGroup
	for i := 0; i < s.config.Consumers; i++ {
		consumers.Add(1)
		go s.consume(ctx, i, &consumers)
	}

	errs := make([]error, s.config.Producers)
	var producers sync.WaitGroup
	for i := 0; i < s.config.Producers; i++ {
		producers.Add(1)
		go func(id int) {
			defer producers.Done()
			errs[id] = s.produce(ctx, id)
		}(i)
	}

	producers.Wait()
	s.log.WithField("produced", s.produced.Load()).Debug("producers joined, marking queue finished")
	q.MarkFinished()

	consumers.Wait()
	s.log.Debug("consumers joined, destroying queue")

	report := s.Snapshot()
	q.Destroy()
	report.Queue.State = queue.Destroyed

	err := errors.Join(errs...)
	entry := s.log.WithFields(logrus.Fields{
		"produced":         report.Produced,
		"consumed":         report.Consumed,
		"failed":           report.Failed,
		"sink_errors":      report.SinkErrors,
		"mean_queue_delay": report.MeanQueueDelay,
		"max_queue_delay":  report.MaxQueueDelay,
		"elapsed":          report.Elapsed,
	})
	if err != nil {
		entry.WithError(err).Warn("run finished with producer errors")
	} else {
		entry.Info("run finished")
	}

	return report, err
}

// Snapshot returns the counters so far. It is safe to call while Run is in
// progress and after it returns.
func (s *Supervisor) Snapshot() Report {
	r := Report{
		RunID:      s.runID,
		Producers:  s.config.Producers,
		Consumers:  s.config.Consumers,
		Produced:   s.produced.Load(),
		Consumed:   s.consumed.Load(),
		Failed:     s.failed.Load(),
		SinkErrors: s.sinkErrors.Load(),
		Queue:      s.config.Queue.Stats(),
	}
	s.mu.Lock()
	if !s.startAt.IsZero() {
		r.Elapsed = time.Since(s.startAt)
	}
	if s.delays > 0 {
		r.MeanQueueDelay = s.delayTotal / time.Duration(s.delays)
	}
	r.MaxQueueDelay = s.delayMax
	s.mu.Unlock()

	return r
}

// produce runs one producer to completion.
func (s *Supervisor) produce(ctx context.Context, id int) (err error) {
	log := s.log.WithField("producer", id)
	if s.config.OnProducerStart != nil {
		s.config.OnProducerStart(id)
	}
	log.Debug("producer started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer %d panicked: %v\nStack trace:\n%s", id, r, debug.Stack())
		}
		if err != nil {
			log.WithError(err).Warn("producer stopped")
		} else {
			log.Debug("producer stopped")
		}
		if s.config.OnProducerStop != nil {
			s.config.OnProducerStop(id, err)
		}
	}()

	submit := func(ctx context.Context, task queue.Task) error {
		if ctx == nil {
			ctx = context.Background()
		}
		d := queue.Descriptor{Task: task, ProducerID: id}
		if err := s.config.Queue.InsertContext(ctx, d); err != nil {
			return bqerrors.NewOperationError("supervisor", "submit", err).
				WithContext(fmt.Sprintf("producer %d", id))
		}
		s.produced.Add(1)
		return nil
	}

	return s.config.Producer.Produce(ctx, id, submit)
}

// consume removes descriptors until end-of-stream.
func (s *Supervisor) consume(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()

	if s.config.OnConsumerStart != nil {
		s.config.OnConsumerStart(id)
	}
	if s.config.OnConsumerStop != nil {
		defer s.config.OnConsumerStop(id)
	}

	for {
		d, ok := s.config.Queue.Remove()
		if !ok {
			s.log.WithField("consumer", id).Debug("end of stream")
			return
		}
		s.execute(ctx, id, d)
	}
}

// execute runs one descriptor outside the queue lock and records its result.
func (s *Supervisor) execute(ctx context.Context, consumerID int, d queue.Descriptor) {
	start := s.config.Clock.Now()
	result := Result{
		RunID:      s.runID,
		Seq:        d.Seq,
		ProducerID: d.ProducerID,
		ConsumerID: consumerID,
		EnqueuedAt: d.EnqueuedAt,
		DequeuedAt: start,
		QueueDelay: start.Sub(d.EnqueuedAt),
	}

	result.Value, result.Error = s.run(ctx, d)
	result.Duration = s.config.Clock.Now().Sub(start)

	s.consumed.Add(1)
	if result.Error != nil {
		s.failed.Add(1)
	}
	s.observeDelay(result.QueueDelay)
	s.recordMetrics(result)

	if s.config.OnTaskComplete != nil {
		s.config.OnTaskComplete(consumerID, result)
	}

	if s.config.Sink != nil {
		if err := s.config.Sink.Record(ctx, result); err != nil {
			s.sinkErrors.Add(1)
			if reg := s.config.Metrics; reg != nil {
				reg.SinkErrors.WithLabelValues(s.config.MetricsName).Inc()
			}
			s.log.WithFields(logrus.Fields{
				"consumer": consumerID,
				"seq":      d.Seq,
			}).WithError(err).Warn("sink failed to record result")
		}
	}
}

// run executes the task with panic recovery and the configured timeout.
func (s *Supervisor) run(ctx context.Context, d queue.Descriptor) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if s.config.PanicHandler != nil {
				s.config.PanicHandler(d, r)
			}
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
		}
	}()

	if s.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.TaskTimeout)
		defer cancel()
	}

	return d.Run(ctx)
}

func (s *Supervisor) observeDelay(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delays++
	s.delayTotal += delay
	if delay > s.delayMax {
		s.delayMax = delay
	}
}

func (s *Supervisor) recordMetrics(r Result) {
	reg := s.config.Metrics
	if reg == nil {
		return
	}
	name := s.config.MetricsName

	reg.TasksExecuted.WithLabelValues(name).Inc()
	reg.TaskExecutionDuration.WithLabelValues(name).Observe(r.Duration.Seconds())
	if r.Error != nil {
		reg.TasksFailed.WithLabelValues(name).Inc()
	} else {
		reg.TasksCompleted.WithLabelValues(name).Inc()
	}
}
