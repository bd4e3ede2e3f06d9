package sink

import (
	"context"
	"errors"
	"time"

	"github.com/vnykmshr/boundq/pkg/supervisor"
)

// Discard drops every result.
var Discard supervisor.Sink = supervisor.SinkFunc(func(context.Context, supervisor.Result) error {
	return nil
})

// Multi fans each result out to every sink in order. All sinks are called even
// if one fails; the errors are joined.
func Multi(sinks ...supervisor.Sink) supervisor.Sink {
	active := make([]supervisor.Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}

	return supervisor.SinkFunc(func(ctx context.Context, r supervisor.Result) error {
		var errs []error
		for _, s := range active {
			if err := s.Record(ctx, r); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// record is the serialised form of a supervisor.Result shared by the CSV and
// Redis sinks. Durations are in microseconds.
type record struct {
	RunID        string    `json:"run_id"`
	Seq          uint64    `json:"seq"`
	ProducerID   int       `json:"producer_id"`
	ConsumerID   int       `json:"consumer_id"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	QueueDelayUS int64     `json:"queue_delay_us"`
	DurationUS   int64     `json:"duration_us"`
	Value        any       `json:"value,omitempty"`
	Error        string    `json:"error,omitempty"`
}

func newRecord(r supervisor.Result) record {
	rec := record{
		RunID:        r.RunID,
		Seq:          r.Seq,
		ProducerID:   r.ProducerID,
		ConsumerID:   r.ConsumerID,
		EnqueuedAt:   r.EnqueuedAt,
		QueueDelayUS: r.QueueDelay.Microseconds(),
		DurationUS:   r.Duration.Microseconds(),
		Value:        r.Value,
	}
	if r.Error != nil {
		rec.Error = r.Error.Error()
	}
	return rec
}
