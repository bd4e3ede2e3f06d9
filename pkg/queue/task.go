package queue

import (
	"context"
	"time"
)

// Task is the work carried by a Descriptor. It owns its argument; executing it
// produces a result value or an error.
type Task interface {
	Execute(ctx context.Context) (any, error)
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) (any, error)

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) (any, error) {
	return f(ctx)
}

// Noop is a Task that does nothing and returns no result.
var Noop Task = TaskFunc(func(context.Context) (any, error) { return nil, nil })

// Bind returns a Task that applies work to arg. The argument is captured by
// value and travels with the descriptor until a consumer executes it.
func Bind[A any](work func(ctx context.Context, arg A) (any, error), arg A) Task {
	if work == nil {
		return Noop
	}
	return TaskFunc(func(ctx context.Context) (any, error) {
		return work(ctx, arg)
	})
}

// Descriptor is one unit of work travelling through a Queue.
type Descriptor struct {
	// Task is the work to run. A nil Task runs as Noop.
	Task Task

	// ProducerID identifies the producer that created the descriptor.
	// It is used for attribution only.
	ProducerID int

	// Seq is the global insertion sequence number, starting at 1.
	// Set by Insert.
	Seq uint64

	// EnqueuedAt is the time the descriptor was stored in the queue.
	// Set by Insert.
	EnqueuedAt time.Time
}

// Run executes the descriptor's task.
func (d Descriptor) Run(ctx context.Context) (any, error) {
	if d.Task == nil {
		return Noop.Execute(ctx)
	}
	return d.Task.Execute(ctx)
}

// Clock supplies the timestamps stamped on inserted descriptors.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock used when no Clock option is given.
var SystemClock Clock = systemClock{}
