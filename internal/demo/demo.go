// Package demo is the reference workload run by the boundq command: each
// producer submits a fixed number of tasks, each computing the sine of an
// angle in degrees.
package demo

import (
	"context"
	"math"

	"github.com/vnykmshr/boundq/pkg/queue"
	"github.com/vnykmshr/boundq/pkg/supervisor"
)

// Sine returns the sine of deg degrees. It honours ctx so a task timeout or
// cancellation is reported as the task's error.
func Sine(ctx context.Context, deg int) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return math.Sin(float64(deg) * math.Pi / 180), nil
}

// SineTask binds Sine to deg.
func SineTask(deg int) queue.Task {
	return queue.Bind(Sine, deg)
}

// Producer returns a producer submitting tasksPerProducer sine tasks whose
// angle is the loop index.
func Producer(tasksPerProducer int) supervisor.Producer {
	return supervisor.Repeat(tasksPerProducer, func(_, i int) queue.Task {
		return SineTask(i)
	})
}
