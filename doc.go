/*
Package boundq provides a bounded, blocking FIFO work queue for concurrent
producers and consumers, plus a supervisor that runs them with a safe
two-phase shutdown.

Queue (pkg/queue):
  - Queue: fixed-capacity monitor queue of task descriptors
  - MetricsQueue: the same queue reporting to Prometheus
  - InsertContext / RemoveContext: cancellable waits

Running work (pkg/supervisor, pkg/sink):
  - supervisor: producer and consumer goroutines, shutdown ordering, reports
  - sink: CSV, log, Redis and fan-out result sinks

Example usage:

	import (
		"github.com/vnykmshr/boundq/pkg/queue"
		"github.com/vnykmshr/boundq/pkg/supervisor"
	)

	q, _ := queue.New(10)
	sup, _ := supervisor.New(supervisor.Config{
		Queue:     q,
		Producer:  supervisor.Repeat(100, buildTask),
		Producers: 3,
		Consumers: 5,
	})
	report, err := sup.Run(ctx)
*/
package boundq
