/*
Package supervisor runs producers and consumers around a single bounded queue
and shuts them down in the only safe order.

A run starts Consumers goroutines that remove and execute descriptors until
end-of-stream, and Producers goroutines that each call Producer.Produce with a
submit function bound to their producer ID. When every producer has returned
the supervisor marks the queue finished; consumers drain what is left, observe
end-of-stream and exit; the supervisor then destroys the queue.

Basic usage:

	q, _ := queue.New(10)
	sup, err := supervisor.New(supervisor.Config{
		Queue:     q,
		Producers: 3,
		Consumers: 5,
		Producer: supervisor.Repeat(100, func(producerID, i int) queue.Task {
			return queue.Bind(work, i)
		}),
		Sink: sink.NewLogSink(logger),
	})
	if err != nil {
		log.Fatal(err)
	}

	report, err := sup.Run(ctx)

Cancellation:

Cancelling the context passed to Run releases producers blocked on a full
queue; their submit calls fail with the context error wrapped in an
errors.OperationError. Descriptors already in the queue are still executed,
so Run returns only after the queue has been drained and destroyed.

Results:

Each executed descriptor yields a Result carrying the queue delay (time between
insertion and removal) and the execution duration. Results go to the configured
Sink and OnTaskComplete callback; a failing sink is counted in the Report and
logged, never retried. Task panics are recovered and reported as failed results.

Snapshot may be called concurrently with Run to observe progress.
*/
package supervisor
