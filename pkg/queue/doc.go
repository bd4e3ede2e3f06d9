/*
Package queue provides a fixed-capacity, blocking FIFO of work descriptors shared
by producer and consumer goroutines.

The queue is a monitor: one mutex guards the circular buffer, its cursors, the
element count and the finished flag, and two condition variables park callers
while the buffer is full (producers) or empty and not finished (consumers).

Basic usage:

	q, err := queue.New(10)
	if err != nil {
		log.Fatal(err)
	}

	// producer
	q.Insert(queue.Descriptor{
		Task: queue.Bind(func(ctx context.Context, angle int) (any, error) {
			return math.Sin(float64(angle)), nil
		}, 30),
		ProducerID: 1,
	})

	// consumer
	for {
		d, ok := q.Remove()
		if !ok {
			break // finished and drained
		}
		d.Run(ctx)
	}

Shutdown Protocol:

The queue never decides on its own that work has ended. Whoever supervises the
goroutines performs the shutdown in this order:

 1. wait for every producer to return
 2. call MarkFinished, which wakes all blocked consumers
 3. wait for every consumer to observe end-of-stream
 4. call Destroy

MarkFinished is idempotent. After it, Remove drains what is buffered and then
reports end-of-stream on every call without blocking. Inserting after
MarkFinished, or destroying while a goroutine is blocked inside the queue, is a
contract violation and panics.

States:

	Active   -- MarkFinished -->  Draining  -- last Remove -->  Done
	Active   -- MarkFinished, empty ------------------------->  Done
	any      -- Destroy ------------------------------------->  Destroyed

Ordering:

Remove returns descriptors in the order Insert calls acquired the lock, across
all producers. Insert stamps each descriptor with a global sequence number
(Seq) and the enqueue time (EnqueuedAt), so consumers can verify the order and
measure queue delay. No fairness is promised between competing producers or
competing consumers.

Cancellation:

Insert and Remove block without a timeout. InsertContext and RemoveContext
layer cancellation on top: a done context wakes the waiter, which returns
ctx.Err() without inserting or taking anything.

Metrics:

NewWithMetrics and NewWithConfigAndMetrics return a MetricsQueue that reports
depth, traffic, blocked calls and queue delay to Prometheus. Queue and
MetricsQueue both implement WorkQueue.

Thread Safety:

All Queue methods are safe for concurrent use. Tasks are never run while the
queue lock is held; Remove hands the descriptor to the caller first.
*/
package queue
