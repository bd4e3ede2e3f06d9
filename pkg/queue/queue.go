package queue

import (
	"context"
	"fmt"
	"sync"

	bqerrors "github.com/vnykmshr/boundq/pkg/common/errors"
	"github.com/vnykmshr/boundq/pkg/common/validation"
)

// State is the lifecycle phase of a Queue.
type State int

const (
	// Active means producers may still insert.
	Active State = iota

	// Draining means the queue is finished but still holds descriptors.
	Draining

	// Done means the queue is finished and empty. Every Remove returns end-of-stream.
	Done

	// Destroyed means Destroy has released the queue.
	Destroyed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Done:
		return "done"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Op names a blocking queue operation.
type Op int

const (
	OpInsert Op = iota
	OpRemove
)

func (o Op) String() string {
	if o == OpInsert {
		return "insert"
	}
	return "remove"
}

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	Capacity int
	Len      int
	State    State

	// Inserted and Removed count descriptors moved in and out.
	Inserted uint64
	Removed  uint64

	// BlockedInserts and BlockedRemoves count calls that had to wait.
	BlockedInserts uint64
	BlockedRemoves uint64

	// WaitingProducers and WaitingConsumers are goroutines parked right now.
	WaitingProducers int
	WaitingConsumers int
}

// WorkQueue is the behaviour shared by Queue and MetricsQueue.
type WorkQueue interface {
	// Insert stores d, blocking while the queue is full.
	Insert(d Descriptor)

	// InsertContext is Insert with cancellation of the wait.
	InsertContext(ctx context.Context, d Descriptor) error

	// Remove returns the oldest descriptor, blocking while the queue is empty
	// and not finished. ok is false once the queue is finished and drained.
	Remove() (d Descriptor, ok bool)

	// RemoveContext is Remove with cancellation of the wait. End-of-stream is
	// reported as errors.ErrEndOfStream.
	RemoveContext(ctx context.Context) (Descriptor, error)

	// MarkFinished declares that no producer will insert again.
	MarkFinished()

	// Destroy releases the buffer. No goroutine may be blocked in the queue.
	Destroy()

	Len() int
	Cap() int
	IsFinished() bool
	State() State
	Stats() Stats
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock sets the clock used to stamp EnqueuedAt.
func WithClock(c Clock) Option {
	return func(q *Queue) {
		if c != nil {
			q.clock = c
		}
	}
}

// WithOnBlock registers a callback invoked each time an Insert or Remove has
// to wait. It runs with the queue lock held and must not call into the queue.
func WithOnBlock(fn func(op Op)) Option {
	return func(q *Queue) {
		q.onBlock = fn
	}
}

// Queue is a fixed-capacity FIFO of descriptors guarded by one mutex and two
// condition variables. The zero value is not usable; call New.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond // not empty or finished

	capacity  int
	slots     []Descriptor
	head      int
	tail      int
	count     int
	finished  bool
	destroyed bool

	seq   uint64
	clock Clock

	onBlock func(op Op)

	stats            Stats
	waitingProducers int
	waitingConsumers int
}

// New creates an empty, active queue holding at most capacity descriptors.
// A non-positive capacity fails with errors.ErrInvalidCapacity.
func New(capacity int, opts ...Option) (*Queue, error) {
	if err := validation.ValidatePositive("queue", "capacity", capacity); err != nil {
		return nil, fmt.Errorf("%w: %w", bqerrors.ErrInvalidCapacity, err)
	}

	q := &Queue{
		capacity: capacity,
		slots:    make([]Descriptor, capacity),
		clock:    SystemClock,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)

	for _, opt := range opts {
		opt(q)
	}

	return q, nil
}

// Insert stores d at the tail, stamping Seq and EnqueuedAt. It blocks while the
// queue is full and returns once d is buffered.
//
// Calling Insert after MarkFinished panics, as does sending on a closed channel.
func (q *Queue) Insert(d Descriptor) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.checkInsertLocked("Insert")

	if q.count == q.capacity {
		q.blockedLocked(OpInsert)
		q.waitingProducers++
		for q.count == q.capacity {
			q.notFull.Wait()
		}
		q.waitingProducers--
	}

	q.insertLocked(d)
}

// Remove takes the oldest descriptor out of the queue. It blocks while the
// queue is empty and not finished. Once the queue is finished and drained it
// returns ok == false immediately, on every call.
//
// The returned descriptor is no longer referenced by the queue.
func (q *Queue) Remove() (Descriptor, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.checkUsableLocked("Remove")

	if q.count == 0 && !q.finished {
		q.blockedLocked(OpRemove)
		q.waitingConsumers++
		for q.count == 0 && !q.finished {
			q.notEmpty.Wait()
		}
		q.waitingConsumers--
	}

	if q.count == 0 {
		return Descriptor{}, false
	}
	return q.removeLocked(), true
}

// MarkFinished declares that no producer will call Insert again and wakes every
// blocked consumer. Call it only after all producers have returned.
// Calling it more than once has no further effect.
func (q *Queue) MarkFinished() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.checkUsableLocked("MarkFinished")

	if q.finished {
		return
	}
	q.finished = true
	q.notEmpty.Broadcast()
}

// Destroy releases the buffer and any descriptors still in it. All producers
// and consumers must have returned first: Destroy panics if a goroutine is
// blocked inside the queue. Later calls to Insert, Remove or MarkFinished panic.
// Destroying twice is a no-op.
func (q *Queue) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destroyed {
		return
	}
	if n := q.waitingProducers + q.waitingConsumers; n > 0 {
		panic(fmt.Sprintf("queue: Destroy with %d blocked goroutines", n))
	}

	q.destroyed = true
	q.slots = nil
	q.head, q.tail, q.count = 0, 0, 0
}

// Len returns the number of buffered descriptors.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int {
	return q.capacity
}

// IsFinished reports whether MarkFinished has been called.
func (q *Queue) IsFinished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished
}

// State returns the current lifecycle phase.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stateLocked()
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.stats
	s.Capacity = q.capacity
	s.Len = q.count
	s.State = q.stateLocked()
	s.WaitingProducers = q.waitingProducers
	s.WaitingConsumers = q.waitingConsumers
	return s
}

func (q *Queue) stateLocked() State {
	switch {
	case q.destroyed:
		return Destroyed
	case !q.finished:
		return Active
	case q.count > 0:
		return Draining
	default:
		return Done
	}
}

// insertLocked writes d at the tail (must hold lock, queue not full).
func (q *Queue) insertLocked(d Descriptor) {
	q.seq++
	d.Seq = q.seq
	d.EnqueuedAt = q.clock.Now()

	q.slots[q.tail] = d
	q.tail = (q.tail + 1) % len(q.slots)
	q.count++
	q.stats.Inserted++

	q.notEmpty.Signal()
}

// removeLocked moves the head descriptor out (must hold lock, queue not empty).
func (q *Queue) removeLocked() Descriptor {
	d := q.slots[q.head]
	q.slots[q.head] = Descriptor{} // Clear reference
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	q.stats.Removed++

	q.notFull.Signal()
	return d
}

func (q *Queue) blockedLocked(op Op) {
	if op == OpInsert {
		q.stats.BlockedInserts++
	} else {
		q.stats.BlockedRemoves++
	}
	if q.onBlock != nil {
		q.onBlock(op)
	}
}

func (q *Queue) checkUsableLocked(op string) {
	if q.destroyed {
		panic("queue: " + op + " on destroyed queue")
	}
}

func (q *Queue) checkInsertLocked(op string) {
	q.checkUsableLocked(op)
	if q.finished {
		panic("queue: " + op + " after MarkFinished")
	}
}
