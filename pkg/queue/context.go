package queue

import (
	"context"
	"sync"

	bqerrors "github.com/vnykmshr/boundq/pkg/common/errors"
)

// InsertContext is Insert with a cancellable wait. If ctx is done before space
// frees up it returns ctx.Err() and d is not inserted. A context that is
// already done fails before the queue is touched.
func (q *Queue) InsertContext(ctx context.Context, d Descriptor) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Check if context is already canceled before attempting to queue
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.checkInsertLocked("InsertContext")

	if q.count == q.capacity {
		stop := q.wakeOnDone(ctx, q.notFull)
		defer stop()

		q.blockedLocked(OpInsert)
		q.waitingProducers++
		for q.count == q.capacity {
			if err := ctx.Err(); err != nil {
				q.waitingProducers--
				return err
			}
			q.notFull.Wait()
		}
		q.waitingProducers--
	}

	q.insertLocked(d)
	return nil
}

// RemoveContext is Remove with a cancellable wait. It returns
// errors.ErrEndOfStream once the queue is finished and drained, and ctx.Err()
// if ctx is done while waiting. A cancelled call never takes a descriptor.
func (q *Queue) RemoveContext(ctx context.Context) (Descriptor, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := ctx.Err(); err != nil {
		return Descriptor{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.checkUsableLocked("RemoveContext")

	if q.count == 0 && !q.finished {
		stop := q.wakeOnDone(ctx, q.notEmpty)
		defer stop()

		q.blockedLocked(OpRemove)
		q.waitingConsumers++
		for q.count == 0 && !q.finished {
			if err := ctx.Err(); err != nil {
				q.waitingConsumers--
				return Descriptor{}, err
			}
			q.notEmpty.Wait()
		}
		q.waitingConsumers--
	}

	if q.count == 0 {
		return Descriptor{}, bqerrors.ErrEndOfStream
	}
	return q.removeLocked(), nil
}

// wakeOnDone broadcasts on cond when ctx is done so that a waiter parked in
// cond.Wait re-checks its context. Taking the lock before broadcasting means
// the wakeup cannot slip in between the waiter's ctx check and its Wait.
func (q *Queue) wakeOnDone(ctx context.Context, cond *sync.Cond) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		cond.Broadcast()
	})
}
