package cart

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// saveQueue serializes durable cart writes. Mutations signal it with Notify;
// the queue runs at most one write at a time and always snapshots the
// current full state at write time, so superseded notifications coalesce and
// the last mutation's state is the one that lands in storage.
type saveQueue struct {
	save    func(ctx context.Context) error
	timeout time.Duration
	lg      *zap.Logger

	trigger chan struct{}
	sync    chan syncOp
	stop    chan struct{}
	done    chan struct{}
}

// syncOp is an operation run on the queue goroutine, ordered after any
// in-flight write.
type syncOp struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

func newSaveQueue(save func(ctx context.Context) error, lg *zap.Logger) *saveQueue {
	q := &saveQueue{
		save:    save,
		timeout: 5 * time.Second,
		lg:      lg,
		trigger: make(chan struct{}, 1),
		sync:    make(chan syncOp),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Notify schedules a durable write of the current state. Never blocks; a
// pending notification absorbs later ones.
func (q *saveQueue) Notify() {
	select {
	case q.trigger <- struct{}{}:
	default:
	}
}

// Close drains any pending write and stops the queue.
func (q *saveQueue) Close() {
	close(q.stop)
	<-q.done
}

// Sync runs fn on the queue goroutine and waits for it. It is ordered after
// any write already in flight, and a still-pending notification is
// discarded: fn reflects newer state than the snapshot that notification
// would have written. If the queue has stopped, fn runs inline.
func (q *saveQueue) Sync(ctx context.Context, fn func(ctx context.Context) error) error {
	op := syncOp{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case q.sync <- op:
		return <-op.done
	case <-q.done:
		return q.runOp(ctx, fn)
	}
}

func (q *saveQueue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.stop:
			// Final drain so a mutation issued just before shutdown is
			// not lost.
			select {
			case <-q.trigger:
				q.writeOnce()
			default:
			}
			return
		case op := <-q.sync:
			select {
			case <-q.trigger:
			default:
			}
			op.done <- q.runOp(op.ctx, op.fn)
		case <-q.trigger:
			q.writeOnce()
		}
	}
}

// writeOnce performs a single durable write. Failures are logged and
// swallowed: in-memory state stays authoritative for the running session.
func (q *saveQueue) writeOnce() {
	if err := q.runOp(context.Background(), q.save); err != nil {
		q.lg.Warn("cart save failed", zap.Error(err))
	}
}

func (q *saveQueue) runOp(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	return fn(ctx)
}
