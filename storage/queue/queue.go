package queue

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/zond/mudkit"
	"github.com/zond/mudkit/storage/dbm"
	"github.com/zond/mudkit/structs"
)

var (
	ErrClosed = errors.New("queue is closed")
)

// Queue is a persistent priority queue for scheduled events, backed by a B-tree.
// Events are processed in timestamp order, events that came due while the
// server was down are processed as soon as it starts.
//
// Coordination uses channels instead of sync.Cond for clean integration with
// timers and context cancellation in a single select loop.
type Queue struct {
	tree    *dbm.TypeTree[structs.Event, *structs.Event]
	wake    chan struct{} // Buffered(1), signals new event or state change
	done    chan struct{} // Closed when Start() exits
	mu      sync.Mutex    // Protects closed and started
	closed  bool
	started bool
}

func New(t *dbm.TypeTree[structs.Event, *structs.Event]) *Queue {
	return &Queue{
		tree: t,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (q *Queue) After(dur time.Duration) structs.Timestamp {
	return structs.Timestamp(time.Now().Add(dur).UnixNano())
}

func (q *Queue) At(t time.Time) structs.Timestamp {
	return structs.Timestamp(t.UnixNano())
}

func (q *Queue) Now() structs.Timestamp {
	return structs.Timestamp(time.Now().UnixNano())
}

func (q *Queue) until(at structs.Timestamp) time.Duration {
	return time.Nanosecond * time.Duration(int64(at)-int64(q.Now()))
}

func (q *Queue) peekFirst() (*structs.Event, error) {
	res, err := q.tree.First()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, mudkit.WithStack(err)
	}
	return res, nil
}

// signal sends a non-blocking wake signal.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close signals the queue to stop and waits for Start() to exit, if it runs.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	started := q.started
	q.mu.Unlock()
	q.signal()
	if started {
		<-q.done
	}
	return nil
}

func (q *Queue) Push(ctx context.Context, eventer structs.Eventer) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return mudkit.WithStack(ErrClosed)
	}
	q.mu.Unlock()

	ev, err := eventer.Event()
	if err != nil {
		return mudkit.WithStack(err)
	}
	ev.CreateKey()

	if err := q.tree.Set(ev.Key, ev, false); err != nil {
		return mudkit.WithStack(err)
	}

	q.signal()
	return nil
}

// EventHandler handles due events. Returning an error stops the queue and
// leaves the event queued.
type EventHandler func(context.Context, *structs.Event) error

// Start runs the event loop, calling handler for each event when its time arrives.
// Blocks until the queue is closed or context is cancelled.
// Due events are processed before returning; future events remain in the queue.
func (q *Queue) Start(ctx context.Context, handler EventHandler) error {
	q.mu.Lock()
	q.started = true
	closed := q.closed
	q.mu.Unlock()
	defer close(q.done)

	if closed {
		return nil
	}
	if ctx.Err() != nil {
		return mudkit.WithStack(ctx.Err())
	}

	next, err := q.peekFirst()
	if err != nil {
		return mudkit.WithStack(err)
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil
		}

		// Process all due events.
		for next != nil && structs.Timestamp(next.At) <= q.Now() {
			if err := handler(ctx, next); err != nil {
				return mudkit.WithStack(err)
			}
			if err := q.tree.Del(next.Key); err != nil {
				return mudkit.WithStack(err)
			}
			if next, err = q.peekFirst(); err != nil {
				return mudkit.WithStack(err)
			}
		}

		// Determine what to wait on.
		var timerC <-chan time.Time
		if next != nil {
			if d := q.until(structs.Timestamp(next.At)); d > 0 {
				timer.Reset(d)
				timerC = timer.C
			} else {
				continue
			}
		}

		select {
		case <-timerC:
			// Timer fired, loop to process.
		case <-q.wake:
			// New event or close requested. Stop timer, drain if fired.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			if next, err = q.peekFirst(); err != nil {
				return mudkit.WithStack(err)
			}
		case <-ctx.Done():
			return mudkit.WithStack(ctx.Err())
		}
	}
}
