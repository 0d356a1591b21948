package channels

import (
	"errors"
	"sync"
)

var (
	// ErrClosed is returned when sending on a flow whose sender or receiver was closed.
	ErrClosed = errors.New("channels: flow closed")
	// ErrFull is returned by a bounded flow with the Reject overflow policy.
	ErrFull = errors.New("channels: flow full")
)

// Overflow selects what a bounded flow does when its buffer is full.
type Overflow int

const (
	// Block makes Send wait until the receiver drains an element.
	Block Overflow = iota
	// DropOldest discards the oldest buffered element to make room.
	DropOldest
	// Reject fails Send with ErrFull.
	Reject
)

// String returns the config name of the policy.
func (o Overflow) String() string {
	switch o {
	case Block:
		return "block"
	case DropOldest:
		return "drop_oldest"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseOverflow maps a config name to its policy.
func ParseOverflow(s string) (Overflow, error) {
	switch s {
	case "", "block":
		return Block, nil
	case "drop_oldest":
		return DropOldest, nil
	case "reject":
		return Reject, nil
	default:
		return Block, errors.New("channels: unknown overflow policy " + s)
	}
}

// queue is a multi-producer single-consumer FIFO. Producers append to buf
// under mu; a pump goroutine moves elements from buf to out one at a time.
type queue[T any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	buf       []T
	capacity  int // 0 means unbounded
	overflow  Overflow
	closed    bool // sender side closed
	abandoned bool // receiver side closed
	dropped   uint64

	out  chan T
	done chan struct{}
}

func newQueue[T any](capacity int, overflow Overflow) *queue[T] {
	q := &queue[T]{
		capacity: capacity,
		overflow: overflow,
		out:      make(chan T),
		done:     make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.pump()
	return q
}

func (q *queue[T]) send(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.closed || q.abandoned {
			return ErrClosed
		}
		if q.capacity <= 0 || len(q.buf) < q.capacity {
			break
		}
		switch q.overflow {
		case DropOldest:
			var zero T
			q.buf[0] = zero
			q.buf = q.buf[1:]
			q.dropped++
		case Reject:
			q.dropped++
			return ErrFull
		default:
			q.cond.Wait()
		}
	}

	q.buf = append(q.buf, v)
	q.cond.Broadcast()
	return nil
}

func (q *queue[T]) closeSend() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *queue[T]) closeRecv() {
	q.mu.Lock()
	if !q.abandoned {
		q.abandoned = true
		q.buf = nil
		close(q.done)
	}
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

func (q *queue[T]) droppedCount() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *queue[T]) pump() {
	defer close(q.out)

	for {
		q.mu.Lock()
		for len(q.buf) == 0 && !q.closed && !q.abandoned {
			q.cond.Wait()
		}
		if q.abandoned || len(q.buf) == 0 {
			q.mu.Unlock()
			return
		}
		v := q.buf[0]
		var zero T
		q.buf[0] = zero
		q.buf = q.buf[1:]
		q.mu.Unlock()
		q.cond.Broadcast()

		select {
		case q.out <- v:
		case <-q.done:
			return
		}
	}
}
