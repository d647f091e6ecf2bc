package async

import "sync"

// Queue is an unbounded FIFO of job ids. Push never blocks; Pop blocks until
// an item is available or the queue is closed and drained.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends id. It returns false once the queue is closed.
func (q *Queue) Push(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, id)
	q.cond.Signal()
	return true
}

// Pop removes the oldest id. ok is false when the queue is closed and empty.
func (q *Queue) Pop() (id string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return "", false
	}
	id = q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return id, true
}

// Len returns the number of queued ids.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops intake and wakes blocked Pop calls. Queued ids remain poppable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
