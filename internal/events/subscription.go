package events

import (
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Subscription is one listener's view of the event stream. Events is closed
// when the broadcaster drops the subscription.
type Subscription struct {
	id    uint64
	jobID string
	ch    chan entity.Job
	done  chan struct{}

	closeOnce  sync.Once
	detachOnce sync.Once

	// last delivered version per job; guarded by the broadcaster lock
	last map[string]uint64
}

func newSubscription(id uint64, jobID string, capacity int) *Subscription {
	return &Subscription{
		id:    id,
		jobID: jobID,
		ch:    make(chan entity.Job, capacity),
		done:  make(chan struct{}),
		last:  make(map[string]uint64),
	}
}

// Events yields snapshots in publish order.
func (s *Subscription) Events() <-chan entity.Job { return s.ch }

// Done is closed once the listener called Close.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close marks the listener gone. It is removed on the next publish.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// send queues j unless it is older than what this listener already has.
// It reports false when the listener is closed or its buffer is full.
func (s *Subscription) send(j entity.Job) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	if j.Version != 0 && j.Version <= s.last[j.ID] {
		return true
	}
	select {
	case s.ch <- j:
		s.last[j.ID] = j.Version
		return true
	default:
		return false
	}
}

func (s *Subscription) detach() {
	s.detachOnce.Do(func() {
		s.Close()
		close(s.ch)
	})
}
