package events

import (
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// SnapshotFunc returns the current state of every known job.
type SnapshotFunc func() []entity.Job

// Broadcaster fans job snapshots out to subscribers. Delivery is best effort
// and at most once per subscriber; a subscriber whose buffer is full or that
// has been closed is dropped on the publish that fails to reach it.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
	buffer int
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster whose subscriptions buffer up to
// buffer live events on top of their initial snapshot.
func NewBroadcaster(buffer int, logger *slog.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

// Publish delivers job to every matching subscriber without blocking.
func (b *Broadcaster) Publish(job entity.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, s := range b.subs {
		if s.jobID != "" && s.jobID != job.ID {
			continue
		}
		if !s.send(job) {
			delete(b.subs, id)
			s.detach()
			b.logger.Info("events.subscriber.pruned", "subscriber_id", id, "job_filter", s.jobID)
		}
	}
}

// Subscribe registers a listener. Before any live event, the subscription
// receives snapshot() (filtered to jobID when set). The snapshot is taken
// under the broadcaster lock, so a mutation racing with Subscribe is either
// contained in the snapshot or delivered afterwards, never lost.
func (b *Broadcaster) Subscribe(jobID string, snapshot SnapshotFunc) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	var initial []entity.Job
	if snapshot != nil {
		for _, j := range snapshot() {
			if jobID == "" || j.ID == jobID {
				initial = append(initial, j)
			}
		}
	}

	b.nextID++
	s := newSubscription(b.nextID, jobID, len(initial)+b.buffer)
	for _, j := range initial {
		s.send(j)
	}
	if b.closed {
		// the snapshot stays readable, then Events is closed
		s.detach()
		return s
	}
	b.subs[s.id] = s
	b.logger.Debug("events.subscriber.added", "subscriber_id", s.id, "job_filter", jobID, "snapshot", len(initial))
	return s
}

// Len returns the number of registered subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches every subscriber; their Events channels are closed. Later
// subscriptions get their snapshot and are detached straight away. Close is
// idempotent.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, s := range b.subs {
		delete(b.subs, id)
		s.detach()
	}
}
