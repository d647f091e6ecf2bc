package events

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/jobs"
)

func drain(t *testing.T, s *Subscription, n int) []entity.Job {
	t.Helper()
	out := make([]entity.Job, 0, n)
	for len(out) < n {
		select {
		case j, ok := <-s.Events():
			require.True(t, ok, "events channel closed early")
			out = append(out, j)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestSubscribeReceivesSnapshotFirst(t *testing.T) {
	b := NewBroadcaster(8, nil)
	reg := jobs.NewRegistry(b, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, reg.Create(jobs.CreateParams{Filename: fmt.Sprintf("%d.pdf", i)}).ID)
	}

	sub := b.Subscribe("", reg.List)
	defer sub.Close()

	fresh := reg.Create(jobs.CreateParams{Filename: "new.pdf"})

	got := drain(t, sub, 4)
	for i, id := range ids {
		assert.Equal(t, id, got[i].ID)
	}
	assert.Equal(t, fresh.ID, got[3].ID)
}

func TestPublishOrderPerListener(t *testing.T) {
	b := NewBroadcaster(16, nil)
	sub := b.Subscribe("", nil)

	for v := uint64(1); v <= 5; v++ {
		b.Publish(entity.Job{ID: "job1", Version: v, Progress: int(v) * 10})
	}
	got := drain(t, sub, 5)
	for i, j := range got {
		assert.Equal(t, uint64(i+1), j.Version)
	}
}

func TestStaleVersionsAreDropped(t *testing.T) {
	b := NewBroadcaster(16, nil)
	sub := b.Subscribe("", func() []entity.Job {
		return []entity.Job{{ID: "job1", Version: 3}}
	})

	b.Publish(entity.Job{ID: "job1", Version: 2})
	b.Publish(entity.Job{ID: "job1", Version: 3})
	b.Publish(entity.Job{ID: "job1", Version: 4})

	got := drain(t, sub, 2)
	assert.Equal(t, uint64(3), got[0].Version)
	assert.Equal(t, uint64(4), got[1].Version)
	assert.Empty(t, sub.Events())
}

func TestJobFilter(t *testing.T) {
	b := NewBroadcaster(16, nil)
	snapshot := func() []entity.Job {
		return []entity.Job{{ID: "a", Version: 1}, {ID: "b", Version: 1}}
	}
	sub := b.Subscribe("b", snapshot)

	b.Publish(entity.Job{ID: "a", Version: 2})
	b.Publish(entity.Job{ID: "b", Version: 2})

	got := drain(t, sub, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, uint64(2), got[1].Version)
}

func TestClosedSubscriberIsPrunedOnPublish(t *testing.T) {
	b := NewBroadcaster(4, nil)
	keep := b.Subscribe("", nil)
	gone := b.Subscribe("", nil)
	require.Equal(t, 2, b.Len())

	gone.Close()
	assert.Equal(t, 2, b.Len(), "pruning is lazy")

	b.Publish(entity.Job{ID: "x", Version: 1})
	assert.Equal(t, 1, b.Len())

	_, open := <-gone.Events()
	assert.False(t, open)
	assert.Len(t, drain(t, keep, 1), 1)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	b := NewBroadcaster(2, nil)
	slow := b.Subscribe("", nil)

	for v := uint64(1); v <= 3; v++ {
		b.Publish(entity.Job{ID: "x", Version: v})
	}
	assert.Equal(t, 0, b.Len())

	var got []uint64
	for j := range slow.Events() {
		got = append(got, j.Version)
	}
	assert.Equal(t, []uint64{1, 2}, got, "no retry after the failed write")
}

func TestCloseDetachesAll(t *testing.T) {
	b := NewBroadcaster(4, nil)
	s := b.Subscribe("", nil)
	b.Close()
	assert.Equal(t, 0, b.Len())
	_, open := <-s.Events()
	assert.False(t, open)
	select {
	case <-s.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestSubscribeAfterCloseEndsAfterSnapshot(t *testing.T) {
	b := NewBroadcaster(4, nil)
	b.Close()
	b.Close()

	s := b.Subscribe("", func() []entity.Job {
		return []entity.Job{{ID: "a", Version: 1}}
	})
	var got []string
	for j := range s.Events() {
		got = append(got, j.ID)
	}
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 0, b.Len())
}

// Subscribers joining while jobs mutate must converge on the registry's final
// state with per-job versions strictly increasing.
func TestConcurrentSubscribeConverges(t *testing.T) {
	b := NewBroadcaster(1024, nil)
	reg := jobs.NewRegistry(b, nil)

	const n = 10
	ids := make([]string, n)
	for i := range ids {
		ids[i] = reg.Create(jobs.CreateParams{Filename: fmt.Sprintf("%d.pdf", i)}).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = reg.Start(id, nil)
			for _, p := range []int{20, 50, 80} {
				_, _ = reg.Update(id, func(j *entity.Job) error {
					j.Progress = p
					return nil
				})
			}
			_, _ = reg.Update(id, func(j *entity.Job) error {
				j.Status = constants.JobStatusCompleted
				return nil
			})
		}(id)
	}

	subs := make([]*Subscription, 5)
	for i := range subs {
		subs[i] = b.Subscribe("", reg.List)
	}
	wg.Wait()

	for _, s := range subs {
		last := map[string]entity.Job{}
		timeout := time.After(2 * time.Second)
	collect:
		for {
			select {
			case j := <-s.Events():
				if prev, ok := last[j.ID]; ok {
					require.Greater(t, j.Version, prev.Version)
					require.GreaterOrEqual(t, j.Progress, prev.Progress)
				}
				last[j.ID] = j
				done := len(last) == n
				for _, v := range last {
					done = done && v.Status == constants.JobStatusCompleted
				}
				if done {
					break collect
				}
			case <-timeout:
				t.Fatalf("subscriber did not converge: %d jobs seen", len(last))
			}
		}
		for _, id := range ids {
			final, _ := reg.Get(id)
			assert.Equal(t, final.Version, last[id].Version)
		}
		s.Close()
	}
}
