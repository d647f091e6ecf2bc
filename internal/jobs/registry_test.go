package jobs

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.Job
}

func (p *recordingPublisher) Publish(j entity.Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, j)
}

func (p *recordingPublisher) forJob(id string) []entity.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []entity.Job
	for _, e := range p.events {
		if e.ID == id {
			out = append(out, e)
		}
	}
	return out
}

func newTestRegistry(t *testing.T) (*Registry, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return NewRegistry(pub, nil), pub
}

func setProgress(p int) func(*entity.Job) error {
	return func(j *entity.Job) error {
		j.Progress = p
		return nil
	}
}

func TestCreateGetList(t *testing.T) {
	reg, pub := newTestRegistry(t)

	a := reg.Create(CreateParams{Filename: "a.pdf", Provider: constants.ProviderOffline})
	b := reg.Create(CreateParams{Filename: "b.pdf", Provider: constants.ProviderOnline})

	assert.Len(t, a.ID, 8)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, constants.JobStatusWaiting, a.Status)
	assert.Equal(t, 0, a.Progress)
	assert.Equal(t, uint64(1), a.Version)

	got, err := reg.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a.pdf", list[0].Filename)
	assert.Equal(t, "b.pdf", list[1].Filename)

	assert.Len(t, pub.forJob(a.ID), 1)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = reg.RequestCancel("missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateRedrawsCollidingIDs(t *testing.T) {
	ids := []string{"dup00000", "dup00000", "uniq0001"}
	var n int
	reg := NewRegistry(nil, nil, WithIDGenerator(func() string {
		id := ids[n]
		n++
		return id
	}))

	first := reg.Create(CreateParams{Filename: "a.pdf"})
	second := reg.Create(CreateParams{Filename: "b.pdf"})
	assert.Equal(t, "dup00000", first.ID)
	assert.Equal(t, "uniq0001", second.ID)
}

func TestSnapshotsAreCopies(t *testing.T) {
	reg, _ := newTestRegistry(t)
	j := reg.Create(CreateParams{Filename: "a.pdf"})
	j.Status = constants.JobStatusCompleted
	j.Filename = "changed"

	got, err := reg.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusWaiting, got.Status)
	assert.Equal(t, "a.pdf", got.Filename)
}

func TestUpdateEnforcesStateGraph(t *testing.T) {
	reg, _ := newTestRegistry(t)
	j := reg.Create(CreateParams{Filename: "a.pdf"})

	_, err := reg.Update(j.ID, func(j *entity.Job) error {
		j.Status = constants.JobStatusCompleted
		return nil
	})
	assert.ErrorIs(t, err, common.ErrInvalidState, "WAITING cannot jump to COMPLETED")

	_, err = reg.Start(j.ID, nil)
	require.NoError(t, err)

	snap, err := reg.Update(j.ID, setProgress(constants.ProgressTextExtracted))
	require.NoError(t, err)
	assert.Equal(t, 20, snap.Progress)

	_, err = reg.Update(j.ID, setProgress(10))
	assert.ErrorIs(t, err, common.ErrInvalidState, "progress may not regress")

	snap, err = reg.Update(j.ID, func(j *entity.Job) error {
		j.Status = constants.JobStatusCompleted
		j.Artifact = "a.xlsx"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Progress)
	require.NotNil(t, snap.FinishedAt)

	_, err = reg.Update(j.ID, func(j *entity.Job) error {
		j.Status = constants.JobStatusError
		return nil
	})
	assert.ErrorIs(t, err, common.ErrInvalidState, "terminal states are final")

	_, err = reg.Update(j.ID, func(j *entity.Job) error {
		j.ErrorMessage = "late"
		return nil
	})
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestUpdateRejectsImmutableFields(t *testing.T) {
	reg, _ := newTestRegistry(t)
	j := reg.Create(CreateParams{Filename: "a.pdf", Provider: constants.ProviderOffline})

	_, err := reg.Update(j.ID, func(j *entity.Job) error {
		j.Provider = constants.ProviderOnline
		return nil
	})
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestUpdateFnErrorLeavesRecord(t *testing.T) {
	reg, pub := newTestRegistry(t)
	j := reg.Create(CreateParams{Filename: "a.pdf"})

	_, err := reg.Update(j.ID, func(j *entity.Job) error {
		j.Progress = 50
		return fmt.Errorf("nope")
	})
	require.Error(t, err)

	got, _ := reg.Get(j.ID)
	assert.Equal(t, 0, got.Progress)
	assert.Len(t, pub.forJob(j.ID), 1)
}

func TestRequestCancelWaiting(t *testing.T) {
	reg, _ := newTestRegistry(t)
	j := reg.Create(CreateParams{Filename: "a.pdf", Input: Input{Document: []byte("%PDF")}})

	snap, err := reg.RequestCancel(j.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusCancelled, snap.Status)
	assert.True(t, snap.CancelRequested)
	assert.Equal(t, 0, snap.Progress)

	in, err := reg.Input(j.ID)
	require.NoError(t, err)
	assert.Nil(t, in.Document, "input is released on terminal state")

	_, err = reg.Start(j.ID, nil)
	assert.ErrorIs(t, err, common.ErrInvalidState, "a worker must not pick up a cancelled job")

	_, err = reg.RequestCancel(j.ID)
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestRequestCancelProcessingAborts(t *testing.T) {
	reg, _ := newTestRegistry(t)
	j := reg.Create(CreateParams{Filename: "a.pdf"})

	var aborted atomic.Bool
	_, err := reg.Start(j.ID, func() { aborted.Store(true) })
	require.NoError(t, err)
	require.NoError(t, reg.Checkpoint(j.ID))

	snap, err := reg.RequestCancel(j.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusProcessing, snap.Status, "runner records CANCELLED")
	assert.True(t, aborted.Load())
	assert.ErrorIs(t, reg.Checkpoint(j.ID), common.ErrCancelled)

	_, err = reg.Update(j.ID, func(j *entity.Job) error {
		j.CancelRequested = false
		return nil
	})
	assert.ErrorIs(t, err, common.ErrInvalidState, "cancel flag is never cleared")

	_, err = reg.RequestCancel(j.ID)
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestRequestCancelTerminal(t *testing.T) {
	reg, _ := newTestRegistry(t)
	j := reg.Create(CreateParams{Filename: "a.pdf"})
	_, err := reg.Start(j.ID, nil)
	require.NoError(t, err)
	_, err = reg.Update(j.ID, func(j *entity.Job) error {
		j.Status = constants.JobStatusError
		j.ErrorMessage = "provider error: boom"
		return nil
	})
	require.NoError(t, err)

	_, err = reg.RequestCancel(j.ID)
	assert.ErrorIs(t, err, common.ErrInvalidState)

	got, _ := reg.Get(j.ID)
	assert.False(t, got.CancelRequested)
}

func TestConcurrentMutationsKeepVersionsMonotone(t *testing.T) {
	reg, pub := newTestRegistry(t)

	const jobs = 20
	ids := make([]string, jobs)
	for i := range ids {
		ids[i] = reg.Create(CreateParams{Filename: fmt.Sprintf("%d.pdf", i)}).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = reg.Start(id, nil)
			for _, p := range []int{20, 50, 80} {
				_, _ = reg.Update(id, setProgress(p))
			}
		}(id)
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			_, _ = reg.RequestCancel(id)
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		final, err := reg.Get(id)
		require.NoError(t, err)
		events := pub.forJob(id)
		require.NotEmpty(t, events)

		seen := map[uint64]bool{}
		for _, e := range events {
			assert.False(t, seen[e.Version], "each version is published once")
			seen[e.Version] = true
			assert.LessOrEqual(t, e.Version, final.Version)
		}
		assert.Len(t, seen, int(final.Version))
	}
}

func TestStats(t *testing.T) {
	reg, _ := newTestRegistry(t)
	a := reg.Create(CreateParams{Filename: "a.pdf"})
	reg.Create(CreateParams{Filename: "b.pdf"})
	_, err := reg.RequestCancel(a.ID)
	require.NoError(t, err)

	stats := reg.Stats()
	assert.Equal(t, 1, stats[constants.JobStatusWaiting])
	assert.Equal(t, 1, stats[constants.JobStatusCancelled])
}
