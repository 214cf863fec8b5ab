package infrastructure

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saccobot/internal/entities"
)

func TestEnqueueAssignsIDAndPosition(t *testing.T) {
	q := NewDispatchQueue(DefaultAvgJobSeconds)
	q.SetWorkerCount(2)

	r1 := q.Enqueue(entities.DispatchJob{Platform: "whatsapp", To: "a"})
	r2 := q.Enqueue(entities.DispatchJob{Platform: "whatsapp", To: "b"})

	assert.NotEmpty(t, r1.JobID)
	assert.NotEmpty(t, r2.JobID)
	assert.NotEqual(t, r1.JobID, r2.JobID)
	assert.Equal(t, 1, r1.Position)
	assert.Equal(t, 2, r2.Position)
	assert.Equal(t, 2, q.Len())
}

func TestEnqueueETAScalesWithDepthAndWorkers(t *testing.T) {
	q := NewDispatchQueue(2.0)
	q.SetWorkerCount(2)

	r1 := q.Enqueue(entities.DispatchJob{})
	assert.Equal(t, 1, r1.ETASeconds)

	r2 := q.Enqueue(entities.DispatchJob{})
	assert.Equal(t, 2, r2.ETASeconds)

	// Zero workers fall back to a divisor of one.
	q2 := NewDispatchQueue(2.0)
	r := q2.Enqueue(entities.DispatchJob{})
	assert.Equal(t, 2, r.ETASeconds)
}

func TestDequeueFIFO(t *testing.T) {
	q := NewDispatchQueue(DefaultAvgJobSeconds)

	q.Enqueue(entities.DispatchJob{Text: "first"})
	q.Enqueue(entities.DispatchJob{Text: "second"})
	q.Enqueue(entities.DispatchJob{Text: "third"})

	for _, want := range []string{"first", "second", "third"} {
		job, ok := q.Dequeue(time.Second)
		require.True(t, ok)
		assert.Equal(t, want, job.Text)
	}
	assert.Zero(t, q.Len())
}

func TestDequeueTimesOutEmpty(t *testing.T) {
	q := NewDispatchQueue(DefaultAvgJobSeconds)

	start := time.Now()
	_, ok := q.Dequeue(50 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDequeueWakesOnEnqueue(t *testing.T) {
	q := NewDispatchQueue(DefaultAvgJobSeconds)

	done := make(chan entities.DispatchJob, 1)
	go func() {
		job, ok := q.Dequeue(5 * time.Second)
		if ok {
			done <- job
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Enqueue(entities.DispatchJob{Text: "wake up"})

	select {
	case job := <-done:
		assert.Equal(t, "wake up", job.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("dequeue did not wake on enqueue")
	}
}

func TestConcurrentEnqueueUniquePositions(t *testing.T) {
	q := NewDispatchQueue(DefaultAvgJobSeconds)
	const n = 50

	var mu sync.Mutex
	ids := make(map[string]bool)
	positions := make([]int, 0, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := q.Enqueue(entities.DispatchJob{})
			mu.Lock()
			ids[r.JobID] = true
			positions = append(positions, r.Position)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, n, "every job gets a distinct id")
	sort.Ints(positions)
	for i, p := range positions {
		assert.Equal(t, i+1, p, "positions form the exact sequence 1..n")
	}
	assert.Equal(t, n, q.Len())
}
