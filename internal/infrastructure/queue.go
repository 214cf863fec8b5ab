package infrastructure

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"saccobot/internal/entities"
)

// DefaultAvgJobSeconds is the rough per-job processing time used for
// ETA estimates.
const DefaultAvgJobSeconds = 2.5

// DispatchQueue is an in-process FIFO of outbound jobs shared between
// webhook producers and the worker pool. Unbounded on purpose: there is
// no backpressure signal to producers, which is a known scalability
// ceiling rather than a hidden bug.
type DispatchQueue struct {
	mu            sync.Mutex
	cond          *sync.Cond
	jobs          []entities.DispatchJob
	workers       int
	avgJobSeconds float64
}

func NewDispatchQueue(avgJobSeconds float64) *DispatchQueue {
	if avgJobSeconds <= 0 {
		avgJobSeconds = DefaultAvgJobSeconds
	}
	q := &DispatchQueue{avgJobSeconds: avgJobSeconds}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// SetWorkerCount informs ETA estimation; it does not resize anything.
func (q *DispatchQueue) SetWorkerCount(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.workers = n
}

// Enqueue assigns a fresh job id, appends the job, and reports the
// queue depth observed at this producer's own insertion instant plus a
// heuristic ETA.
func (q *DispatchQueue) Enqueue(job entities.DispatchJob) entities.EnqueueReceipt {
	job.JobID = uuid.NewString()
	job.EnqueuedAt = time.Now()

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	position := len(q.jobs)
	workers := q.workers
	q.cond.Signal()
	q.mu.Unlock()

	if workers < 1 {
		workers = 1
	}
	eta := int(float64(position) / float64(workers) * q.avgJobSeconds)

	return entities.EnqueueReceipt{
		JobID:      job.JobID,
		Position:   position,
		ETASeconds: eta,
	}
}

// Dequeue blocks until a job is available or the timeout elapses, so
// workers can check their stop signal between attempts.
func (q *DispatchQueue) Dequeue(timeout time.Duration) (entities.DispatchJob, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return entities.DispatchJob{}, false
		}
		// Wake this waiter when the deadline passes.
		t := time.AfterFunc(remaining, q.cond.Broadcast)
		q.cond.Wait()
		t.Stop()
	}

	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true
}

func (q *DispatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
