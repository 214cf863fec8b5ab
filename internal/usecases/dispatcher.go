package usecases

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"saccobot/internal/entities"
	"saccobot/internal/infrastructure"
	"saccobot/internal/interfaces"
)

// Dispatcher runs a fixed pool of workers draining the dispatch queue.
// Delivery is at-most-once and best-effort: a failed send is logged and
// dropped unless the injected RetryPolicy says otherwise. A single bad
// job never stops a worker.
type Dispatcher struct {
	queue   *infrastructure.DispatchQueue
	engine  *AnswerEngine
	retry   interfaces.RetryPolicy
	workers int

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewDispatcher(queue *infrastructure.DispatchQueue, engine *AnswerEngine, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	queue.SetWorkerCount(workers)
	return &Dispatcher{
		queue:   queue,
		engine:  engine,
		retry:   interfaces.NoRetry{},
		workers: workers,
		stop:    make(chan struct{}),
	}
}

// SetRetryPolicy swaps the delivery retry strategy. The default never
// retries.
func (d *Dispatcher) SetRetryPolicy(p interfaces.RetryPolicy) {
	if p != nil {
		d.retry = p
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.workerLoop(i)
	}
	log.Info().Int("workers", d.workers).Msg("dispatch workers started")
}

// Stop signals all workers and waits for them. In-flight jobs finish;
// queued jobs stay queued.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	d.wg.Wait()
	log.Info().Msg("dispatch workers stopped")
}

func (d *Dispatcher) workerLoop(id int) {
	defer d.wg.Done()
	log.Debug().Int("worker", id).Msg("worker started")

	for {
		select {
		case <-d.stop:
			log.Debug().Int("worker", id).Msg("worker stopped")
			return
		default:
		}

		job, ok := d.queue.Dequeue(time.Second)
		if !ok {
			continue
		}
		d.safeProcess(job)
	}
}

// safeProcess isolates per-job faults so a panic in one job cannot take
// the worker down.
func (d *Dispatcher) safeProcess(job entities.DispatchJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("job_id", job.JobID).Msg("panic while processing job")
		}
	}()
	d.process(job)
}

func (d *Dispatcher) process(job entities.DispatchJob) {
	text := job.Text
	if job.Kind == entities.PayloadNeedsResolution {
		text = d.engine.Resolve(job.Platform, job.To, job.Text)
	}

	if job.Sender == nil {
		log.Warn().Str("job_id", job.JobID).Str("platform", job.Platform).Msg("no sender for job, dropping")
		return
	}

	if err := job.Sender.SendMessage(job.To, text); err != nil {
		log.Error().Err(err).Str("job_id", job.JobID).Str("platform", job.Platform).Msg("failed to deliver reply")
		job.Attempts++
		if d.retry.ShouldRetry(job, err) {
			d.queue.Enqueue(job)
		}
		return
	}

	log.Info().Str("job_id", job.JobID).Str("platform", job.Platform).Msg("reply delivered")
}
