// Package worker runs conversion jobs off the request path. A bounded pool of
// goroutines drains a task queue; each task is executed to completion and its
// outcome is visible only through the job registry, never through a return
// value.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"audiofetch/internal/extractor"
	"audiofetch/internal/models"
	"audiofetch/internal/registry"
)

// ErrQueueFull is returned by Submit when the task queue is saturated.
var ErrQueueFull = errors.New("conversion queue is full")

// Progress value reported while the extraction tool post-processes the
// downloaded audio.
const processingProgress = 95

// Task is one scheduled conversion.
type Task struct {
	JobID          string
	URL            string
	OutputTemplate string
	Filename       string
}

// Pool executes conversion tasks with a fixed number of workers and a bounded
// queue.
type Pool struct {
	logger     *slog.Logger
	store      registry.Store
	client     extractor.Client
	tasks      chan Task
	workers    int
	jobTimeout time.Duration
	wg         sync.WaitGroup
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(logger *slog.Logger, store registry.Store, client extractor.Client, workers, queueSize int, jobTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		logger:     logger,
		store:      store,
		client:     client,
		tasks:      make(chan Task, queueSize),
		workers:    workers,
		jobTimeout: jobTimeout,
	}
}

// Start launches the worker goroutines. They exit when ctx is cancelled;
// tasks already running are finished first, since an in-flight conversion
// cannot be cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-p.tasks:
					p.run(task)
				}
			}
		}()
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Submit enqueues a task without blocking. The caller observes the task's
// outcome only via the registry.
func (p *Pool) Submit(task Task) error {
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// run executes one job through the state machine:
// queued -> downloading -> processing -> done, with any failure from the
// extraction tool moving the job to error. The pool context is deliberately
// not used here: a disconnected subscriber or a shutting-down accept loop
// does not cancel a conversion that is already running.
func (p *Pool) run(task Task) {
	p.store.Update(task.JobID, func(j *models.Job) {
		if !j.Status.CanTransitionTo(models.StatusDownloading) {
			return
		}
		j.Status = models.StatusDownloading
		j.UpdatedAt = time.Now()
	})

	ctx := context.Background()
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	err := p.client.Download(ctx, task.URL, task.OutputTemplate, func(pr extractor.Progress) {
		p.store.Update(task.JobID, func(j *models.Job) {
			switch pr.Status {
			case extractor.ProgressFinished:
				if !j.Status.CanTransitionTo(models.StatusProcessing) {
					return
				}
				j.Status = models.StatusProcessing
				j.Progress = processingProgress
			default:
				if !j.Status.CanTransitionTo(models.StatusDownloading) {
					return
				}
				j.Status = models.StatusDownloading
				// Unknown total: keep the last percentage instead of guessing.
				if pr.TotalBytes > 0 {
					j.Progress = int(pr.DownloadedBytes * 100 / pr.TotalBytes)
				}
			}
			j.UpdatedAt = time.Now()
		})
	})

	if err != nil {
		p.logger.Error("conversion failed", "job_id", task.JobID, "error", err)
		p.store.Update(task.JobID, func(j *models.Job) {
			if j.Status.Terminal() {
				return
			}
			j.Status = models.StatusError
			j.Error = err.Error()
			j.UpdatedAt = time.Now()
		})
		return
	}

	p.store.Update(task.JobID, func(j *models.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = models.StatusDone
		j.Progress = 100
		j.Filename = task.Filename
		j.Error = ""
		j.UpdatedAt = time.Now()
	})
	p.logger.Info("conversion completed", "job_id", task.JobID, "filename", task.Filename)
}
