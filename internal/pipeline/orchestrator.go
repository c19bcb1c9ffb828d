package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wikithread/talkparse/internal/config"
	"github.com/wikithread/talkparse/internal/permastore"
	"github.com/wikithread/talkparse/internal/thread"
)

// Orchestrator manages the batch parse pipeline: a bounded queue of jobs
// fanned out to a fixed worker pool. Parses share no mutable state, so
// workers never coordinate beyond the queue.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	parser *thread.Parser
	store  *permastore.Client
	log    *slog.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline; Start launches its workers.
func NewOrchestrator(cfg config.Config, parser *thread.Parser, store *permastore.Client, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		parser: parser,
		store:  store,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.parser, o.store, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job := <-o.queue:
					w.Process(workerCtx, job)
				}
			}
		}()
	}
}

// Stop drains the workers and waits for in-flight jobs.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Enqueue registers a job and queues it for processing.
func (o *Orchestrator) Enqueue(docs []Document) (*Job, error) {
	job := NewJob(docs)
	select {
	case o.queue <- job:
		o.jobs.Put(job)
		return job, nil
	default:
		return nil, fmt.Errorf("queue full (%d jobs)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by id, nil when unknown or expired.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}
