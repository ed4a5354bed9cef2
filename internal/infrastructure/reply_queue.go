package infrastructure

import (
	"context"
	"errors"
	"sync"
	"time"
	"whatsapp_crm/internal/entities"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("reply queue is full")
	ErrQueueClosed = errors.New("reply queue is closed")
)

// JobQueue is a reply queue the worker pool can consume from.
type JobQueue interface {
	Enqueue(ctx context.Context, job entities.ReplyJob) error
	Dequeue(ctx context.Context) (entities.ReplyJob, error)
	Close() error
}

// MemoryQueue is a bounded in-process queue. Enqueue never blocks.
type MemoryQueue struct {
	jobs    chan entities.ReplyJob
	mu      sync.RWMutex
	closed  bool
	metrics *Metrics
}

func NewMemoryQueue(size int, metrics *Metrics) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{jobs: make(chan entities.ReplyJob, size), metrics: metrics}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job entities.ReplyJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	select {
	case q.jobs <- job:
		q.metrics.SetQueueDepth(len(q.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (entities.ReplyJob, error) {
	select {
	case job, ok := <-q.jobs:
		if !ok {
			return entities.ReplyJob{}, ErrQueueClosed
		}
		q.metrics.SetQueueDepth(len(q.jobs))
		return job, nil
	case <-ctx.Done():
		return entities.ReplyJob{}, ctx.Err()
	}
}

// Close stops accepting jobs; queued jobs are still handed out.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}

func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

// JobHandler processes one job. A non-nil error schedules a retry.
type JobHandler func(ctx context.Context, job entities.ReplyJob) error

// ReplyWorkerPool drains a JobQueue with a fixed number of goroutines and
// retries failed jobs with exponential backoff.
type ReplyWorkerPool struct {
	queue       JobQueue
	handle      JobHandler
	workers     int
	maxAttempts int
	baseBackoff time.Duration
	log         *zap.Logger
	metrics     *Metrics

	wg      sync.WaitGroup
	retries sync.WaitGroup
	stop    chan struct{}
	// mu orders retries.Add against Shutdown.
	mu      sync.Mutex
	stopped bool
}

type WorkerPoolConfig struct {
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration
}

func NewReplyWorkerPool(queue JobQueue, handle JobHandler, cfg WorkerPoolConfig, log *zap.Logger, metrics *Metrics) *ReplyWorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	return &ReplyWorkerPool{
		queue:       queue,
		handle:      handle,
		workers:     cfg.Workers,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		log:         log,
		metrics:     metrics,
		stop:        make(chan struct{}),
	}
}

func (p *ReplyWorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.log.Info("reply workers started", zap.Int("workers", p.workers))
}

func (p *ReplyWorkerPool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || ctx.Err() != nil {
				return
			}
			p.log.Warn("dequeue failed", zap.Int("worker", id), zap.Error(err))
			select {
			case <-time.After(p.baseBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}
		p.process(ctx, job)
	}
}

func (p *ReplyWorkerPool) process(ctx context.Context, job entities.ReplyJob) {
	job.Attempt++
	err := p.handle(ctx, job)
	if err == nil {
		p.metrics.ReplyJob("success")
		return
	}

	if job.Attempt >= p.maxAttempts {
		p.metrics.ReplyJob("dropped")
		p.log.Error("reply job dropped",
			zap.String("job_id", job.ID),
			zap.String("chat_id", job.ChatID),
			zap.Int("attempts", job.Attempt),
			zap.Error(err),
		)
		return
	}

	p.metrics.ReplyJob("retry")
	delay := p.baseBackoff << (job.Attempt - 1)
	p.log.Warn("reply job failed, retrying",
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.Duration("backoff", delay),
		zap.Error(err),
	)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.log.Warn("shutting down, retry abandoned", zap.String("job_id", job.ID))
		return
	}
	p.retries.Add(1)
	p.mu.Unlock()
	go func() {
		defer p.retries.Done()
		select {
		case <-time.After(delay):
		case <-p.stop:
			return
		}
		if err := p.queue.Enqueue(context.Background(), job); err != nil {
			p.log.Error("requeue failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}()
}

// Shutdown abandons pending retries, closes the queue and waits for the
// workers to drain what is already queued.
func (p *ReplyWorkerPool) Shutdown() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stop)
	p.mu.Unlock()

	p.retries.Wait()
	if err := p.queue.Close(); err != nil {
		p.log.Warn("close reply queue", zap.Error(err))
	}
	p.wg.Wait()
}
