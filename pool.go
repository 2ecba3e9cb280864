package webpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-pkgz/webpool/metrics"
)

// ErrPoolCreation returned by New for a pool with no workers
var ErrPoolCreation = errors.New("pool size must be positive")

// Pool is a fixed-size set of workers sharing a single job queue.
// Jobs are picked up one at a time by whichever worker is free.
type Pool struct {
	name        string
	size        int
	workers     []*worker
	tx          *queue // sending end, safe for concurrent use
	middlewares []Middleware
	logger      *slog.Logger
	metrics     *metrics.Value

	closeMu      sync.Mutex
	shutdownSent bool
}

// Middleware wraps a job and adds functionality
type Middleware func(Job) Job

// New creates a pool with size workers, each one already running when New returns.
// Returns ErrPoolCreation and starts nothing if size is not positive.
func New(size int, opts ...Option) (*Pool, error) {
	if size < 1 {
		return nil, ErrPoolCreation
	}

	res := &Pool{
		name:    "pool",
		size:    size,
		workers: make([]*worker, 0, size),
		tx:      newQueue(),
		logger:  slog.New(slog.DiscardHandler),
		metrics: metrics.NewWorkers(size),
	}
	for _, opt := range opts {
		opt(res)
	}
	res.logger = res.logger.With("pool", res.name)

	rx := &receiver{q: res.tx}
	var ready sync.WaitGroup
	ready.Add(size)
	for id := range size {
		res.workers = append(res.workers, startWorker(id, rx.acquire(), res.logger, res.metrics, &ready))
	}
	ready.Wait()

	res.logger.Debug("pool started", "workers", size)
	return res, nil
}

// Execute submits f to the pool. Returns immediately, f is called once by one of the workers.
func (p *Pool) Execute(f func()) {
	if f == nil {
		return
	}
	p.Submit(JobFunc(f))
}

// Submit sends the job, wrapped with middlewares, to the shared queue.
// Submitting to a pool without live workers (closed, or all workers crashed) is a
// programming error and panics.
func (p *Pool) Submit(job Job) {
	if job == nil {
		return
	}
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		job = p.middlewares[i](job)
	}
	if err := p.tx.send(message{kind: msgWork, job: job}); err != nil {
		panic(fmt.Errorf("%s: can't submit job: %w", p.name, err))
	}
	p.metrics.Inc(metrics.CountSubmitted)
}

// Use applies middlewares to every job submitted after this call. Middlewares are applied
// in the same order as they are provided, the first middleware is the outermost wrapper.
// Not safe to call concurrently with Submit.
func (p *Pool) Use(middlewares ...Middleware) *Pool {
	p.middlewares = append(p.middlewares, middlewares...)
	return p
}

// Close shuts the pool down. It sends one shutdown message per worker first and then waits
// for every worker to exit, so jobs submitted before Close are completed.
// Returns panics of crashed workers and failed shutdown sends, if any.
// Repeated calls don't send or join anything and return nil.
func (p *Pool) Close() error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()

	var errs []error
	if !p.shutdownSent {
		p.shutdownSent = true
		p.logger.Debug("sending terminate message to all workers")
		for range p.workers {
			if err := p.tx.send(message{kind: msgShutdown}); err != nil {
				errs = append(errs, fmt.Errorf("send terminate: %w", err))
				break
			}
		}
	}

	for _, w := range p.workers {
		h := w.take()
		if h == nil {
			continue
		}
		p.logger.Debug("shutting down worker", "id", w.id)
		if err := h.join(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.size
}

// States returns the current state of each worker, indexed by worker id
func (p *Pool) States() []WorkerState {
	res := make([]WorkerState, len(p.workers))
	for i, w := range p.workers {
		res[i] = w.State()
	}
	return res
}

// Pending returns the number of queued messages not picked up by workers yet
func (p *Pool) Pending() int {
	return p.tx.len()
}

// Metrics returns combined metrics of all workers
func (p *Pool) Metrics() *metrics.Value {
	return p.metrics
}
