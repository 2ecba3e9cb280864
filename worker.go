package webpool

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/webpool/metrics"
)

// Job is the interface that wraps the Do method, a single unit of work executed once by one worker.
type Job interface {
	Do()
}

// JobFunc is an adapter to allow the use of ordinary functions as Jobs.
type JobFunc func()

// Do calls f().
func (f JobFunc) Do() { f() }

// WorkerState is the lifecycle state of a worker
type WorkerState int32

// worker states
const (
	WorkerWaiting WorkerState = iota
	WorkerExecuting
	WorkerTerminated
)

func (s WorkerState) String() string {
	switch s {
	case WorkerWaiting:
		return "waiting"
	case WorkerExecuting:
		return "executing"
	case WorkerTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// WorkerPanicError reported by Close for a worker terminated by a panicking job
type WorkerPanicError struct {
	WorkerID int
	Value    any
	Stack    []byte
}

func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("worker %d panicked: %v", e.WorkerID, e.Value)
}

// Unwrap returns the panic value if it is an error
func (e *WorkerPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// handle is the join handle of a worker goroutine.
// panicVal and stack are written before done is closed.
type handle struct {
	done     chan struct{}
	id       int
	panicVal any
	stack    []byte
}

// join blocks till the worker goroutine returned
func (h *handle) join() error {
	<-h.done
	if h.panicVal != nil {
		return &WorkerPanicError{WorkerID: h.id, Value: h.panicVal, Stack: h.stack}
	}
	return nil
}

// worker runs jobs received from the shared queue on its own goroutine
type worker struct {
	id     int
	state  atomic.Int32
	rx     *receiver
	logger *slog.Logger
	m      *metrics.Value

	mu     sync.Mutex
	handle *handle // taken once on shutdown
}

// startWorker spawns the worker goroutine. ready is released once the goroutine is running.
// rx has to be acquired by the caller for this worker.
func startWorker(id int, rx *receiver, logger *slog.Logger, m *metrics.Value, ready *sync.WaitGroup) *worker {
	w := &worker{id: id, rx: rx, logger: logger, m: m}
	h := &handle{done: make(chan struct{}), id: id}
	w.handle = h

	go func() {
		defer close(h.done)
		defer rx.release()
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			h.panicVal, h.stack = r, debug.Stack()
			w.state.Store(int32(WorkerTerminated))
			w.m.IncPanics(w.id)
			w.logger.Error("worker terminated by panicking job", "id", w.id, "panic", fmt.Sprint(r))
		}()

		ready.Done()
		w.run()
	}()
	return w
}

// run is the worker loop, returns on shutdown message
func (w *worker) run() {
	lastActivity := time.Now()
	for {
		msg := w.rx.recv()
		w.m.AddWaitTime(w.id, time.Since(lastActivity))

		switch msg.kind {
		case msgWork:
			w.state.Store(int32(WorkerExecuting))
			w.logger.Debug("worker got a job; executing", "id", w.id)
			procEnd := w.m.StartProcTimer(w.id)
			msg.job.Do()
			procEnd()
			w.m.IncProcessed(w.id)
			w.state.Store(int32(WorkerWaiting))
		case msgShutdown:
			w.logger.Debug("worker was told to terminate", "id", w.id)
			w.state.Store(int32(WorkerTerminated))
			return
		}
		lastActivity = time.Now()
	}
}

// take removes the join handle from the worker, returns nil if it was already taken
func (w *worker) take() *handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := w.handle
	w.handle = nil
	return h
}

// State returns the current state of the worker
func (w *worker) State() WorkerState {
	return WorkerState(w.state.Load())
}
