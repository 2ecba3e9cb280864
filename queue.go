package webpool

import (
	"errors"
	"sync"
)

// ErrNoReceivers returned by the queue when no worker is left to receive a message
var ErrNoReceivers = errors.New("no receivers left")

type msgKind int

const (
	msgWork msgKind = iota
	msgShutdown
)

// message passed from the pool to workers, job is set for msgWork only
type message struct {
	kind msgKind
	job  Job
}

// queue is an unbounded FIFO with any number of senders and receivers.
// send never blocks beyond the enqueue, recv blocks till a message is available.
type queue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	items     []message
	receivers int
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// send enqueues the message, fails if all receivers are gone
func (q *queue) send(m message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.receivers == 0 {
		return ErrNoReceivers
	}
	q.items = append(q.items, m)
	q.cond.Signal()
	return nil
}

// recv removes and returns the oldest message, waits if the queue is empty
func (q *queue) recv() message {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	m := q.items[0]
	q.items[0] = message{} // release job reference
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return m
}

// len returns the number of queued messages
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) acquire() {
	q.mu.Lock()
	q.receivers++
	q.mu.Unlock()
}

func (q *queue) release() {
	q.mu.Lock()
	if q.receivers > 0 {
		q.receivers--
	}
	q.mu.Unlock()
}

// receiver is the receiving end of the queue shared by all workers.
// The lock makes sure only one worker is waiting in recv at a time,
// senders never touch it.
type receiver struct {
	mu sync.Mutex
	q  *queue
}

// acquire registers a new holder of the receiving end
func (r *receiver) acquire() *receiver {
	r.q.acquire()
	return r
}

// release drops a holder, the last release makes sends fail
func (r *receiver) release() {
	r.q.release()
}

func (r *receiver) recv() message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.q.recv()
}
