// Package metrics provides thread-safe counters and timers for the worker pool.
// Per-worker stats are written by the owning worker only and can be read at any time.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// well-known keys for user-level counters and durations
const (
	CountProcessed = "processed"
	CountPanics    = "panics"
	CountSubmitted = "submitted"
	DurationWait   = "wait"
	DurationProc   = "proc"
)

// Value holds the metrics of a pool, both per-worker stats and free-form user counters
type Value struct {
	startTime time.Time

	userLock  sync.RWMutex
	userData  map[string]int
	durations map[string]time.Duration

	workers []workerStats
}

// workerStats is updated by a single worker goroutine, fields are atomic to allow concurrent reads
type workerStats struct {
	processed atomic.Int64
	panics    atomic.Int64
	waitTime  atomic.Int64 // nanoseconds
	procTime  atomic.Int64 // nanoseconds
}

// WorkerStats is a snapshot of a single worker's metrics
type WorkerStats struct {
	ID             int
	Processed      int
	Panics         int
	WaitTime       time.Duration
	ProcessingTime time.Duration
}

// Stats is a snapshot of combined metrics
type Stats struct {
	Processed      int
	Panics         int
	Submitted      int
	WaitTime       time.Duration
	ProcessingTime time.Duration
	TotalTime      time.Duration
	Workers        []WorkerStats
}

// New makes thread-safe metrics without per-worker slots
func New() *Value {
	return NewWorkers(0)
}

// NewWorkers makes thread-safe metrics with a slot for each of n workers
func NewWorkers(n int) *Value {
	if n < 0 {
		n = 0
	}
	return &Value{
		startTime: time.Now(),
		userData:  map[string]int{},
		durations: map[string]time.Duration{},
		workers:   make([]workerStats, n),
	}
}

// Add increments value for a given key and returns new value
func (m *Value) Add(key string, delta int) int {
	m.userLock.Lock()
	defer m.userLock.Unlock()
	m.userData[key] += delta
	return m.userData[key]
}

// Inc increments value for given key by one
func (m *Value) Inc(key string) int {
	return m.Add(key, 1)
}

// Set value for given key
func (m *Value) Set(key string, val int) {
	m.userLock.Lock()
	defer m.userLock.Unlock()
	m.userData[key] = val
}

// Get returns value for given key
func (m *Value) Get(key string) int {
	m.userLock.RLock()
	defer m.userLock.RUnlock()
	return m.userData[key]
}

// AddDuration adds duration for a given key
func (m *Value) AddDuration(key string, d time.Duration) {
	m.userLock.Lock()
	defer m.userLock.Unlock()
	m.durations[key] += d
}

// GetDuration returns accumulated duration for a given key
func (m *Value) GetDuration(key string) time.Duration {
	m.userLock.RLock()
	defer m.userLock.RUnlock()
	return m.durations[key]
}

// StartTimer returns a function that adds the elapsed time to the given key when called
func (m *Value) StartTimer(key string) func() {
	start := time.Now()
	return func() { m.AddDuration(key, time.Since(start)) }
}

// IncProcessed increments the processed counter of worker id
func (m *Value) IncProcessed(id int) {
	if w := m.worker(id); w != nil {
		w.processed.Add(1)
	}
}

// IncPanics increments the panics counter of worker id
func (m *Value) IncPanics(id int) {
	if w := m.worker(id); w != nil {
		w.panics.Add(1)
	}
}

// AddWaitTime adds time worker id spent waiting for a message
func (m *Value) AddWaitTime(id int, d time.Duration) {
	if w := m.worker(id); w != nil {
		w.waitTime.Add(int64(d))
	}
}

// StartProcTimer starts processing timer for worker id, the returned func stops it
func (m *Value) StartProcTimer(id int) func() {
	start := time.Now()
	return func() {
		if w := m.worker(id); w != nil {
			w.procTime.Add(int64(time.Since(start)))
		}
	}
}

// Worker returns a snapshot of stats for worker id, zero value for unknown id
func (m *Value) Worker(id int) WorkerStats {
	w := m.worker(id)
	if w == nil {
		return WorkerStats{ID: id}
	}
	return WorkerStats{
		ID:             id,
		Processed:      int(w.processed.Load()),
		Panics:         int(w.panics.Load()),
		WaitTime:       time.Duration(w.waitTime.Load()),
		ProcessingTime: time.Duration(w.procTime.Load()),
	}
}

func (m *Value) worker(id int) *workerStats {
	if id < 0 || id >= len(m.workers) {
		return nil
	}
	return &m.workers[id]
}

// GetStats returns combined stats of all workers and user counters
func (m *Value) GetStats() Stats {
	res := Stats{
		Submitted: m.Get(CountSubmitted),
		TotalTime: time.Since(m.startTime),
		Workers:   make([]WorkerStats, len(m.workers)),
	}
	for i := range m.workers {
		ws := m.Worker(i)
		res.Workers[i] = ws
		res.Processed += ws.Processed
		res.Panics += ws.Panics
		res.WaitTime += ws.WaitTime
		res.ProcessingTime += ws.ProcessingTime
	}
	res.Processed += m.Get(CountProcessed)
	res.Panics += m.Get(CountPanics)
	res.WaitTime += m.GetDuration(DurationWait)
	res.ProcessingTime += m.GetDuration(DurationProc)
	return res
}

// String returns sorted key:vals string representation of metrics and adds duration
func (m *Value) String() string {
	stats := m.GetStats()

	m.userLock.RLock()
	defer m.userLock.RUnlock()

	keys := make([]string, 0, len(m.userData))
	for k := range m.userData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	udata := make([]string, 0, len(keys))
	for _, k := range keys {
		udata = append(udata, fmt.Sprintf("%s:%d", k, m.userData[k]))
	}

	res := fmt.Sprintf("total:%v, processed:%d, panics:%d, wait:%v, proc:%v",
		stats.TotalTime.Round(time.Millisecond), stats.Processed, stats.Panics,
		stats.WaitTime.Round(time.Millisecond), stats.ProcessingTime.Round(time.Millisecond))
	if len(udata) > 0 {
		res += fmt.Sprintf(" [%s]", strings.Join(udata, ", "))
	}
	return res
}
