// Package webpool provides a fixed-size worker pool running arbitrary jobs concurrently.
//
// All workers share a single unbounded FIFO queue. Each job is received by exactly one
// worker and executed once; which worker gets which job is not defined.
//
// # Basic Usage
//
//	p, err := webpool.New(4)
//	if err != nil {
//	    return err // webpool.ErrPoolCreation for size < 1
//	}
//	defer p.Close()
//
//	for _, item := range items {
//	    p.Execute(func() {
//	        process(item)
//	    })
//	}
//
// Close sends one shutdown message per worker and then waits for every worker to exit.
// Jobs submitted before Close are completed before Close returns. Shutdown messages are all
// sent first, so a worker busy with a long job never prevents idle workers from exiting.
//
// # Jobs
//
// Anything implementing Job can be submitted with Submit, plain functions go with Execute
// or the JobFunc adapter. Execute and Submit never block and return nothing, jobs have no
// results and can't be cancelled.
//
// # Failures
//
// A panicking job terminates the worker running it, the rest of the pool keeps working
// with one worker less. Crashed workers are not replaced. Close reports such workers as
// *WorkerPanicError. The middleware.Recovery middleware turns panics into a callback and
// keeps the worker alive.
//
// # Middlewares
//
//	p, _ := webpool.New(2, webpool.WithMiddleware(
//	    middleware.Logger(logger),
//	    middleware.Recovery(func(v any) { logger.Error("job panic", "panic", v) }),
//	))
//
// # Metrics
//
// The pool collects per-worker counts of processed jobs and panics, wait and processing
// times:
//
//	stats := p.Metrics().GetStats()
//	fmt.Printf("processed: %d, panics: %d", stats.Processed, stats.Panics)
package webpool
