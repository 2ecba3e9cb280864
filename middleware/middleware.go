// Package middleware provides common middleware implementations for the pool package.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-pkgz/webpool"
)

// Recovery returns a middleware that recovers from panics in jobs, keeping the worker alive.
// If handler is provided, it will be called with the panic value.
func Recovery(handler func(any)) webpool.Middleware {
	return func(next webpool.Job) webpool.Job {
		return webpool.JobFunc(func() {
			defer func() {
				if r := recover(); r != nil && handler != nil {
					handler(r)
				}
			}()
			next.Do()
		})
	}
}

// Logger returns a middleware that logs start and completion of each job at debug level.
// Panics are logged at error level and passed through.
func Logger(logger *slog.Logger) webpool.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next webpool.Job) webpool.Job {
		return webpool.JobFunc(func() {
			start := time.Now()
			logger.Debug("job started")
			completed := false
			defer func() {
				if !completed {
					logger.Error("job aborted", "duration", time.Since(start))
					return
				}
				logger.Debug("job completed", "duration", time.Since(start))
			}()
			next.Do()
			completed = true
		})
	}
}

// RateLimit returns a middleware that delays job start till the limiter allows it.
// The wait happens on the worker, submission is never blocked.
// A nil limiter disables limiting.
func RateLimit(limiter *rate.Limiter) webpool.Middleware {
	return func(next webpool.Job) webpool.Job {
		if limiter == nil {
			return next
		}
		return webpool.JobFunc(func() {
			_ = limiter.Wait(context.Background()) // never fails without deadline, unless burst is zero
			next.Do()
		})
	}
}
