package webpool

import "log/slog"

// Option represents a configuration option for Pool
type Option func(*Pool)

// WithLogger sets the logger for pool and worker lifecycle events.
// Default: discard
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithName sets the pool name, added to log records and submit errors.
// Default: "pool"
func WithName(name string) Option {
	return func(p *Pool) {
		if name != "" {
			p.name = name
		}
	}
}

// WithMiddleware adds middlewares wrapping each submitted job, same as Use.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(p *Pool) {
		p.middlewares = append(p.middlewares, middlewares...)
	}
}
