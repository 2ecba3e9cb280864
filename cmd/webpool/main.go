// Command webpool runs a toy HTTP server answering each connection on a fixed-size worker pool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/go-pkgz/webpool"
	"github.com/go-pkgz/webpool/config"
	"github.com/go-pkgz/webpool/middleware"
	"github.com/go-pkgz/webpool/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err) //nolint:errcheck
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) (err error) {
	cfg, err := config.Parse(args, stderr)
	if err != nil {
		return err
	}
	logger := setupLogger(stderr, cfg.Debug)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("bind failed: %w", err)
	}

	p, err := webpool.New(cfg.Workers, webpool.WithLogger(logger), webpool.WithName("webpool"),
		webpool.WithMiddleware(makeMiddlewares(cfg, logger)...))
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("can't make pool with %d workers: %w", cfg.Workers, err)
	}
	defer func() {
		if e := p.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("pool shutdown failed: %w", e))
		}
		logger.Info("pool closed", "stats", p.Metrics().String())
	}()

	logger.Info("starting server", "workers", cfg.Workers, "listen", cfg.Listen, "dir", cfg.Dir)
	srv := &server.Server{
		Listener:  ln,
		Executor:  p,
		Responder: server.Responder{Dir: cfg.Dir, BufferSize: cfg.BufferSize},
		Logger:    logger,
	}
	return srv.Run(ctx)
}

func makeMiddlewares(cfg config.Config, logger *slog.Logger) []webpool.Middleware {
	res := []webpool.Middleware{middleware.Logger(logger)}
	if cfg.RateLimit > 0 {
		res = append(res, middleware.RateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)))
	}
	return res
}

func setupLogger(w io.Writer, dbg bool) *slog.Logger {
	level := slog.LevelInfo
	if dbg {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
