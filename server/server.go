// Package server implements a toy HTTP responder served by the worker pool, one job per connection.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultBufferSize is the number of bytes read from a connection
const DefaultBufferSize = 1024

const (
	requestLine    = "GET / HTTP/1.1\r\n"
	statusOK       = "HTTP/1.1 200 OK\r\n\r\n"
	statusNotFound = "HTTP/1.1 404 NOT FOUND\r\n\r\n"
	helloFile      = "hello.html"
	notFoundFile   = "404.html"
)

// Executor runs functions in the background, implemented by webpool.Pool
type Executor interface {
	Execute(f func())
}

// Responder answers requests with the content of hello.html or 404.html from Dir
type Responder struct {
	Dir        string
	BufferSize int
}

// Respond makes the full response for the request bytes in buf.
// Only a request starting with "GET / HTTP/1.1\r\n" gets 200, anything else is 404.
func (r Responder) Respond(buf []byte) ([]byte, error) {
	status, file := statusNotFound, notFoundFile
	if bytes.HasPrefix(buf, []byte(requestLine)) {
		status, file = statusOK, helloFile
	}

	body, err := os.ReadFile(filepath.Join(r.Dir, file))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	res := make([]byte, 0, len(status)+len(body))
	res = append(res, status...)
	return append(res, body...), nil
}

// Handle reads a single buffer from conn and writes the response back
func (r Responder) Handle(conn io.ReadWriter) error {
	size := r.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	buf := make([]byte, size)
	n, err := conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read request: %w", err)
	}

	resp, err := r.Respond(buf[:n])
	if err != nil {
		return err
	}
	if _, err := conn.Write(resp); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// Server accepts connections and hands each one to the executor as a separate job
type Server struct {
	Listener  net.Listener
	Executor  Executor
	Responder Responder
	Logger    *slog.Logger
}

// Run accepts connections till ctx is canceled or accept fails.
// Returns nil on cancellation. Jobs already handed to the executor are not waited for.
func (s *Server) Run(ctx context.Context) error {
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gCtx.Done()
		if err := s.Listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("failed to close listener: %w", err)
		}
		return nil
	})
	g.Go(func() error { return s.accept(gCtx) })
	return g.Wait()
}

func (s *Server) accept(ctx context.Context) error {
	s.Logger.Info("accepting connections", "addr", s.Listener.Addr().String())
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		reqID := uuid.New().String()
		s.Executor.Execute(func() { s.serve(conn, reqID) })
	}
}

func (s *Server) serve(conn net.Conn, reqID string) {
	defer conn.Close()
	log := s.Logger.With("req", reqID, "remote", conn.RemoteAddr().String())
	if err := s.Responder.Handle(conn); err != nil {
		log.Warn("failed to handle connection", "error", err)
		return
	}
	log.Debug("connection handled")
}
