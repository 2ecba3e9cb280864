package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-pkgz/webpool"
)

func prepContent(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.html"), []byte("<h1>Hello!</h1>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "404.html"), []byte("<h1>Oops!</h1>"), 0o600))
	return dir
}

func TestResponder_Respond(t *testing.T) {
	r := Responder{Dir: prepContent(t)}

	tbl := []struct {
		name string
		req  []byte
		want string
	}{
		{"root with padding", append([]byte("GET / HTTP/1.1\r\n"), make([]byte, 1008)...),
			"HTTP/1.1 200 OK\r\n\r\n<h1>Hello!</h1>"},
		{"root with headers", []byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"),
			"HTTP/1.1 200 OK\r\n\r\n<h1>Hello!</h1>"},
		{"other path", []byte("GET /other HTTP/1.1\r\n"), "HTTP/1.1 404 NOT FOUND\r\n\r\n<h1>Oops!</h1>"},
		{"post", []byte("POST / HTTP/1.1\r\n"), "HTTP/1.1 404 NOT FOUND\r\n\r\n<h1>Oops!</h1>"},
		{"http 1.0", []byte("GET / HTTP/1.0\r\n"), "HTTP/1.1 404 NOT FOUND\r\n\r\n<h1>Oops!</h1>"},
		{"truncated request line", []byte("GET / HTTP/1.1"), "HTTP/1.1 404 NOT FOUND\r\n\r\n<h1>Oops!</h1>"},
		{"empty", nil, "HTTP/1.1 404 NOT FOUND\r\n\r\n<h1>Oops!</h1>"},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := r.Respond(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(resp))
		})
	}
}

func TestResponder_RespondMissingFile(t *testing.T) {
	r := Responder{Dir: t.TempDir()}
	_, err := r.Respond([]byte("GET / HTTP/1.1\r\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hello.html")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type fakeConn struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func (c *fakeConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *fakeConn) Write(p []byte) (int, error) { return c.out.Write(p) }

func TestResponder_Handle(t *testing.T) {
	r := Responder{Dir: prepContent(t)}

	t.Run("ok", func(t *testing.T) {
		conn := &fakeConn{in: bytes.NewReader([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))}
		require.NoError(t, r.Handle(conn))
		assert.True(t, strings.HasPrefix(conn.out.String(), "HTTP/1.1 200 OK"))
	})

	t.Run("not found", func(t *testing.T) {
		conn := &fakeConn{in: bytes.NewReader([]byte("GET /other HTTP/1.1\r\n"))}
		require.NoError(t, r.Handle(conn))
		assert.True(t, strings.HasPrefix(conn.out.String(), "HTTP/1.1 404 NOT FOUND"))
	})

	t.Run("empty request", func(t *testing.T) {
		conn := &fakeConn{in: bytes.NewReader(nil)}
		require.NoError(t, r.Handle(conn))
		assert.True(t, strings.HasPrefix(conn.out.String(), "HTTP/1.1 404 NOT FOUND"))
	})

	t.Run("small buffer", func(t *testing.T) {
		small := Responder{Dir: r.Dir, BufferSize: 8}
		conn := &fakeConn{in: bytes.NewReader([]byte("GET / HTTP/1.1\r\n"))}
		require.NoError(t, small.Handle(conn))
		assert.True(t, strings.HasPrefix(conn.out.String(), "HTTP/1.1 404 NOT FOUND"), "request line doesn't fit")
	})

	t.Run("pipe", func(t *testing.T) {
		client, srv := net.Pipe()
		defer client.Close()
		errCh := make(chan error, 1)
		go func() {
			errCh <- r.Handle(srv)
			srv.Close()
		}()

		_, err := client.Write([]byte("GET / HTTP/1.1\r\n"))
		require.NoError(t, err)
		resp, err := io.ReadAll(client)
		require.NoError(t, err)
		require.NoError(t, <-errCh)
		assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\n<h1>Hello!</h1>", string(resp))
	})
}

func TestServer_Run(t *testing.T) {
	dir := prepContent(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p, err := webpool.New(4)
	require.NoError(t, err)

	srv := &Server{Listener: ln, Executor: p, Responder: Responder{Dir: dir}}
	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	request := func(req string) string {
		conn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		defer conn.Close()
		_, err = conn.Write([]byte(req))
		require.NoError(t, err)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		resp, err := io.ReadAll(conn)
		require.NoError(t, err)
		return string(resp)
	}

	var wg sync.WaitGroup
	results := make([]string, 20)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				results[i] = request("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")
				return
			}
			results[i] = request("GET /other HTTP/1.1\r\nHost: localhost\r\n\r\n")
		}()
	}
	wg.Wait()

	for i, resp := range results {
		if i%2 == 0 {
			assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\n<h1>Hello!</h1>", resp)
			continue
		}
		assert.Equal(t, "HTTP/1.1 404 NOT FOUND\r\n\r\n<h1>Oops!</h1>", resp)
	}

	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server didn't stop")
	}
	require.NoError(t, p.Close())
	assert.Equal(t, 20, p.Metrics().GetStats().Processed)
}

func TestServer_RunAcceptError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	p, err := webpool.New(1)
	require.NoError(t, err)
	defer p.Close()

	srv := &Server{Listener: ln, Executor: p}
	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accept failed")
}
