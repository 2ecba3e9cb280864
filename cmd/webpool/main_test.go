package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-pkgz/webpool"
	"github.com/go-pkgz/webpool/config"
)

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()

	err := run(ctx, nil, &bytes.Buffer{})
	require.ErrorIs(t, err, config.ErrUsage)

	err = run(ctx, []string{"many"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "numbers only")

	err = run(ctx, []string{"-listen", "127.0.0.1:0", "0"}, &bytes.Buffer{})
	require.ErrorIs(t, err, webpool.ErrPoolCreation)
	assert.Contains(t, err.Error(), "can't make pool with 0 workers")

	err = run(ctx, []string{"-listen", "bad-address", "1"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind failed")
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stderr := &bytes.Buffer{}
	err := run(ctx, []string{"-listen", "127.0.0.1:0", "-dbg", "-rate", "100", "2"}, stderr)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "starting server")
	assert.Contains(t, stderr.String(), "pool closed")
	assert.Contains(t, stderr.String(), "worker was told to terminate")
}

func TestMakeMiddlewares(t *testing.T) {
	logger := setupLogger(&bytes.Buffer{}, false)
	assert.Len(t, makeMiddlewares(config.Default(), logger), 1)

	cfg := config.Default()
	cfg.RateLimit = 10
	assert.Len(t, makeMiddlewares(cfg, logger), 2)
}
