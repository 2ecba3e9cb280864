package webpool

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	t.Run("options are properly applied", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		mw := func(next Job) Job { return next }

		p, err := New(2, WithName("custom"), WithLogger(logger), WithMiddleware(mw, mw))
		require.NoError(t, err)
		require.NoError(t, p.Close())

		assert.Equal(t, "custom", p.name)
		assert.Len(t, p.middlewares, 2)
		assert.Contains(t, buf.String(), "pool=custom")
		assert.Contains(t, buf.String(), "pool started")
	})

	t.Run("empty values ignored", func(t *testing.T) {
		p, err := New(1, WithName(""), WithLogger(nil), WithMiddleware())
		require.NoError(t, err)
		require.NoError(t, p.Close())

		assert.Equal(t, "pool", p.name)
		assert.NotNil(t, p.logger)
		assert.Empty(t, p.middlewares)
	})
}
