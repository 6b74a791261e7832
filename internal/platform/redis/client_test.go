package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namereg/internal/platform/config"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without url", func(t *testing.T) {
		client, err := New(ctx, config.RedisConfig{})
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("connects and reports health", func(t *testing.T) {
		server := miniredis.RunT(t)
		client, err := New(ctx, config.RedisConfig{URL: "redis://" + server.Addr(), PoolSize: 2})
		require.NoError(t, err)
		defer client.Close()

		assert.NoError(t, client.Health(ctx))
		server.Close()
		assert.Error(t, client.Health(ctx))
	})

	t.Run("rejects a malformed url", func(t *testing.T) {
		_, err := New(ctx, config.RedisConfig{URL: "://nope"})
		assert.ErrorContains(t, err, "parse redis URL")
	})
}
