package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"photosearch/cache"
	"photosearch/cache/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errLoad = errors.New("custom error")

func TestAuto(t *testing.T) {
	ctx := context.Background()

	var loads atomic.Int32
	auto := &cache.Auto{
		Provider: memory.New(0),
		Loader: func(ctx context.Context, key string) ([]byte, error) {
			loads.Add(1)
			if key == "notfound" {
				return nil, errLoad
			}
			return []byte("bar"), nil
		},
	}

	t.Run("loads data into cache", func(t *testing.T) {
		data, err := auto.Get(ctx, "foo")
		require.NoError(t, err)
		assert.Equal(t, []byte("bar"), data)
	})

	t.Run("gets data from cache", func(t *testing.T) {
		before := loads.Load()
		data, err := auto.Get(ctx, "foo")
		require.NoError(t, err)
		assert.Equal(t, []byte("bar"), data)
		assert.Equal(t, before, loads.Load())
	})

	t.Run("errors when loader errors", func(t *testing.T) {
		_, err := auto.Get(ctx, "notfound")
		assert.ErrorIs(t, err, errLoad)
	})

	t.Run("concurrent misses", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				data, err := auto.Get(ctx, "concurrent")
				assert.NoError(t, err)
				assert.Equal(t, []byte("bar"), data)
			}()
		}
		wg.Wait()
	})
}
