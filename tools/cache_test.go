package tools

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krakend/rag-preprocessor/internal/indexing"
	"github.com/krakend/rag-preprocessor/internal/metrics"
)

// counterValue reads a counter from the metrics registry, 0 when it was never exported
func counterValue(t *testing.T, name string) float64 {
	t.Helper()

	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name && len(family.GetMetric()) > 0 {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestProcessCache_HitAndMiss(t *testing.T) {
	cache := newProcessCache(time.Minute, 10)
	defer cache.stop()

	var calls atomic.Int32
	process := func() ([]indexing.ChunkRecord, error) {
		calls.Add(1)
		return []indexing.ChunkRecord{{Text: "chunk"}}, nil
	}

	records, hit, err := cache.getOrProcess(1, process)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, records, 1)

	records, hit, err = cache.getOrProcess(1, process)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, records, 1)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, cache.size())
}

func TestProcessCache_ErrorsAreNotCached(t *testing.T) {
	cache := newProcessCache(time.Minute, 10)
	defer cache.stop()

	boom := errors.New("boom")
	_, _, err := cache.getOrProcess(7, func() ([]indexing.ChunkRecord, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, cache.size())

	records, hit, err := cache.getOrProcess(7, func() ([]indexing.ChunkRecord, error) {
		return []indexing.ChunkRecord{{Text: "ok"}}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "ok", records[0].Text)
}

func TestProcessCache_Expiry(t *testing.T) {
	cache := newProcessCache(20*time.Millisecond, 10)
	defer cache.stop()

	process := func() ([]indexing.ChunkRecord, error) { return []indexing.ChunkRecord{{}}, nil }

	_, _, err := cache.getOrProcess(3, process)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, hit, err := cache.getOrProcess(3, process)
	require.NoError(t, err)
	assert.False(t, hit, "expired entries must be recomputed")
}

func TestProcessCache_Capacity(t *testing.T) {
	cache := newProcessCache(time.Minute, 2)
	defer cache.stop()

	process := func() ([]indexing.ChunkRecord, error) { return nil, nil }
	for key := uint64(0); key < 5; key++ {
		_, _, err := cache.getOrProcess(key, process)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, cache.size())
}

func TestProcessCache_SingleflightDedup(t *testing.T) {
	cache := newProcessCache(time.Minute, 10)
	defer cache.stop()

	var calls atomic.Int32
	release := make(chan struct{})
	process := func() ([]indexing.ChunkRecord, error) {
		calls.Add(1)
		<-release
		return []indexing.ChunkRecord{{Text: "shared"}}, nil
	}

	sharedBefore := counterValue(t, "ragprep_cache_singleflight_shared_total")

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, _, err := cache.getOrProcess(42, process)
			assert.NoError(t, err)
			assert.Equal(t, "shared", records[0].Text)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Greater(t, counterValue(t, "ragprep_cache_singleflight_shared_total"), sharedBefore,
		"collapsed misses must be exported")
}

func TestCacheKey(t *testing.T) {
	base := cacheKey("a.txt", "text", 100, 10)

	assert.Equal(t, base, cacheKey("a.txt", "text", 100, 10))
	assert.NotEqual(t, base, cacheKey("b.txt", "text", 100, 10))
	assert.NotEqual(t, base, cacheKey("a.txt", "text!", 100, 10))
	assert.NotEqual(t, base, cacheKey("a.txt", "text", 101, 10))
	assert.NotEqual(t, base, cacheKey("a.txt", "text", 100, 11))

	// Source and text boundaries cannot be shifted into each other
	assert.NotEqual(t, cacheKey("ab", "c", 1, 0), cacheKey("a", "bc", 1, 0))
}
