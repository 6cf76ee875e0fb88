package tools

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/krakend/rag-preprocessor/internal/indexing"
	"github.com/krakend/rag-preprocessor/internal/metrics"
)

const (
	defaultCacheTTL      = 2 * time.Minute
	defaultCacheCapacity = 1024
)

// processCache memoizes process_document results keyed by config and text.
// Concurrent identical misses are collapsed into one pipeline run.
type processCache struct {
	memCache *ttlcache.Cache[uint64, []indexing.ChunkRecord]
	sfGroup  singleflight.Group
}

func newProcessCache(ttl time.Duration, capacity uint64) *processCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	opts := []ttlcache.Option[uint64, []indexing.ChunkRecord]{
		ttlcache.WithTTL[uint64, []indexing.ChunkRecord](ttl),
		// Entries expire ttl after insertion, hits do not extend them
		ttlcache.WithDisableTouchOnHit[uint64, []indexing.ChunkRecord](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[uint64, []indexing.ChunkRecord](capacity))
	}

	cache := ttlcache.New(opts...)
	go cache.Start()

	return &processCache{memCache: cache}
}

// getOrProcess returns the records cached under key or runs process.
// The returned bool reports a cache hit.
func (c *processCache) getOrProcess(key uint64, process func() ([]indexing.ChunkRecord, error)) ([]indexing.ChunkRecord, bool, error) {
	if item := c.memCache.Get(key); item != nil {
		metrics.RecordCacheHit()
		logger.Debug("Process cache hit", zap.Uint64("cache_key", key))
		return cloneRecords(item.Value()), true, nil
	}
	metrics.RecordCacheMiss()

	v, err, shared := c.sfGroup.Do(strconv.FormatUint(key, 10), func() (any, error) {
		// Another caller may have populated it while we waited
		if item := c.memCache.Get(key); item != nil {
			return item.Value(), nil
		}

		records, err := process()
		if err != nil {
			return nil, err
		}

		c.memCache.Set(key, records, ttlcache.DefaultTTL)
		return records, nil
	})

	if shared {
		metrics.RecordSingleflightShared()
	}
	if err != nil {
		return nil, false, err
	}

	return cloneRecords(v.([]indexing.ChunkRecord)), false, nil
}

// stop halts the expiration loop
func (c *processCache) stop() {
	c.memCache.Stop()
}

func (c *processCache) size() int {
	return c.memCache.Len()
}

// cacheKey hashes the chunk configuration, the source name and the text
func cacheKey(source, text string, chunkSize, chunkOverlap int) uint64 {
	d := xxhash.New()
	fmt.Fprintf(d, "%d:%d:%d:%s:", chunkSize, chunkOverlap, len(source), source)
	_, _ = d.WriteString(text)
	return d.Sum64()
}

func cloneRecords(records []indexing.ChunkRecord) []indexing.ChunkRecord {
	out := make([]indexing.ChunkRecord, len(records))
	copy(out, records)
	return out
}
