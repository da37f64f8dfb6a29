// Package cache memoises generated reports in memory for the HTTP server,
// keyed by the posted document and the compression settings.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/penwyp/go-optrace/internal/core/report"
	"github.com/penwyp/go-optrace/internal/core/simplify"
)

// DefaultCapacity bounds the number of memoised reports.
const DefaultCapacity = 256

// MemoryCacheEntry is a report with its access tick
type MemoryCacheEntry struct {
	Report       *report.Report
	LastAccessed uint64
}

// MemoryCache keeps the most recently used reports. The least recently
// accessed entry is evicted once capacity is exceeded.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]*MemoryCacheEntry
	capacity int
	tick     uint64

	hits   uint64
	misses uint64
}

func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryCache{
		entries:  make(map[string]*MemoryCacheEntry),
		capacity: capacity,
	}
}

// Key identifies the report of document under cfg.
func Key(document []byte, cfg simplify.Config) string {
	sum := sha256.Sum256(document)
	mode := cfg.Mode
	if mode == "" {
		mode = simplify.ModeStructure
	}
	return hex.EncodeToString(sum[:]) + ":" + string(mode) + ":" + strconv.Itoa(cfg.Threshold)
}

func (mc *MemoryCache) Get(key string) (*report.Report, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry, ok := mc.entries[key]
	if !ok {
		mc.misses++
		return nil, false
	}
	mc.hits++
	mc.tick++
	entry.LastAccessed = mc.tick
	return entry.Report, true
}

func (mc *MemoryCache) Set(key string, r *report.Report) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.tick++
	if entry, ok := mc.entries[key]; ok {
		entry.Report = r
		entry.LastAccessed = mc.tick
		return
	}
	mc.entries[key] = &MemoryCacheEntry{Report: r, LastAccessed: mc.tick}

	if len(mc.entries) > mc.capacity {
		mc.evictOldest()
	}
}

func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest uint64
	for key, entry := range mc.entries {
		if oldestKey == "" || entry.LastAccessed < oldest {
			oldestKey, oldest = key, entry.LastAccessed
		}
	}
	delete(mc.entries, oldestKey)
}

func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.entries)
}

// Stats returns the hit and miss counts since creation.
func (mc *MemoryCache) Stats() (hits, misses uint64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.hits, mc.misses
}

func (mc *MemoryCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries = make(map[string]*MemoryCacheEntry)
}
