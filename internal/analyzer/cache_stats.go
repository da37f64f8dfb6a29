package analyzer

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/penwyp/go-optrace/internal/data/cache"
	"github.com/penwyp/go-optrace/internal/util"
)

// describeMissReason explains a cache miss for the log.
func describeMissReason(r cache.CacheMissReason) string {
	switch r {
	case cache.MissReasonNone:
		return "none"
	case cache.MissReasonError:
		return "Cache read error"
	case cache.MissReasonInode:
		return "Trace inode changed"
	case cache.MissReasonSize:
		return "Trace size changed"
	case cache.MissReasonModTime:
		return "Modification time changed"
	case cache.MissReasonFingerprint:
		return "Trace content changed"
	case cache.MissReasonNotFound:
		return "No cached report"
	default:
		return "Unknown reason"
	}
}

// CacheStats counts how trace files were served during a run
type CacheStats struct {
	totalFiles  int64
	cacheHits   int64
	cacheMisses int64
	failures    int64
	mu          sync.Mutex
	missDetails []MissDetail
}

// MissDetail records why a trace had to be regenerated
type MissDetail struct {
	FilePath string
	Reason   cache.CacheMissReason
}

func NewCacheStats() *CacheStats {
	return &CacheStats{}
}

func (cs *CacheStats) IncrementTotal() {
	atomic.AddInt64(&cs.totalFiles, 1)
}

func (cs *CacheStats) IncrementHit() {
	atomic.AddInt64(&cs.cacheHits, 1)
}

func (cs *CacheStats) IncrementMiss(filePath string, reason cache.CacheMissReason) {
	atomic.AddInt64(&cs.cacheMisses, 1)

	cs.mu.Lock()
	cs.missDetails = append(cs.missDetails, MissDetail{FilePath: filePath, Reason: reason})
	cs.mu.Unlock()
}

func (cs *CacheStats) IncrementFailure() {
	atomic.AddInt64(&cs.failures, 1)
}

// GetStats returns the counters and the hit rate in percent.
func (cs *CacheStats) GetStats() (total, hits, misses, failures int64, hitRate float64) {
	total = atomic.LoadInt64(&cs.totalFiles)
	hits = atomic.LoadInt64(&cs.cacheHits)
	misses = atomic.LoadInt64(&cs.cacheMisses)
	failures = atomic.LoadInt64(&cs.failures)

	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return
}

// MissReasons counts misses per reason.
func (cs *CacheStats) MissReasons() map[cache.CacheMissReason]int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	counts := make(map[cache.CacheMissReason]int)
	for _, detail := range cs.missDetails {
		counts[detail.Reason]++
	}
	return counts
}

// PrintFinalStats logs the counters and a summary of miss reasons.
func (cs *CacheStats) PrintFinalStats() {
	total, hits, misses, failures, hitRate := cs.GetStats()

	util.LogInfof("Report cache: %d traces, hit rate %.1f%% (%d hits/%d misses/%d failures)",
		total, hitRate, hits, misses, failures)

	if misses == 0 {
		return
	}
	counts := cs.MissReasons()
	reasons := make([]cache.CacheMissReason, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		util.LogDebugf("  %s: %d traces", describeMissReason(reason), counts[reason])
	}
}
