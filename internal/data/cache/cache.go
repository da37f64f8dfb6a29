package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-optrace/internal/core/report"
	"github.com/penwyp/go-optrace/internal/core/simplify"
	"github.com/penwyp/go-optrace/internal/util"
)

type CacheMissReason int

const (
	MissReasonNone CacheMissReason = iota
	MissReasonError
	MissReasonInode
	MissReasonSize
	MissReasonModTime
	MissReasonFingerprint
	MissReasonNotFound
)

func (r CacheMissReason) String() string {
	switch r {
	case MissReasonNone:
		return "none"
	case MissReasonError:
		return "error"
	case MissReasonInode:
		return "inode"
	case MissReasonSize:
		return "size"
	case MissReasonModTime:
		return "modtime"
	case MissReasonFingerprint:
		return "fingerprint"
	case MissReasonNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// CachedReport is a generated report together with the identity of the
// trace file it was generated from.
type CachedReport struct {
	Path        string         `json:"path"`
	Variant     string         `json:"variant"`
	Inode       uint64         `json:"inode"`
	Size        int64          `json:"size"`
	ModTime     int64          `json:"modTime"`
	Fingerprint string         `json:"fingerprint"`
	Report      *report.Report `json:"report"`
}

type CacheResult struct {
	Report     *report.Report
	Found      bool
	MissReason CacheMissReason
}

type Cache interface {
	Get(path string, cfg simplify.Config) CacheResult
	Set(path string, cfg simplify.Config, r *report.Report) error
	Clear() error
}

// FileCache keeps reports in memory and as JSON files under baseDir. An
// entry is served only while its trace file keeps the same inode, size,
// modification time and content fingerprint.
type FileCache struct {
	baseDir     string
	mu          sync.RWMutex
	memoryCache map[string]*CachedReport
}

func NewFileCache(baseDir string) (*FileCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &FileCache{
		baseDir:     baseDir,
		memoryCache: make(map[string]*CachedReport),
	}, nil
}

// Variant names the compression settings a report was generated with.
func Variant(cfg simplify.Config) string {
	mode := cfg.Mode
	if mode == "" {
		mode = simplify.ModeStructure
	}
	return fmt.Sprintf("%s:%d", mode, cfg.Threshold)
}

func cacheKey(path, variant string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return util.Fingerprint([]byte(abs)) + "-" + strings.ReplaceAll(variant, ":", "-")
}

func (c *FileCache) cachePath(key string) string {
	return filepath.Join(c.baseDir, key+".json")
}

func (c *FileCache) Get(path string, cfg simplify.Config) CacheResult {
	key := cacheKey(path, Variant(cfg))

	c.mu.RLock()
	entry, ok := c.memoryCache[key]
	c.mu.RUnlock()

	if !ok {
		var reason CacheMissReason
		entry, reason = c.readFile(key)
		if entry == nil {
			return CacheResult{MissReason: reason}
		}
	}

	if reason := validate(entry); reason != MissReasonNone {
		c.mu.Lock()
		delete(c.memoryCache, key)
		c.mu.Unlock()
		return CacheResult{MissReason: reason}
	}

	c.mu.Lock()
	c.memoryCache[key] = entry
	c.mu.Unlock()

	return CacheResult{Report: entry.Report, Found: true, MissReason: MissReasonNone}
}

func (c *FileCache) readFile(key string) (*CachedReport, CacheMissReason) {
	data, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		return nil, MissReasonNotFound
	}

	var entry CachedReport
	if err := sonic.Unmarshal(data, &entry); err != nil || entry.Report == nil {
		util.LogDebugf("Ignoring unreadable cache file %s: %v", c.cachePath(key), err)
		return nil, MissReasonError
	}
	return &entry, MissReasonNone
}

func validate(entry *CachedReport) CacheMissReason {
	current, err := util.GetFileInfo(entry.Path)
	if err != nil {
		util.LogDebugf("Cache validation failed for %s: %v", entry.Path, err)
		return MissReasonError
	}

	switch {
	case current.Inode != entry.Inode:
		util.LogDebugf("Cache invalidated for %s: inode changed", entry.Path)
		return MissReasonInode
	case current.Size != entry.Size:
		util.LogDebugf("Cache invalidated for %s: size changed (cached: %d, current: %d)", entry.Path, entry.Size, current.Size)
		return MissReasonSize
	case current.ModTime != entry.ModTime:
		util.LogDebugf("Cache invalidated for %s: modtime changed", entry.Path)
		return MissReasonModTime
	}

	fingerprint, err := util.FileFingerprint(entry.Path)
	if err != nil || fingerprint != entry.Fingerprint {
		util.LogDebugf("Cache invalidated for %s: fingerprint mismatch", entry.Path)
		return MissReasonFingerprint
	}
	return MissReasonNone
}

func (c *FileCache) Set(path string, cfg simplify.Config, r *report.Report) error {
	info, err := util.GetFileInfo(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	fingerprint, err := util.FileFingerprint(path)
	if err != nil {
		return fmt.Errorf("failed to fingerprint %s: %w", path, err)
	}

	variant := Variant(cfg)
	entry := &CachedReport{
		Path:        path,
		Variant:     variant,
		Inode:       info.Inode,
		Size:        info.Size,
		ModTime:     info.ModTime,
		Fingerprint: fingerprint,
		Report:      r,
	}

	data, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	key := cacheKey(path, variant)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.WriteFile(c.cachePath(key), data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	c.memoryCache[key] = entry
	return nil
}

// Clear drops every cached report from memory and disk.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memoryCache = make(map[string]*CachedReport)

	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			if err := os.Remove(filepath.Join(c.baseDir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetCacheStats returns the number of entries held in memory and on disk.
func (c *FileCache) GetCacheStats() (memoryCount, fileCount int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	memoryCount = len(c.memoryCache)
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return memoryCount, 0
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			fileCount++
		}
	}
	return memoryCount, fileCount
}
