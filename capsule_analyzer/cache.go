package capsule_analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/capscan/capscan/analysis_errors"
	"github.com/capscan/capscan/capsule_analyzer/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pterm/pterm"
)

// DefaultMemoryEntries bounds the in-memory tier when no size is configured.
const DefaultMemoryEntries = 4096

// diskEnvelope wraps a capsule on disk so the format can evolve.
type diskEnvelope struct {
	Version int             `json:"version"`
	Capsule *models.Capsule `json:"capsule"`
}

// CapsuleCache is a two-tier capsule store keyed by content hash. The
// in-memory tier is a bounded LRU; the durable tier is one JSON file per
// hash under the cache root. Disk failures degrade to memory-only operation
// and never fail the caller.
type CapsuleCache struct {
	memory   *lru.Cache[string, *models.Capsule]
	cacheDir string
	stats    *CacheStats
	diskMu   sync.Mutex
}

// NewCapsuleCache creates a cache rooted at cacheDir. If cacheDir is empty,
// it defaults to ".capscan/cache" in the current working directory.
func NewCapsuleCache(cacheDir string, memoryEntries int) (*CapsuleCache, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		cacheDir = filepath.Join(cwd, ".capscan", "cache")
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	if memoryEntries <= 0 {
		memoryEntries = DefaultMemoryEntries
	}
	memory, err := lru.New[string, *models.Capsule](memoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &CapsuleCache{
		memory:   memory,
		cacheDir: cacheDir,
		stats:    NewCacheStats(),
	}, nil
}

// Dir returns the durable tier's root directory.
func (cc *CapsuleCache) Dir() string {
	return cc.cacheDir
}

func (cc *CapsuleCache) capsulePath(hash string) string {
	return filepath.Join(cc.cacheDir, hash+".json")
}

// Get returns a deep copy of the capsule for the given content hash, or
// (nil, false) on a miss. A disk hit is promoted into the memory tier.
func (cc *CapsuleCache) Get(hash string) (*models.Capsule, bool) {
	if capsule, ok := cc.memory.Get(hash); ok {
		cc.stats.recordMemoryHit()
		return capsule.Clone(), true
	}

	capsule, ok := cc.readDisk(hash)
	if !ok {
		cc.stats.recordMiss()
		return nil, false
	}

	cc.stats.recordDiskHit()
	cc.memory.Add(hash, capsule)
	return capsule.Clone(), true
}

// Set stores a deep copy of the capsule under its content hash in both
// tiers. A durable tier write failure is logged and ignored; the memory
// tier remains authoritative for this process.
func (cc *CapsuleCache) Set(hash string, capsule *models.Capsule) {
	stored := capsule.Clone()
	stored.Version = models.CapsuleVersion
	cc.memory.Add(hash, stored)
	cc.stats.recordWrite()

	if err := cc.writeDisk(hash, stored); err != nil {
		pterm.Warning.Printf("cache: %v\n", err)
	}
}

// Delete removes the capsule for the given hash from both tiers.
func (cc *CapsuleCache) Delete(hash string) error {
	cc.memory.Remove(hash)

	cc.diskMu.Lock()
	defer cc.diskMu.Unlock()
	if err := os.Remove(cc.capsulePath(hash)); err != nil && !os.IsNotExist(err) {
		return analysis_errors.NewCacheIO("delete", err)
	}
	return nil
}

// Clear empties the memory tier, removes every capsule file from disk, and
// resets the counters so later stats describe the fresh cache only.
func (cc *CapsuleCache) Clear() error {
	cc.memory.Purge()
	cc.stats.Reset()

	cc.diskMu.Lock()
	defer cc.diskMu.Unlock()

	entries, err := os.ReadDir(cc.cacheDir)
	if err != nil {
		return analysis_errors.NewCacheIO("clear", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		os.Remove(filepath.Join(cc.cacheDir, entry.Name()))
	}
	return nil
}

// Len returns the number of entries in the memory tier.
func (cc *CapsuleCache) Len() int {
	return cc.memory.Len()
}

// Stats returns a snapshot of the cache counters.
func (cc *CapsuleCache) Stats() CacheStatsSnapshot {
	return cc.stats.Snapshot()
}

// DiskUsage reports the number of capsule files and their total size.
func (cc *CapsuleCache) DiskUsage() (files int, bytes int64, err error) {
	entries, err := os.ReadDir(cc.cacheDir)
	if err != nil {
		return 0, 0, analysis_errors.NewCacheIO("stat", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files++
		bytes += info.Size()
	}
	return files, bytes, nil
}

func (cc *CapsuleCache) readDisk(hash string) (*models.Capsule, bool) {
	cc.diskMu.Lock()
	defer cc.diskMu.Unlock()

	data, err := os.ReadFile(cc.capsulePath(hash))
	if err != nil {
		return nil, false
	}

	var envelope diskEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Capsule == nil {
		// Corrupt entries are dropped and re-analyzed on the next request.
		os.Remove(cc.capsulePath(hash))
		return nil, false
	}
	if envelope.Version != models.CapsuleVersion {
		os.Remove(cc.capsulePath(hash))
		return nil, false
	}

	return envelope.Capsule, true
}

func (cc *CapsuleCache) writeDisk(hash string, capsule *models.Capsule) error {
	cc.diskMu.Lock()
	defer cc.diskMu.Unlock()

	data, err := json.MarshalIndent(diskEnvelope{Version: models.CapsuleVersion, Capsule: capsule}, "", "  ")
	if err != nil {
		return analysis_errors.NewCacheIO("encode", err)
	}

	// Write-then-rename keeps readers from ever seeing a partial capsule.
	tmp := cc.capsulePath(hash) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return analysis_errors.NewCacheIO("write", err)
	}
	if err := os.Rename(tmp, cc.capsulePath(hash)); err != nil {
		os.Remove(tmp)
		return analysis_errors.NewCacheIO("write", err)
	}
	return nil
}
