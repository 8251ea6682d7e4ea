package capsule_analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/capscan/capscan/capsule_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCapsule(hash string) *models.Capsule {
	return &models.Capsule{
		Version:     models.CapsuleVersion,
		ContentHash: hash,
		File:        "main.go",
		Language:    "go",
		StructuralFacts: []models.StructuralFact{
			{Text: "contains 1 function(s)", Evidence: []string{"e1"}},
		},
		APISymbols: []models.APISymbol{
			{Name: "Main", Kind: "function", Exported: true, Evidence: "e1"},
		},
		EvidenceIndex: map[string]models.Evidence{
			"e1": {File: "main.go", StartLine: 3, EndLine: 5, SnippetHash: "abcd"},
		},
	}
}

func TestCapsuleCache_RoundTrip(t *testing.T) {
	cache, err := NewCapsuleCache(t.TempDir(), 16)
	require.NoError(t, err)

	hash := HashContent([]byte("content"))

	_, found := cache.Get(hash)
	assert.False(t, found)

	cache.Set(hash, testCapsule(hash))

	got, found := cache.Get(hash)
	require.True(t, found)
	assert.Equal(t, hash, got.ContentHash)
	assert.Equal(t, "Main", got.APISymbols[0].Name)
}

// The cache hands out deep copies: mutating a returned capsule must never
// leak into the stored one.
func TestCapsuleCache_CloneIsolation(t *testing.T) {
	cache, err := NewCapsuleCache(t.TempDir(), 16)
	require.NoError(t, err)

	hash := "deadbeef"
	cache.Set(hash, testCapsule(hash))

	first, found := cache.Get(hash)
	require.True(t, found)
	first.APISymbols[0].Name = "Mutated"
	first.EvidenceIndex["e1"] = models.Evidence{File: "other.go"}

	second, found := cache.Get(hash)
	require.True(t, found)
	assert.Equal(t, "Main", second.APISymbols[0].Name)
	assert.Equal(t, "main.go", second.EvidenceIndex["e1"].File)
}

// A fresh cache instance over the same directory must serve capsules from
// disk and promote them into memory.
func TestCapsuleCache_DiskPromotion(t *testing.T) {
	dir := t.TempDir()
	hash := "cafef00d"

	first, err := NewCapsuleCache(dir, 16)
	require.NoError(t, err)
	first.Set(hash, testCapsule(hash))

	second, err := NewCapsuleCache(dir, 16)
	require.NoError(t, err)

	got, found := second.Get(hash)
	require.True(t, found)
	assert.Equal(t, hash, got.ContentHash)

	stats := second.Stats()
	assert.Equal(t, int64(1), stats.DiskHits)
	assert.Equal(t, int64(0), stats.MemoryHits)

	// Second lookup is served from memory.
	_, found = second.Get(hash)
	require.True(t, found)
	assert.Equal(t, int64(1), second.Stats().MemoryHits)
}

func TestCapsuleCache_Stats(t *testing.T) {
	cache, err := NewCapsuleCache(t.TempDir(), 16)
	require.NoError(t, err)

	cache.Get("missing")
	cache.Set("present", testCapsule("present"))
	cache.Get("present")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.Writes)
	assert.Equal(t, int64(2), stats.Requests())
	assert.InDelta(t, 50.0, stats.HitRate(), 0.01)
}

func TestCapsuleCache_DeleteAndClear(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCapsuleCache(dir, 16)
	require.NoError(t, err)

	cache.Set("one", testCapsule("one"))
	cache.Set("two", testCapsule("two"))

	require.NoError(t, cache.Delete("one"))
	_, found := cache.Get("one")
	assert.False(t, found)
	_, found = cache.Get("two")
	assert.True(t, found)

	require.NoError(t, cache.Clear())
	_, found = cache.Get("two")
	assert.False(t, found)

	files, _, err := cache.DiskUsage()
	require.NoError(t, err)
	assert.Equal(t, 0, files)
}

// Clear starts the counters over: stats after a clear describe the fresh
// cache only.
func TestCapsuleCache_ClearResetsStats(t *testing.T) {
	cache, err := NewCapsuleCache(t.TempDir(), 16)
	require.NoError(t, err)

	cache.Set("entry", testCapsule("entry"))
	cache.Get("entry")
	cache.Get("missing")
	before := cache.Stats()
	require.Equal(t, int64(2), before.Requests())

	require.NoError(t, cache.Clear())

	stats := cache.Stats()
	assert.Zero(t, stats.MemoryHits)
	assert.Zero(t, stats.DiskHits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.Writes)
	assert.Zero(t, stats.Requests())
	assert.False(t, stats.ResetAt.Before(before.ResetAt))
}

// A corrupt disk entry must read as a miss and be dropped, never as an error.
func TestCapsuleCache_CorruptDiskEntry(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCapsuleCache(dir, 16)
	require.NoError(t, err)

	hash := "badentry"
	require.NoError(t, os.WriteFile(filepath.Join(dir, hash+".json"), []byte("{not json"), 0644))

	_, found := cache.Get(hash)
	assert.False(t, found)

	_, err = os.Stat(filepath.Join(dir, hash+".json"))
	assert.True(t, os.IsNotExist(err))
}

// The memory tier is bounded; evicted entries still come back from disk.
func TestCapsuleCache_MemoryEviction(t *testing.T) {
	cache, err := NewCapsuleCache(t.TempDir(), 2)
	require.NoError(t, err)

	cache.Set("a", testCapsule("a"))
	cache.Set("b", testCapsule("b"))
	cache.Set("c", testCapsule("c"))

	assert.Equal(t, 2, cache.Len())

	got, found := cache.Get("a")
	require.True(t, found)
	assert.Equal(t, "a", got.ContentHash)
	assert.Equal(t, int64(1), cache.Stats().DiskHits)
}
