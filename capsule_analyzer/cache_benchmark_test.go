package capsule_analyzer

import (
	"fmt"
	"math/rand"
	"testing"
)

// BenchmarkHashContent measures content hashing across realistic file sizes.
func BenchmarkHashContent(b *testing.B) {
	sizes := []int{1 << 10, 16 << 10, 128 << 10}
	for _, size := range sizes {
		content := make([]byte, size)
		rand.Read(content)

		b.Run(fmt.Sprintf("%dKB", size/1024), func(b *testing.B) {
			b.SetBytes(int64(size))
			for i := 0; i < b.N; i++ {
				_ = HashContent(content)
			}
		})
	}
}

func BenchmarkCapsuleCache_MemoryGet(b *testing.B) {
	cache, err := NewCapsuleCache(b.TempDir(), 1024)
	if err != nil {
		b.Fatal(err)
	}

	hashes := make([]string, 100)
	for i := range hashes {
		hashes[i] = HashContent([]byte(fmt.Sprintf("content-%d", i)))
		cache.Set(hashes[i], testCapsule(hashes[i]))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(hashes[i%len(hashes)])
	}
}

func BenchmarkCapsuleCache_DiskGet(b *testing.B) {
	dir := b.TempDir()

	writer, err := NewCapsuleCache(dir, 1024)
	if err != nil {
		b.Fatal(err)
	}
	hash := HashContent([]byte("disk-bound"))
	writer.Set(hash, testCapsule(hash))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// A fresh instance per iteration keeps the memory tier cold.
		cold, err := NewCapsuleCache(dir, 1024)
		if err != nil {
			b.Fatal(err)
		}
		cold.Get(hash)
	}
}

func BenchmarkCapsuleCache_Set(b *testing.B) {
	cache, err := NewCapsuleCache(b.TempDir(), 1024)
	if err != nil {
		b.Fatal(err)
	}

	capsule := testCapsule("bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Set(fmt.Sprintf("bench-%d", i), capsule)
	}
}
