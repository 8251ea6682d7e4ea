package capsule_analyzer

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// HashContent returns the content hash used as the capsule's cache identity.
// The hash covers the raw bytes only, so path, mtime and permissions never
// influence cache hits.
func HashContent(content []byte) string {
	sum := xxh3.Hash128(content).Bytes()
	return hex.EncodeToString(sum[:])
}

// HashSnippet hashes a cited code snippet for the evidence index. A shorter
// prefix is enough to verify a citation still matches the source.
func HashSnippet(snippet []byte) string {
	sum := xxh3.Hash128(snippet).Bytes()
	return hex.EncodeToString(sum[:8])
}
