package capsule_analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Hashing must be a pure function of the bytes: same content, same hash,
// no matter where the bytes came from.
func TestHashContent_Deterministic(t *testing.T) {
	content := []byte("package main\n\nfunc main() {}\n")

	first := HashContent(content)
	second := HashContent(content)

	assert.Equal(t, first, second)
	assert.Len(t, first, 32) // 128-bit hash, hex encoded
}

func TestHashContent_DifferentContent(t *testing.T) {
	a := HashContent([]byte("package main"))
	b := HashContent([]byte("package main "))

	assert.NotEqual(t, a, b)
}

func TestHashContent_EmptyContent(t *testing.T) {
	assert.NotEmpty(t, HashContent(nil))
	assert.Equal(t, HashContent(nil), HashContent([]byte{}))
}

func TestHashSnippet_ShorterThanContentHash(t *testing.T) {
	snippet := HashSnippet([]byte("func Foo() {}"))

	assert.Len(t, snippet, 16)
	assert.Equal(t, snippet, HashSnippet([]byte("func Foo() {}")))
}
