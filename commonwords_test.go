package repomap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCommonWord(t *testing.T) {
	assert.True(t, isCommonWord("Self"))
	assert.True(t, isCommonWord("NIL"))
	assert.True(t, isCommonWord("string"))
	assert.False(t, isCommonWord("Renderer"))
	assert.False(t, isCommonWord("pageRankDamping"))
}

func TestNormalizeWord(t *testing.T) {
	assert.Equal(t, "helper", normalizeWord("Helper"))
	assert.Equal(t, "already_lower", normalizeWord("already_lower"))
}
