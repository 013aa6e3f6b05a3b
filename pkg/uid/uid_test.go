package uid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLocalIsPrefixedAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewLocal()
		assert.True(t, strings.HasPrefix(id, LocalPrefix))
		assert.True(t, IsValid(strings.TrimPrefix(id, LocalPrefix)))
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(New()))
	assert.False(t, IsValid("temp-1"))
}
