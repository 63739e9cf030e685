package randid

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z0-9]*$`)

	for _, length := range []int{0, 1, 4, 8, 16} {
		result := Generate(length)
		assert.Len(t, result, length)
		assert.True(t, pattern.MatchString(result), "Generate(%d) = %q", length, result)
	}

	assert.Empty(t, Generate(-1))
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		seen[Generate(8)] = true
	}

	// 36^8 combinations; collisions in 100 draws mean broken randomness
	assert.GreaterOrEqual(t, len(seen), 90)
}
