package randid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	for _, n := range []int{0, 1, 8, 24} {
		id := Generate(n)
		assert.Len(t, id, n)
		for i := 0; i < len(id); i++ {
			c := id[i]
			alnum := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
			assert.True(t, alnum, "Generate(%d) = %q contains %q", n, id, c)
		}
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 200 {
		seen[Generate(8)] = struct{}{}
	}
	// 36^8 possibilities; heavy collisions would mean broken randomness.
	assert.GreaterOrEqual(t, len(seen), 195)
}
