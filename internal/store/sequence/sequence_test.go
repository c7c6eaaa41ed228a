package sequence

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^TIC[0-9A-F]{8}$`)

func TestRandomFormat(t *testing.T) {
	src := NewRandom()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := src.Next(context.Background())
		require.NoError(t, err)
		assert.Regexp(t, idPattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 90, "candidates should rarely collide")
}

func TestRedisCounterFallsBackWithoutClient(t *testing.T) {
	src := NewRedisCounter(nil)

	id, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, idPattern, id)
}
