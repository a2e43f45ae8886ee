package uid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID(t *testing.T) {
	g := NewUUID()
	a, b := g.Generate(), g.Generate()
	assert.NotEqual(t, a, b)
	assert.True(t, IsUUID(a))
	assert.False(t, IsUUID("nope"))
}

func TestSnowflake(t *testing.T) {
	s, err := NewSnowflakeNode(7)
	require.NoError(t, err)

	prev := s.Generate()
	for range 100 {
		next := s.Generate()
		assert.Greater(t, next, prev)
		prev = next
	}

	_, err = NewSnowflakeNode(4096)
	assert.Error(t, err)
}
