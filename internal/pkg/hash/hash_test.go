package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDigest(t *testing.T) {
	d := NewDigest()

	h, err := d.Hash("abc")
	require.NoError(t, err)
	assert.Equal(t, "ungWv48Bz+pBQUDeXa4iI7ADYaOWF3qctBD/YfIAFa0=", string(h))
	assert.True(t, d.Verify(string(h), "abc"))
	assert.False(t, d.Verify(string(h), "abd"))
	assert.Equal(t, string(h), Sum("abc"))
}

func TestBcrypt(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost, "pepper")

	h, err := b.Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, b.Verify(string(h), "s3cret"))
	assert.False(t, b.Verify(string(h), "other"))
	assert.False(t, NewBcrypt(bcrypt.MinCost, "").Verify(string(h), "s3cret"))
}
