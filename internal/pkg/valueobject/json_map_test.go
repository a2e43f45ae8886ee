package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_ValueAndScan(t *testing.T) {
	in := JSONMap{"resource_id": "doc-1", "write": true, "authorities": []string{"ROLE_USER"}}

	raw, err := in.Value()
	require.NoError(t, err)

	var out JSONMap
	require.NoError(t, out.Scan(raw))
	assert.Equal(t, "doc-1", out.GetString("resource_id"))
	assert.True(t, out.GetBool("write"))
	assert.Equal(t, []string{"ROLE_USER"}, out.GetStrings("authorities"))
	assert.Empty(t, out.GetString("missing"))

	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
	assert.ErrorIs(t, out.Scan(42), ErrScanValueNotBytes)
}

func TestJSONMap_NilValue(t *testing.T) {
	var m JSONMap
	raw, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), raw)
}

func TestJSONMap_Clone(t *testing.T) {
	a := JSONMap{"k": "v"}
	b := a.Clone()
	b.Set("k", "changed")
	assert.Equal(t, "v", a.GetString("k"))
	assert.True(t, b.Has("k"))
}
