package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestUint64(t *testing.T) {
	req, err := DecodeRequest(`{"type":10,"session":"a","session-id":42,"session-id-str":"99","bad":"xx"}`)
	require.NoError(t, err)

	n, ok := req.Uint64("session-id")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), n)

	n, ok = req.Uint64("session-id-str")
	assert.True(t, ok)
	assert.Equal(t, uint64(99), n)

	_, ok = req.Uint64("bad")
	assert.False(t, ok)

	_, ok = req.Uint64("missing")
	assert.False(t, ok)
}

func TestRequestStringSlice(t *testing.T) {
	req, err := DecodeRequest(`{"type":1,"capabilities":["urn:a","urn:b"]}`)
	require.NoError(t, err)

	caps, ok := req.StringSlice("capabilities")
	assert.True(t, ok)
	assert.Equal(t, []string{"urn:a", "urn:b"}, caps)

	_, ok = req.StringSlice("missing")
	assert.False(t, ok)
}

func TestRequestInt(t *testing.T) {
	req, err := DecodeRequest(`{"type":15,"from":-30,"to":0}`)
	require.NoError(t, err)

	from, ok := req.Int("from")
	assert.True(t, ok)
	assert.Equal(t, -30, from)

	to, ok := req.Int("to")
	assert.True(t, ok)
	assert.Equal(t, 0, to)
}
