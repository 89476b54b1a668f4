package hashid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	codec, err := New("sal-de-prueba")
	require.NoError(t, err)

	hashed := codec.Encode(42)
	assert.GreaterOrEqual(t, len(hashed), minLength)

	id, err := codec.Decode(hashed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestDifferentSaltsDiffer(t *testing.T) {
	a, err := New("uno")
	require.NoError(t, err)
	b, err := New("dos")
	require.NoError(t, err)
	assert.NotEqual(t, a.Encode(7), b.Encode(7))
}

func TestDecodeGarbage(t *testing.T) {
	codec, err := New("sal")
	require.NoError(t, err)
	_, err = codec.Decode("!!!")
	require.Error(t, err)
}
