package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodedChunk_ConstructionAndCopyTo(t *testing.T) {
	dur := uint64(33333)
	src := []byte{0, 1, 2, 3}

	c, err := NewEncodedChunk(ChunkInit{
		Type:      ChunkTypeKey,
		Timestamp: 1000,
		Duration:  &dur,
		Data:      src,
	})
	require.NoError(t, err)
	require.Equal(t, ChunkTypeKey, c.Type())
	require.Equal(t, int64(1000), c.Timestamp())
	require.NotNil(t, c.Duration())
	require.Equal(t, uint64(33333), *c.Duration())
	require.Equal(t, 4, c.ByteLength())

	dst := make([]byte, 10)
	n, err := c.CopyTo(dst)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{0, 1, 2, 3, 0, 0, 0, 0, 0, 0}, dst)
}

func TestEncodedChunk_BufferIndependence(t *testing.T) {
	src := []byte{9, 9, 9}
	c, err := NewEncodedChunk(ChunkInit{Type: ChunkTypeDelta, Timestamp: 0, Data: src})
	require.NoError(t, err)

	src[0] = 0xFF

	dst := make([]byte, 3)
	_, err = c.CopyTo(dst)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9, 9}, dst)
}

func TestEncodedChunk_CopyToTooSmall(t *testing.T) {
	c, err := NewEncodedChunk(ChunkInit{Type: ChunkTypeKey, Timestamp: 0, Data: []byte{1, 2, 3}})
	require.NoError(t, err)

	_, err = c.CopyTo(make([]byte, 2))
	require.Error(t, err)
}

func TestEncodedChunk_InvalidType(t *testing.T) {
	_, err := NewEncodedChunk(ChunkInit{Type: "bogus", Timestamp: 0})
	require.Error(t, err)
}

func TestEncodedChunk_NegativeTimestampRoundTrips(t *testing.T) {
	c, err := NewEncodedChunk(ChunkInit{Type: ChunkTypeKey, Timestamp: -9007199254740991, Data: nil})
	require.NoError(t, err)
	require.Equal(t, int64(-9007199254740991), c.Timestamp())
}
