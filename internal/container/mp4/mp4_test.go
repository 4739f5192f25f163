package mp4_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mp4container "github.com/five82/webcodecsgo/internal/container/mp4"
)

// fakeAvcDescription returns a minimal Annex-B SPS+PPS pair: real NAL
// unit type nibbles (7, 8) with arbitrary payload bytes, enough to drive
// splitAvcDescription without a real encoder.
func fakeAvcDescription() []byte {
	return []byte{
		0, 0, 0, 1, 0x67, 0xAA, 0xBB, 0xCC, 0xDD,
		0, 0, 0, 1, 0x68, 0xCC, 0xDD,
	}
}

// fakeAvcKeyframe returns a single Annex-B IDR slice NAL (type 5).
func fakeAvcKeyframe() []byte {
	return []byte{0, 0, 0, 1, 0x65, 1, 2, 3, 4, 5}
}

func TestHasMagicBytes(t *testing.T) {
	assert.True(t, mp4container.HasMagicBytes([]byte{0, 0, 0, 24, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}))
	assert.False(t, mp4container.HasMagicBytes([]byte{0x1A, 0x45, 0xDF, 0xA3}))
	assert.False(t, mp4container.HasMagicBytes([]byte{1, 2, 3}))
}

func TestNewMuxer_RejectsFastStartAndFragmentedTogether(t *testing.T) {
	_, err := mp4container.NewMuxer(mp4container.Options{FastStart: true, Fragmented: true})
	require.Error(t, err)
}

func TestMuxer_AddVideoTrackWithoutDescriptionRejected(t *testing.T) {
	m, err := mp4container.NewMuxer(mp4container.Options{Fragmented: true})
	require.NoError(t, err)

	// A minimal Annex-B SPS+PPS pair is required before the first
	// keyframe; AddVideoTrack rejects a track with no description.
	err = m.AddVideoTrack(mp4container.TrackConfig{Codec: "avc1.42001E", Width: 320, Height: 240})
	require.Error(t, err) // no description yet: rejected by splitAvcDescription
}

func TestMuxer_WriteChunkBeforeAnyTrackRejected(t *testing.T) {
	m, err := mp4container.NewMuxer(mp4container.Options{Fragmented: true})
	require.NoError(t, err)

	err = m.WriteChunk(0, mp4container.Chunk{Data: []byte{1, 2, 3}, PTS: 0, IsKey: true})
	require.Error(t, err)
}

func TestMuxer_FinalizeTwiceRejected(t *testing.T) {
	m, err := mp4container.NewMuxer(mp4container.Options{})
	require.NoError(t, err)
	_, err = m.Finalize()
	require.NoError(t, err)
	_, err = m.Finalize()
	require.Error(t, err)
}

func TestMuxer_ProgressiveFastStartPlacesMoovBeforeMdat(t *testing.T) {
	m, err := mp4container.NewMuxer(mp4container.Options{FastStart: true})
	require.NoError(t, err)
	require.NoError(t, m.AddVideoTrack(mp4container.TrackConfig{
		Codec: "avc1.42001E", Width: 320, Height: 240, Description: fakeAvcDescription(),
	}))
	require.NoError(t, m.WriteChunk(0, mp4container.Chunk{
		Data: fakeAvcKeyframe(), PTS: 0, Duration: 1000, IsKey: true,
	}))

	out, err := m.Finalize()
	require.NoError(t, err)
	assert.True(t, mp4container.HasMagicBytes(out))

	moovIdx := bytes.Index(out, []byte("moov"))
	mdatIdx := bytes.Index(out, []byte("mdat"))
	require.Greater(t, moovIdx, 0)
	require.Greater(t, mdatIdx, 0)
	assert.Less(t, moovIdx, mdatIdx, "fastStart must place moov before mdat")
}

func TestMuxer_ProgressiveDefaultPlacesMoovAfterMdat(t *testing.T) {
	m, err := mp4container.NewMuxer(mp4container.Options{})
	require.NoError(t, err)
	require.NoError(t, m.AddVideoTrack(mp4container.TrackConfig{
		Codec: "avc1.42001E", Width: 320, Height: 240, Description: fakeAvcDescription(),
	}))
	require.NoError(t, m.WriteChunk(0, mp4container.Chunk{
		Data: fakeAvcKeyframe(), PTS: 0, Duration: 1000, IsKey: true,
	}))

	out, err := m.Finalize()
	require.NoError(t, err)
	assert.True(t, mp4container.HasMagicBytes(out))

	moovIdx := bytes.Index(out, []byte("moov"))
	mdatIdx := bytes.Index(out, []byte("mdat"))
	require.Greater(t, moovIdx, 0)
	require.Greater(t, mdatIdx, 0)
	assert.Greater(t, moovIdx, mdatIdx, "default (non-fastStart) layout must place moov after mdat")
}
