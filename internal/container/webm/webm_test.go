package webm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/webcodecsgo/internal/container/webm"
)

func TestHasMagicBytes(t *testing.T) {
	assert.True(t, webm.HasMagicBytes([]byte{0x1A, 0x45, 0xDF, 0xA3, 0, 0}))
	assert.False(t, webm.HasMagicBytes([]byte{0, 0, 0, 24, 'f', 't', 'y', 'p'}))
	assert.False(t, webm.HasMagicBytes([]byte{1, 2, 3}))
}

func TestMuxer_AddVideoTrackTwiceRejected(t *testing.T) {
	m, err := webm.NewMuxer(webm.Options{})
	require.NoError(t, err)
	require.NoError(t, m.AddVideoTrack(webm.TrackConfig{Codec: "V_VP8", Width: 320, Height: 240}))
	err = m.AddVideoTrack(webm.TrackConfig{Codec: "V_VP8", Width: 320, Height: 240})
	require.Error(t, err)
}

func TestMuxer_WriteChunkBeforeAnyTrackRejected(t *testing.T) {
	m, err := webm.NewMuxer(webm.Options{})
	require.NoError(t, err)
	err = m.WriteChunk(0, webm.Chunk{Data: []byte{1, 2, 3}, IsKey: true})
	require.Error(t, err)
}

func TestMuxer_FinalizeTwiceRejected(t *testing.T) {
	m, err := webm.NewMuxer(webm.Options{})
	require.NoError(t, err)
	_, err = m.Finalize()
	require.NoError(t, err)
	_, err = m.Finalize()
	require.Error(t, err)
}

func TestMuxer_RoundTripVideoTrack(t *testing.T) {
	m, err := webm.NewMuxer(webm.Options{})
	require.NoError(t, err)
	require.NoError(t, m.AddVideoTrack(webm.TrackConfig{Codec: "V_VP8", Width: 640, Height: 480}))

	require.NoError(t, m.WriteChunk(0, webm.Chunk{Data: []byte{0xAA, 0xBB}, PTS: 0, IsKey: true}))
	require.NoError(t, m.WriteChunk(0, webm.Chunk{Data: []byte{0xCC, 0xDD}, PTS: 33000, IsKey: false}))
	require.NoError(t, m.WriteChunk(0, webm.Chunk{Data: []byte{0xEE, 0xFF}, PTS: 66000, IsKey: false}))

	out, err := m.Finalize()
	require.NoError(t, err)
	require.True(t, webm.HasMagicBytes(out))

	d := webm.NewDemuxer()
	require.NoError(t, d.LoadBuffer(out))

	tracks := d.Tracks()
	require.Len(t, tracks, 1)
	assert.True(t, tracks[0].IsVideo)
	assert.Equal(t, "V_VP8", tracks[0].Codec)
	assert.Equal(t, uint32(640), tracks[0].Width)
	assert.Equal(t, uint32(480), tracks[0].Height)

	p0, err := d.ReadPacket(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, p0.Data)
	assert.True(t, p0.IsKey)
	assert.Equal(t, uint64(0), p0.PTS)

	p1, err := d.ReadPacket(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCC, 0xDD}, p1.Data)
	assert.False(t, p1.IsKey)
	assert.Equal(t, uint64(33000), p1.PTS)

	p2, err := d.ReadPacket(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEE, 0xFF}, p2.Data)

	_, err = d.ReadPacket(0)
	require.Error(t, err)
}

func TestDemuxer_LoadBufferTwiceRejected(t *testing.T) {
	m, err := webm.NewMuxer(webm.Options{})
	require.NoError(t, err)
	require.NoError(t, m.AddAudioTrack(webm.TrackConfig{Codec: "A_OPUS", SampleRate: 48000, NumberOfChannels: 2}))
	require.NoError(t, m.WriteChunk(1, webm.Chunk{Data: []byte{1}, IsKey: true}))
	out, err := m.Finalize()
	require.NoError(t, err)

	d := webm.NewDemuxer()
	require.NoError(t, d.LoadBuffer(out))
	err = d.LoadBuffer(out)
	require.Error(t, err)
}

func TestDemuxer_SeekSnapsToPrecedingKeyframe(t *testing.T) {
	m, err := webm.NewMuxer(webm.Options{})
	require.NoError(t, err)
	require.NoError(t, m.AddVideoTrack(webm.TrackConfig{Codec: "V_VP9", Width: 16, Height: 16}))
	require.NoError(t, m.WriteChunk(0, webm.Chunk{Data: []byte{1}, PTS: 0, IsKey: true}))
	require.NoError(t, m.WriteChunk(0, webm.Chunk{Data: []byte{2}, PTS: 10000, IsKey: false}))
	require.NoError(t, m.WriteChunk(0, webm.Chunk{Data: []byte{3}, PTS: 20000, IsKey: false}))
	out, err := m.Finalize()
	require.NoError(t, err)

	d := webm.NewDemuxer()
	require.NoError(t, d.LoadBuffer(out))
	require.NoError(t, d.Seek(0, 15000))

	p, err := d.ReadPacket(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, p.Data)
	assert.True(t, p.IsKey)
}
