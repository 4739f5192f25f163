package codec_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/webcodecsgo/internal/codec"
	"github.com/five82/webcodecsgo/internal/codecerr"
	"github.com/five82/webcodecsgo/internal/config"
	"github.com/five82/webcodecsgo/internal/state"
	"github.com/five82/webcodecsgo/internal/value"
)

func TestVideoDecoder_RoundTripsAKeyChunkFromTheSoftwareEncoder(t *testing.T) {
	backends := newSoftwareBackends()

	var encMu sync.Mutex
	var chunks []*value.EncodedChunk
	enc := codec.NewVideoEncoder(backends, codec.VideoEncoderInit{
		Output: func(c *value.EncodedChunk, _ value.EncodedVideoChunkMetadata) {
			encMu.Lock()
			chunks = append(chunks, c)
			encMu.Unlock()
		},
		Error: func(err error) { t.Errorf("encoder error: %v", err) },
	})
	require.NoError(t, enc.Configure(config.VideoEncoderConfig{Codec: "vp8", Width: 8, Height: 8}))
	waitForState(t, enc.State, state.Configured)

	size, err := value.AllocationSize(value.FormatI420, 8, 8)
	require.NoError(t, err)
	frame, err := value.NewFrameFromBuffer(make([]byte, size), value.FrameInit{
		Format: value.FormatI420, CodedWidth: 8, CodedHeight: 8, Timestamp: 0, HasTimestamp: true,
	})
	require.NoError(t, err)
	require.NoError(t, enc.Encode(frame, config.EncodeOptions{KeyFrame: true}))
	require.NoError(t, enc.Flush(context.Background()))
	require.NoError(t, enc.Close())

	encMu.Lock()
	require.Len(t, chunks, 1)
	chunk := chunks[0]
	encMu.Unlock()

	var decMu sync.Mutex
	var frames []*value.Frame
	dec := codec.NewVideoDecoder(backends, codec.VideoDecoderInit{
		Output: func(f *value.Frame) {
			decMu.Lock()
			frames = append(frames, f)
			decMu.Unlock()
		},
		Error: func(err error) { t.Errorf("decoder error: %v", err) },
	})
	require.NoError(t, dec.Configure(config.VideoDecoderConfig{Codec: "vp8", CodedWidth: 8, CodedHeight: 8}))
	waitForState(t, dec.State, state.Configured)

	require.NoError(t, dec.Decode(chunk))
	require.NoError(t, dec.Flush(context.Background()))

	decMu.Lock()
	defer decMu.Unlock()
	require.Len(t, frames, 1)
	assert.Equal(t, value.FormatI420, frames[0].Format())
	assert.Equal(t, uint32(8), frames[0].CodedWidth())
}

func TestVideoDecoder_DeltaChunkBeforeAnyKeyChunkFailsSynchronously(t *testing.T) {
	backends := newSoftwareBackends()
	dec := codec.NewVideoDecoder(backends, codec.VideoDecoderInit{
		Output: func(*value.Frame) {},
		Error:  func(error) {},
	})
	require.NoError(t, dec.Configure(config.VideoDecoderConfig{Codec: "vp8", CodedWidth: 8, CodedHeight: 8}))
	waitForState(t, dec.State, state.Configured)

	chunk, err := value.NewEncodedChunk(value.ChunkInit{Type: value.ChunkTypeDelta, Timestamp: 0, Data: []byte{0x00}})
	require.NoError(t, err)

	err = dec.Decode(chunk)
	var de *codecerr.DataError
	assert.ErrorAs(t, err, &de)
}
