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

func TestAudioDecoder_RoundTripsAChunkFromTheSoftwareEncoder(t *testing.T) {
	backends := newSoftwareBackends()

	var encMu sync.Mutex
	var chunks []*value.EncodedChunk
	enc := codec.NewAudioEncoder(backends, codec.AudioEncoderInit{
		Output: func(c *value.EncodedChunk, _ value.EncodedAudioChunkMetadata) {
			encMu.Lock()
			chunks = append(chunks, c)
			encMu.Unlock()
		},
		Error: func(err error) { t.Errorf("encoder error: %v", err) },
	})
	require.NoError(t, enc.Configure(config.AudioEncoderConfig{Codec: "opus", SampleRate: 48000, NumberOfChannels: 1}))
	waitForState(t, enc.State, state.Configured)

	frames := uint32(480)
	data, err := value.NewAudioData(value.AudioDataInit{
		Format: value.SampleFormatF32, SampleRate: 48000, NumberOfFrames: frames,
		NumberOfChannels: 1, Timestamp: 2000, Data: make([]byte, frames*4),
	})
	require.NoError(t, err)
	require.NoError(t, enc.Encode(data))
	require.NoError(t, enc.Flush(context.Background()))
	require.NoError(t, enc.Close())

	encMu.Lock()
	require.Len(t, chunks, 1)
	chunk := chunks[0]
	encMu.Unlock()

	var decMu sync.Mutex
	var outputs []*value.AudioData
	dec := codec.NewAudioDecoder(backends, codec.AudioDecoderInit{
		Output: func(a *value.AudioData) {
			decMu.Lock()
			outputs = append(outputs, a)
			decMu.Unlock()
		},
		Error: func(err error) { t.Errorf("decoder error: %v", err) },
	})
	require.NoError(t, dec.Configure(config.AudioDecoderConfig{Codec: "opus", SampleRate: 48000, NumberOfChannels: 1}))
	waitForState(t, dec.State, state.Configured)

	require.NoError(t, dec.Decode(chunk))
	require.NoError(t, dec.Flush(context.Background()))

	decMu.Lock()
	defer decMu.Unlock()
	require.Len(t, outputs, 1)
	assert.Equal(t, uint32(480), outputs[0].NumberOfFrames())
	assert.Equal(t, int64(2000), outputs[0].Timestamp())
}

func TestAudioDecoder_DecodeWhileClosedFails(t *testing.T) {
	backends := newSoftwareBackends()
	dec := codec.NewAudioDecoder(backends, codec.AudioDecoderInit{
		Output: func(*value.AudioData) {},
		Error:  func(error) {},
	})
	require.NoError(t, dec.Close())

	chunk, err := value.NewEncodedChunk(value.ChunkInit{Type: value.ChunkTypeKey, Timestamp: 0, Data: []byte{0x01}})
	require.NoError(t, err)

	err = dec.Decode(chunk)
	var ise *codecerr.InvalidStateError
	assert.ErrorAs(t, err, &ise)
}
