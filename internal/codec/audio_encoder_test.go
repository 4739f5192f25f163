package codec_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/webcodecsgo/internal/codec"
	"github.com/five82/webcodecsgo/internal/config"
	"github.com/five82/webcodecsgo/internal/state"
	"github.com/five82/webcodecsgo/internal/value"
)

func TestAudioEncoder_ConfigureEncodeFlushEmitsChunkWithDescription(t *testing.T) {
	var mu sync.Mutex
	var chunks []*value.EncodedChunk
	var metas []value.EncodedAudioChunkMetadata

	enc := codec.NewAudioEncoder(newSoftwareBackends(), codec.AudioEncoderInit{
		Output: func(c *value.EncodedChunk, m value.EncodedAudioChunkMetadata) {
			mu.Lock()
			defer mu.Unlock()
			chunks = append(chunks, c)
			metas = append(metas, m)
		},
		Error: func(err error) { t.Errorf("unexpected error: %v", err) },
	})

	require.NoError(t, enc.Configure(config.AudioEncoderConfig{Codec: "opus", SampleRate: 48000, NumberOfChannels: 1}))
	waitForState(t, enc.State, state.Configured)

	frames := uint32(480)
	data, err := value.NewAudioData(value.AudioDataInit{
		Format: value.SampleFormatF32, SampleRate: 48000, NumberOfFrames: frames,
		NumberOfChannels: 1, Timestamp: 1000, Data: make([]byte, frames*4),
	})
	require.NoError(t, err)

	require.NoError(t, enc.Encode(data))
	require.NoError(t, enc.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, chunks, 1)
	assert.Equal(t, int64(1000), chunks[0].Timestamp())
	require.NotNil(t, metas[0].DecoderConfig)
	assert.Equal(t, "opus", metas[0].DecoderConfig.Codec)
}

func TestAudioEncoder_FlushWhileUnconfiguredFails(t *testing.T) {
	enc := codec.NewAudioEncoder(newSoftwareBackends(), codec.AudioEncoderInit{
		Output: func(*value.EncodedChunk, value.EncodedAudioChunkMetadata) {},
		Error:  func(error) {},
	})
	err := enc.Flush(context.Background())
	assert.Error(t, err)
}
