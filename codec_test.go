package webcodecsgo_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webcodecsgo "github.com/five82/webcodecsgo"
)

func TestVideoEncoder_SoftwareBackendsRoundTripsThroughPublicFacade(t *testing.T) {
	var mu sync.Mutex
	var chunks []*webcodecsgo.EncodedChunk
	var dequeues int

	enc := webcodecsgo.NewVideoEncoder(webcodecsgo.SoftwareBackends(), webcodecsgo.VideoEncoderInit{
		Output: func(chunk *webcodecsgo.EncodedChunk, _ webcodecsgo.EncodedVideoChunkMetadata) {
			mu.Lock()
			defer mu.Unlock()
			chunks = append(chunks, chunk)
		},
		Error: webcodecsgo.WrapErrorHandler("enc-1", func(webcodecsgo.Event) error { return nil }),
	})
	defer enc.Close()

	webcodecsgo.WatchDequeue("enc-1", enc, func(webcodecsgo.Event) error {
		mu.Lock()
		defer mu.Unlock()
		dequeues++
		return nil
	})

	bitrate := uint64(1_000_000)
	require.NoError(t, enc.Configure(webcodecsgo.VideoEncoderConfig{Codec: "vp8", Width: 8, Height: 8, Bitrate: &bitrate}))

	size, err := webcodecsgo.AllocationSize(webcodecsgo.FormatI420, 8, 8)
	require.NoError(t, err)
	frame, err := webcodecsgo.NewFrameFromBuffer(make([]byte, size), webcodecsgo.FrameInit{
		Format: webcodecsgo.FormatI420, CodedWidth: 8, CodedHeight: 8, Timestamp: 0, HasTimestamp: true,
	})
	require.NoError(t, err)

	require.NoError(t, enc.Encode(frame, webcodecsgo.EncodeOptions{KeyFrame: true}))
	frame.Close()
	require.NoError(t, enc.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, chunks, 1)
	assert.Equal(t, webcodecsgo.ChunkTypeKey, chunks[0].Type())
	// One dequeue per queued item: Configure, Encode, Flush.
	assert.Equal(t, 3, dequeues)
}

func TestNewLogger_DisabledReturnsNilWithoutError(t *testing.T) {
	logger, err := webcodecsgo.NewLogger(t.TempDir(), false, true, nil)
	require.NoError(t, err)
	assert.Nil(t, logger)
}
