package codec_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/webcodecsgo/internal/backend"
	"github.com/five82/webcodecsgo/internal/codec"
	"github.com/five82/webcodecsgo/internal/codecerr"
	"github.com/five82/webcodecsgo/internal/config"
	"github.com/five82/webcodecsgo/internal/hwfallback"
	"github.com/five82/webcodecsgo/internal/state"
	"github.com/five82/webcodecsgo/internal/value"
)

func waitForState(t *testing.T, get func() state.State, want state.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if get() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %v, last was %v", want, get())
}

func newSoftwareBackends() codec.Backends {
	return codec.Backends{Software: backend.NewSoftware(), Fallback: hwfallback.NewRegistry()}
}

func TestVideoEncoder_ConfigureEncodeFlushEmitsKeyChunkWithDescription(t *testing.T) {
	var mu sync.Mutex
	var chunks []*value.EncodedChunk
	var metas []value.EncodedVideoChunkMetadata

	enc := codec.NewVideoEncoder(newSoftwareBackends(), codec.VideoEncoderInit{
		Output: func(c *value.EncodedChunk, m value.EncodedVideoChunkMetadata) {
			mu.Lock()
			defer mu.Unlock()
			chunks = append(chunks, c)
			metas = append(metas, m)
		},
		Error: func(err error) { t.Errorf("unexpected error: %v", err) },
	})

	require.NoError(t, enc.Configure(config.VideoEncoderConfig{Codec: "avc1.42001E", Width: 16, Height: 16}))
	waitForState(t, enc.State, state.Configured)

	size, err := value.AllocationSize(value.FormatI420, 16, 16)
	require.NoError(t, err)
	frame, err := value.NewFrameFromBuffer(make([]byte, size), value.FrameInit{
		Format: value.FormatI420, CodedWidth: 16, CodedHeight: 16, Timestamp: 123456, HasTimestamp: true,
	})
	require.NoError(t, err)

	require.NoError(t, enc.Encode(frame, config.EncodeOptions{KeyFrame: true}))
	require.NoError(t, enc.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, chunks, 1)
	assert.Equal(t, value.ChunkTypeKey, chunks[0].Type())
	assert.Equal(t, int64(123456), chunks[0].Timestamp())
	require.NotNil(t, metas[0].DecoderConfig)
	assert.NotEmpty(t, metas[0].DecoderConfig.Description)
}

func TestVideoEncoder_InvalidCodecClosesWithNotSupportedError(t *testing.T) {
	errs := make(chan error, 1)
	enc := codec.NewVideoEncoder(newSoftwareBackends(), codec.VideoEncoderInit{
		Output: func(*value.EncodedChunk, value.EncodedVideoChunkMetadata) {},
		Error:  func(err error) { errs <- err },
	})

	require.NoError(t, enc.Configure(config.VideoEncoderConfig{Codec: "nonsense-codec", Width: 16, Height: 16}))

	select {
	case err := <-errs:
		var nse *codecerr.NotSupportedError
		assert.ErrorAs(t, err, &nse)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for configure failure")
	}
	waitForState(t, enc.State, state.Closed)
}

func TestVideoEncoder_EncodeWhileUnconfiguredFails(t *testing.T) {
	enc := codec.NewVideoEncoder(newSoftwareBackends(), codec.VideoEncoderInit{
		Output: func(*value.EncodedChunk, value.EncodedVideoChunkMetadata) {},
		Error:  func(error) {},
	})

	frame, err := value.NewFrameFromBuffer(make([]byte, 16*16*3/2), value.FrameInit{
		Format: value.FormatI420, CodedWidth: 16, CodedHeight: 16, Timestamp: 0, HasTimestamp: true,
	})
	require.NoError(t, err)

	err = enc.Encode(frame, config.EncodeOptions{})
	var ise *codecerr.InvalidStateError
	assert.ErrorAs(t, err, &ise)
}
