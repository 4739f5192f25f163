package backend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/webcodecsgo/internal/backend"
	"github.com/five82/webcodecsgo/internal/config"
)

func TestSoftware_ProbeSupportKnownVsUnknown(t *testing.T) {
	s := backend.NewSoftware()
	assert.True(t, s.ProbeSupport("avc1.42001E", config.RoleVideoEncoder))
	assert.False(t, s.ProbeSupport("invalid-codec", config.RoleVideoEncoder))
}

func TestSoftware_EncodeRoundTripProducesKeyframeOutput(t *testing.T) {
	s := backend.NewSoftware()
	h, err := s.OpenEncoder("avc1.42001E", config.RoleVideoEncoder, backend.EncoderParams{Width: 320, Height: 240})
	require.NoError(t, err)

	planes := [][]byte{{1, 2, 3, 4}}
	require.NoError(t, s.FeedFrame(h, planes, 123456, backend.FrameOptions{KeyFrame: true}))

	out, err := s.PollOutput(h)
	require.NoError(t, err)
	assert.Equal(t, backend.StatusReady, out.Status)
	assert.True(t, out.IsKey)
	assert.Equal(t, int64(123456), out.PTS)

	again, err := s.PollOutput(h)
	require.NoError(t, err)
	assert.Equal(t, backend.StatusAgain, again.Status)

	desc, err := s.SynthesiseDecoderDescription(h)
	require.NoError(t, err)
	assert.Len(t, desc, 16)

	require.NoError(t, s.Close(h))
}

func TestSoftware_DecodeRejectsDeltaBeforeKey(t *testing.T) {
	s := backend.NewSoftware()
	h, err := s.OpenDecoder("vp8", config.RoleVideoDecoder, backend.DecoderParams{})
	require.NoError(t, err)

	err = s.FeedChunk(h, []byte{0, 1, 2}, 0, false)
	require.Error(t, err)
}

func TestSoftware_DecodeRoundTripAfterKey(t *testing.T) {
	s := backend.NewSoftware()
	h, err := s.OpenDecoder("vp8", config.RoleVideoDecoder, backend.DecoderParams{})
	require.NoError(t, err)

	require.NoError(t, s.FeedChunk(h, append([]byte{1}, []byte{9, 9, 9}...), 1000, true))
	out, err := s.PollOutput(h)
	require.NoError(t, err)
	require.Equal(t, backend.StatusReady, out.Status)
	assert.Equal(t, []byte{9, 9, 9}, out.Planes[0])
}

func TestSoftware_CloseUnknownHandleErrors(t *testing.T) {
	s := backend.NewSoftware()
	err := s.Close(backend.Handle(999))
	require.Error(t, err)
}
