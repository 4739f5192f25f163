package hwfallback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/five82/webcodecsgo/internal/hwfallback"
)

func TestRegistry_FallsBackAfterThreshold(t *testing.T) {
	r := hwfallback.NewRegistry()
	assert.False(t, r.ShouldUseSoftware("avc1.42001E", hwfallback.DirectionVideoEncoder))

	for i := 0; i < hwfallback.FailureThreshold-1; i++ {
		r.RecordFailure("avc1.42001E", hwfallback.DirectionVideoEncoder)
	}
	assert.False(t, r.ShouldUseSoftware("avc1.42001E", hwfallback.DirectionVideoEncoder))

	r.RecordFailure("avc1.42001E", hwfallback.DirectionVideoEncoder)
	assert.True(t, r.ShouldUseSoftware("avc1.42001E", hwfallback.DirectionVideoEncoder))
}

func TestRegistry_KeysAreIndependent(t *testing.T) {
	r := hwfallback.NewRegistry()
	for i := 0; i < hwfallback.FailureThreshold; i++ {
		r.RecordFailure("avc1.42001E", hwfallback.DirectionVideoEncoder)
	}
	assert.True(t, r.ShouldUseSoftware("avc1.42001E", hwfallback.DirectionVideoEncoder))
	assert.False(t, r.ShouldUseSoftware("avc1.42001E", hwfallback.DirectionVideoDecoder))
	assert.False(t, r.ShouldUseSoftware("vp09.00.10.08", hwfallback.DirectionVideoEncoder))
}

func TestRegistry_ResetClearsAllCounters(t *testing.T) {
	r := hwfallback.NewRegistry()
	for i := 0; i < hwfallback.FailureThreshold; i++ {
		r.RecordFailure("avc1.42001E", hwfallback.DirectionVideoEncoder)
	}
	require := assert.New(t)
	require.True(r.ShouldUseSoftware("avc1.42001E", hwfallback.DirectionVideoEncoder))

	r.ResetHardwareFallbackState()
	require.False(r.ShouldUseSoftware("avc1.42001E", hwfallback.DirectionVideoEncoder))
}
