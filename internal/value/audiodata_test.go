package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAudioData_ConstructionInterleaved(t *testing.T) {
	data := make([]byte, 10*2*2) // 10 frames, 2 channels, s16 interleaved
	a, err := NewAudioData(AudioDataInit{
		Format:           SampleFormatS16,
		SampleRate:       48000,
		NumberOfFrames:   10,
		NumberOfChannels: 2,
		Timestamp:        500,
		Data:             data,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(1), a.NumberOfPlanes())
	require.Equal(t, uint64(208), a.Duration()) // 10 * 1e6 / 48000 = 208.33, truncated
}

func TestAudioData_ConstructionPlanar(t *testing.T) {
	data := make([]byte, 10*4*2) // 10 frames, 2 channels, f32 planar
	a, err := NewAudioData(AudioDataInit{
		Format:           SampleFormatF32Planar,
		SampleRate:       44100,
		NumberOfFrames:   10,
		NumberOfChannels: 2,
		Data:             data,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(2), a.NumberOfPlanes())
}

func TestAudioData_CloseClearsResourceKeepsTimestamp(t *testing.T) {
	data := make([]byte, 10*2)
	a, err := NewAudioData(AudioDataInit{Format: SampleFormatS16, SampleRate: 8000, NumberOfFrames: 10, NumberOfChannels: 1, Timestamp: 99, Data: data})
	require.NoError(t, err)

	a.Close()
	require.Equal(t, SampleFormatClosed, a.Format())
	require.Equal(t, uint32(0), a.NumberOfFrames())
	require.Equal(t, int64(99), a.Timestamp())

	_, err = a.Clone()
	require.Error(t, err)
}

func TestAudioData_DoubleCloseIsNoOp(t *testing.T) {
	data := make([]byte, 10*2)
	a, err := NewAudioData(AudioDataInit{Format: SampleFormatS16, SampleRate: 8000, NumberOfFrames: 10, NumberOfChannels: 1, Data: data})
	require.NoError(t, err)
	a.Close()
	require.NotPanics(t, func() { a.Close() })
}

func TestAudioData_ZeroFramesRejected(t *testing.T) {
	_, err := NewAudioData(AudioDataInit{Format: SampleFormatS16, SampleRate: 8000, NumberOfFrames: 0, NumberOfChannels: 1})
	require.Error(t, err)
}
