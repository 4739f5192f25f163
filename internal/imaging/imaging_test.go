package imaging_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/webcodecsgo/internal/codecerr"
	"github.com/five82/webcodecsgo/internal/imaging"
	"github.com/five82/webcodecsgo/internal/value"
)

func buildSoftwareRecord(width, height uint32, frameCount, repetitionCount int) []byte {
	frameSize := int(width) * int(height) * 4
	buf := make([]byte, 13+frameSize*frameCount)
	binary.BigEndian.PutUint32(buf[0:4], width)
	binary.BigEndian.PutUint32(buf[4:8], height)
	buf[8] = byte(frameCount)
	binary.BigEndian.PutUint32(buf[9:13], uint32(repetitionCount))
	for i := 13; i < len(buf); i++ {
		buf[i] = byte(i)
	}
	return buf
}

func TestImageDecoder_DecodesAStillImage(t *testing.T) {
	data := buildSoftwareRecord(4, 4, 1, 0)
	dec, err := imaging.NewImageDecoder(data, imaging.ImageDecoderOptions{MimeType: "image/x-webcodecsgo-software"}, imaging.NewSoftware())
	require.NoError(t, err)
	defer dec.Close()

	tracks := dec.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, 1, tracks[0].FrameCount)
	assert.True(t, dec.Complete())

	frame, err := dec.Decode(context.Background(), imaging.DecodeOptions{FrameIndex: 0})
	require.NoError(t, err)
	defer frame.Close()
	assert.Equal(t, value.FormatRGBA, frame.Format())
	assert.Equal(t, uint32(4), frame.CodedWidth())
	assert.Equal(t, uint32(4), frame.CodedHeight())
}

func TestImageDecoder_AnimatedImageExposesMultipleFrames(t *testing.T) {
	data := buildSoftwareRecord(2, 2, 3, 0)
	dec, err := imaging.NewImageDecoder(data, imaging.ImageDecoderOptions{MimeType: "image/x-webcodecsgo-software"}, imaging.NewSoftware())
	require.NoError(t, err)
	defer dec.Close()

	assert.Equal(t, 3, dec.Tracks()[0].FrameCount)

	for i := 0; i < 3; i++ {
		frame, err := dec.Decode(context.Background(), imaging.DecodeOptions{FrameIndex: i})
		require.NoError(t, err)
		frame.Close()
	}
}

func TestImageDecoder_EmptyMimeTypeFailsSynchronously(t *testing.T) {
	_, err := imaging.NewImageDecoder([]byte{1, 2, 3}, imaging.ImageDecoderOptions{}, imaging.NewSoftware())
	var te *codecerr.TypeError
	assert.ErrorAs(t, err, &te)
}

func TestImageDecoder_UnrecognisedMimeTypeIsNotSupported(t *testing.T) {
	data := buildSoftwareRecord(2, 2, 1, 0)
	_, err := imaging.NewImageDecoder(data, imaging.ImageDecoderOptions{MimeType: "image/png"}, imaging.NewSoftware())
	var nse *codecerr.NotSupportedError
	assert.ErrorAs(t, err, &nse)
}

func TestImageDecoder_DecodeAfterCloseFails(t *testing.T) {
	data := buildSoftwareRecord(2, 2, 1, 0)
	dec, err := imaging.NewImageDecoder(data, imaging.ImageDecoderOptions{MimeType: "image/x-webcodecsgo-software"}, imaging.NewSoftware())
	require.NoError(t, err)
	require.NoError(t, dec.Close())

	_, err = dec.Decode(context.Background(), imaging.DecodeOptions{})
	var ise *codecerr.InvalidStateError
	assert.ErrorAs(t, err, &ise)
}
