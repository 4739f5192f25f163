package value

// VideoDecoderConfig is the decoder configuration an encoder synthesises
// from its own first output (spec.md §4.D). Containers do not return
// this type; a demuxed track carries the same fields on its TrackInfo.
type VideoDecoderConfig struct {
	Codec       string
	CodedWidth  uint32
	CodedHeight uint32
	ColorSpace  *ColorSpace
	// Description holds the codec-specific out-of-band header bytes a
	// decoder needs: avcC for AVC, hvcC for HEVC, av1C for AV1. Absent
	// for Annex-B AVC/HEVC bitstreams and for codecs that embed headers
	// in-stream (VP8, VP9 baseline).
	Description []byte
	// Rotation and Flip carry the source VideoFrame's display transform
	// (spec.md §4.D) through to whatever decodes this encoder's output,
	// since neither is recoverable from the bitstream itself.
	Rotation int
	Flip     bool
}

// AudioDecoderConfig is the audio counterpart of VideoDecoderConfig.
type AudioDecoderConfig struct {
	Codec            string
	SampleRate       float64
	NumberOfChannels uint32
	// Description holds OpusHead for Opus, or is absent for codecs that
	// need no out-of-band header.
	Description []byte
}

// EncodedVideoChunkMetadata accompanies an encoder's output callback. The
// DecoderConfig is present on the first output after each configure and
// thereafter only when decoder-relevant parameters change.
type EncodedVideoChunkMetadata struct {
	DecoderConfig *VideoDecoderConfig
	// SVCTemporalLayerID identifies the temporal layer of this chunk in
	// an SVC encoding; nil when SVC is not in use.
	SVCTemporalLayerID *int
	// AlphaSideData carries an encoded alpha-channel bitstream alongside
	// the primary chunk, when the encoder was configured for alpha.
	AlphaSideData []byte
}

// EncodedAudioChunkMetadata is the audio counterpart of
// EncodedVideoChunkMetadata.
type EncodedAudioChunkMetadata struct {
	DecoderConfig *AudioDecoderConfig
}
