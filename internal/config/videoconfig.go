package config

import "github.com/five82/webcodecsgo/internal/value"

// HardwareAcceleration mirrors the WebCodecs hardwareAcceleration hint.
type HardwareAcceleration string

const (
	HardwarePreference   HardwareAcceleration = "no-preference"
	HardwarePreferHW     HardwareAcceleration = "prefer-hardware"
	HardwarePreferSW     HardwareAcceleration = "prefer-software"
)

// BitrateMode selects constant vs. variable vs. per-frame-quantizer rate
// control.
type BitrateMode string

const (
	BitrateModeConstant   BitrateMode = "constant"
	BitrateModeVariable   BitrateMode = "variable"
	BitrateModeQuantizer  BitrateMode = "quantizer"
)

// LatencyMode trades encode latency for efficiency.
type LatencyMode string

const (
	LatencyModeQuality LatencyMode = "quality"
	LatencyModeRealtime LatencyMode = "realtime"
)

// AvcBitstreamFormat selects between a length-prefixed "avc" bitstream
// (decoderConfig.description present) and Annex-B (description absent).
type AvcBitstreamFormat string

const (
	AvcFormatAnnexB AvcBitstreamFormat = "annexb"
	AvcFormatAVC    AvcBitstreamFormat = "avc"
)

// VideoEncoderConfig mirrors the VideoEncoderConfig init dictionary.
type VideoEncoderConfig struct {
	Codec                string
	Width                uint32
	Height               uint32
	DisplayAspectWidth   *uint32
	DisplayAspectHeight  *uint32
	Bitrate              *uint64
	Framerate            *float64
	HardwareAcceleration HardwareAcceleration
	BitrateMode          BitrateMode
	LatencyMode          LatencyMode
	// AvcFormat/HevcFormat select Annex-B vs length-prefixed bitstream
	// output for the respective codec families; ignored otherwise.
	AvcFormat  AvcBitstreamFormat
	HevcFormat AvcBitstreamFormat
	ScalabilityMode string
	Alpha           bool
}

// VideoDecoderConfig mirrors the VideoDecoderConfig init dictionary.
type VideoDecoderConfig struct {
	Codec                string
	CodedWidth           uint32
	CodedHeight           uint32
	DisplayAspectWidth   *uint32
	DisplayAspectHeight  *uint32
	ColorSpace           *value.ColorSpace
	Description          []byte
	HardwareAcceleration HardwareAcceleration
}

// EncodeOptions mirrors the per-call VideoEncoderEncodeOptions.
type EncodeOptions struct {
	KeyFrame bool
	// Quantizer is forwarded to the backend only when the encoder was
	// configured with BitrateMode == BitrateModeQuantizer.
	Quantizer *float64
}
