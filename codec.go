// Package webcodecsgo is a server-side Go implementation of the W3C
// WebCodecs API: VideoEncoder, VideoDecoder, AudioEncoder, AudioDecoder,
// and ImageDecoder, plus MP4 and WebM/MKV muxing and demuxing.
//
// The four codec types share one lifecycle: unconfigured, configured,
// closed. Configure validates synchronously and opens a backend handle
// asynchronously; Encode/Decode enqueue work on a single FIFO worker per
// instance; Flush waits for that work to drain; Reset and Close cancel
// it. Two CodecBackend implementations are available out of the box: a
// dependency-free software reference backend (SoftwareBackends) and an
// FFmpeg-backed one via go-astiav.
//
// Basic usage:
//
//	enc := webcodecsgo.NewVideoEncoder(webcodecsgo.SoftwareBackends(), webcodecsgo.VideoEncoderInit{
//	    Output: func(chunk *webcodecsgo.EncodedChunk, meta webcodecsgo.EncodedVideoChunkMetadata) { ... },
//	    Error:  func(err error) { ... },
//	})
//	bitrate := uint64(2_000_000)
//	err := enc.Configure(webcodecsgo.VideoEncoderConfig{Codec: "vp8", Width: 1280, Height: 720, Bitrate: &bitrate})
package webcodecsgo

import (
	"github.com/five82/webcodecsgo/internal/backend"
	"github.com/five82/webcodecsgo/internal/codec"
	"github.com/five82/webcodecsgo/internal/config"
	"github.com/five82/webcodecsgo/internal/container"
	"github.com/five82/webcodecsgo/internal/hwfallback"
	"github.com/five82/webcodecsgo/internal/imaging"
	"github.com/five82/webcodecsgo/internal/value"
)

// The four codec facades (internal/codec), re-exported so callers never
// need to import an internal package directly.
type (
	VideoEncoder     = codec.VideoEncoder
	VideoDecoder     = codec.VideoDecoder
	AudioEncoder     = codec.AudioEncoder
	AudioDecoder     = codec.AudioDecoder
	VideoEncoderInit = codec.VideoEncoderInit
	VideoDecoderInit = codec.VideoDecoderInit
	AudioEncoderInit = codec.AudioEncoderInit
	AudioDecoderInit = codec.AudioDecoderInit
	Backends         = codec.Backends
)

var (
	NewVideoEncoder = codec.NewVideoEncoder
	NewVideoDecoder = codec.NewVideoDecoder
	NewAudioEncoder = codec.NewAudioEncoder
	NewAudioDecoder = codec.NewAudioDecoder

	IsVideoEncoderConfigSupported = codec.IsVideoEncoderConfigSupported
	IsVideoDecoderConfigSupported = codec.IsVideoDecoderConfigSupported
	IsAudioEncoderConfigSupported = codec.IsAudioEncoderConfigSupported
	IsAudioDecoderConfigSupported = codec.IsAudioDecoderConfigSupported
)

// Data model types (internal/value).
type (
	EncodedChunk              = value.EncodedChunk
	ChunkInit                 = value.ChunkInit
	ChunkType                 = value.ChunkType
	Frame                     = value.Frame
	FrameInit                 = value.FrameInit
	AudioData                 = value.AudioData
	AudioDataInit             = value.AudioDataInit
	PixelFormat               = value.PixelFormat
	SampleFormat              = value.SampleFormat
	ColorSpace                = value.ColorSpace
	Rect                      = value.Rect
	EncodedVideoChunkMetadata = value.EncodedVideoChunkMetadata
	EncodedAudioChunkMetadata = value.EncodedAudioChunkMetadata
)

const (
	ChunkTypeKey   = value.ChunkTypeKey
	ChunkTypeDelta = value.ChunkTypeDelta

	FormatI420 = value.FormatI420
	FormatNV12 = value.FormatNV12
	FormatRGBA = value.FormatRGBA
)

var NewFrameFromBuffer = value.NewFrameFromBuffer
var NewAudioData = value.NewAudioData
var NewEncodedChunk = value.NewEncodedChunk
var AllocationSize = value.AllocationSize

// Config dictionaries (internal/config).
type (
	VideoEncoderConfig   = config.VideoEncoderConfig
	VideoDecoderConfig   = config.VideoDecoderConfig
	AudioEncoderConfig   = config.AudioEncoderConfig
	AudioDecoderConfig   = config.AudioDecoderConfig
	EncodeOptions        = config.EncodeOptions
	HardwareAcceleration = config.HardwareAcceleration
)

const (
	HardwarePreference = config.HardwarePreference
	HardwarePreferHW   = config.HardwarePreferHW
	HardwarePreferSW   = config.HardwarePreferSW
)

// Container mux/demux (internal/container).
type (
	ContainerFormat = container.Format
	Muxer           = container.Muxer
	Demuxer         = container.Demuxer
	TrackConfig     = container.TrackConfig
	TrackInfo       = container.TrackInfo
	ChunkInput      = container.ChunkInput
	Packet          = container.Packet
)

const (
	FormatMP4      = container.FormatMP4
	FormatWebM     = container.FormatWebM
	FormatMatroska = container.FormatMatroska
)

var (
	NewMuxer            = container.NewMuxer
	NewDemuxerFromBytes  = container.NewDemuxerFromBytes
	DetectContainerFormat = container.DetectFormat
)

// ImageDecoder (internal/imaging).
type (
	ImageDecoder        = imaging.ImageDecoder
	ImageDecoderOptions = imaging.ImageDecoderOptions
	ImageDecodeOptions  = imaging.DecodeOptions
	ImageTrackInfo      = imaging.TrackInfo
)

var NewImageDecoder = imaging.NewImageDecoder

// SoftwareBackends returns a Backends value using only the
// dependency-free reference CodecBackend, for tests and environments
// without FFmpeg or GStreamer installed.
func SoftwareBackends() Backends {
	return Backends{Software: backend.NewSoftware(), Fallback: hwfallback.NewRegistry()}
}

// HardwareBackends returns a Backends value preferring an FFmpeg-backed
// CodecBackend (via go-astiav), falling back to software per
// internal/hwfallback's failure-biased selection.
func HardwareBackends() Backends {
	sw := backend.NewSoftware()
	return Backends{Hardware: backend.NewAstiav(sw), Software: sw, Fallback: hwfallback.NewRegistry()}
}
