// Package backend defines the CodecBackend contract (spec.md §6) and its
// implementations: a dependency-free software reference backend, an
// FFmpeg-backed backend via go-astiav, and a GStreamer-backed backend
// via go-gst. internal/codec drives whichever backend a configure call
// selects without caring which one it got.
package backend

import (
	"github.com/five82/webcodecsgo/internal/config"
)

// Handle identifies an open encoder or decoder instance within a
// backend. Backends are free to use it as an index into their own
// instance table; the engine treats it as opaque.
type Handle uint64

// PollStatus is the result tag of PollOutput.
type PollStatus int

const (
	// StatusAgain means no output is available yet; the caller should
	// feed more input before polling again.
	StatusAgain PollStatus = iota
	// StatusReady means Output carries a produced packet or frame.
	StatusReady
	// StatusEndOfStream means the handle has been drained and will
	// produce no further output.
	StatusEndOfStream
)

// Output is a decoded frame or an encoded packet, depending on which
// side of the handle produced it. The engine interprets Planes (decode)
// or Bytes (encode) according to the call that produced the Handle.
type Output struct {
	Status PollStatus

	// Bytes carries an encoded packet's payload (PollOutput on an
	// encoder handle).
	Bytes []byte
	// Planes carries a decoded frame's plane data (PollOutput on a
	// decoder handle), in the pixel format implied by the handle's
	// configure call.
	Planes [][]byte

	PTS      int64
	Duration *uint64
	IsKey    bool
}

// CodecBackend is the engine's view of a native codec library, per
// spec.md §6. Frame/chunk data crossing this boundary is raw bytes; the
// value and config packages translate to and from WebCodecs types on
// either side.
type CodecBackend interface {
	OpenEncoder(codec string, role config.Role, params EncoderParams) (Handle, error)
	OpenDecoder(codec string, role config.Role, params DecoderParams) (Handle, error)

	FeedFrame(h Handle, planes [][]byte, pts int64, opts FrameOptions) error
	FeedChunk(h Handle, data []byte, pts int64, isKey bool) error

	PollOutput(h Handle) (Output, error)
	Drain(h Handle) error

	// SynthesiseDecoderDescription returns the codec-specific decoder
	// configuration blob (avcC / hvcC / av1C / OpusHead) for an encoder
	// handle, once it has produced at least one keyframe.
	SynthesiseDecoderDescription(h Handle) ([]byte, error)

	// ProbeSupport satisfies config.Prober: it reports whether this
	// backend can realise codec for role without opening a handle.
	ProbeSupport(codec string, role config.Role) bool

	Close(h Handle) error
}

// FrameOptions carries per-Encode-call settings down to the backend: the
// VideoEncoderEncodeOptions/AudioEncoderEncodeOptions fields that vary
// frame-to-frame rather than living in the configure-time EncoderParams.
type FrameOptions struct {
	KeyFrame bool
	// Quantizer is non-nil only when the encoder was configured with
	// BitrateMode == quantizer (spec.md §4.D); backends that have no
	// per-frame quantizer knob (e.g. Software) are free to ignore it.
	Quantizer *float64
}

// EncoderParams carries the subset of VideoEncoderConfig/AudioEncoderConfig
// a backend needs, independent of which value type the caller configured
// with. internal/codec populates this from whichever config dictionary
// is in play.
type EncoderParams struct {
	Width, Height uint32
	Bitrate       uint64
	Framerate     float64

	SampleRate       float64
	NumberOfChannels uint32

	KeyFrameIntervalFrames int

	// QuantizerMode is set when the encoder was configured with
	// BitrateMode == quantizer, so a backend can switch its codec
	// context into constant-quantizer operation once at open time
	// instead of re-deriving it from every FrameOptions.
	QuantizerMode bool
}

// DecoderParams is the decode-side counterpart of EncoderParams.
type DecoderParams struct {
	CodedWidth, CodedHeight uint32
	Description             []byte

	SampleRate       float64
	NumberOfChannels uint32
}
