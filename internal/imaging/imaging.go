// Package imaging implements ImageDecoder (spec.md §1 scope, detailed in
// SPEC_FULL.md §4.H): a thin typed wrapper around one external decoding
// capability, the way the teacher's internal/encoder wraps a single external tool
// rather than reimplementing it.
package imaging

import (
	"context"

	"github.com/five82/webcodecsgo/internal/codecerr"
	"github.com/five82/webcodecsgo/internal/value"
)

// Handle identifies one open ImageBackend decode session.
type Handle uint64

// TrackInfo describes one image track: a still image has exactly one
// track with FrameCount 1; an animated image (APNG, animated WebP/GIF)
// has FrameCount > 1 and an optional RepetitionCount.
type TrackInfo struct {
	Index           int
	FrameCount      int
	RepetitionCount int
	Width, Height   uint32
}

// DecodeOptions selects which frame of a (possibly animated) track to
// decode.
type DecodeOptions struct {
	FrameIndex int
}

// ImageDecoderOptions mirrors the ImageDecoder constructor dictionary.
type ImageDecoderOptions struct {
	MimeType        string
	PreferAnimation bool
}

// ImageBackend is the external decoding capability ImageDecoder wraps
// (spec.md §1: out of scope/external). Open validates the MIME type
// semantically and parses container/frame structure; DecodeFrame
// produces one frame's pixel planes in canonical RGBA-family layout.
type ImageBackend interface {
	Open(data []byte, mimeType string) (Handle, error)
	Tracks(h Handle) ([]TrackInfo, error)
	Complete(h Handle) bool
	DecodeFrame(h Handle, trackIndex, frameIndex int) (planes [][]byte, width, height uint32, err error)
	Close(h Handle) error
}

// ImageDecoder decodes still or animated image bytes into value.Frame
// instances, one frame at a time.
type ImageDecoder struct {
	backend ImageBackend
	handle  Handle
	tracks  []TrackInfo
	closed  bool
}

// NewImageDecoder validates opts syntactically, then asks backend to
// open data. A missing MIME type is a TypeError; a backend that cannot
// parse data at all is a NotSupportedError.
func NewImageDecoder(data []byte, opts ImageDecoderOptions, backend ImageBackend) (*ImageDecoder, error) {
	if opts.MimeType == "" {
		return nil, codecerr.NewTypeError("mimeType is required")
	}
	if len(data) == 0 {
		return nil, codecerr.NewTypeError("data must be non-empty")
	}

	h, err := backend.Open(data, opts.MimeType)
	if err != nil {
		return nil, codecerr.NewNotSupportedError("backend rejected mimeType %q: %v", opts.MimeType, err)
	}
	tracks, err := backend.Tracks(h)
	if err != nil {
		_ = backend.Close(h)
		return nil, err
	}

	return &ImageDecoder{backend: backend, handle: h, tracks: tracks}, nil
}

// Tracks lists the image's decodable tracks, one per frame sequence.
func (d *ImageDecoder) Tracks() []TrackInfo { return d.tracks }

// Complete reports whether decoding has progressed far enough that every
// track's frame count is final (always true for a backend given the
// whole byte buffer up front, as NewImageDecoder requires here; a
// streaming backend could report false until more bytes arrive).
func (d *ImageDecoder) Complete() bool {
	if d.closed {
		return false
	}
	return d.backend.Complete(d.handle)
}

// Decode produces the Frame for the track/frame index named by opts.
// ctx is honoured the way spec.md §5.1 describes for every suspension
// point: a context already cancelled on entry fails with an AbortError
// instead of calling into the backend.
func (d *ImageDecoder) Decode(ctx context.Context, opts DecodeOptions) (*value.Frame, error) {
	if d.closed {
		return nil, codecerr.NewInvalidStateError("image decoder is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, codecerr.NewAbortError("decode cancelled: %v", err)
	}

	planes, width, height, err := d.backend.DecodeFrame(d.handle, 0, opts.FrameIndex)
	if err != nil {
		return nil, codecerr.NewDataError("decode failed: %v", err)
	}

	data := planes[0]
	for _, p := range planes[1:] {
		data = append(data, p...)
	}

	return value.NewFrameFromBuffer(data, value.FrameInit{
		Format:       value.FormatRGBA,
		CodedWidth:   width,
		CodedHeight:  height,
		Timestamp:    int64(opts.FrameIndex),
		HasTimestamp: true,
	})
}

// Close releases the backend handle. A second Close is a silent no-op.
func (d *ImageDecoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.backend.Close(d.handle)
}
