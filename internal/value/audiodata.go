package value

import "github.com/five82/webcodecsgo/internal/codecerr"

// SampleFormat tags the layout of an AudioData's samples.
type SampleFormat string

const (
	SampleFormatU8        SampleFormat = "u8"
	SampleFormatS16       SampleFormat = "s16"
	SampleFormatS32       SampleFormat = "s32"
	SampleFormatF32       SampleFormat = "f32"
	SampleFormatU8Planar  SampleFormat = "u8-planar"
	SampleFormatS16Planar SampleFormat = "s16-planar"
	SampleFormatS32Planar SampleFormat = "s32-planar"
	SampleFormatF32Planar SampleFormat = "f32-planar"

	// SampleFormatClosed is the sentinel Format() reads back as once the
	// instance has been closed.
	SampleFormatClosed SampleFormat = ""
)

func isPlanarFormat(f SampleFormat) bool {
	switch f {
	case SampleFormatU8Planar, SampleFormatS16Planar, SampleFormatS32Planar, SampleFormatF32Planar:
		return true
	default:
		return false
	}
}

func bytesPerSampleAudio(f SampleFormat) int {
	switch f {
	case SampleFormatU8, SampleFormatU8Planar:
		return 1
	case SampleFormatS16, SampleFormatS16Planar:
		return 2
	case SampleFormatS32, SampleFormatS32Planar, SampleFormatF32, SampleFormatF32Planar:
		return 4
	default:
		return 0
	}
}

// AudioDataInit mirrors the AudioData constructor init dictionary.
type AudioDataInit struct {
	Format          SampleFormat
	SampleRate      float64
	NumberOfFrames  uint32
	NumberOfChannels uint32
	Timestamp       int64
	Data            []byte
}

// AudioData is a decoded audio unit. Ownership mirrors Frame: a shared,
// reference-counted buffer plus a closed flag.
type AudioData struct {
	buf    *sharedBuffer
	closed bool

	format          SampleFormat
	sampleRate      float64
	numberOfFrames  uint32
	numberOfChannels uint32
	timestamp       int64
}

// NewAudioData validates init and constructs an AudioData, copying the
// caller's data into planes determined by the interleaved/planar layout
// implied by format.
func NewAudioData(init AudioDataInit) (*AudioData, error) {
	if init.NumberOfFrames == 0 {
		return nil, codecerr.NewTypeError("numberOfFrames must be non-zero")
	}
	if init.NumberOfChannels == 0 {
		return nil, codecerr.NewTypeError("numberOfChannels must be non-zero")
	}
	if init.SampleRate <= 0 {
		return nil, codecerr.NewTypeError("sampleRate must be positive")
	}

	bps := bytesPerSampleAudio(init.Format)
	if bps == 0 {
		return nil, codecerr.NewTypeError("unknown sample format %q", init.Format)
	}

	var planes [][]byte
	if isPlanarFormat(init.Format) {
		planeSize := int(init.NumberOfFrames) * bps
		needed := planeSize * int(init.NumberOfChannels)
		if len(init.Data) < needed {
			return nil, codecerr.NewTypeError("buffer (%d bytes) is smaller than the planar layout requires (%d bytes)", len(init.Data), needed)
		}
		planes = make([][]byte, init.NumberOfChannels)
		for ch := 0; ch < int(init.NumberOfChannels); ch++ {
			p := make([]byte, planeSize)
			copy(p, init.Data[ch*planeSize:(ch+1)*planeSize])
			planes[ch] = p
		}
	} else {
		needed := int(init.NumberOfFrames) * int(init.NumberOfChannels) * bps
		if len(init.Data) < needed {
			return nil, codecerr.NewTypeError("buffer (%d bytes) is smaller than the interleaved layout requires (%d bytes)", len(init.Data), needed)
		}
		p := make([]byte, needed)
		copy(p, init.Data[:needed])
		planes = [][]byte{p}
	}

	return &AudioData{
		buf:              newSharedBuffer(planes),
		format:           init.Format,
		sampleRate:       init.SampleRate,
		numberOfFrames:   init.NumberOfFrames,
		numberOfChannels: init.NumberOfChannels,
		timestamp:        init.Timestamp,
	}, nil
}

// Format reads as SampleFormatClosed once closed.
func (a *AudioData) Format() SampleFormat {
	if a.closed {
		return SampleFormatClosed
	}
	return a.format
}

// SampleRate reads as 0 once closed.
func (a *AudioData) SampleRate() float64 {
	if a.closed {
		return 0
	}
	return a.sampleRate
}

// NumberOfFrames reads as 0 once closed.
func (a *AudioData) NumberOfFrames() uint32 {
	if a.closed {
		return 0
	}
	return a.numberOfFrames
}

// NumberOfChannels reads as 0 once closed.
func (a *AudioData) NumberOfChannels() uint32 {
	if a.closed {
		return 0
	}
	return a.numberOfChannels
}

// NumberOfPlanes is 1 for interleaved formats and NumberOfChannels for
// planar formats; reads as 0 once closed.
func (a *AudioData) NumberOfPlanes() uint32 {
	if a.closed {
		return 0
	}
	if isPlanarFormat(a.format) {
		return a.numberOfChannels
	}
	return 1
}

// Timestamp remains readable after Close.
func (a *AudioData) Timestamp() int64 { return a.timestamp }

// Duration is derived: numberOfFrames * 1e6 / sampleRate, in
// microseconds. Like Timestamp it remains readable after Close: it is
// computed from the fields captured at construction, not through the
// SampleRate/NumberOfFrames accessors that read 0 once closed.
func (a *AudioData) Duration() uint64 {
	return uint64(float64(a.numberOfFrames) * 1e6 / a.sampleRate)
}

// AllocationSize returns the number of bytes CopyTo would write for the
// given plane index under this AudioData's own format.
func (a *AudioData) AllocationSize(planeIndex int) (int, error) {
	if a.closed {
		return 0, codecerr.NewInvalidStateError("audio data is closed")
	}
	if planeIndex < 0 || planeIndex >= a.buf.numPlanes() {
		return 0, codecerr.NewTypeError("plane index %d out of range", planeIndex)
	}
	return len(a.buf.plane(planeIndex)), nil
}

// CopyTo writes the bytes of the given plane into dst.
func (a *AudioData) CopyTo(dst []byte, planeIndex int) (int, error) {
	if a.closed {
		return 0, codecerr.NewInvalidStateError("audio data is closed")
	}
	if planeIndex < 0 || planeIndex >= a.buf.numPlanes() {
		return 0, codecerr.NewTypeError("plane index %d out of range", planeIndex)
	}
	plane := a.buf.plane(planeIndex)
	if len(dst) < len(plane) {
		return 0, codecerr.NewTypeError("destination buffer (%d bytes) is smaller than plane size (%d)", len(dst), len(plane))
	}
	return copy(dst, plane), nil
}

// Planes returns defensive copies of this AudioData's plane bytes (one
// plane for interleaved formats, NumberOfChannels planes for planar
// formats), for callers that need to hand raw sample data to a
// CodecBackend.
func (a *AudioData) Planes() ([][]byte, error) {
	if a.closed {
		return nil, codecerr.NewInvalidStateError("audio data is closed")
	}
	out := make([][]byte, a.buf.numPlanes())
	for i := range out {
		src := a.buf.plane(i)
		out[i] = append([]byte(nil), src...)
	}
	return out, nil
}

// Clone returns a new AudioData sharing this instance's sample buffer.
func (a *AudioData) Clone() (*AudioData, error) {
	if a.closed {
		return nil, codecerr.NewInvalidStateError("audio data is closed")
	}
	a.buf.retain()
	return &AudioData{
		buf:              a.buf,
		format:           a.format,
		sampleRate:       a.sampleRate,
		numberOfFrames:   a.numberOfFrames,
		numberOfChannels: a.numberOfChannels,
		timestamp:        a.timestamp,
	}, nil
}

// Close releases this instance's reference to the shared sample buffer.
// Double-close is a silent no-op.
func (a *AudioData) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.buf.release()
}

// Closed reports whether Close has been called on this instance.
func (a *AudioData) Closed() bool { return a.closed }
