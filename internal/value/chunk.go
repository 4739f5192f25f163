package value

import "github.com/five82/webcodecsgo/internal/codecerr"

// ChunkType is the key/delta tag carried by EncodedChunk.
type ChunkType string

const (
	ChunkTypeKey   ChunkType = "key"
	ChunkTypeDelta ChunkType = "delta"
)

// EncodedChunk is the immutable carrier for one encoded video or audio
// unit. Video and audio chunks share this representation; callers
// distinguish EncodedVideoChunk from EncodedAudioChunk only at the
// codec.* facade layer.
//
// data is always a private copy taken at construction time: mutating the
// caller's source buffer afterward never changes what CopyTo reads back.
type EncodedChunk struct {
	typ       ChunkType
	timestamp int64
	duration  *uint64
	data      []byte
}

// ChunkInit mirrors the constructor dictionary for EncodedVideoChunk and
// EncodedAudioChunk.
type ChunkInit struct {
	Type      ChunkType
	Timestamp int64
	Duration  *uint64
	Data      []byte
}

// NewEncodedChunk validates and constructs an EncodedChunk. Type is
// required and must be a known ChunkType; Data is copied so the caller's
// buffer can be reused or mutated freely afterward.
func NewEncodedChunk(init ChunkInit) (*EncodedChunk, error) {
	switch init.Type {
	case ChunkTypeKey, ChunkTypeDelta:
	default:
		return nil, codecerr.NewTypeError("invalid chunk type %q", init.Type)
	}

	data := make([]byte, len(init.Data))
	copy(data, init.Data)

	var dur *uint64
	if init.Duration != nil {
		d := *init.Duration
		dur = &d
	}

	return &EncodedChunk{
		typ:       init.Type,
		timestamp: init.Timestamp,
		duration:  dur,
		data:      data,
	}, nil
}

// Type returns the chunk's key/delta tag.
func (c *EncodedChunk) Type() ChunkType { return c.typ }

// Timestamp returns the chunk's signed-microsecond timestamp. The full
// int64 range is representable, including negative timestamps.
func (c *EncodedChunk) Timestamp() int64 { return c.timestamp }

// Duration returns the chunk's duration in microseconds, or nil if absent.
func (c *EncodedChunk) Duration() *uint64 {
	if c.duration == nil {
		return nil
	}
	d := *c.duration
	return &d
}

// ByteLength returns the length of the chunk's private data copy.
func (c *EncodedChunk) ByteLength() int { return len(c.data) }

// CopyTo writes the chunk's bytes into dst, starting at offset 0. It
// fails with a TypeError if dst is shorter than ByteLength().
func (c *EncodedChunk) CopyTo(dst []byte) (int, error) {
	if len(dst) < len(c.data) {
		return 0, codecerr.NewTypeError("destination buffer (%d bytes) is smaller than chunk byteLength (%d)", len(dst), len(c.data))
	}
	return copy(dst, c.data), nil
}

// Bytes returns a defensive copy of the chunk's underlying data so
// callers cannot mutate the private copy through an aliasing slice.
func (c *EncodedChunk) Bytes() []byte {
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out
}
