package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func makeI420(width, height uint32) []byte {
	n, _ := AllocationSize(FormatI420, width, height)
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func TestFrame_ConstructionAndCopyTo(t *testing.T) {
	data := makeI420(4, 2)
	f, err := NewFrameFromBuffer(data, FrameInit{
		Format:       FormatI420,
		CodedWidth:   4,
		CodedHeight:  2,
		Timestamp:    123456,
		HasTimestamp: true,
	})
	require.NoError(t, err)
	require.Equal(t, FormatI420, f.Format())
	require.Equal(t, uint32(4), f.CodedWidth())
	require.Equal(t, uint32(2), f.CodedHeight())
	require.Equal(t, uint32(4), f.DisplayWidth())
	require.Equal(t, int64(123456), f.Timestamp())

	size, err := f.AllocationSize(CopyToOptions{})
	require.NoError(t, err)
	dst := make([]byte, size)
	layouts, err := f.CopyTo(dst, CopyToOptions{})
	require.NoError(t, err)
	require.Len(t, layouts, 3)
}

func TestFrame_BufferIndependence(t *testing.T) {
	data := makeI420(4, 2)
	f, err := NewFrameFromBuffer(data, FrameInit{Format: FormatI420, CodedWidth: 4, CodedHeight: 2, Timestamp: 0, HasTimestamp: true})
	require.NoError(t, err)

	for i := range data {
		data[i] = 0
	}

	size, _ := f.AllocationSize(CopyToOptions{})
	dst := make([]byte, size)
	_, err = f.CopyTo(dst, CopyToOptions{})
	require.NoError(t, err)

	allZero := true
	for _, b := range dst {
		if b != 0 {
			allZero = false
			break
		}
	}
	require.False(t, allZero, "frame bytes should not reflect post-construction mutation of the source buffer")
}

func TestFrame_ZeroDimensionsRejected(t *testing.T) {
	_, err := NewFrameFromBuffer(nil, FrameInit{Format: FormatI420, CodedWidth: 0, CodedHeight: 2, HasTimestamp: true})
	require.Error(t, err)
}

func TestFrame_BufferTooSmallRejected(t *testing.T) {
	_, err := NewFrameFromBuffer([]byte{1, 2, 3}, FrameInit{Format: FormatI420, CodedWidth: 4, CodedHeight: 2, HasTimestamp: true})
	require.Error(t, err)
}

func TestFrame_CloseClearsResourceButKeepsMetadata(t *testing.T) {
	data := makeI420(4, 2)
	dur := uint64(33333)
	f, err := NewFrameFromBuffer(data, FrameInit{
		Format: FormatI420, CodedWidth: 4, CodedHeight: 2,
		Timestamp: 42, HasTimestamp: true, Duration: &dur,
	})
	require.NoError(t, err)

	f.Close()
	require.Equal(t, FormatClosed, f.Format())
	require.Equal(t, uint32(0), f.CodedWidth())
	require.Equal(t, uint32(0), f.CodedHeight())
	require.Equal(t, uint32(0), f.DisplayWidth())
	require.Equal(t, uint32(0), f.DisplayHeight())
	require.Equal(t, int64(42), f.Timestamp())
	require.Equal(t, uint64(33333), *f.Duration())

	_, err = f.CodedRect()
	require.Error(t, err)
	_, err = f.VisibleRect()
	require.Error(t, err)
	_, err = f.Clone()
	require.Error(t, err)
	_, err = f.CopyTo(make([]byte, 1000), CopyToOptions{})
	require.Error(t, err)
}

func TestFrame_DoubleCloseIsNoOp(t *testing.T) {
	data := makeI420(4, 2)
	f, err := NewFrameFromBuffer(data, FrameInit{Format: FormatI420, CodedWidth: 4, CodedHeight: 2, HasTimestamp: true})
	require.NoError(t, err)
	f.Close()
	require.NotPanics(t, func() { f.Close() })
	require.Equal(t, FormatClosed, f.Format())
}

func TestFrame_CloneSharesBufferUntilLastClose(t *testing.T) {
	data := makeI420(4, 2)
	f1, err := NewFrameFromBuffer(data, FrameInit{Format: FormatI420, CodedWidth: 4, CodedHeight: 2, Timestamp: 7, HasTimestamp: true})
	require.NoError(t, err)

	f2, err := f1.Clone()
	require.NoError(t, err)
	require.Equal(t, f1.Timestamp(), f2.Timestamp())

	f1.Close()
	// f2 still owns a live reference to the shared buffer.
	size, err := f2.AllocationSize(CopyToOptions{})
	require.NoError(t, err)
	dst := make([]byte, size)
	_, err = f2.CopyTo(dst, CopyToOptions{})
	require.NoError(t, err)

	f2.Close()
}

func TestFrame_NewFromFrameInheritsOmittedFields(t *testing.T) {
	data := makeI420(4, 2)
	src, err := NewFrameFromBuffer(data, FrameInit{
		Format: FormatI420, CodedWidth: 4, CodedHeight: 2,
		Timestamp: 100, HasTimestamp: true, Rotation: 90, Flip: true,
	})
	require.NoError(t, err)
	defer src.Close()

	cloned, err := NewFrameFromFrame(src, FrameInit{Timestamp: 200, HasTimestamp: true})
	require.NoError(t, err)
	defer cloned.Close()

	require.Equal(t, int64(200), cloned.Timestamp())
	require.Equal(t, 90, cloned.Rotation())
	require.True(t, cloned.Flip())
	require.Equal(t, src.Format(), cloned.Format())
}

func TestFrame_NewFromClosedFrameFails(t *testing.T) {
	data := makeI420(4, 2)
	src, err := NewFrameFromBuffer(data, FrameInit{Format: FormatI420, CodedWidth: 4, CodedHeight: 2, HasTimestamp: true})
	require.NoError(t, err)
	src.Close()

	_, err = NewFrameFromFrame(src, FrameInit{})
	require.Error(t, err)
}

func TestFrame_RotationNormalized(t *testing.T) {
	data := makeI420(4, 2)
	f, err := NewFrameFromBuffer(data, FrameInit{Format: FormatI420, CodedWidth: 4, CodedHeight: 2, HasTimestamp: true, Rotation: -90})
	require.NoError(t, err)
	// normalizeRotation wraps negative angles modulo 360, so -90 becomes 270.
	require.Equal(t, 270, f.Rotation())
}
