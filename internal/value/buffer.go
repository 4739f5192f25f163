package value

import "sync/atomic"

// sharedBuffer is a reference-counted carrier for video/audio plane bytes.
// Frame and AudioData clones share one sharedBuffer; the last holder's
// Close releases it. EncodedChunk never uses this type — its bytes are
// always a private copy (see chunk.go).
type sharedBuffer struct {
	planes [][]byte
	refs   atomic.Int32
}

func newSharedBuffer(planes [][]byte) *sharedBuffer {
	b := &sharedBuffer{planes: planes}
	b.refs.Store(1)
	return b
}

// retain increments the reference count for a new clone.
func (b *sharedBuffer) retain() {
	b.refs.Add(1)
}

// release decrements the reference count. The caller must not touch the
// buffer's planes after the count reaches zero.
func (b *sharedBuffer) release() {
	b.refs.Add(-1)
}

func (b *sharedBuffer) plane(i int) []byte {
	return b.planes[i]
}

func (b *sharedBuffer) numPlanes() int {
	return len(b.planes)
}
