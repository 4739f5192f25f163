package value

import "github.com/five82/webcodecsgo/internal/codecerr"

// FrameInit mirrors the constructor init dictionaries for VideoFrame
// (from a raw buffer, from another VideoFrame, or from a canvas-like
// source). Not every field applies to every constructor; see the
// New*Frame functions below.
type FrameInit struct {
	Format        PixelFormat
	CodedWidth    uint32
	CodedHeight   uint32
	DisplayWidth  *uint32
	DisplayHeight *uint32
	VisibleRect   *Rect
	Timestamp     int64
	HasTimestamp  bool
	Duration      *uint64
	ColorSpace    *ColorSpace
	Rotation      int
	Flip          bool
	Metadata      map[string]any
}

// Frame is a decoded video unit. It holds a reference to a shared pixel
// buffer; Clone shares that buffer, Close releases this instance's
// reference. After Close, Format reads as FormatClosed, the dimension
// accessors read 0, Timestamp/Duration remain readable, and
// CodedRect/VisibleRect/AllocationSize/CopyTo/Clone all fail with
// InvalidStateError.
type Frame struct {
	buf    *sharedBuffer
	closed bool

	format        PixelFormat
	codedWidth    uint32
	codedHeight   uint32
	displayWidth  uint32
	displayHeight uint32
	visibleRect   Rect

	timestamp  int64
	duration   *uint64
	colorSpace ColorSpace
	rotation   int
	flip       bool
	metadata   map[string]any
}

func normalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	switch r {
	case 0, 90, 180, 270:
		return r
	default:
		return 0
	}
}

// NewFrameFromBuffer validates init and wraps data (a caller-owned byte
// buffer holding width*height planes packed per format's canonical
// layout) in a new Frame. Format, CodedWidth, CodedHeight and Timestamp
// are required; zero dimensions or a buffer shorter than the implied
// plane layout raise a TypeError.
func NewFrameFromBuffer(data []byte, init FrameInit) (*Frame, error) {
	if init.CodedWidth == 0 || init.CodedHeight == 0 {
		return nil, codecerr.NewTypeError("codedWidth and codedHeight must be non-zero")
	}
	if !init.HasTimestamp {
		return nil, codecerr.NewTypeError("timestamp is required")
	}

	needed, err := AllocationSize(init.Format, init.CodedWidth, init.CodedHeight)
	if err != nil {
		return nil, err
	}
	if len(data) < needed {
		return nil, codecerr.NewTypeError("buffer (%d bytes) is smaller than the plane layout requires (%d bytes)", len(data), needed)
	}

	layouts, sizes, err := planeLayout(init.Format, init.CodedWidth, init.CodedHeight)
	if err != nil {
		return nil, err
	}
	planes := make([][]byte, len(layouts))
	for i, l := range layouts {
		plane := make([]byte, sizes[i])
		copy(plane, data[l.Offset:l.Offset+sizes[i]])
		planes[i] = plane
	}

	f := newFrame(newSharedBuffer(planes), init)
	return f, nil
}

// NewFrameFromCanvasSource constructs a Frame from a width/height plus a
// callback that yields the frame's pixel bytes in RGBA order (modelling
// a canvas-like source). Timestamp is mandatory; zero dimensions raise a
// TypeError.
func NewFrameFromCanvasSource(width, height uint32, read func() []byte, init FrameInit) (*Frame, error) {
	if width == 0 || height == 0 {
		return nil, codecerr.NewTypeError("width and height must be non-zero")
	}
	if !init.HasTimestamp {
		return nil, codecerr.NewTypeError("timestamp is required")
	}
	init.Format = FormatRGBA
	init.CodedWidth = width
	init.CodedHeight = height
	return NewFrameFromBuffer(read(), init)
}

// NewFrameFromFrame constructs a Frame that shares src's pixel buffer.
// Any field left unset on init is inherited from src. Fails with
// InvalidStateError if src is already closed.
func NewFrameFromFrame(src *Frame, init FrameInit) (*Frame, error) {
	if src.closed {
		return nil, codecerr.NewInvalidStateError("source frame is closed")
	}

	merged := FrameInit{
		Format:        src.format,
		CodedWidth:    src.codedWidth,
		CodedHeight:   src.codedHeight,
		DisplayWidth:  ptrU32(src.displayWidth),
		DisplayHeight: ptrU32(src.displayHeight),
		VisibleRect:   &src.visibleRect,
		Timestamp:     src.timestamp,
		HasTimestamp:  true,
		Duration:      src.duration,
		ColorSpace:    &src.colorSpace,
		Rotation:      src.rotation,
		Flip:          src.flip,
		Metadata:      src.metadata,
	}
	if init.HasTimestamp {
		merged.Timestamp = init.Timestamp
	}
	if init.Duration != nil {
		merged.Duration = init.Duration
	}
	if init.DisplayWidth != nil {
		merged.DisplayWidth = init.DisplayWidth
	}
	if init.DisplayHeight != nil {
		merged.DisplayHeight = init.DisplayHeight
	}
	if init.VisibleRect != nil {
		merged.VisibleRect = init.VisibleRect
	}
	if init.ColorSpace != nil {
		merged.ColorSpace = init.ColorSpace
	}
	if init.Rotation != 0 {
		merged.Rotation = init.Rotation
	}

	src.buf.retain()
	return newFrame(src.buf, merged), nil
}

func ptrU32(v uint32) *uint32 { return &v }

func newFrame(buf *sharedBuffer, init FrameInit) *Frame {
	displayW := init.CodedWidth
	if init.DisplayWidth != nil {
		displayW = *init.DisplayWidth
	}
	displayH := init.CodedHeight
	if init.DisplayHeight != nil {
		displayH = *init.DisplayHeight
	}
	visible := Rect{Width: init.CodedWidth, Height: init.CodedHeight}
	if init.VisibleRect != nil {
		visible = *init.VisibleRect
	}
	var cs ColorSpace
	if init.ColorSpace != nil {
		cs = *init.ColorSpace
	}
	var dur *uint64
	if init.Duration != nil {
		d := *init.Duration
		dur = &d
	}

	return &Frame{
		buf:           buf,
		format:        init.Format,
		codedWidth:    init.CodedWidth,
		codedHeight:   init.CodedHeight,
		displayWidth:  displayW,
		displayHeight: displayH,
		visibleRect:   visible,
		timestamp:     init.Timestamp,
		duration:      dur,
		colorSpace:    cs,
		rotation:      normalizeRotation(init.Rotation),
		flip:          init.Flip,
		metadata:      init.Metadata,
	}
}

// Format returns FormatClosed once the frame has been closed.
func (f *Frame) Format() PixelFormat {
	if f.closed {
		return FormatClosed
	}
	return f.format
}

// CodedWidth reads as 0 once the frame has been closed.
func (f *Frame) CodedWidth() uint32 {
	if f.closed {
		return 0
	}
	return f.codedWidth
}

// CodedHeight reads as 0 once the frame has been closed.
func (f *Frame) CodedHeight() uint32 {
	if f.closed {
		return 0
	}
	return f.codedHeight
}

// DisplayWidth reads as 0 once the frame has been closed.
func (f *Frame) DisplayWidth() uint32 {
	if f.closed {
		return 0
	}
	return f.displayWidth
}

// DisplayHeight reads as 0 once the frame has been closed.
func (f *Frame) DisplayHeight() uint32 {
	if f.closed {
		return 0
	}
	return f.displayHeight
}

// Timestamp remains readable after Close.
func (f *Frame) Timestamp() int64 { return f.timestamp }

// Duration remains readable after Close.
func (f *Frame) Duration() *uint64 {
	if f.duration == nil {
		return nil
	}
	d := *f.duration
	return &d
}

// Rotation remains readable after Close.
func (f *Frame) Rotation() int { return f.rotation }

// Flip remains readable after Close.
func (f *Frame) Flip() bool { return f.flip }

// Metadata remains readable after Close.
func (f *Frame) Metadata() map[string]any { return f.metadata }

// CodedRect fails with InvalidStateError once the frame has been closed.
func (f *Frame) CodedRect() (Rect, error) {
	if f.closed {
		return Rect{}, codecerr.NewInvalidStateError("frame is closed")
	}
	return Rect{Width: f.codedWidth, Height: f.codedHeight}, nil
}

// VisibleRect fails with InvalidStateError once the frame has been closed.
func (f *Frame) VisibleRect() (Rect, error) {
	if f.closed {
		return Rect{}, codecerr.NewInvalidStateError("frame is closed")
	}
	return f.visibleRect, nil
}

// ColorSpace remains readable after Close (it describes metadata, not
// pixel storage).
func (f *Frame) ColorSpace() ColorSpace { return f.colorSpace }

// CopyToOptions configures Frame.CopyTo: an optional output format
// conversion, an optional source rectangle, and an optional per-plane
// layout override. A nil Format/Rect uses the frame's own format/coded
// rect; a nil Layouts packs planes in canonical order with natural
// strides.
type CopyToOptions struct {
	Format  *PixelFormat
	Rect    *Rect
	Layouts []PlaneLayout
}

// AllocationSize returns the number of bytes CopyTo would write under
// opts (or the frame's own format/dimensions if opts is the zero value).
// Fails with InvalidStateError once the frame has been closed.
func (f *Frame) AllocationSize(opts CopyToOptions) (int, error) {
	if f.closed {
		return 0, codecerr.NewInvalidStateError("frame is closed")
	}
	format := f.format
	if opts.Format != nil {
		format = *opts.Format
	}
	w, h := f.codedWidth, f.codedHeight
	if opts.Rect != nil {
		w, h = opts.Rect.Width, opts.Rect.Height
	}
	return AllocationSize(format, w, h)
}

// CopyTo writes this frame's plane bytes into dst and returns the
// realised per-plane layout. Fails with InvalidStateError once the
// frame has been closed, or TypeError if dst is too small.
func (f *Frame) CopyTo(dst []byte, opts CopyToOptions) ([]PlaneLayout, error) {
	if f.closed {
		return nil, codecerr.NewInvalidStateError("frame is closed")
	}

	format := f.format
	if opts.Format != nil {
		format = *opts.Format
	}
	w, h := f.codedWidth, f.codedHeight
	if opts.Rect != nil {
		w, h = opts.Rect.Width, opts.Rect.Height
	}

	needed, err := AllocationSize(format, w, h)
	if err != nil {
		return nil, err
	}
	if len(dst) < needed {
		return nil, codecerr.NewTypeError("destination buffer (%d bytes) is smaller than allocationSize (%d)", len(dst), needed)
	}

	layouts, sizes, err := planeLayout(format, w, h)
	if err != nil {
		return nil, err
	}
	if len(opts.Layouts) > 0 {
		if len(opts.Layouts) != len(layouts) {
			return nil, codecerr.NewTypeError("layout override has %d planes, expected %d", len(opts.Layouts), len(layouts))
		}
		layouts = opts.Layouts
	}

	if format == f.format {
		for i, l := range layouts {
			n := sizes[i]
			if n > len(f.buf.plane(i)) {
				n = len(f.buf.plane(i))
			}
			copy(dst[l.Offset:], f.buf.plane(i)[:n])
		}
	} else {
		// Cross-format conversion is delegated to the backend in the full
		// pipeline; the value layer guarantees only same-format copies.
		return nil, codecerr.NewTypeError("format conversion on copyTo requires a backend and is not implemented at the value layer")
	}

	return layouts, nil
}

// Planes returns defensive copies of this frame's plane bytes in
// canonical order, for callers (the codec engine's encode work items)
// that need to hand raw plane data to a CodecBackend. Fails with
// InvalidStateError once the frame has been closed.
func (f *Frame) Planes() ([][]byte, error) {
	if f.closed {
		return nil, codecerr.NewInvalidStateError("frame is closed")
	}
	out := make([][]byte, f.buf.numPlanes())
	for i := range out {
		src := f.buf.plane(i)
		out[i] = append([]byte(nil), src...)
	}
	return out, nil
}

// Clone returns a new Frame sharing this frame's pixel buffer. Fails
// with InvalidStateError once the frame has been closed.
func (f *Frame) Clone() (*Frame, error) {
	if f.closed {
		return nil, codecerr.NewInvalidStateError("frame is closed")
	}
	return NewFrameFromFrame(f, FrameInit{})
}

// Close releases this instance's reference to the shared pixel buffer
// and marks it closed. Double-close is a silent no-op.
func (f *Frame) Close() {
	if f.closed {
		return
	}
	f.closed = true
	f.buf.release()
}

// Closed reports whether Close has been called on this instance.
func (f *Frame) Closed() bool { return f.closed }
