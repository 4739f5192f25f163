package value

// Rect is an immutable integer rectangle used for codedRect and
// visibleRect on Frame.
type Rect struct {
	X, Y          uint32
	Width, Height uint32
}
