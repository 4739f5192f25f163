package value

import "encoding/json"

// ColorPrimaries enumerates the VideoColorSpace "primaries" field.
type ColorPrimaries string

const (
	PrimariesBT709     ColorPrimaries = "bt709"
	PrimariesBT470BG   ColorPrimaries = "bt470bg"
	PrimariesSMPTE170M ColorPrimaries = "smpte170m"
	PrimariesBT2020    ColorPrimaries = "bt2020"
	PrimariesSMPTE432  ColorPrimaries = "smpte432"
)

// TransferCharacteristics enumerates the VideoColorSpace "transfer" field.
type TransferCharacteristics string

const (
	TransferBT709      TransferCharacteristics = "bt709"
	TransferSMPTE170M  TransferCharacteristics = "smpte170m"
	TransferIEC61966   TransferCharacteristics = "iec61966-2-1"
	TransferLinear     TransferCharacteristics = "linear"
	TransferPQ         TransferCharacteristics = "pq"
	TransferHLG        TransferCharacteristics = "hlg"
)

// MatrixCoefficients enumerates the VideoColorSpace "matrix" field.
type MatrixCoefficients string

const (
	MatrixRGB         MatrixCoefficients = "rgb"
	MatrixBT709       MatrixCoefficients = "bt709"
	MatrixBT470BG     MatrixCoefficients = "bt470bg"
	MatrixSMPTE170M   MatrixCoefficients = "smpte170m"
	MatrixBT2020NCL   MatrixCoefficients = "bt2020-ncl"
)

// ColorSpace is an immutable value object holding four optional,
// independently-nullable enumerated color fields. A nil pointer field
// reads as an explicit null (distinct from the field never having been
// set on the init dictionary, which is not distinguishable in this Go
// representation and is treated identically to null per spec.md §3).
type ColorSpace struct {
	Primaries *ColorPrimaries
	Transfer  *TransferCharacteristics
	Matrix    *MatrixCoefficients
	FullRange *bool
}

// NewColorSpace constructs a ColorSpace; any nil field is read back as
// null. There is no validation: the enum types are plain strings, so a
// value outside the listed constants compiles and is stored as given.
func NewColorSpace(primaries *ColorPrimaries, transfer *TransferCharacteristics, matrix *MatrixCoefficients, fullRange *bool) ColorSpace {
	return ColorSpace{Primaries: primaries, Transfer: transfer, Matrix: matrix, FullRange: fullRange}
}

// Equal reports whether two color spaces carry the same four fields,
// treating nil as equal only to nil.
func (c ColorSpace) Equal(o ColorSpace) bool {
	return equalPtr(c.Primaries, o.Primaries) &&
		equalPtr(c.Transfer, o.Transfer) &&
		equalPtr(c.Matrix, o.Matrix) &&
		equalBoolPtr(c.FullRange, o.FullRange)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalBoolPtr(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// colorSpaceJSON is the explicit-null wire shape toJSON must produce:
// every key present, unset fields serialised as JSON null.
type colorSpaceJSON struct {
	Primaries *ColorPrimaries          `json:"primaries"`
	Transfer  *TransferCharacteristics `json:"transfer"`
	Matrix    *MatrixCoefficients      `json:"matrix"`
	FullRange *bool                    `json:"fullRange"`
}

// MarshalJSON implements toJSON, always emitting all four keys with
// explicit nulls for unset fields.
func (c ColorSpace) MarshalJSON() ([]byte, error) {
	return json.Marshal(colorSpaceJSON{
		Primaries: c.Primaries,
		Transfer:  c.Transfer,
		Matrix:    c.Matrix,
		FullRange: c.FullRange,
	})
}

// UnmarshalJSON implements the round-trip counterpart of MarshalJSON.
func (c *ColorSpace) UnmarshalJSON(data []byte) error {
	var wire colorSpaceJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.Primaries = wire.Primaries
	c.Transfer = wire.Transfer
	c.Matrix = wire.Matrix
	c.FullRange = wire.FullRange
	return nil
}
