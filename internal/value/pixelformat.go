package value

import "github.com/five82/webcodecsgo/internal/codecerr"

// PixelFormat tags the plane layout of a Frame's pixel buffer.
type PixelFormat string

const (
	FormatI420    PixelFormat = "I420"
	FormatI420A   PixelFormat = "I420A"
	FormatI422    PixelFormat = "I422"
	FormatI422A   PixelFormat = "I422A"
	FormatI444    PixelFormat = "I444"
	FormatI444A   PixelFormat = "I444A"
	FormatI420P10 PixelFormat = "I420P10"
	FormatI422P10 PixelFormat = "I422P10"
	FormatI444P10 PixelFormat = "I444P10"
	FormatI420P12 PixelFormat = "I420P12"
	FormatI422P12 PixelFormat = "I422P12"
	FormatI444P12 PixelFormat = "I444P12"
	FormatNV12    PixelFormat = "NV12"
	FormatNV21    PixelFormat = "NV21"
	FormatRGBA    PixelFormat = "RGBA"
	FormatRGBX    PixelFormat = "RGBX"
	FormatBGRA    PixelFormat = "BGRA"
	FormatBGRX    PixelFormat = "BGRX"

	// FormatClosed is the sentinel a Frame's Format() reads back as once
	// the frame has been closed.
	FormatClosed PixelFormat = ""
)

// planeCounts maps each real pixel format to its plane count, per
// spec.md §3.
var planeCounts = map[PixelFormat]int{
	FormatI420: 3, FormatI420A: 4,
	FormatI422: 3, FormatI422A: 4,
	FormatI444: 3, FormatI444A: 4,
	FormatI420P10: 3, FormatI422P10: 3, FormatI444P10: 3,
	FormatI420P12: 3, FormatI422P12: 3, FormatI444P12: 3,
	FormatNV12: 2, FormatNV21: 2,
	FormatRGBA: 1, FormatRGBX: 1, FormatBGRA: 1, FormatBGRX: 1,
}

// bytesPerSample is 1 for 8-bit formats and 2 for the 10/12-bit variants,
// which are stored in 16-bit samples.
func bytesPerSample(format PixelFormat) int {
	switch format {
	case FormatI420P10, FormatI422P10, FormatI444P10,
		FormatI420P12, FormatI422P12, FormatI444P12:
		return 2
	default:
		return 1
	}
}

// PlaneCount returns the number of planes for format, or an error if the
// format is unknown.
func PlaneCount(format PixelFormat) (int, error) {
	n, ok := planeCounts[format]
	if !ok {
		return 0, codecerr.NewTypeError("unknown pixel format %q", format)
	}
	return n, nil
}

// chromaSubsampling returns the horizontal/vertical subsampling divisors
// applied to chroma planes, relative to the luma plane, for formats with
// 3 or 4 planes. NV12/NV21 are handled separately (interleaved chroma).
func chromaSubsampling(format PixelFormat) (hDiv, vDiv int) {
	switch format {
	case FormatI420, FormatI420A, FormatI420P10, FormatI420P12:
		return 2, 2
	case FormatI422, FormatI422A, FormatI422P10, FormatI422P12:
		return 2, 1
	case FormatI444, FormatI444A, FormatI444P10, FormatI444P12:
		return 1, 1
	default:
		return 1, 1
	}
}

// hasAlphaPlane reports whether format carries a fourth, full-resolution
// alpha plane.
func hasAlphaPlane(format PixelFormat) bool {
	switch format {
	case FormatI420A, FormatI422A, FormatI444A:
		return true
	default:
		return false
	}
}

// planeLayout computes the default (tightly packed, canonical plane
// order) offset/stride/size for each plane of format at width x height.
func planeLayout(format PixelFormat, width, height uint32) ([]PlaneLayout, []int, error) {
	n, err := PlaneCount(format)
	if err != nil {
		return nil, nil, err
	}

	bps := bytesPerSample(format)
	layouts := make([]PlaneLayout, n)
	sizes := make([]int, n)
	offset := 0

	switch format {
	case FormatNV12, FormatNV21:
		lumaStride := int(width) * bps
		layouts[0] = PlaneLayout{Offset: offset, Stride: lumaStride}
		sizes[0] = lumaStride * int(height)
		offset += sizes[0]

		chromaStride := int(width) * bps // interleaved U/V, one byte pair per 2x2 block, same row width
		chromaHeight := (int(height) + 1) / 2
		layouts[1] = PlaneLayout{Offset: offset, Stride: chromaStride}
		sizes[1] = chromaStride * chromaHeight
		offset += sizes[1]

	case FormatRGBA, FormatRGBX, FormatBGRA, FormatBGRX:
		stride := int(width) * 4 * bps
		layouts[0] = PlaneLayout{Offset: offset, Stride: stride}
		sizes[0] = stride * int(height)
		offset += sizes[0]

	default:
		hDiv, vDiv := chromaSubsampling(format)
		lumaStride := int(width) * bps
		layouts[0] = PlaneLayout{Offset: offset, Stride: lumaStride}
		sizes[0] = lumaStride * int(height)
		offset += sizes[0]

		chromaW := (int(width) + hDiv - 1) / hDiv
		chromaH := (int(height) + vDiv - 1) / vDiv
		chromaStride := chromaW * bps
		for p := 1; p <= 2; p++ {
			layouts[p] = PlaneLayout{Offset: offset, Stride: chromaStride}
			sizes[p] = chromaStride * chromaH
			offset += sizes[p]
		}

		if hasAlphaPlane(format) {
			layouts[3] = PlaneLayout{Offset: offset, Stride: lumaStride}
			sizes[3] = lumaStride * int(height)
			offset += sizes[3]
		}
	}

	return layouts, sizes, nil
}

// AllocationSize returns the total number of bytes required to hold
// width x height pixels in format under the default (packed) plane
// layout.
func AllocationSize(format PixelFormat, width, height uint32) (int, error) {
	_, sizes, err := planeLayout(format, width, height)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, s := range sizes {
		total += s
	}
	return total, nil
}

// PlaneLayout describes where one plane's bytes begin and how many
// bytes separate consecutive rows.
type PlaneLayout struct {
	Offset int
	Stride int
}
