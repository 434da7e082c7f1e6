package video

import "fmt"

// PixelFormat identifies the pixel layout of a frame.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatRGBA                // Packed RGBA, 4 bytes per pixel
	PixelFormatBGRA                // Packed BGRA, 4 bytes per pixel
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatRGBA:
		return "RGBA"
	case PixelFormatBGRA:
		return "BGRA"
	default:
		return "Unknown"
	}
}

// BytesPerPixel returns the packed pixel size in bytes.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelFormatRGBA, PixelFormatBGRA:
		return 4
	default:
		return 0
	}
}

// Format describes a negotiated video stream: geometry, pixel layout and
// pixel aspect ratio. A Format is immutable once constructed; renegotiation
// replaces it wholesale.
type Format struct {
	Width       int
	Height      int
	PixelFormat PixelFormat

	// Pixel aspect ratio of the source video, as a rational. A zero
	// numerator means "unspecified" and is treated as square pixels.
	PixelAspectN int
	PixelAspectD int
}

// NewFormat builds a fixed format with square pixels.
func NewFormat(format PixelFormat, width, height int) *Format {
	return &Format{
		Width:        width,
		Height:       height,
		PixelFormat:  format,
		PixelAspectN: 1,
		PixelAspectD: 1,
	}
}

// IsFixed reports whether the format is fully specified, i.e. not a
// template or wildcard descriptor. Frames can only be negotiated against
// fixed formats.
func (f *Format) IsFixed() bool {
	if f == nil {
		return false
	}
	return f.Width > 0 && f.Height > 0 &&
		f.PixelFormat != PixelFormatUnknown &&
		f.PixelAspectD > 0 && f.PixelAspectN >= 0
}

// Equal reports whether two formats describe the same stream.
func (f *Format) Equal(other *Format) bool {
	if f == nil || other == nil {
		return f == other
	}
	return *f == *other
}

func (f *Format) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %dx%d par %d/%d",
		f.PixelFormat, f.Width, f.Height, f.PixelAspectN, f.PixelAspectD)
}
