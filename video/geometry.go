package video

import "fmt"

// Rect is an integer rectangle in host layout coordinates.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// scale computes val * num / den in 64-bit intermediate precision.
func scale(val, num, den int) int {
	return int(int64(val) * int64(num) / int64(den))
}

// CalculateDisplayRatio computes the display aspect ratio of a video as a
// reduced rational:
//
//	(width * parN * darD) : (height * parD * darN)
//
// where par is the source pixel aspect ratio and dar the display device's
// pixel aspect ratio. It fails on degenerate input (zero dimensions or
// ratio terms).
func CalculateDisplayRatio(width, height, parN, parD, darN, darD int) (num, den int, err error) {
	n := int64(width) * int64(parN) * int64(darD)
	d := int64(height) * int64(parD) * int64(darN)
	if n <= 0 || d <= 0 {
		return 0, 0, fmt.Errorf("video: cannot compute display ratio for %dx%d par %d/%d dar %d/%d",
			width, height, parN, parD, darN, darD)
	}
	g := gcd(n, d)
	return int(n / g), int(d / g), nil
}

// CalculateDisplaySize derives the display dimensions for a format given a
// display aspect ratio override. A zero override means square display
// pixels. The width/height resolution policy is the standard PAR
// correction: keep the video height when it divides the reduced ratio
// denominator evenly, else keep the width when it divides the numerator,
// else fall back to the height-preserving computation as an approximation.
func CalculateDisplaySize(f *Format, darN, darD int) (displayW, displayH int, err error) {
	if f == nil {
		return 0, 0, fmt.Errorf("video: no format")
	}

	parN, parD := f.PixelAspectN, f.PixelAspectD
	if parN == 0 {
		parN = 1
	}
	if darN == 0 || darD == 0 {
		darN, darD = 1, 1
	}

	num, den, err := CalculateDisplayRatio(f.Width, f.Height, parN, parD, darN, darD)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case f.Height%den == 0:
		return scale(f.Height, num, den), f.Height, nil
	case f.Width%num == 0:
		return f.Width, scale(f.Width, den, num), nil
	default:
		// Neither axis divides evenly; reuse the height-preserving
		// formula even though the resulting ratio is inexact.
		return scale(f.Height, num, den), f.Height, nil
	}
}

// CenterRect positions src within dst. With scaling enabled the source is
// scaled to the largest size that fits dst while preserving its aspect
// ratio and centered (letterbox/pillarbox); without scaling the source
// keeps its size, clipped to dst, and is centered.
func CenterRect(src, dst Rect, scaling bool) Rect {
	var out Rect

	if !scaling {
		out.W = min(src.W, dst.W)
		out.H = min(src.H, dst.H)
		out.X = dst.X + (dst.W-out.W)/2
		out.Y = dst.Y + (dst.H-out.H)/2
		return out
	}

	if src.H == 0 || dst.H == 0 {
		return dst
	}

	srcRatio := float64(src.W) / float64(src.H)
	dstRatio := float64(dst.W) / float64(dst.H)

	switch {
	case srcRatio > dstRatio:
		out.W = dst.W
		out.H = int(float64(dst.W) / srcRatio)
		out.X = 0
		out.Y = (dst.H - out.H) / 2
	case srcRatio < dstRatio:
		out.W = int(float64(dst.H) * srcRatio)
		out.H = dst.H
		out.X = (dst.W - out.W) / 2
		out.Y = 0
	default:
		out.W = dst.W
		out.H = dst.H
	}
	out.X += dst.X
	out.Y += dst.Y
	return out
}
