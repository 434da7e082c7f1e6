package video

import "testing"

func TestCalculateDisplayRatio(t *testing.T) {
	tests := []struct {
		name                       string
		width, height              int
		parN, parD, darN, darD     int
		wantNum, wantDen           int
	}{
		{"square pixels 16:9", 1920, 1080, 1, 1, 1, 1, 16, 9},
		{"pal 4:3 anamorphic", 720, 576, 16, 15, 1, 1, 4, 3},
		{"ntsc 4:3", 720, 480, 10, 11, 1, 1, 15, 11},
		{"dar override narrows", 1920, 1080, 1, 1, 4, 3, 4, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			num, den, err := CalculateDisplayRatio(tt.width, tt.height, tt.parN, tt.parD, tt.darN, tt.darD)
			if err != nil {
				t.Fatalf("CalculateDisplayRatio: %v", err)
			}
			if num != tt.wantNum || den != tt.wantDen {
				t.Errorf("got %d:%d, want %d:%d", num, den, tt.wantNum, tt.wantDen)
			}
		})
	}
}

func TestCalculateDisplayRatioDegenerate(t *testing.T) {
	if _, _, err := CalculateDisplayRatio(0, 1080, 1, 1, 1, 1); err == nil {
		t.Error("expected error for zero width")
	}
	if _, _, err := CalculateDisplayRatio(1920, 1080, 1, 0, 1, 1); err == nil {
		t.Error("expected error for zero par denominator")
	}
	if _, _, err := CalculateDisplayRatio(1920, 1080, 1, 1, 0, 1); err == nil {
		t.Error("expected error for zero dar numerator")
	}
}

func TestCalculateDisplaySize(t *testing.T) {
	tests := []struct {
		name       string
		format     *Format
		darN, darD int
		wantW      int
		wantH      int
	}{
		{
			// Square pixels pass through untouched.
			name:   "square pixels",
			format: NewFormat(PixelFormatRGBA, 1920, 1080),
			wantW:  1920, wantH: 1080,
		},
		{
			// PAL anamorphic: height divides the ratio denominator, so
			// the height is kept and the width stretched to 768.
			name: "pal keeps height",
			format: &Format{
				Width: 720, Height: 576, PixelFormat: PixelFormatRGBA,
				PixelAspectN: 16, PixelAspectD: 15,
			},
			wantW: 768, wantH: 576,
		},
		{
			// NTSC: 480 does not divide 11 but 720 divides 15, so the
			// width is kept and the height squashed to 528.
			name: "ntsc keeps width",
			format: &Format{
				Width: 720, Height: 480, PixelFormat: PixelFormatRGBA,
				PixelAspectN: 10, PixelAspectD: 11,
			},
			wantW: 720, wantH: 528,
		},
		{
			// Neither axis divides evenly; the height-preserving
			// approximation applies.
			name: "approximation keeps height",
			format: &Format{
				Width: 100, Height: 100, PixelFormat: PixelFormatRGBA,
				PixelAspectN: 3, PixelAspectD: 7,
			},
			wantW: 42, wantH: 100,
		},
		{
			// Unspecified PAR is treated as square pixels.
			name: "zero par numerator",
			format: &Format{
				Width: 1280, Height: 720, PixelFormat: PixelFormatRGBA,
				PixelAspectN: 0, PixelAspectD: 1,
			},
			wantW: 1280, wantH: 720,
		},
		{
			// A display aspect ratio override reshapes the output.
			name:   "dar override",
			format: NewFormat(PixelFormatRGBA, 1920, 1080),
			darN:   4, darD: 3,
			wantW: 1440, wantH: 1080,
		},
		{
			// Zero override means square display pixels.
			name:   "zero dar is square",
			format: NewFormat(PixelFormatRGBA, 1280, 720),
			darN:   0, darD: 0,
			wantW: 1280, wantH: 720,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := CalculateDisplaySize(tt.format, tt.darN, tt.darD)
			if err != nil {
				t.Fatalf("CalculateDisplaySize: %v", err)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestCalculateDisplaySizeErrors(t *testing.T) {
	if _, _, err := CalculateDisplaySize(nil, 0, 0); err == nil {
		t.Error("expected error for nil format")
	}
	bad := &Format{Width: 0, Height: 1080, PixelFormat: PixelFormatRGBA, PixelAspectN: 1, PixelAspectD: 1}
	if _, _, err := CalculateDisplaySize(bad, 0, 0); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestCenterRectScaling(t *testing.T) {
	tests := []struct {
		name     string
		src, dst Rect
		want     Rect
	}{
		{
			// Wider source letterboxes: full width, vertical margins.
			name: "letterbox",
			src:  Rect{W: 1920, H: 1080},
			dst:  Rect{W: 800, H: 600},
			want: Rect{X: 0, Y: 75, W: 800, H: 450},
		},
		{
			// Narrower source pillarboxes: full height, horizontal
			// margins.
			name: "pillarbox",
			src:  Rect{W: 1080, H: 1920},
			dst:  Rect{W: 800, H: 600},
			want: Rect{X: 231, Y: 0, W: 337, H: 600},
		},
		{
			name: "matching ratio fills",
			src:  Rect{W: 1920, H: 1080},
			dst:  Rect{W: 1280, H: 720},
			want: Rect{X: 0, Y: 0, W: 1280, H: 720},
		},
		{
			// Destination offset is added after centering.
			name: "offset destination",
			src:  Rect{W: 1920, H: 1080},
			dst:  Rect{X: 10, Y: 20, W: 800, H: 600},
			want: Rect{X: 10, Y: 95, W: 800, H: 450},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CenterRect(tt.src, tt.dst, true)
			if got != tt.want {
				t.Errorf("CenterRect(%+v, %+v) = %+v, want %+v", tt.src, tt.dst, got, tt.want)
			}
		})
	}
}

// The scaled rectangle must always fit inside the destination and sit
// centered, whatever the aspect ratios involved.
func TestCenterRectScalingContained(t *testing.T) {
	srcs := []Rect{
		{W: 1920, H: 1080}, {W: 640, H: 480}, {W: 100, H: 1000},
		{W: 3, H: 7}, {W: 7, H: 3}, {W: 1, H: 1},
	}
	dsts := []Rect{
		{W: 800, H: 600}, {W: 600, H: 800}, {X: 50, Y: 30, W: 320, H: 240},
	}
	for _, src := range srcs {
		for _, dst := range dsts {
			got := CenterRect(src, dst, true)
			if got.X < dst.X || got.Y < dst.Y ||
				got.X+got.W > dst.X+dst.W || got.Y+got.H > dst.Y+dst.H {
				t.Errorf("CenterRect(%+v, %+v) = %+v exceeds destination", src, dst, got)
			}
			left := got.X - dst.X
			right := dst.X + dst.W - (got.X + got.W)
			if diff := left - right; diff < -1 || diff > 1 {
				t.Errorf("CenterRect(%+v, %+v) = %+v not horizontally centered", src, dst, got)
			}
			top := got.Y - dst.Y
			bottom := dst.Y + dst.H - (got.Y + got.H)
			if diff := top - bottom; diff < -1 || diff > 1 {
				t.Errorf("CenterRect(%+v, %+v) = %+v not vertically centered", src, dst, got)
			}
		}
	}
}

func TestCenterRectNoScaling(t *testing.T) {
	// Larger source is clipped to the destination.
	got := CenterRect(Rect{W: 1920, H: 1080}, Rect{W: 800, H: 600}, false)
	if (got != Rect{X: 0, Y: 0, W: 800, H: 600}) {
		t.Errorf("clipped rect = %+v", got)
	}

	// Smaller source keeps its size and is centered.
	got = CenterRect(Rect{W: 400, H: 300}, Rect{W: 800, H: 600}, false)
	if (got != Rect{X: 200, Y: 150, W: 400, H: 300}) {
		t.Errorf("centered rect = %+v", got)
	}
}

func TestRectEmpty(t *testing.T) {
	if (Rect{W: 10, H: 10}).Empty() {
		t.Error("non-degenerate rect reported empty")
	}
	if !(Rect{W: 0, H: 10}).Empty() || !(Rect{W: 10, H: -1}).Empty() {
		t.Error("degenerate rect not reported empty")
	}
}
