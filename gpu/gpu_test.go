package gpu

import (
	"errors"
	"testing"

	"github.com/avkit/framesink/video"
)

// failPlatform refuses every operation, for error-path coverage.
type failPlatform struct{ err error }

func (p failPlatform) Name() string                               { return "fail" }
func (p failPlatform) CreateContext(share Handle) (Handle, error) { return nil, p.err }
func (p failPlatform) Activate(h Handle, active bool) error       { return p.err }

func TestSoftwarePlatformShareGroups(t *testing.T) {
	p := Software()

	root, err := p.CreateContext(nil)
	if err != nil {
		t.Fatalf("CreateContext(nil): %v", err)
	}
	child, err := p.CreateContext(root)
	if err != nil {
		t.Fatalf("CreateContext(root): %v", err)
	}
	if root.(*softwareHandle).shareGroup != child.(*softwareHandle).shareGroup {
		t.Error("child context not in root's share group")
	}

	other, _ := p.CreateContext(nil)
	if root.(*softwareHandle).shareGroup == other.(*softwareHandle).shareGroup {
		t.Error("independent roots share a group")
	}

	if _, err := p.CreateContext("not a handle"); err == nil {
		t.Error("expected error for foreign share handle")
	}
	if err := p.Activate("not a handle", true); err == nil {
		t.Error("expected error activating foreign handle")
	}
}

func TestDisplayRefCounting(t *testing.T) {
	d := NewDisplay(Software())
	if !d.Valid() {
		t.Fatal("new display not valid")
	}

	d.Ref()
	d.Unref()
	if !d.Valid() {
		t.Fatal("display closed while references remain")
	}

	d.Unref()
	if d.Valid() {
		t.Fatal("display still valid after last unref")
	}
}

func TestDisplayNilSafe(t *testing.T) {
	var d *Display
	if d.Ref() != nil {
		t.Error("Ref on nil display did not return nil")
	}
	d.Unref()
	if d.Valid() {
		t.Error("nil display reported valid")
	}
	if d.Platform() != nil {
		t.Error("nil display returned a platform")
	}
}

func TestDisplayRefAfterClosePanics(t *testing.T) {
	d := NewDisplay(Software())
	d.Unref()

	defer func() {
		if recover() == nil {
			t.Error("Ref on closed display did not panic")
		}
	}()
	d.Ref()
}

func TestWrapContext(t *testing.T) {
	p := Software()
	d := NewDisplay(p)
	defer d.Unref()

	if _, err := d.WrapContext(nil); err == nil {
		t.Error("expected error wrapping nil handle")
	}

	h, _ := p.CreateContext(nil)
	ctx, err := d.WrapContext(h)
	if err != nil {
		t.Fatalf("WrapContext: %v", err)
	}
	if !ctx.Wrapped() {
		t.Error("wrapped context not reported wrapped")
	}
	if !ctx.Valid() {
		t.Error("wrapped context not valid")
	}
	if ctx.Handle() != h {
		t.Error("wrapped context does not expose the host handle")
	}
	if ctx.Display() != d {
		t.Error("wrapped context bound to wrong display")
	}
	ctx.Unref()

	closed := NewDisplay(p)
	closed.Unref()
	if _, err := closed.WrapContext(h); err == nil {
		t.Error("expected error wrapping on a closed display")
	}
}

func TestContextCreateWithShare(t *testing.T) {
	p := Software()
	d := NewDisplay(p)
	defer d.Unref()

	h, _ := p.CreateContext(nil)
	host, err := d.WrapContext(h)
	if err != nil {
		t.Fatalf("WrapContext: %v", err)
	}
	defer host.Unref()

	ctx := d.NewContext()
	defer ctx.Unref()
	if ctx.Valid() {
		t.Fatal("uncreated context reported valid")
	}
	if err := ctx.Activate(true); err == nil {
		t.Fatal("expected error activating an uncreated context")
	}

	if err := ctx.Create(host); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !ctx.Valid() {
		t.Fatal("created context not valid")
	}
	got := ctx.Handle().(*softwareHandle)
	want := h.(*softwareHandle)
	if got.shareGroup != want.shareGroup {
		t.Error("created context not sharing with the host context")
	}

	// Create is a no-op on an already created context.
	if err := ctx.Create(nil); err != nil {
		t.Errorf("repeated Create: %v", err)
	}

	if err := ctx.Activate(true); err != nil {
		t.Errorf("Activate: %v", err)
	}
	if err := ctx.Activate(false); err != nil {
		t.Errorf("deactivate: %v", err)
	}
}

func TestContextCreateErrors(t *testing.T) {
	d := NewDisplay(Software())
	ctx := d.NewContext()

	uncreated := d.NewContext()
	if err := ctx.Create(uncreated); err == nil {
		t.Error("expected error sharing with an uncreated context")
	}
	uncreated.Unref()
	ctx.Unref()
	d.Unref()

	platformErr := errors.New("backend unavailable")
	fd := NewDisplay(failPlatform{err: platformErr})
	fctx := fd.NewContext()
	err := fctx.Create(nil)
	if !errors.Is(err, platformErr) {
		t.Errorf("Create error = %v, want wrapped %v", err, platformErr)
	}
	fctx.Unref()
	fd.Unref()
}

// A context keeps its display alive: the display reference it took is only
// dropped with the context's last reference.
func TestContextHoldsDisplayReference(t *testing.T) {
	d := NewDisplay(Software())
	ctx := d.NewContext()
	if err := ctx.Create(nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	d.Unref()
	if !d.Valid() {
		t.Fatal("display closed while a context references it")
	}

	ctx.Unref()
	if d.Valid() {
		t.Fatal("display still valid after the context released it")
	}
}

func TestTextureBinding(t *testing.T) {
	format := video.NewFormat(video.PixelFormatRGBA, 2, 2)
	released := 0
	frame := video.NewFrameWithRelease(format, make([]byte, 16), 8, func() {
		released++
	})

	tex := NewTexture()
	if tex.Dirty() {
		t.Error("empty texture reported dirty")
	}
	if tex.Snapshot() != nil {
		t.Error("empty texture returned a snapshot")
	}

	tex.SetFormat(format)
	tex.SetFrame(frame)
	if tex.Format() != format {
		t.Error("texture format not recorded")
	}
	if !tex.Dirty() {
		t.Error("texture not dirty after binding a frame")
	}
	if tex.Dirty() {
		t.Error("dirty flag not cleared after reporting")
	}

	snap := tex.Snapshot()
	if snap != frame {
		t.Error("snapshot is not the bound frame")
	}
	snap.Unref()

	// The caller's reference goes away; the texture still holds its own.
	frame.Unref()
	if released != 0 {
		t.Fatal("frame released while bound to the texture")
	}

	tex.Release()
	if released != 1 {
		t.Fatalf("frame released %d times after texture release, want 1", released)
	}
	if tex.Snapshot() != nil {
		t.Error("released texture returned a snapshot")
	}
}

func TestTextureRebindReleasesPrevious(t *testing.T) {
	format := video.NewFormat(video.PixelFormatRGBA, 1, 1)
	firstReleased := false
	first := video.NewFrameWithRelease(format, make([]byte, 4), 4, func() { firstReleased = true })
	second := video.NewFrame(format, make([]byte, 4), 4)

	tex := NewTexture()
	tex.SetFrame(first)
	first.Unref()

	tex.SetFrame(second)
	if !firstReleased {
		t.Error("previous frame not released on rebind")
	}

	tex.Release()
	second.Unref()
}
