package gpu

import (
	"sync"

	"github.com/avkit/framesink/video"
)

// Texture is the presentable object a paint cycle binds the front frame
// into. It is allocated once per drawable node and rebound on every paint;
// it holds its own reference to the bound frame so the frame slots can be
// swapped or reset underneath it.
type Texture struct {
	mu     sync.Mutex
	format *video.Format
	frame  *video.Frame
	dirty  bool
}

// NewTexture allocates an empty texture.
func NewTexture() *Texture {
	return &Texture{}
}

// SetFormat records the format the next bound frame is described by.
func (t *Texture) SetFormat(f *video.Format) {
	t.mu.Lock()
	t.format = f
	t.mu.Unlock()
}

// SetFrame binds a frame, taking a texture-owned reference and releasing
// the previously bound one. A nil frame unbinds.
func (t *Texture) SetFrame(f *video.Frame) {
	t.mu.Lock()
	old := t.frame
	t.frame = f.Ref()
	t.dirty = true
	t.mu.Unlock()
	old.Unref()
}

// Snapshot returns a referenced handle to the currently bound frame, or nil
// when nothing is bound. The caller must Unref it.
func (t *Texture) Snapshot() *video.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame.Ref()
}

// Format returns the format of the bound frame.
func (t *Texture) Format() *video.Format {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.format
}

// Dirty reports and clears the pending-upload flag.
func (t *Texture) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.dirty
	t.dirty = false
	return d
}

// Release unbinds the current frame and drops the texture's reference.
func (t *Texture) Release() {
	t.mu.Lock()
	old := t.frame
	t.frame = nil
	t.format = nil
	t.mu.Unlock()
	old.Unref()
}
