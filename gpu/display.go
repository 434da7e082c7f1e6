package gpu

import (
	"fmt"
	"sync/atomic"
)

// Display is a reference-counted handle to a display connection. It is the
// root object contexts are created against and is shared between the
// producer pipeline and the render host.
type Display struct {
	platform Platform
	refs     atomic.Int32
	closed   atomic.Bool
}

// NewDisplay opens a display handle on the given platform with an initial
// reference count of one.
func NewDisplay(p Platform) *Display {
	d := &Display{platform: p}
	d.refs.Store(1)
	return d
}

// Ref takes an additional reference and returns the display for chaining.
func (d *Display) Ref() *Display {
	if d == nil {
		return nil
	}
	if d.refs.Add(1) <= 1 {
		panic("gpu: Ref on closed display")
	}
	return d
}

// Unref drops one reference; the last reference closes the connection.
func (d *Display) Unref() {
	if d == nil {
		return
	}
	n := d.refs.Add(-1)
	if n < 0 {
		panic("gpu: Unref without matching Ref")
	}
	if n == 0 {
		d.closed.Store(true)
	}
}

// Valid reports whether the handle refers to a live display connection.
func (d *Display) Valid() bool {
	return d != nil && d.platform != nil && !d.closed.Load()
}

// Platform returns the backend this display was opened on.
func (d *Display) Platform() Platform {
	if d == nil {
		return nil
	}
	return d.platform
}

// WrapContext wraps an externally owned context handle (typically the render
// host's own context) so it can be activated and shared against. The wrapped
// context does not own the underlying handle.
func (d *Display) WrapContext(h Handle) (*Context, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("gpu: wrap context: display is not valid")
	}
	if h == nil {
		return nil, fmt.Errorf("gpu: wrap context: nil handle")
	}
	c := &Context{display: d.Ref(), handle: h, wrapped: true}
	c.refs.Store(1)
	return c, nil
}

// NewContext allocates an uncreated context on this display. Create must be
// called before the context is usable.
func (d *Display) NewContext() *Context {
	c := &Context{display: d.Ref()}
	c.refs.Store(1)
	return c
}
