package gpu

import (
	"fmt"
	"sync/atomic"
)

// Context is a reference-counted rendering context. A context is either
// wrapped (borrowing a handle owned by the render host) or created through
// the display's platform, optionally sharing resources with another
// context.
type Context struct {
	display *Display
	handle  Handle
	wrapped bool
	shared  *Context

	refs atomic.Int32
}

// Ref takes an additional reference and returns the context for chaining.
func (c *Context) Ref() *Context {
	if c == nil {
		return nil
	}
	if c.refs.Add(1) <= 1 {
		panic("gpu: Ref on released context")
	}
	return c
}

// Unref drops one reference. The last reference releases the display
// reference the context holds; wrapped handles stay owned by the host.
func (c *Context) Unref() {
	if c == nil {
		return
	}
	n := c.refs.Add(-1)
	if n < 0 {
		panic("gpu: Unref without matching Ref")
	}
	if n == 0 {
		c.display.Unref()
		c.handle = nil
	}
}

// Create instantiates the context on the display's platform, sharing
// resources with share when non-nil. Calling Create on an already created
// or wrapped context is a no-op.
func (c *Context) Create(share *Context) error {
	if c.handle != nil {
		return nil
	}
	if !c.display.Valid() {
		return fmt.Errorf("gpu: create context: display is not valid")
	}
	var shareHandle Handle
	if share != nil {
		if share.handle == nil {
			return fmt.Errorf("gpu: create context: share context has no handle")
		}
		shareHandle = share.handle
	}
	h, err := c.display.Platform().CreateContext(shareHandle)
	if err != nil {
		return fmt.Errorf("gpu: create context on %s: %w", c.display.Platform().Name(), err)
	}
	c.handle = h
	c.shared = share
	return nil
}

// Activate makes the context current (or releases it) on the calling
// thread. Activation failures indicate backend misuse and are surfaced to
// the caller.
func (c *Context) Activate(active bool) error {
	if c == nil || c.handle == nil {
		return fmt.Errorf("gpu: activate: context not created")
	}
	return c.display.Platform().Activate(c.handle, active)
}

// Valid reports whether the context has a usable handle.
func (c *Context) Valid() bool {
	return c != nil && c.handle != nil && c.display.Valid()
}

// Wrapped reports whether the context borrows a host-owned handle.
func (c *Context) Wrapped() bool {
	return c != nil && c.wrapped
}

// Handle exposes the underlying platform handle.
func (c *Context) Handle() Handle {
	if c == nil {
		return nil
	}
	return c.handle
}

// Display returns the display the context belongs to, without taking a
// reference.
func (c *Context) Display() *Display {
	if c == nil {
		return nil
	}
	return c.display
}
