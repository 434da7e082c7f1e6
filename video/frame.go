package video

import (
	"sync/atomic"
	"time"
)

// Frame is a reference-counted video frame. Frames are shared across the
// producer and render threads: the frame slots, the texture object and any
// in-flight producer call each hold their own reference, and the pixel data
// is released when the last reference is dropped.
//
// Data is read-only once the frame has been handed off; neither side may
// mutate it afterwards.
type Frame struct {
	Data      []byte
	Stride    int
	Format    *Format
	Timestamp time.Time

	// Seq is an optional producer-assigned sequence tag, useful for
	// drop/ordering diagnostics.
	Seq uint64

	refs    atomic.Int32
	release func()
}

// NewFrame wraps pixel data into a frame with an initial reference count
// of one.
func NewFrame(format *Format, data []byte, stride int) *Frame {
	f := &Frame{
		Data:      data,
		Stride:    stride,
		Format:    format,
		Timestamp: time.Now(),
	}
	f.refs.Store(1)
	return f
}

// NewFrameWithRelease is NewFrame with a hook invoked when the last
// reference is dropped, typically to return the buffer to a pool or to
// release externally owned memory.
func NewFrameWithRelease(format *Format, data []byte, stride int, release func()) *Frame {
	f := NewFrame(format, data, stride)
	f.release = release
	return f
}

// Ref takes an additional reference and returns the frame for chaining.
func (f *Frame) Ref() *Frame {
	if f == nil {
		return nil
	}
	if f.refs.Add(1) <= 1 {
		panic("video: Ref on released frame")
	}
	return f
}

// Unref drops one reference. When the count reaches zero the release hook
// runs and the pixel data is detached.
func (f *Frame) Unref() {
	if f == nil {
		return
	}
	n := f.refs.Add(-1)
	if n < 0 {
		panic("video: Unref without matching Ref")
	}
	if n == 0 {
		if f.release != nil {
			f.release()
		}
		f.Data = nil
	}
}
