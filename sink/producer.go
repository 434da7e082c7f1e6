package sink

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/avkit/framesink/gpu"
	"github.com/avkit/framesink/video"
)

const (
	// renderTimeout bounds how long frame delivery waits for the paint
	// cycle. Timing out throttles a producer that outruns the display
	// without ever blocking it forever.
	renderTimeout = 100 * time.Millisecond
	// renderPoll is the granularity of the wait.
	renderPoll = time.Millisecond
)

// Producer is the media pipeline's proxy to a Surface. It may be called
// from any thread and stays safe after the surface is torn down: the link
// mutex guards a surface pointer that Invalidate clears, after which every
// operation is a logged no-op or empty result.
//
// Lock order is always link mutex first, then a surface lock. The render
// thread never takes the link mutex, so the two sides cannot deadlock.
type Producer struct {
	mu      sync.Mutex
	log     zerolog.Logger
	surface *Surface
}

// SetFrame delivers a decoded frame. The frame is dropped with a warning if
// the link has been invalidated or no format has been negotiated yet, which
// are expected races during teardown and startup.
//
// On success the frame is stored in the back buffer, a repaint is requested
// and the call blocks until the paint cycle consumes the frame or the
// bounded wait times out. The caller keeps its own frame reference.
func (p *Producer) SetFrame(f *video.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.surface
	if s == nil {
		p.log.Warn().Msg("Frame on invalidated producer, dropping")
		return
	}

	s.mu.Lock()
	negotiated := s.negotiated
	s.mu.Unlock()
	if !negotiated {
		p.log.Warn().Msg("Frame before format negotiation, dropping")
		return
	}

	s.queueFrame(f)
	s.host.RequestRepaint()

	// The wait is what lets an upstream queue drop frames when the
	// display cannot keep up with the decoder.
	deadline := time.Now().Add(renderTimeout)
	for s.pending.Load() {
		time.Sleep(renderPoll)
		if s.pending.Load() && time.Now().After(deadline) {
			p.log.Warn().Msg("Timed out waiting for frame to render")
			break
		}
	}
}

// SetFormat negotiates a new frame format. Formats must be fixed (no
// wildcard fields). Re-negotiating an identical format succeeds without
// touching state; a genuinely new format resets both frame slots and
// re-derives the display geometry.
func (p *Producer) SetFormat(f *video.Format) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.surface == nil {
		return fmt.Errorf("sink: producer link invalidated")
	}
	return p.surface.setFormat(f)
}

// EnsureBackendContext lazily creates the GPU context that shares resources
// with the host's context. Idempotent; returns an error if the display or
// wrapped host context are not valid yet or if the platform fails to create
// the shared context.
func (p *Producer) EnsureBackendContext() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.surface == nil {
		return fmt.Errorf("sink: producer link invalidated")
	}
	return p.surface.ensureBackendContext()
}

// OwnContext returns a referenced handle to the wrapped host context, or
// nil if the link is invalid or the context does not exist yet.
func (p *Producer) OwnContext() *gpu.Context {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.surface
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownContext == nil {
		return nil
	}
	return s.ownContext.Ref()
}

// SharedContext returns a referenced handle to the backend context created
// by EnsureBackendContext, or nil.
func (p *Producer) SharedContext() *gpu.Context {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.surface
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sharedContext == nil {
		return nil
	}
	return s.sharedContext.Ref()
}

// Display returns a referenced handle to the display, or nil.
func (p *Producer) Display() *gpu.Display {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.surface
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.display == nil {
		return nil
	}
	return s.display.Ref()
}

// SetDisplayAspectRatio overrides the display pixel aspect ratio. No-op on
// an invalidated link.
func (p *Producer) SetDisplayAspectRatio(num, den int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface != nil {
		p.surface.SetDisplayAspectRatio(num, den)
	}
}

// DisplayAspectRatio returns the current override, or zeros on an
// invalidated link.
func (p *Producer) DisplayAspectRatio() (num, den int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface == nil {
		return 0, 0
	}
	return p.surface.DisplayAspectRatio()
}

// SetForceAspectRatio toggles letterboxing. No-op on an invalidated link.
func (p *Producer) SetForceAspectRatio(force bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface != nil {
		p.surface.SetForceAspectRatio(force)
	}
}

// ForceAspectRatio reports the letterboxing flag, false on an invalidated
// link.
func (p *Producer) ForceAspectRatio() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface == nil {
		return false
	}
	return p.surface.ForceAspectRatio()
}

// Invalidate severs the link to the surface. The surface state is fully
// reset under its own lock first, then the link is cleared; an in-flight
// call either finishes its critical section before the reset (the link
// mutex serializes them) or observes the cleared link. Called once, from
// surface teardown.
func (p *Producer) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.surface == nil {
		return
	}
	s := p.surface
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	p.surface = nil
}
