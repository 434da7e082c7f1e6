// Package sink implements a double-buffered handoff between a media
// pipeline delivering decoded video frames on its own thread and a render
// host that paints on its own schedule. The render side is a Surface; the
// pipeline side talks to it through a Producer proxy that stays safe to
// call while the surface is being torn down.
package sink

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/avkit/framesink/gpu"
	"github.com/avkit/framesink/internal/logger"
	"github.com/avkit/framesink/video"
)

// Host is the windowing side a Surface is embedded in. RequestRepaint asks
// the host to schedule a paint cycle that will call PresentFrame; Bounds
// returns the current layout rectangle. Both are called with surface locks
// held and must not call back into the surface.
type Host interface {
	RequestRepaint()
	Bounds() video.Rect
}

// InitializedNotifier is implemented by hosts that want to observe the
// graphics-initialized transition.
type InitializedNotifier interface {
	GraphicsInitializedChanged(initialized bool)
}

// Node is the drawable a paint cycle produces: a texture bound to the front
// frame plus the destination rectangle it should cover. The texture object
// is allocated once per node lifetime and rebound on every paint.
type Node struct {
	Texture *gpu.Texture
	Rect    video.Rect
}

// Release drops the node's frame reference. Hosts call this when they stop
// displaying the node.
func (n *Node) Release() {
	if n != nil && n.Texture != nil {
		n.Texture.Release()
	}
}

// Surface owns the shared presentation state: the negotiated format, the
// derived display geometry, the front/back frame slots and the GPU handles.
// All fields are guarded by mu except the frame slots and the render-pending
// flag, which use frameMu so the paint path and frame delivery never contend
// with format or geometry queries.
type Surface struct {
	host     Host
	producer *Producer
	log      zerolog.Logger

	// ready is set once the host's graphics context has been wrapped.
	ready atomic.Bool
	// pending is set when a frame has been queued and the producer is
	// waiting for the next paint cycle to consume it.
	pending atomic.Bool

	mu            sync.Mutex
	format        *video.Format
	displayWidth  int
	displayHeight int
	forceAspect   bool
	darN, darD    int
	negotiated    bool
	initialized   bool
	hostHandle    gpu.Handle
	display       *gpu.Display
	ownContext    *gpu.Context
	sharedContext *gpu.Context

	frameMu sync.Mutex
	front   *video.Frame
	back    *video.Frame
}

// New creates a surface bound to host and display, and the producer proxy
// the media pipeline uses to reach it. The surface takes its own display
// reference. Aspect-ratio forcing defaults to on; the display aspect ratio
// override defaults to unset.
func New(host Host, display *gpu.Display) (*Surface, *Producer) {
	s := &Surface{
		host:        host,
		display:     display.Ref(),
		forceAspect: true,
		darN:        0,
		darD:        1,
		log:         *logger.WithComponent("surface"),
	}
	s.producer = &Producer{
		surface: s,
		log:     *logger.WithComponent("producer"),
	}
	return s, s.producer
}

// Producer returns the proxy created with this surface.
func (s *Surface) Producer() *Producer {
	return s.producer
}

// GraphicsReady records the host's graphics context and wraps it for use by
// the paint path. It is idempotent for the same handle. The host guarantees
// a context exists at this call site; a nil handle is a contract violation
// and panics.
func (s *Surface) GraphicsReady(hostCtx gpu.Handle) {
	if hostCtx == nil {
		panic("sink: GraphicsReady called without a graphics context")
	}

	s.mu.Lock()
	if s.hostHandle == hostCtx {
		s.mu.Unlock()
		return
	}
	s.hostHandle = hostCtx

	wrapped, err := s.display.WrapContext(hostCtx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to wrap host graphics context")
		s.ready.Store(false)
	} else {
		old := s.ownContext
		s.ownContext = wrapped
		s.ready.Store(true)
		old.Unref()
	}
	initialized := s.ready.Load()
	s.mu.Unlock()

	if n, ok := s.host.(InitializedNotifier); ok {
		n.GraphicsInitializedChanged(initialized)
	}
}

// GraphicsInvalidated is the host's notification that its graphics context
// is gone. Painting resumes after the next GraphicsReady.
func (s *Surface) GraphicsInvalidated() {
	s.log.Warn().Msg("Graphics context invalidated by host")
}

// Initialized reports whether the host's graphics context has been wrapped.
func (s *Surface) Initialized() bool {
	return s.ready.Load()
}

// PresentFrame is the paint-cycle entry point, called on the render thread.
// It swaps the back buffer into the front slot, binds the front frame into
// the node's texture, computes the destination rectangle for the current
// bounds and clears the render-pending flag.
//
// Before the graphics context is ready it returns old unchanged. With no
// negotiated format it returns nil, telling the host to drop its node.
func (s *Surface) PresentFrame(old *Node) *Node {
	if !s.ready.Load() {
		return old
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == nil {
		s.pending.Store(false)
		return nil
	}

	s.frameMu.Lock()
	s.front, s.back = s.back, s.front
	s.frameMu.Unlock()

	if err := s.ownContext.Activate(true); err != nil {
		s.log.Error().Err(err).Msg("Failed to activate graphics context")
		s.pending.Store(false)
		return old
	}

	node := old
	if node == nil {
		node = &Node{Texture: gpu.NewTexture()}
	}
	node.Texture.SetFormat(s.format)
	node.Texture.SetFrame(s.front)

	bounds := s.host.Bounds()
	if s.forceAspect {
		src := video.Rect{W: s.displayWidth, H: s.displayHeight}
		node.Rect = video.CenterRect(src, bounds, true)
	} else {
		node.Rect = bounds
	}

	if err := s.ownContext.Activate(false); err != nil {
		s.log.Error().Err(err).Msg("Failed to deactivate graphics context")
	}
	s.pending.Store(false)
	return node
}

// ForceAspectRatio reports whether letterboxing is applied at paint time.
func (s *Surface) ForceAspectRatio() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forceAspect
}

// SetForceAspectRatio toggles aspect-ratio-preserving letterboxing.
func (s *Surface) SetForceAspectRatio(force bool) {
	s.mu.Lock()
	s.forceAspect = force
	s.mu.Unlock()
}

// DisplayAspectRatio returns the display pixel aspect ratio override.
func (s *Surface) DisplayAspectRatio() (num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.darN, s.darD
}

// SetDisplayAspectRatio overrides the display device's pixel aspect ratio.
// A zero numerator or denominator means square display pixels. When a
// format is already negotiated the display geometry is recomputed.
func (s *Surface) SetDisplayAspectRatio(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darN, s.darD = num, den
	if !s.negotiated {
		return
	}
	w, h, err := video.CalculateDisplaySize(s.format, num, den)
	if err != nil {
		s.log.Warn().Err(err).Msg("Display aspect ratio not applicable to negotiated format")
		return
	}
	s.displayWidth, s.displayHeight = w, h
}

// DisplaySize returns the negotiated display dimensions, zero before
// negotiation.
func (s *Surface) DisplaySize() (w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayWidth, s.displayHeight
}

// Close tears the surface down: the producer link is invalidated first so
// in-flight pipeline calls degrade to no-ops, then the GPU handles are
// released exactly once.
func (s *Surface) Close() {
	s.log.Info().Msg("Closing surface and invalidating producer link")
	s.producer.Invalidate()

	s.mu.Lock()
	shared, own, display := s.sharedContext, s.ownContext, s.display
	s.sharedContext, s.ownContext, s.display = nil, nil, nil
	s.hostHandle = nil
	s.ready.Store(false)
	s.mu.Unlock()

	shared.Unref()
	own.Unref()
	display.Unref()
}

// setFormat negotiates a new format. A format equal to the current one is a
// successful no-op. The display geometry is derived before any state is
// touched, so a failed negotiation leaves the previous state intact.
func (s *Surface) setFormat(f *video.Format) error {
	if !f.IsFixed() {
		return fmt.Errorf("sink: format %s is not fixed", f)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format.Equal(f) {
		return nil
	}

	w, h, err := video.CalculateDisplaySize(f, s.darN, s.darD)
	if err != nil {
		return fmt.Errorf("sink: negotiate %s: %w", f, err)
	}

	s.resetLocked()
	s.format = f
	s.displayWidth, s.displayHeight = w, h
	s.negotiated = true
	s.log.Debug().
		Str("format", f.String()).
		Int("display_width", w).
		Int("display_height", h).
		Msg("Format negotiated")
	return nil
}

// queueFrame replaces the back buffer and marks a render pending. The old
// back frame, if the paint cycle never consumed it, is released here.
func (s *Surface) queueFrame(f *video.Frame) {
	s.frameMu.Lock()
	old := s.back
	s.back = f.Ref()
	s.pending.Store(true)
	s.frameMu.Unlock()
	old.Unref()
}

// resetLocked drops both frame slots, clears the format and all negotiation
// state. Caller holds mu.
func (s *Surface) resetLocked() {
	s.frameMu.Lock()
	front, back := s.front, s.back
	s.front, s.back = nil, nil
	s.pending.Store(false)
	s.frameMu.Unlock()
	front.Unref()
	back.Unref()

	s.format = nil
	s.displayWidth, s.displayHeight = 0, 0
	s.negotiated = false
	s.initialized = false
}

// ensureBackendContext lazily creates the second GPU context that shares
// resources with the wrapped host context, so uploads can happen off the
// render thread. Caller holds the producer link lock.
func (s *Surface) ensureBackendContext() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.display.Valid() && s.hostHandle != nil && s.ownContext.Valid() && s.sharedContext != nil {
		return nil
	}
	if !s.display.Valid() {
		return fmt.Errorf("sink: no valid display connection")
	}
	if !s.ownContext.Valid() {
		return fmt.Errorf("sink: host graphics context has not been wrapped")
	}

	ctx := s.display.NewContext()
	if err := ctx.Create(s.ownContext); err != nil {
		ctx.Unref()
		return err
	}
	s.sharedContext = ctx
	s.initialized = true
	return nil
}
