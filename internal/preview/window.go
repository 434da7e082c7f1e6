package preview

import (
	"fmt"
	"image"
	imgdraw "image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/avkit/framesink/gpu"
	"github.com/avkit/framesink/internal/logger"
	"github.com/avkit/framesink/sink"
	"github.com/avkit/framesink/video"
)

// Window is the render host of the demo: it owns a software display and
// context, runs a repaint-coalescing render loop, and composites the node
// returned by each paint cycle onto an RGBA canvas handed to onFrame.
type Window struct {
	bounds  video.Rect
	display *gpu.Display
	hostCtx gpu.Handle
	onFrame func(*image.RGBA)

	mu       sync.Mutex
	surface  *sink.Surface
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	// repaint is a coalescing mailbox: many repaint requests between two
	// paint cycles collapse into one.
	repaint chan struct{}

	node   *sink.Node
	canvas *image.RGBA
}

// NewWindow creates a window of the given size with its own software
// display and root context.
func NewWindow(width, height int, onFrame func(*image.RGBA)) (*Window, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", width, height)
	}
	platform := gpu.Software()
	hostCtx, err := platform.CreateContext(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create host context: %w", err)
	}
	return &Window{
		bounds:  video.Rect{W: width, H: height},
		display: gpu.NewDisplay(platform),
		hostCtx: hostCtx,
		onFrame: onFrame,
		repaint: make(chan struct{}, 1),
		canvas:  image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// Display returns the window's display connection, without taking a
// reference.
func (w *Window) Display() *gpu.Display {
	return w.display
}

// Attach binds the surface this window paints. Must be called before Start.
func (w *Window) Attach(surface *sink.Surface) {
	w.mu.Lock()
	w.surface = surface
	w.mu.Unlock()
}

// RequestRepaint implements sink.Host.
func (w *Window) RequestRepaint() {
	select {
	case w.repaint <- struct{}{}:
	default:
	}
}

// Bounds implements sink.Host.
func (w *Window) Bounds() video.Rect {
	return w.bounds
}

// GraphicsInitializedChanged implements sink.InitializedNotifier.
func (w *Window) GraphicsInitializedChanged(initialized bool) {
	logger.WithComponent("window").Info().
		Bool("initialized", initialized).
		Msg("Graphics initialization changed")
}

// Start announces the graphics context to the surface and starts the render
// loop.
func (w *Window) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("window already running")
	}
	if w.surface == nil {
		return fmt.Errorf("no surface attached")
	}

	w.surface.GraphicsReady(w.hostCtx)

	w.running = true
	w.stopChan = make(chan struct{})
	w.wg.Add(1)
	go w.renderLoop()

	logger.WithComponent("window").Info().
		Int("width", w.bounds.W).
		Int("height", w.bounds.H).
		Msg("Render loop started")
	return nil
}

// Stop shuts the render loop down and releases the drawable node.
func (w *Window) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	w.mu.Unlock()

	w.wg.Wait()

	if w.node != nil {
		w.node.Release()
		w.node = nil
	}
	w.display.Unref()
	logger.WithComponent("window").Info().Msg("Render loop stopped")
}

func (w *Window) renderLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopChan:
			return
		case <-w.repaint:
			w.paint()
		}
	}
}

// paint runs one paint cycle and composites the result.
func (w *Window) paint() {
	node := w.surface.PresentFrame(w.node)
	if node == nil {
		if w.node != nil {
			w.node.Release()
			w.node = nil
		}
		w.clearCanvas()
		w.deliver()
		return
	}
	w.node = node
	w.composite(node)
	w.deliver()
}

func (w *Window) clearCanvas() {
	imgdraw.Draw(w.canvas, w.canvas.Bounds(), image.Black, image.Point{}, imgdraw.Src)
}

// composite scales the node's front frame into its destination rectangle,
// letterbox margins staying black.
func (w *Window) composite(node *sink.Node) {
	w.clearCanvas()

	frame := node.Texture.Snapshot()
	if frame == nil {
		return
	}
	defer frame.Unref()

	if frame.Format == nil || frame.Format.Width <= 0 || frame.Format.Height <= 0 {
		return
	}
	src := &image.RGBA{
		Pix:    frame.Data,
		Stride: frame.Stride,
		Rect:   image.Rect(0, 0, frame.Format.Width, frame.Format.Height),
	}
	dst := image.Rect(node.Rect.X, node.Rect.Y, node.Rect.X+node.Rect.W, node.Rect.Y+node.Rect.H)
	xdraw.ApproxBiLinear.Scale(w.canvas, dst, src, src.Bounds(), xdraw.Src, nil)
}

func (w *Window) deliver() {
	if w.onFrame != nil {
		w.onFrame(w.canvas)
	}
}
