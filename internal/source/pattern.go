package source

import (
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/avkit/framesink/internal/config"
	"github.com/avkit/framesink/internal/logger"
	"github.com/avkit/framesink/sink"
	"github.com/avkit/framesink/video"
)

// barColors are the classic vertical color bars, brightest to darkest.
var barColors = []color.RGBA{
	{255, 255, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
	{255, 0, 255, 255},
	{255, 0, 0, 255},
	{0, 0, 255, 255},
	{16, 16, 16, 255},
}

// Pattern generates scrolling color bars and delivers them to the sink at a
// fixed rate. Useful for exercising the presentation path without a media
// pipeline.
type Pattern struct {
	producer *sink.Producer
	cfg      config.SourceConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	seq      uint64
}

// NewPattern creates a test pattern source feeding producer.
func NewPattern(producer *sink.Producer, cfg config.SourceConfig) *Pattern {
	return &Pattern{
		producer: producer,
		cfg:      cfg,
	}
}

// Name returns the source type name
func (p *Pattern) Name() string { return "Test Pattern" }

// IsRunning returns whether the source is producing frames
func (p *Pattern) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start negotiates the configured format and begins producing frames.
func (p *Pattern) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("pattern source already running")
	}
	if p.cfg.Width <= 0 || p.cfg.Height <= 0 || p.cfg.FPS <= 0 {
		return fmt.Errorf("invalid pattern geometry %dx%d@%d", p.cfg.Width, p.cfg.Height, p.cfg.FPS)
	}

	format := &video.Format{
		Width:        p.cfg.Width,
		Height:       p.cfg.Height,
		PixelFormat:  video.PixelFormatRGBA,
		PixelAspectN: p.cfg.ParN,
		PixelAspectD: p.cfg.ParD,
	}
	if err := p.producer.SetFormat(format); err != nil {
		return fmt.Errorf("failed to negotiate pattern format: %w", err)
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.wg.Add(1)
	go p.produce(format)

	logger.WithComponent("pattern").Info().
		Int("width", p.cfg.Width).
		Int("height", p.cfg.Height).
		Int("fps", p.cfg.FPS).
		Msg("Test pattern source started")
	return nil
}

// Stop stops frame production
func (p *Pattern) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	logger.WithComponent("pattern").Info().Msg("Test pattern source stopped")
	return nil
}

func (p *Pattern) produce(format *video.Format) {
	defer p.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(p.cfg.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.seq++
			frame := video.NewFrame(format, p.render(format, p.seq), format.Width*4)
			frame.Seq = p.seq
			// SetFrame blocks until the frame is presented or the
			// render wait times out, pacing us to the display.
			p.producer.SetFrame(frame)
			frame.Unref()
		}
	}
}

// render draws vertical color bars shifted by tick pixels.
func (p *Pattern) render(format *video.Format, tick uint64) []byte {
	w, h := format.Width, format.Height
	data := make([]byte, w*h*4)
	barWidth := w / len(barColors)
	if barWidth == 0 {
		barWidth = 1
	}
	offset := int(tick) % w

	for y := 0; y < h; y++ {
		row := y * w * 4
		for x := 0; x < w; x++ {
			c := barColors[((x+offset)/barWidth)%len(barColors)]
			i := row + x*4
			data[i+0] = c.R
			data[i+1] = c.G
			data[i+2] = c.B
			data[i+3] = c.A
		}
	}
	return data
}
