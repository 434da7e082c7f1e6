package source

import (
	"fmt"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/avkit/framesink/internal/logger"
	"github.com/avkit/framesink/sink"
	"github.com/avkit/framesink/video"
)

// GStreamer decodes a media URI into RGBA frames and delivers them to the
// sink, negotiating the format from the pipeline's caps. With no URI a live
// videotestsrc pipeline is used.
type GStreamer struct {
	producer *sink.Producer
	uri      string

	pipeline *gst.Pipeline
	appsink  *app.Sink

	mu       sync.Mutex
	running  bool
	ready    bool
	stopChan chan struct{}

	format *video.Format
	seq    uint64
}

// NewGStreamer creates a GStreamer-backed source feeding producer.
func NewGStreamer(producer *sink.Producer, uri string) *GStreamer {
	return &GStreamer{
		producer: producer,
		uri:      uri,
	}
}

// Name returns the source type name
func (g *GStreamer) Name() string { return "GStreamer" }

// IsRunning returns whether the pipeline is running
func (g *GStreamer) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Start builds and starts the decode pipeline.
func (g *GStreamer) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return fmt.Errorf("gstreamer source already running")
	}

	log := logger.WithComponent("gstreamer")

	gst.Init(nil)

	// Decode to RGBA and hand frames over through an appsink. Polling
	// mode (emit-signals=false) avoids CGO callback issues; drop=true
	// lets the pipeline discard frames the sink cannot keep up with.
	var pipelineStr string
	if g.uri != "" {
		pipelineStr = fmt.Sprintf(
			"uridecodebin uri=%s ! "+
				"videoconvert ! "+
				"video/x-raw,format=RGBA ! "+
				"appsink name=sink emit-signals=false max-buffers=2 drop=true",
			g.uri,
		)
	} else {
		pipelineStr = "videotestsrc is-live=true ! " +
			"videoconvert ! " +
			"video/x-raw,format=RGBA ! " +
			"appsink name=sink emit-signals=false max-buffers=2 drop=true"
	}

	log.Debug().Str("pipeline", pipelineStr).Msg("Creating GStreamer pipeline")

	pipeline, err := gst.NewPipelineFromString(pipelineStr)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	g.pipeline = pipeline

	sinkElement, err := pipeline.GetElementByName("sink")
	if err != nil {
		return fmt.Errorf("failed to get appsink: %w", err)
	}
	g.appsink = app.SinkFromElement(sinkElement)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	g.running = true
	g.ready = true
	g.stopChan = make(chan struct{})

	go g.pollSamples()

	log.Info().Str("uri", g.uri).Msg("GStreamer source started")
	return nil
}

// Stop stops the pipeline
func (g *GStreamer) Stop() error {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	g.ready = false
	g.running = false
	if g.stopChan != nil {
		close(g.stopChan)
		g.stopChan = nil
	}
	g.mu.Unlock()

	// Give the polling goroutine time to exit
	time.Sleep(100 * time.Millisecond)

	g.mu.Lock()
	if g.pipeline != nil {
		g.pipeline.SetState(gst.StateNull)
		g.pipeline.Unref()
		g.pipeline = nil
	}
	g.mu.Unlock()

	logger.WithComponent("gstreamer").Info().Msg("GStreamer source stopped")
	return nil
}

// pollSamples pulls samples from the appsink (avoids CGO callback issues)
func (g *GStreamer) pollSamples() {
	ticker := time.NewTicker(4 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.mu.Lock()
			appsink := g.appsink
			ready := g.ready
			g.mu.Unlock()

			if !ready || appsink == nil {
				continue
			}

			sample := appsink.TryPullSample(time.Millisecond)
			if sample == nil {
				continue
			}
			g.processSample(sample)
		}
	}
}

// processSample negotiates the format from the sample caps when it changes
// and forwards the frame to the sink.
func (g *GStreamer) processSample(sample *gst.Sample) {
	log := logger.WithComponent("gstreamer")

	buffer := sample.GetBuffer()
	if buffer == nil {
		return
	}
	caps := sample.GetCaps()
	if caps == nil {
		return
	}

	format, err := formatFromCaps(caps)
	if err != nil {
		log.Warn().Err(err).Msg("Dropping sample with unusable caps")
		return
	}

	if !format.Equal(g.format) {
		if err := g.producer.SetFormat(format); err != nil {
			log.Warn().Err(err).Str("format", format.String()).Msg("Format negotiation failed")
			return
		}
		g.format = format
	}

	mapInfo := buffer.Map(gst.MapRead)
	if mapInfo == nil {
		return
	}
	defer buffer.Unmap()

	expected := format.Width * format.Height * 4
	data := mapInfo.Bytes()
	if len(data) < expected {
		log.Warn().Int("have", len(data)).Int("want", expected).Msg("Short buffer, dropping")
		return
	}

	pixels := make([]byte, expected)
	copy(pixels, data[:expected])

	g.seq++
	frame := video.NewFrame(g.format, pixels, format.Width*4)
	frame.Seq = g.seq
	g.producer.SetFrame(frame)
	frame.Unref()
}

// formatFromCaps extracts geometry and pixel aspect ratio from fixed caps.
func formatFromCaps(caps *gst.Caps) (*video.Format, error) {
	structure := caps.GetStructureAt(0)
	if structure == nil {
		return nil, fmt.Errorf("caps have no structure")
	}

	widthVal, err := structure.GetValue("width")
	if err != nil {
		return nil, fmt.Errorf("caps have no width: %w", err)
	}
	heightVal, err := structure.GetValue("height")
	if err != nil {
		return nil, fmt.Errorf("caps have no height: %w", err)
	}

	w, ok := widthVal.(int)
	if !ok {
		return nil, fmt.Errorf("caps width is %T, not int", widthVal)
	}
	h, ok := heightVal.(int)
	if !ok {
		return nil, fmt.Errorf("caps height is %T, not int", heightVal)
	}

	// pixel-aspect-ratio is a GstFraction; it stringifies as "n/d"
	parN, parD := 1, 1
	if parVal, err := structure.GetValue("pixel-aspect-ratio"); err == nil {
		var n, d int
		if _, err := fmt.Sscanf(fmt.Sprintf("%v", parVal), "%d/%d", &n, &d); err == nil && d > 0 {
			parN, parD = n, d
		}
	}

	return &video.Format{
		Width:        w,
		Height:       h,
		PixelFormat:  video.PixelFormatRGBA,
		PixelAspectN: parN,
		PixelAspectD: parD,
	}, nil
}
