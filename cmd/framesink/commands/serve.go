package commands

import (
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avkit/framesink/internal/config"
	"github.com/avkit/framesink/internal/logger"
	"github.com/avkit/framesink/internal/preview"
	"github.com/avkit/framesink/internal/source"
	"github.com/avkit/framesink/sink"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo pipeline and preview server",
	Long: `Run a frame source against the presentation bridge and serve the
painted output as an MJPEG stream with a stats websocket.`,
	Example: `  # Test pattern on the default port (8080)
  framesink serve

  # Decode a file through GStreamer
  framesink serve --source gstreamer --uri file:///tmp/clip.mp4

  # Custom port and debug logging
  framesink serve --port 9090 --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("source", "", "frame source: pattern or gstreamer")
	serveCmd.Flags().String("uri", "", "media URI for the gstreamer source")
	viper.BindPFlag("source_type", serveCmd.Flags().Lookup("source"))
	viper.BindPFlag("source_uri", serveCmd.Flags().Lookup("uri"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("serve")
	log.Info().Str("config", configMgr.GetConfigPath()).Msg("Configuration loaded")

	if viper.GetString("source_type") != "" {
		cfg.Source.Type = viper.GetString("source_type")
	}
	if viper.GetString("source_uri") != "" {
		cfg.Source.URI = viper.GetString("source_uri")
	}

	// Host window, surface and producer proxy
	var server *preview.Server
	window, err := preview.NewWindow(cfg.Window.Width, cfg.Window.Height, func(frame *image.RGBA) {
		server.Publish(frame)
	})
	if err != nil {
		return fmt.Errorf("failed to create preview window: %w", err)
	}

	surface, producer := sink.New(window, window.Display())
	window.Attach(surface)
	defer surface.Close()

	producer.SetForceAspectRatio(cfg.Sink.ForceAspectRatio)
	producer.SetDisplayAspectRatio(cfg.Sink.DarN, cfg.Sink.DarD)

	server = preview.NewServer(producer)

	if err := window.Start(); err != nil {
		return fmt.Errorf("failed to start render loop: %w", err)
	}
	defer window.Stop()

	if err := producer.EnsureBackendContext(); err != nil {
		return fmt.Errorf("failed to create backend context: %w", err)
	}

	// Frame source
	var src source.Source
	switch cfg.Source.Type {
	case "", "pattern":
		src = source.NewPattern(producer, cfg.Source)
	case "gstreamer":
		src = source.NewGStreamer(producer, cfg.Source.URI)
	default:
		return fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
	if err := src.Start(); err != nil {
		return fmt.Errorf("failed to start %s source: %w", src.Name(), err)
	}
	defer src.Stop()

	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("Preview server error")
		}
	}()

	log.Info().
		Str("source", src.Name()).
		Int("port", cfg.ServerPort).
		Msgf("framesink running, preview at http://localhost:%d", cfg.ServerPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")
	return nil
}
