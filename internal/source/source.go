package source

// Source defines the interface for frame producers feeding the sink.
// This allows us to swap between different producers:
// - Generated test pattern
// - GStreamer decode pipeline
// - etc.
type Source interface {
	// Start begins frame production
	Start() error

	// Stop cleanly shuts down the source
	Stop() error

	// Name returns a human-readable name for this source type
	Name() string

	// IsRunning returns true if the source is currently active
	IsRunning() bool
}
