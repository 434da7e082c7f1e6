package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/avkit/framesink/internal/logger"
)

// Config represents the application configuration
type Config struct {
	ServerPort int    `json:"server_port" yaml:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`

	Window WindowConfig `json:"window" yaml:"window"`
	Source SourceConfig `json:"source" yaml:"source"`
	Sink   SinkConfig   `json:"sink" yaml:"sink"`
}

// WindowConfig is the preview window (bounding box) geometry
type WindowConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// SourceConfig selects and parameterizes the frame producer
type SourceConfig struct {
	// Type is "pattern" or "gstreamer"
	Type string `json:"type" yaml:"type"`
	// URI is the media location for the gstreamer source
	URI string `json:"uri,omitempty" yaml:"uri,omitempty"`

	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	FPS    int `json:"fps" yaml:"fps"`
	ParN   int `json:"par_n" yaml:"par_n"`
	ParD   int `json:"par_d" yaml:"par_d"`
}

// SinkConfig holds the presentation settings
type SinkConfig struct {
	ForceAspectRatio bool `json:"force_aspect_ratio" yaml:"force_aspect_ratio"`
	DarN             int  `json:"dar_n" yaml:"dar_n"`
	DarD             int  `json:"dar_d" yaml:"dar_d"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager. With an empty configFile
// the default path under ~/.config/framesink is used and created with
// defaults when missing.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "framesink")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("source", m.config.Source.Type).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
		},
		Source: SourceConfig{
			Type:   "pattern",
			Width:  1920,
			Height: 1080,
			FPS:    30,
			ParN:   1,
			ParD:   1,
		},
		Sink: SinkConfig{
			ForceAspectRatio: true,
			DarN:             0,
			DarD:             1,
		},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	// Backfill fields older config files may omit
	def := Defaults()
	if cfg.ServerPort == 0 {
		cfg.ServerPort = def.ServerPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.Window.Width == 0 || cfg.Window.Height == 0 {
		cfg.Window = def.Window
	}
	if cfg.Source.Type == "" {
		cfg.Source = def.Source
	}
	if cfg.Source.ParD == 0 {
		cfg.Source.ParN, cfg.Source.ParD = def.Source.ParN, def.Source.ParD
	}
	if cfg.Sink.DarD == 0 {
		cfg.Sink.DarD = def.Sink.DarD
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}
	return nil
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	m.config.ServerPort = port
	m.mu.Unlock()
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
