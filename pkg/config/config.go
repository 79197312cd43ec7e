package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// AppDir is the directory under the user config dir holding the settings file.
const AppDir = "BSRExplorer"

// Config represents the application configuration.
type Config struct {
	Channels          []ChannelConfig `yaml:"channels"`
	SampleRate        int             `yaml:"sample_rate"`         // Hz, not stored in .bsr files
	MaxDisplaySamples int             `yaml:"max_display_samples"` // point budget per channel
	View              ViewConfig      `yaml:"view"`
	Capture           CaptureConfig   `yaml:"capture"`
}

// ChannelConfig describes one channel of a recording.
type ChannelConfig struct {
	Name string `yaml:"name"`
}

// ViewConfig contains viewport parameters.
type ViewConfig struct {
	PanTolerance float64 `yaml:"pan_tolerance"` // relative width change still treated as a pan
	Workers      int     `yaml:"workers"`       // channels reduced concurrently
	Exploded     bool    `yaml:"exploded"`      // one plot per channel
}

// CaptureConfig contains acquisition device configuration.
type CaptureConfig struct {
	Port     string     `yaml:"port"`
	BaudRate int        `yaml:"baud_rate"`
	Mock     MockConfig `yaml:"mock"`
}

// MockConfig contains the synthetic signal of the mock device.
type MockConfig struct {
	Amplitude  float64 `yaml:"amplitude"`   // peak value of the sine
	Noise      float64 `yaml:"noise"`       // peak noise added to every sample
	SpikeEvery int     `yaml:"spike_every"` // frames between spikes (0 = none)
	Frequency  float64 `yaml:"frequency"`   // Hz
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Channels: []ChannelConfig{
			{Name: "SSC"},
			{Name: "FL1"},
			{Name: "FL2"},
			{Name: "SSC"},
		},
		SampleRate:        200000,
		MaxDisplaySamples: 100000,
		View: ViewConfig{
			PanTolerance: 0.001,
			Workers:      4,
		},
		Capture: CaptureConfig{
			Port:     "COM3", // "/dev/ttyACM0" on Linux/Mac
			BaudRate: 115200,
			Mock: MockConfig{
				Amplitude:  1 << 20,
				Noise:      1 << 12,
				SpikeEvery: 20000,
				Frequency:  50,
			},
		},
	}
}

// DefaultPath returns the settings file location in the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(dir, AppDir, "settings.yaml"), nil
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load that never fails: an unreadable, corrupt or invalid
// file is logged and replaced by defaults.
func LoadOrDefault(filename string, logger *zap.Logger) *Config {
	if logger == nil {
		logger = zap.L()
	}
	cfg, err := Load(filename)
	if err != nil {
		logger.Warn("[config] using defaults", zap.String("path", filename), zap.Error(err))
		return Default()
	}
	return cfg
}

// Save saves the configuration to a YAML file, creating its directory.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports settings the viewer cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Channels) == 0 {
		errs = append(errs, errors.New("at least one channel is required"))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate))
	}
	if c.MaxDisplaySamples <= 0 {
		errs = append(errs, fmt.Errorf("max_display_samples must be positive, got %d", c.MaxDisplaySamples))
	}
	if c.View.PanTolerance < 0 {
		errs = append(errs, fmt.Errorf("view.pan_tolerance must not be negative, got %g", c.View.PanTolerance))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ChannelNames returns the display names in channel order.
func (c *Config) ChannelNames() []string {
	names := make([]string, len(c.Channels))
	for i, ch := range c.Channels {
		names[i] = ch.Name
	}
	return names
}

// ChannelName returns the display name of channel idx, or a generic label
// when the recording has more channels than configured.
func (c *Config) ChannelName(idx int) string {
	if idx >= 0 && idx < len(c.Channels) && c.Channels[idx].Name != "" {
		return c.Channels[idx].Name
	}
	return fmt.Sprintf("CH%d", idx+1)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if len(c.Channels) == 0 {
		c.Channels = def.Channels
	}
	if c.SampleRate == 0 {
		c.SampleRate = def.SampleRate
	}
	if c.MaxDisplaySamples == 0 {
		c.MaxDisplaySamples = def.MaxDisplaySamples
	}

	if c.View.PanTolerance == 0 {
		c.View.PanTolerance = def.View.PanTolerance
	}
	if c.View.Workers <= 0 {
		c.View.Workers = def.View.Workers
	}

	if c.Capture.Port == "" {
		c.Capture.Port = def.Capture.Port
	}
	if c.Capture.BaudRate == 0 {
		c.Capture.BaudRate = def.Capture.BaudRate
	}
	if c.Capture.Mock.Amplitude == 0 {
		c.Capture.Mock.Amplitude = def.Capture.Mock.Amplitude
	}
	if c.Capture.Mock.Frequency == 0 {
		c.Capture.Mock.Frequency = def.Capture.Mock.Frequency
	}
}
