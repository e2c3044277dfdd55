// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the file LoadConfig looks for when no path is given.
const DefaultPath = "sonify.yaml"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it looks for DefaultPath in the working directory and falls back
// to built-in defaults when there is none. Environment variable overrides
// are applied on top, and the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables win over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
// The source image is not required here; commands that need one check it.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: audio.sample_rate %.0f outside [%d, %d]", ErrInvalidConfig, c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer < 1 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("%w: audio.frames_per_buffer %d outside [1, %d]", ErrInvalidConfig, c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if c.Audio.InputDevice < MinDeviceID || c.Audio.OutputDevice < MinDeviceID {
		return fmt.Errorf("%w: device indices must be >= %d", ErrInvalidConfig, MinDeviceID)
	}
	if c.Audio.InputChannels < 1 || c.Audio.OutputChannels < 1 {
		return fmt.Errorf("%w: channel counts must be >= 1", ErrInvalidConfig)
	}
	if c.Audio.GateThreshold < 0 || c.Audio.GateThreshold > 1 {
		return fmt.Errorf("%w: audio.gate_threshold must be in [0, 1]", ErrInvalidConfig)
	}

	if !(c.Synth.FreqScale > 0) {
		return fmt.Errorf("%w: synth.freq_scale must be positive, got %g", ErrInvalidConfig, c.Synth.FreqScale)
	}
	if !(c.Synth.WindowMs > 0) || c.Audio.SampleRate*0.001*c.Synth.WindowMs < 1 {
		return fmt.Errorf("%w: synth.window_ms %g gives a hop shorter than one frame", ErrInvalidConfig, c.Synth.WindowMs)
	}
	if !slices.Contains(Waveforms, normalizeWaveform(c.Synth.Waveform)) {
		return fmt.Errorf("%w: unknown synth.waveform '%s'", ErrInvalidConfig, c.Synth.Waveform)
	}

	if c.Display.WindowScale < 1 {
		return fmt.Errorf("%w: display.window_scale must be >= 1, got %d", ErrInvalidConfig, c.Display.WindowScale)
	}
	if !slices.Contains(Filters, strings.ToLower(c.Display.Filter)) {
		return fmt.Errorf("%w: unknown display.filter '%s' (want %s)", ErrInvalidConfig, c.Display.Filter, strings.Join(Filters, ", "))
	}
	if c.Display.FPS < 1 {
		return fmt.Errorf("%w: display.fps must be >= 1", ErrInvalidConfig)
	}

	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("%w: transport.udp_target_address must be set when UDP is enabled", ErrInvalidConfig)
		}
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("%w: transport.udp_target_address '%s' appears invalid (missing port?)", ErrInvalidConfig, c.Transport.UDPTargetAddress)
		}
	}
	if c.TransportEnabled() && c.Transport.UDPSendInterval <= 0 {
		return fmt.Errorf("%w: transport.udp_send_interval must be positive", ErrInvalidConfig)
	}

	if c.Snapshot.JPEGQuality < 1 || c.Snapshot.JPEGQuality > 100 {
		return fmt.Errorf("%w: snapshot.jpeg_quality must be in [1, 100]", ErrInvalidConfig)
	}

	return nil
}

// normalizeWaveform maps the long waveform names onto the short ones.
func normalizeWaveform(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "sin":
		return "sine"
	case "sq":
		return "square"
	case "sawtooth":
		return "saw"
	case "triangle":
		return "tri"
	default:
		return n
	}
}

// applyEnvOverrides reads SONIFY_* variables. Malformed values are ignored
// so a stray variable cannot prevent startup.
func (c *Config) applyEnvOverrides() {
	// SONIFY_DEBUG
	if val, ok := os.LookupEnv("SONIFY_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
		}
	}
	// SONIFY_LOG_LEVEL
	if val, ok := os.LookupEnv("SONIFY_LOG_LEVEL"); ok && val != "" {
		c.LogLevel = val
	}

	// SONIFY_WAVEFORM
	if val, ok := os.LookupEnv("SONIFY_WAVEFORM"); ok && val != "" {
		c.Synth.Waveform = val
	}
	// SONIFY_WINDOW_MS
	if val, ok := os.LookupEnv("SONIFY_WINDOW_MS"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			c.Synth.WindowMs = fVal
		}
	}

	// SONIFY_WS_ADDR enables the WebSocket server on the given address.
	if val, ok := os.LookupEnv("SONIFY_WS_ADDR"); ok && val != "" {
		c.Transport.WebSocketEnabled = true
		c.Transport.WebSocketAddress = val
	}
	// SONIFY_UDP_ENABLED
	if val, ok := os.LookupEnv("SONIFY_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
		}
	}
	// SONIFY_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("SONIFY_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	// SONIFY_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("SONIFY_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
		}
	}
}
