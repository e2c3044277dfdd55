// SPDX-License-Identifier: MIT
package config

import (
	"time"
)

// Core configuration constants that define the boundaries and defaults
// for the sonification engine.
const (
	// Audio device defaults
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultSampleRate      = 44100       // CD-quality audio

	// Synthesis defaults
	DefaultFreqScale = 1000.0 // Hz per unit hue
	DefaultFreqFloor = 100.0  // Hz at hue 0
	DefaultWindowMs  = 10.0   // Analysis hop length
	DefaultWaveform  = "sine"

	// Display defaults
	DefaultWindowScale = 2
	DefaultFilter      = "nearest"
	DefaultFPS         = 60
	DefaultTitle       = "sonify"

	// Transport defaults
	DefaultWebSocketAddress = "127.0.0.1:8080"
	DefaultUDPTarget        = "127.0.0.1:9090"
	DefaultSendInterval     = 33 * time.Millisecond // ~30Hz

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
)

// Filters lists the display scaling kernels, fastest first.
var Filters = []string{"nearest", "approx-bilinear", "bilinear", "catmull-rom"}

// Waveforms lists the accepted playback shape names.
var Waveforms = []string{"sine", "square", "saw", "tri"}

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug logging.
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // One-off command to run instead of the engine.
	Audio     AudioConfig     `yaml:"audio"`             // Audio device settings.
	Synth     SynthConfig     `yaml:"synth"`             // Image-to-sound mapping.
	Display   DisplayConfig   `yaml:"display"`           // Feedback window.
	Transport TransportConfig `yaml:"transport"`         // Event publication.
	Snapshot  SnapshotConfig  `yaml:"snapshot"`          // Feedback image export.
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for input (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for output (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Requested sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio.
	InputChannels   int     `yaml:"input_channels"`    // Channels captured; channel 0 is analysed.
	OutputChannels  int     `yaml:"output_channels"`   // Channels the tone is copied to.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Silence input buffers quieter than this peak (0 disables).
}

// SynthConfig holds the image-to-sound mapping.
type SynthConfig struct {
	Image                   string  `yaml:"image"`                     // Source image path.
	FreqScale               float64 `yaml:"freq_scale"`                // Hz per unit hue.
	FreqFloor               float64 `yaml:"freq_floor"`                // Hz at hue 0.
	WindowMs                float64 `yaml:"window_ms"`                 // Hop length in milliseconds.
	Waveform                string  `yaml:"waveform"`                  // sine, square, saw or tri.
	InvertPlaybackAmplitude bool    `yaml:"invert_playback_amplitude"` // Play tones at 1 - lightness.
	InvertFeedbackLightness bool    `yaml:"invert_feedback_lightness"` // Paint hops at 1 - peak.
	EventCapacity           int     `yaml:"event_capacity"`            // Hop events buffered for publication.
}

// DisplayConfig holds settings for the feedback window.
type DisplayConfig struct {
	Enabled     bool   `yaml:"enabled"`      // Open a window (false = headless).
	WindowScale int    `yaml:"window_scale"` // Integer magnification of the canvas.
	Filter      string `yaml:"filter"`       // Scaling kernel, see Filters.
	FPS         int    `yaml:"fps"`          // Canvas refresh rate.
	Title       string `yaml:"title"`        // Window title.
}

// TransportConfig holds settings related to sending feedback events over the network.
// Every sink is off by default, and the WebSocket server binds loopback
// unless told otherwise.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve events on /feedback.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary event packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between event batches.
	LogEvents        bool          `yaml:"log_events"`         // Log every event at debug level.
}

// SnapshotConfig controls writing the feedback canvas to disk.
type SnapshotConfig struct {
	Path        string `yaml:"path"`         // Written on shutdown when set; format follows the extension.
	JPEGQuality int    `yaml:"jpeg_quality"` // 1-100, used for .jpg/.jpeg.
}

// NewConfig returns a Config populated with defaults. It is the base that
// files, environment variables and flags are layered onto.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      false,
			InputChannels:   1,
			OutputChannels:  2,
		},
		Synth: SynthConfig{
			FreqScale:               DefaultFreqScale,
			FreqFloor:               DefaultFreqFloor,
			WindowMs:                DefaultWindowMs,
			Waveform:                DefaultWaveform,
			InvertPlaybackAmplitude: true,
			InvertFeedbackLightness: true,
			EventCapacity:           1024,
		},
		Display: DisplayConfig{
			Enabled:     true,
			WindowScale: DefaultWindowScale,
			Filter:      DefaultFilter,
			FPS:         DefaultFPS,
			Title:       DefaultTitle,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddress: DefaultWebSocketAddress,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultSendInterval,
		},
		Snapshot: SnapshotConfig{
			JPEGQuality: 90,
		},
	}
}

// TransportEnabled reports whether any event sink is configured.
func (c *Config) TransportEnabled() bool {
	return c.Transport.WebSocketEnabled || c.Transport.UDPEnabled || c.Transport.LogEvents
}
