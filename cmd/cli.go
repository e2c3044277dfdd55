// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sonify/internal/config"
	"sonify/pkg/build"
)

// Commands selected on the command line.
const (
	CommandRun     = "run"
	CommandList    = "list"
	CommandRender  = "render"
	CommandVersion = "version"
)

// ErrNoImage is returned when a command that plays an image has none.
var ErrNoImage = errors.New("no source image: pass --image or set synth.image")

// Options is the result of parsing the command line. Config is nil when
// cobra handled the invocation itself (help, version).
type Options struct {
	Config      *config.Config
	Monitor     bool   // Show the terminal monitor while running
	Interactive bool   // Browse devices instead of printing them
	Input       string // Audio file fed to the engine by render
}

// flagValues receives every flag. Only flags the user set are copied onto
// the loaded configuration, so file and environment values survive.
type flagValues struct {
	configPath string

	image       string
	freqScale   float64
	freqFloor   float64
	windowMs    float64
	waveform    string
	windowScale int
	filter      string
	fps         int
	headless    bool

	device          int
	inputDevice     int
	outputDevice    int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	gate            float64

	snapshot  string
	verbose   bool
	wsAddr    string
	udpTarget string
	logEvents bool
}

// ParseArgs parses args (os.Args without the program name) into Options.
func ParseArgs(args []string) (*Options, error) {
	opts := &Options{}
	root := newRootCommand(opts)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return nil, err
	}
	return opts, nil
}

func newRootCommand(opts *Options) *cobra.Command {
	buildInfo := build.GetBuildFlags()
	var f flagValues

	prepare := func(c *cobra.Command, command string, positional []string) error {
		cfg, err := config.LoadConfig(f.configPath)
		if err != nil {
			return err
		}
		if err := applyPositional(cfg, positional); err != nil {
			return err
		}
		applyFlags(c, cfg, &f)
		cfg.Command = command
		if err := cfg.Validate(); err != nil {
			return err
		}
		opts.Config = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [image] [freq-scale] [freq-floor] [window-ms] [waveform] [window-scale]",
		Short:         build.Description,
		Args:          cobra.MaximumNArgs(6),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd, CommandRun, args); err != nil {
				return err
			}
			if opts.Config.Synth.Image == "" {
				return ErrNoImage
			}
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return prepare(cmd, CommandList, nil)
		},
	}
	listCmd.Flags().BoolVarP(&opts.Interactive, "interactive", "I", false,
		"Browse devices in a terminal UI")
	rootCmd.AddCommand(listCmd)

	// Render command
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Feed an audio file through the engine and save the feedback image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd, CommandRender, nil); err != nil {
				return err
			}
			if opts.Config.Synth.Image == "" {
				return ErrNoImage
			}
			if opts.Config.Snapshot.Path == "" {
				opts.Config.Snapshot.Path = "feedback.png"
			}
			return nil
		},
	}
	renderCmd.Flags().StringVar(&opts.Input, "input", "",
		"Audio file to render (.wav, .mp3, .ogg)")
	renderCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(renderCmd)

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildInfo.String())
		},
	}
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()

	// Configuration file
	pf.StringVarP(&f.configPath, "config", "C", "",
		"YAML configuration file (default ./"+config.DefaultPath+" if present)")

	// Synthesis
	pf.StringVarP(&f.image, "image", "i", "",
		"Source image to play and paint")
	pf.Float64Var(&f.freqScale, "freq-scale", config.DefaultFreqScale,
		"Hz added per unit of hue")
	pf.Float64Var(&f.freqFloor, "freq-floor", config.DefaultFreqFloor,
		"Lowest frequency in Hz (hue 0)")
	pf.Float64VarP(&f.windowMs, "window-ms", "w", config.DefaultWindowMs,
		"Analysis window (hop) length in milliseconds")
	pf.StringVar(&f.waveform, "waveform", config.DefaultWaveform,
		"Playback shape: sine, square, saw or tri")

	// Display
	pf.IntVar(&f.windowScale, "window-scale", config.DefaultWindowScale,
		"Display magnification")
	pf.StringVar(&f.filter, "filter", config.DefaultFilter,
		"Display scaling kernel: nearest, approx-bilinear, bilinear or catmull-rom")
	pf.IntVar(&f.fps, "fps", config.DefaultFPS,
		"Display refresh rate")
	pf.BoolVar(&f.headless, "headless", false,
		"Run without a display window")
	pf.BoolVarP(&opts.Monitor, "monitor", "m", false,
		"Show the terminal monitor")

	// Audio Device Configuration
	pf.IntVarP(&f.device, "device", "d", config.DefaultDeviceID,
		"Duplex device ID for input and output. Use 'list' command to see available devices.")
	pf.IntVar(&f.inputDevice, "input-device", config.DefaultDeviceID,
		"Input device ID (overrides --device)")
	pf.IntVar(&f.outputDevice, "output-device", config.DefaultDeviceID,
		"Output device ID (overrides --device)")
	pf.Float64VarP(&f.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&f.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&f.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	pf.Float64Var(&f.gate, "gate", 0,
		"Silence input buffers whose peak is below this level (0 disables)")

	// Output
	pf.StringVarP(&f.snapshot, "snapshot", "o", "",
		"Save the feedback image here on exit (.png, .jpg, .bmp, .tif)")
	pf.StringVar(&f.wsAddr, "ws-addr", "",
		"Serve feedback events over WebSocket on this address")
	pf.StringVar(&f.udpTarget, "udp", "",
		"Send feedback events as UDP packets to host:port")
	pf.BoolVar(&f.logEvents, "log-events", false,
		"Log every feedback event at debug level")

	// Debug Configuration
	pf.BoolVarP(&f.verbose, "verbose", "v", false,
		"Show verbose output")

	return rootCmd
}

// applyPositional maps the legacy positional form
// `image freq-scale freq-floor window-ms waveform window-scale`.
func applyPositional(cfg *config.Config, args []string) error {
	parseFloat := func(i int, name string, dst *float64) error {
		if len(args) <= i {
			return nil
		}
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, args[i], err)
		}
		*dst = v
		return nil
	}

	if len(args) > 0 {
		cfg.Synth.Image = args[0]
	}
	if err := parseFloat(1, "freq-scale", &cfg.Synth.FreqScale); err != nil {
		return err
	}
	if err := parseFloat(2, "freq-floor", &cfg.Synth.FreqFloor); err != nil {
		return err
	}
	if err := parseFloat(3, "window-ms", &cfg.Synth.WindowMs); err != nil {
		return err
	}
	if len(args) > 4 {
		cfg.Synth.Waveform = args[4]
	}
	if len(args) > 5 {
		v, err := strconv.Atoi(args[5])
		if err != nil {
			return fmt.Errorf("invalid window-scale %q: %w", args[5], err)
		}
		cfg.Display.WindowScale = v
	}
	return nil
}

// applyFlags copies the flags the user set onto cfg.
func applyFlags(c *cobra.Command, cfg *config.Config, f *flagValues) {
	set := c.Flags().Changed

	if set("image") {
		cfg.Synth.Image = f.image
	}
	if set("freq-scale") {
		cfg.Synth.FreqScale = f.freqScale
	}
	if set("freq-floor") {
		cfg.Synth.FreqFloor = f.freqFloor
	}
	if set("window-ms") {
		cfg.Synth.WindowMs = f.windowMs
	}
	if set("waveform") {
		cfg.Synth.Waveform = f.waveform
	}

	if set("window-scale") {
		cfg.Display.WindowScale = f.windowScale
	}
	if set("filter") {
		cfg.Display.Filter = f.filter
	}
	if set("fps") {
		cfg.Display.FPS = f.fps
	}
	if set("headless") {
		cfg.Display.Enabled = !f.headless
	}

	if set("device") {
		cfg.Audio.InputDevice = f.device
		cfg.Audio.OutputDevice = f.device
	}
	if set("input-device") {
		cfg.Audio.InputDevice = f.inputDevice
	}
	if set("output-device") {
		cfg.Audio.OutputDevice = f.outputDevice
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.framesPerBuffer
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if set("gate") {
		cfg.Audio.GateThreshold = f.gate
	}

	if set("snapshot") {
		cfg.Snapshot.Path = f.snapshot
	}
	if set("ws-addr") {
		cfg.Transport.WebSocketEnabled = f.wsAddr != ""
		cfg.Transport.WebSocketAddress = f.wsAddr
	}
	if set("udp") {
		cfg.Transport.UDPEnabled = f.udpTarget != ""
		cfg.Transport.UDPTargetAddress = f.udpTarget
	}
	if set("log-events") {
		cfg.Transport.LogEvents = f.logEvents
	}

	if set("verbose") && f.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
}
