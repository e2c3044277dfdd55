// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sonify/cmd"
	"sonify/internal/audio"
	"sonify/internal/config"
	"sonify/internal/display"
	"sonify/internal/imageio"
	"sonify/internal/log"
	"sonify/internal/synth"
	"sonify/internal/tone"
	"sonify/internal/transport"
	"sonify/internal/transport/udp"
	"sonify/internal/tui"
	"sonify/pkg/build"
)

// main is the entry point for the sonifier.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Decode the source image and build the tone table
//   - Initialize PortAudio and open the duplex stream
//
// 2. Concurrent Phase (Hot Path):
//   - The audio callback plays tones and paints the canvas
//   - The display window mirrors the canvas on the main goroutine
//   - The publisher and monitor read events and stats
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or window close
//   - Stop the stream, flush the publisher
//   - Save the feedback snapshot
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags; keep the defaults.
	buildErr := build.Initialize()

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("%v (see '%s --help')", err, build.GetBuildFlags().Name)
	}
	if opts.Config == nil {
		// Help or version was printed.
		return
	}
	cfg := opts.Config
	configureLogging(cfg)
	if buildErr != nil {
		log.Debugf("Build info unavailable: %v", buildErr)
	}

	switch cfg.Command {
	case cmd.CommandList:
		if err := runList(opts); err != nil {
			log.Fatalf("%v", err)
		}
	case cmd.CommandRender:
		if err := runRender(opts); err != nil {
			log.Fatalf("%v", err)
		}
	default:
		if err := run(opts); err != nil {
			log.Fatalf("%v", err)
		}
	}
}

func configureLogging(cfg *config.Config) {
	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		log.Warnf("Unknown log level '%s', using info", cfg.LogLevel)
		level = log.LevelInfo
	}
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
}

// run plays the image through the sound card until interrupted.
func run(opts *cmd.Options) error {
	cfg := opts.Config

	eng, err := newSynth(cfg)
	if err != nil {
		return err
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	ae, err := audio.NewEngine(&cfg.Audio, eng)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher, err := newPublisher(cfg, eng)
	if err != nil {
		ae.Close()
		return err
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// CRITICAL: Start of real-time audio processing. From here on the
	// callback owns every piece of engine state.
	if err := ae.Start(); err != nil {
		if publisher != nil {
			publisher.Close()
		}
		return err
	}
	if publisher != nil {
		publisher.Start()
	}

	snapshot := func() (string, error) {
		return saveSnapshot(cfg, eng.Canvas())
	}

	var wg sync.WaitGroup
	if opts.Monitor {
		// The monitor owns the terminal; keep log lines out of it.
		prevOut := log.Writer()
		log.SetOutput(io.Discard)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer log.SetOutput(prevOut)
			defer stop()
			err := tui.RunMonitor(ctx, eng, tui.MonitorOptions{
				Title:    build.GetBuildFlags().Name + " - " + cfg.Synth.Image,
				Snapshot: snapshot,
			})
			if err != nil {
				fmt.Fprintf(prevOut, "monitor: %v\n", err)
			}
		}()
	}

	if cfg.Display.Enabled {
		filter, err := imageio.ParseFilter(cfg.Display.Filter)
		if err != nil {
			return err
		}
		win := display.New(eng.Canvas(), display.Options{
			Title:  cfg.Display.Title,
			Scale:  cfg.Display.WindowScale,
			Filter: filter,
			FPS:    cfg.Display.FPS,
		})
		win.OnSnapshot(func() {
			if path, err := snapshot(); err != nil {
				log.Errorf("Snapshot failed: %v", err)
			} else {
				log.Infof("Snapshot saved to %s", path)
			}
		})
		// Blocks on the main goroutine until the window closes.
		if err := win.Run(ctx); err != nil {
			log.Errorf("%v", err)
		}
		stop()
	} else {
		log.Infof("Running headless, press Ctrl+C to stop")
		<-ctx.Done()
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := ae.Close(); err != nil {
		log.Errorf("Error closing audio engine: %v", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Errorf("Error closing publisher: %v", err)
		}
	}
	wg.Wait()

	stats := eng.Stats()
	log.Infof("Played %d hops (%d events dropped)", stats.Hops, stats.Dropped)

	if cfg.Snapshot.Path != "" {
		path, err := saveSnapshot(cfg, eng.Canvas())
		if err != nil {
			return err
		}
		fmt.Printf("\nFeedback image saved to: %s\n", path)
	}
	return nil
}

// runList prints, or lets the user browse, the audio devices.
func runList(opts *cmd.Options) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if opts.Interactive {
		return tui.RunDeviceList()
	}
	return audio.ListDevices(os.Stdout)
}

// runRender feeds an audio file through the engine offline and saves the
// feedback image.
func runRender(opts *cmd.Options) error {
	cfg := opts.Config

	eng, err := newSynth(cfg)
	if err != nil {
		return err
	}

	src, err := audio.OpenFile(opts.Input)
	if err != nil {
		return err
	}
	defer src.Close()

	publisher, err := newPublisher(cfg, eng)
	if err != nil {
		return err
	}
	if publisher != nil {
		publisher.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	res, err := audio.Render(ctx, src, eng, cfg.Audio.FramesPerBuffer)
	if publisher != nil {
		publisher.Close()
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", opts.Input, err)
	}
	log.Infof("Render: %d frames at %.0f Hz, %d hops in %s",
		res.Frames, res.SampleRate, res.Hops, time.Since(started).Truncate(time.Millisecond))

	path, err := saveSnapshot(cfg, eng.Canvas())
	if err != nil {
		return err
	}
	fmt.Printf("Feedback image saved to: %s\n", path)
	return nil
}

// newSynth decodes the source image and builds the engine that plays it.
func newSynth(cfg *config.Config) (*synth.Engine, error) {
	img, err := imageio.Load(cfg.Synth.Image)
	if err != nil {
		return nil, err
	}

	mapping := tone.Mapping{Scale: cfg.Synth.FreqScale, Floor: cfg.Synth.FreqFloor}
	table, err := tone.Build(img, mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to build tone table from %s: %w", cfg.Synth.Image, err)
	}

	waveform, err := synth.ParseWaveform(cfg.Synth.Waveform)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	canvas := synth.NewCanvas(b.Dx(), b.Dy())
	eng, err := synth.NewEngine(table, canvas, synth.Options{
		SampleRate:              cfg.Audio.SampleRate,
		WindowMilliseconds:      cfg.Synth.WindowMs,
		Waveform:                waveform,
		Mapping:                 mapping,
		InvertPlaybackAmplitude: cfg.Synth.InvertPlaybackAmplitude,
		InvertFeedbackLightness: cfg.Synth.InvertFeedbackLightness,
		EventCapacity:           cfg.Synth.EventCapacity,
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Engine: %s %dx%d -> %d tones, hop %d frames, %s",
		cfg.Synth.Image, b.Dx(), b.Dy(), table.Len(), eng.Stats().HopSize, waveform)
	return eng, nil
}

// newPublisher wires the configured transports. It returns nil when none
// are enabled.
func newPublisher(cfg *config.Config, eng *synth.Engine) (*transport.Publisher, error) {
	if !cfg.TransportEnabled() {
		return nil, nil
	}

	var transports []transport.Transport
	closeAll := func() {
		for _, t := range transports {
			t.Close()
		}
	}

	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err := ws.Start(); err != nil {
			ws.Close()
			return nil, err
		}
		transports = append(transports, ws)
	}
	if cfg.Transport.UDPEnabled {
		u, err := udp.NewTransport(cfg.Transport.UDPTargetAddress)
		if err != nil {
			closeAll()
			return nil, err
		}
		transports = append(transports, u)
	}
	if cfg.Transport.LogEvents {
		transports = append(transports, transport.NewLoggingTransport())
	}

	p, err := transport.NewPublisher(cfg.Transport.UDPSendInterval, eng, transports...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return p, nil
}

// saveSnapshot encodes the canvas to the configured path, or to a
// timestamped PNG when none is set.
func saveSnapshot(cfg *config.Config, canvas *synth.Canvas) (string, error) {
	path := cfg.Snapshot.Path
	if path == "" {
		path = "sonify-" + time.Now().Format("20060102-150405") + ".png"
	}
	if err := imageio.Save(path, canvas.Snapshot(), imageio.SaveOptions{JPEGQuality: cfg.Snapshot.JPEGQuality}); err != nil {
		return "", fmt.Errorf("failed to save feedback image: %w", err)
	}
	return path, nil
}
