// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sonify/internal/config"
)

// isolate runs the test in an empty directory so a sonify.yaml next to the
// package cannot leak in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestParseArgsRunFlags(t *testing.T) {
	isolate(t)

	opts, err := ParseArgs([]string{
		"--image", "in.png",
		"--freq-scale", "5000",
		"--freq-floor", "50",
		"-w", "20",
		"--waveform", "square",
		"--window-scale", "3",
		"--filter", "bilinear",
		"--headless",
		"-m",
		"-d", "4",
		"--output-device", "6",
		"-s", "48000",
		"-b", "256",
		"--gate", "0.05",
		"-o", "out.jpg",
		"--ws-addr", ":9000",
		"--udp", "10.0.0.2:7000",
		"-v",
	})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}

	cfg := opts.Config
	if cfg.Command != CommandRun {
		t.Errorf("Command = %q, expected %q", cfg.Command, CommandRun)
	}
	if cfg.Synth.Image != "in.png" || cfg.Synth.FreqScale != 5000 || cfg.Synth.FreqFloor != 50 ||
		cfg.Synth.WindowMs != 20 || cfg.Synth.Waveform != "square" {
		t.Errorf("Synth = %+v", cfg.Synth)
	}
	if cfg.Display.Enabled || cfg.Display.WindowScale != 3 || cfg.Display.Filter != "bilinear" {
		t.Errorf("Display = %+v", cfg.Display)
	}
	if !opts.Monitor {
		t.Error("Monitor not set")
	}
	if cfg.Audio.InputDevice != 4 || cfg.Audio.OutputDevice != 6 {
		t.Errorf("devices = %d/%d, expected 4/6", cfg.Audio.InputDevice, cfg.Audio.OutputDevice)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.FramesPerBuffer != 256 || cfg.Audio.GateThreshold != 0.05 {
		t.Errorf("Audio = %+v", cfg.Audio)
	}
	if cfg.Snapshot.Path != "out.jpg" {
		t.Errorf("Snapshot.Path = %q", cfg.Snapshot.Path)
	}
	if !cfg.Transport.WebSocketEnabled || cfg.Transport.WebSocketAddress != ":9000" ||
		!cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.2:7000" {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
	if !cfg.Debug || cfg.LogLevel != "debug" {
		t.Errorf("verbose not applied: debug=%v level=%q", cfg.Debug, cfg.LogLevel)
	}
}

func TestParseArgsPositional(t *testing.T) {
	isolate(t)

	opts, err := ParseArgs([]string{"img.png", "10000", "1000", "1", "saw", "4"})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	s := opts.Config.Synth
	if s.Image != "img.png" || s.FreqScale != 10000 || s.FreqFloor != 1000 || s.WindowMs != 1 || s.Waveform != "saw" {
		t.Errorf("Synth = %+v", s)
	}
	if opts.Config.Display.WindowScale != 4 {
		t.Errorf("WindowScale = %d", opts.Config.Display.WindowScale)
	}

	// Flags win over positionals.
	opts, err = ParseArgs([]string{"img.png", "10000", "--freq-scale", "20"})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if opts.Config.Synth.FreqScale != 20 {
		t.Errorf("FreqScale = %g, expected flag value 20", opts.Config.Synth.FreqScale)
	}
}

func TestParseArgsErrors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"no image", nil, ErrNoImage},
		{"bad positional", []string{"img.png", "loud"}, nil},
		{"bad waveform", []string{"--image", "a.png", "--waveform", "noise"}, config.ErrInvalidConfig},
		{"bad filter", []string{"--image", "a.png", "--filter", "lanczos"}, config.ErrInvalidConfig},
		{"hop below one frame", []string{"--image", "a.png", "-s", "8000", "-w", "0.01"}, config.ErrInvalidConfig},
		{"too many positionals", []string{"a", "1", "2", "3", "sine", "2", "extra"}, nil},
		{"render without input", []string{"render", "--image", "a.png"}, nil},
		{"missing config file", []string{"--config", "nope.yaml", "--image", "a.png"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error %v is not %v", err, tt.is)
			}
		})
	}
}

func TestParseArgsConfigFileLayering(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := "synth:\n  image: file.png\n  freq_scale: 3000\n  waveform: tri\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := ParseArgs([]string{"--config", path, "--waveform", "sine"})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	s := opts.Config.Synth
	if s.Image != "file.png" || s.FreqScale != 3000 {
		t.Errorf("file values lost: %+v", s)
	}
	if s.Waveform != "sine" {
		t.Errorf("Waveform = %q, expected flag to win", s.Waveform)
	}
}

func TestParseArgsList(t *testing.T) {
	isolate(t)

	opts, err := ParseArgs([]string{"list", "-I"})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if opts.Config.Command != CommandList || !opts.Interactive {
		t.Errorf("Command = %q, Interactive = %v", opts.Config.Command, opts.Interactive)
	}
}

func TestParseArgsRender(t *testing.T) {
	isolate(t)

	opts, err := ParseArgs([]string{"render", "--image", "a.png", "--input", "voice.wav"})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if opts.Config.Command != CommandRender || opts.Input != "voice.wav" {
		t.Errorf("Command = %q, Input = %q", opts.Config.Command, opts.Input)
	}
	if opts.Config.Snapshot.Path != "feedback.png" {
		t.Errorf("Snapshot.Path = %q, expected default", opts.Config.Snapshot.Path)
	}
}

func TestVersionCommand(t *testing.T) {
	isolate(t)

	opts := &Options{}
	root := newRootCommand(opts)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "sonify ") {
		t.Errorf("version output = %q", out.String())
	}
	if opts.Config != nil {
		t.Error("version should not load a configuration")
	}
}
