// SPDX-License-Identifier: MIT

// Package display shows the feedback canvas in a window. It only reads the
// canvas, at its own frame rate, and never blocks the audio callback.
package display

import (
	"context"
	"fmt"
	"image"
	"time"

	"sonify/internal/imageio"
	"sonify/internal/log"
	"sonify/internal/synth"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Options configures a Window.
type Options struct {
	Title  string
	Scale  int            // Integer magnification, >= 1
	Filter imageio.Filter // Scaling kernel
	FPS    int            // Canvas refresh rate
}

// Window is an ebiten game that mirrors a synth.Canvas.
type Window struct {
	canvas *synth.Canvas
	opts   Options

	frame  *image.RGBA // Canvas copy, canvas size
	scaled *image.RGBA // Frame after scaling, window size
	screen *ebiten.Image

	interval time.Duration
	last     time.Time
	frames   uint64

	ctx    context.Context
	onSave func()
}

// New returns a window for canvas. It does not open anything until Run.
func New(canvas *synth.Canvas, opts Options) *Window {
	opts.Scale = max(opts.Scale, 1)
	opts.FPS = max(opts.FPS, 1)
	if opts.Filter.Kernel == nil {
		opts.Filter = imageio.Filters[0]
	}

	w, h := canvas.Width(), canvas.Height()
	return &Window{
		canvas:   canvas,
		opts:     opts,
		frame:    image.NewRGBA(image.Rect(0, 0, w, h)),
		scaled:   image.NewRGBA(image.Rect(0, 0, w*opts.Scale, h*opts.Scale)),
		interval: time.Second / time.Duration(opts.FPS),
	}
}

// OnSnapshot registers fn to be called when the user presses S.
func (w *Window) OnSnapshot(fn func()) {
	w.onSave = fn
}

// Size returns the window size in pixels.
func (w *Window) Size() (int, int) {
	b := w.scaled.Bounds()
	return b.Dx(), b.Dy()
}

// Run opens the window and blocks until it is closed, Escape is pressed,
// or ctx is cancelled. It must be called from the main goroutine.
func (w *Window) Run(ctx context.Context) error {
	w.ctx = ctx
	width, height := w.Size()

	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle(w.opts.Title)
	ebiten.SetWindowResizable(false)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetTPS(w.opts.FPS)

	log.Infof("Display: %dx%d window, %s filter, %d fps", width, height, w.opts.Filter.Name, w.opts.FPS)
	if err := ebiten.RunGame(w); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	if w.ctx != nil && w.ctx.Err() != nil {
		return ebiten.Termination
	}
	if ebiten.IsWindowBeingClosed() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) && w.onSave != nil {
		w.onSave()
	}
	return nil
}

// Draw implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	if w.screen == nil {
		width, height := w.Size()
		w.screen = ebiten.NewImage(width, height)
	}
	if w.Refresh(time.Now()) {
		w.screen.WritePixels(w.scaled.Pix)
	}
	screen.DrawImage(w.screen, nil)
}

// Layout implements ebiten.Game.
func (w *Window) Layout(_, _ int) (int, int) {
	return w.Size()
}

// Refresh copies and scales the canvas when a frame interval has passed
// since the previous refresh. It reports whether the scaled frame changed.
func (w *Window) Refresh(now time.Time) bool {
	if !w.last.IsZero() && now.Sub(w.last) < w.interval {
		return false
	}
	w.last = now

	w.canvas.CopyTo(w.frame)
	if w.opts.Scale == 1 {
		copy(w.scaled.Pix, w.frame.Pix)
	} else {
		imageio.Scale(w.scaled, w.frame, w.opts.Filter)
	}
	w.frames++
	return true
}

// Frame returns the most recent scaled frame.
func (w *Window) Frame() *image.RGBA {
	return w.scaled
}

// Frames returns how many canvas refreshes have been drawn.
func (w *Window) Frames() uint64 {
	return w.frames
}
