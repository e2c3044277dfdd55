// SPDX-License-Identifier: MIT
package synth

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"sonify/internal/tone"
)

func TestNewCanvasIsOpaqueBlack(t *testing.T) {
	c := NewCanvas(3, 2)
	black := color.RGBA{A: 0xff}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if got := c.RGBAAt(x, y); got != black {
				t.Fatalf("RGBAAt(%d, %d) = %v, expected %v", x, y, got, black)
			}
		}
	}
	if c.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Errorf("Bounds() = %v", c.Bounds())
	}
}

func TestNewCanvasClampsDimensions(t *testing.T) {
	c := NewCanvas(0, -4)
	if c.Width() != 1 || c.Height() != 1 {
		t.Errorf("NewCanvas(0, -4) = %dx%d, expected 1x1", c.Width(), c.Height())
	}
}

func TestCanvasSetWraps(t *testing.T) {
	c := NewCanvas(4, 2)
	red := color.RGBA{R: 0xff, A: 0xff}

	c.Set(5, 6, red) // (1, 0) after wrapping
	if got := c.RGBAAt(1, 0); got != red {
		t.Errorf("RGBAAt(1, 0) = %v, expected %v", got, red)
	}
	if got := c.At(1, 0); got != red {
		t.Errorf("At(1, 0) = %v, expected %v", got, red)
	}
	if got := c.At(4, 0); got != (color.RGBA{}) {
		t.Errorf("At outside bounds = %v, expected transparent", got)
	}
}

func TestCanvasSnapshot(t *testing.T) {
	c := NewCanvas(2, 2)
	px := color.RGBA{R: 10, G: 20, B: 30, A: 0xff}
	c.Set(1, 1, px)

	img := c.Snapshot()
	if got := img.RGBAAt(1, 1); got != px {
		t.Errorf("Snapshot().RGBAAt(1, 1) = %v, expected %v", got, px)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{A: 0xff}) {
		t.Errorf("Snapshot().RGBAAt(0, 0) = %v, expected opaque black", got)
	}
}

func TestFeedbackWriterRasterOrder(t *testing.T) {
	const w, h = 3, 2
	fw := NewFeedbackWriter(NewCanvas(w, h))

	// Walk the whole logical raster once, plus one step.
	total := w * h * tone.RowMultiplier
	for i := 0; i < total; i++ {
		px := fw.WritePixel(1, 1, 1)
		if px.X != i%w || px.Y != i/w {
			t.Fatalf("write %d at (%d, %d), expected (%d, %d)", i, px.X, px.Y, i%w, i/w)
		}
	}

	if x, y := fw.Position(); x != 0 || y != 0 {
		t.Errorf("Position() after full raster = (%d, %d), expected (0, 0)", x, y)
	}
}

func TestFeedbackWriterLogicalRowsFoldOntoCanvas(t *testing.T) {
	c := NewCanvas(2, 1)
	fw := NewFeedbackWriter(c)

	fw.WritePixel(0, 0, 0) // (0, 0)
	fw.WritePixel(0, 0, 0) // (1, 0)
	px := fw.WritePixel(1, 0, 0)
	if px.Y != 1 {
		t.Fatalf("third write on logical row %d, expected 1", px.Y)
	}
	if got := c.RGBAAt(0, 0); got != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Errorf("logical row 1 should land on physical row 0, got %v", got)
	}
}

func TestFeedbackWriterQuantizes(t *testing.T) {
	c := NewCanvas(1, 1)
	fw := NewFeedbackWriter(c)

	px := fw.WritePixel(2, -1, 0.5)
	expected := color.RGBA{R: 0xff, G: 0, B: 128, A: 0xff}
	if px.Color != expected {
		t.Errorf("WritePixel(2, -1, 0.5) = %v, expected %v", px.Color, expected)
	}
}

func TestCanvasConcurrentReadWrite(t *testing.T) {
	c := NewCanvas(16, 16)
	fw := NewFeedbackWriter(c)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			fw.WritePixel(1, 1, 1)
		}
	}()
	go func() {
		defer wg.Done()
		dst := image.NewRGBA(c.Bounds())
		for i := 0; i < 100; i++ {
			c.CopyTo(dst)
			for j := 3; j < len(dst.Pix); j += 4 {
				if dst.Pix[j] != 0xff {
					t.Errorf("torn pixel alpha %d", dst.Pix[j])
					return
				}
			}
		}
	}()
	wg.Wait()
}
