// SPDX-License-Identifier: MIT
package synth

import (
	"image"
	"image/color"
	"sync/atomic"

	"sonify/internal/colorspace"
	"sonify/internal/tone"
	"sonify/pkg/wrap"
)

// Canvas is the destination image the engine paints feedback into.
//
// Each pixel is one atomic 32-bit word (0xAARRGGBB), so a concurrent reader
// such as the display loop always sees whole pixels. There is no
// consistency across pixels: a frame read during a write may mix old and
// new pixels, which is acceptable for a continuously looping picture.
// Canvas implements image.Image.
type Canvas struct {
	width  int
	height int
	pix    []atomic.Uint32
}

var _ image.Image = (*Canvas)(nil)

// NewCanvas returns an opaque black canvas. Dimensions below one are
// clamped to one.
func NewCanvas(width, height int) *Canvas {
	width = max(width, 1)
	height = max(height, 1)
	c := &Canvas{
		width:  width,
		height: height,
		pix:    make([]atomic.Uint32, width*height),
	}
	black := pack(color.RGBA{A: 0xff})
	for i := range c.pix {
		c.pix[i].Store(black)
	}
	return c
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.width }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.height }

// Set stores px at (x, y). Coordinates wrap, so logical rows beyond the
// physical height land on row y mod height.
func (c *Canvas) Set(x, y int, px color.RGBA) {
	c.pix[c.index(x, y)].Store(pack(px))
}

// RGBAAt returns the pixel at (x, y), wrapping like Set.
func (c *Canvas) RGBAAt(x, y int) color.RGBA {
	return unpack(c.pix[c.index(x, y)].Load())
}

// ColorModel implements image.Image.
func (c *Canvas) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (c *Canvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.width, c.height) }

// At implements image.Image.
func (c *Canvas) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return color.RGBA{}
	}
	return c.RGBAAt(x, y)
}

// CopyTo writes every pixel into dst starting at dst.Rect.Min. dst must be
// at least as large as the canvas.
func (c *Canvas) CopyTo(dst *image.RGBA) {
	for y := 0; y < c.height; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < c.width; x++ {
			v := c.pix[y*c.width+x].Load()
			o := x * 4
			row[o+0] = uint8(v >> 16)
			row[o+1] = uint8(v >> 8)
			row[o+2] = uint8(v)
			row[o+3] = uint8(v >> 24)
		}
	}
}

// Snapshot returns a copy of the canvas as an *image.RGBA.
func (c *Canvas) Snapshot() *image.RGBA {
	img := image.NewRGBA(c.Bounds())
	c.CopyTo(img)
	return img
}

func (c *Canvas) index(x, y int) int {
	x %= c.width
	if x < 0 {
		x += c.width
	}
	y %= c.height
	if y < 0 {
		y += c.height
	}
	return y*c.width + x
}

func pack(px color.RGBA) uint32 {
	return uint32(px.A)<<24 | uint32(px.R)<<16 | uint32(px.G)<<8 | uint32(px.B)
}

func unpack(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: uint8(v >> 24)}
}

// Pixel is a feedback write: logical raster position and the stored colour.
type Pixel struct {
	X, Y  int
	Color color.RGBA
}

// FeedbackWriter paints one pixel per call into a Canvas, walking a
// raster left to right and top to bottom over width x height*RowMultiplier
// logical rows, the same grid the tone table was read from. Both axes
// wrap unconditionally.
type FeedbackWriter struct {
	canvas *Canvas
	x      wrap.Counter
	y      wrap.Counter
}

// NewFeedbackWriter returns a writer positioned at (0, 0).
func NewFeedbackWriter(c *Canvas) *FeedbackWriter {
	return &FeedbackWriter{
		canvas: c,
		x:      wrap.NewCounter(c.width),
		y:      wrap.NewCounter(c.height * tone.RowMultiplier),
	}
}

// WritePixel stores r, g, b (clamped and quantized to 8 bits) at the
// raster cursor and advances it.
func (w *FeedbackWriter) WritePixel(r, g, b float64) Pixel {
	px := Pixel{X: w.x.Value(), Y: w.y.Value(), Color: colorspace.ToRGBA(r, g, b)}
	w.canvas.Set(px.X, px.Y, px.Color)
	if w.x.Advance() {
		w.y.Advance()
	}
	return px
}

// Position returns the raster cursor.
func (w *FeedbackWriter) Position() (x, y int) {
	return w.x.Value(), w.y.Value()
}

// Canvas returns the destination canvas.
func (w *FeedbackWriter) Canvas() *Canvas {
	return w.canvas
}
