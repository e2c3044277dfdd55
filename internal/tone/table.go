// SPDX-License-Identifier: MIT

// Package tone turns a still image into the ordered sequence of
// (frequency, amplitude) pairs that drives playback.
//
// The image is read in raster order over RowMultiplier times its height,
// sampling source row y mod H, so every source row contributes
// RowMultiplier rows of tones. The feedback raster uses the same logical
// grid, which keeps a full feedback sweep aligned with a full pass over
// the table.
package tone

import (
	"errors"
	"fmt"
	"image"

	"sonify/internal/colorspace"
)

// RowMultiplier is the vertical oversampling factor shared by the table
// builder and the feedback raster.
const RowMultiplier = 4

var (
	// ErrEmptyImage is returned when the source image has no pixels.
	ErrEmptyImage = errors.New("tone: source image has no pixels")
	// ErrInvalidMapping is returned for a non-positive frequency scale.
	ErrInvalidMapping = errors.New("tone: frequency scale must be positive")
)

// Mapping converts hue into frequency: frequency = hue*Scale + Floor.
type Mapping struct {
	Scale float64 // Hz per unit of hue
	Floor float64 // Hz at hue 0
}

// Frequency returns the tone frequency for a hue in [0,1].
func (m Mapping) Frequency(hue float64) float64 {
	return hue*m.Scale + m.Floor
}

// Entry is a single tone. Amplitude is the pixel's lightness in [0,1].
type Entry struct {
	Frequency float64
	Amplitude float64
}

// Table is the immutable tone sequence built from one image.
type Table struct {
	entries []Entry
	width   int
	rows    int
}

// Build converts img into a Table of width * (height*RowMultiplier)
// entries in row-major order.
func Build(img image.Image, m Mapping) (*Table, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	if m.Scale <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidMapping, m.Scale)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, width, height)
	}

	rows := height * RowMultiplier
	entries := make([]Entry, 0, width*rows)
	for y := 0; y < rows; y++ {
		sy := bounds.Min.Y + y%height
		for x := 0; x < width; x++ {
			r, g, b := colorspace.FromColor(img.At(bounds.Min.X+x, sy))
			h, _, l := colorspace.RGBToHSL(r, g, b)
			entries = append(entries, Entry{
				Frequency: m.Frequency(h),
				Amplitude: l,
			})
		}
	}

	return &Table{entries: entries, width: width, rows: rows}, nil
}

// FromEntries builds a Table directly, mainly for tests and synthetic
// sequences. The slice is copied.
func FromEntries(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyImage
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Table{entries: cp, width: len(cp), rows: 1}, nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// At returns entry i. Callers keep i in [0, Len()).
func (t *Table) At(i int) Entry {
	return t.entries[i]
}

// Width returns the number of entries per logical row.
func (t *Table) Width() int {
	return t.width
}

// Rows returns the number of logical rows (source height * RowMultiplier).
func (t *Table) Rows() int {
	return t.rows
}
