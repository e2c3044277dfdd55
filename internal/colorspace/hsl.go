// SPDX-License-Identifier: MIT

// Package colorspace converts between RGB, HSL, and the (pitch, amplitude)
// pairs the synthesis engine works with. HSL is the pivot between pixel
// colour and sound: hue carries frequency, lightness carries amplitude.
//
// All channels and HSL components are float64 in [0,1]; hue is a fraction
// of a full turn rather than degrees. None of these functions fail:
// out-of-range input produces out-of-range output, and callers decide
// whether to clamp or wrap.
package colorspace

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBToHSL converts r, g, b in [0,1] to hue, saturation and lightness.
// Achromatic input (max == min) yields h = s = 0.
func RGBToHSL(r, g, b float64) (h, s, l float64) {
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	chroma := hi - lo

	l = (hi + lo) / 2
	if chroma <= 0 {
		return 0, 0, l
	}

	switch hi {
	case r:
		h = (g - b) / chroma
		if g < b {
			h += 6
		}
	case g:
		h = 2 + (b-r)/chroma
	default:
		h = 4 + (r-g)/chroma
	}
	h /= 6

	if l <= 0.5 {
		s = chroma / (2 * l)
	} else {
		s = chroma / (2 - 2*l)
	}
	return h, s, l
}

// HSLToRGB is the inverse of RGBToHSL. The hue is wrapped into [0,1)
// before conversion, so any finite hue is accepted. A NaN hue yields black.
func HSLToRGB(h, s, l float64) (r, g, b float64) {
	var chroma float64
	if l <= 0.5 {
		chroma = 2 * l * s
	} else {
		chroma = (2 - 2*l) * s
	}
	lo := l - 0.5*chroma

	h -= math.Floor(h)
	if h >= 1 {
		h = 0
	}
	sector := h * 6
	x := chroma * (1 - math.Abs(sector-2*math.Floor(sector/2)-1))

	switch {
	case sector >= 0 && sector < 1:
		return lo + chroma, lo + x, lo
	case sector >= 1 && sector < 2:
		return lo + x, lo + chroma, lo
	case sector >= 2 && sector < 3:
		return lo, lo + chroma, lo + x
	case sector >= 3 && sector < 4:
		return lo, lo + x, lo + chroma
	case sector >= 4 && sector < 5:
		return lo + x, lo, lo + chroma
	case sector >= 5 && sector < 6:
		return lo + chroma, lo, lo + x
	default:
		return 0, 0, 0
	}
}

// PitchAmplitudeToHSL maps a detected frequency and a normalized amplitude
// onto HSL: hue is the frequency's position above freqFloor in units of
// freqScale, saturation is always 1, lightness is the amplitude. The hue
// is not clamped and may leave [0,1] for out-of-range pitches.
func PitchAmplitudeToHSL(frequency, amplitude, freqScale, freqFloor float64) (h, s, l float64) {
	return (frequency - freqFloor) / freqScale, 1, amplitude
}

// FromColor returns the non-premultiplied channels of c in [0,1].
// Fully transparent pixels decode as black.
func FromColor(c color.Color) (r, g, b float64) {
	cf, _ := colorful.MakeColor(c)
	return cf.R, cf.G, cf.B
}

// ToRGBA clamps r, g, b into [0,1] and quantizes them to an opaque 8-bit
// colour.
func ToRGBA(r, g, b float64) color.RGBA {
	c := colorful.Color{R: sanitize(r), G: sanitize(g), B: sanitize(b)}
	r8, g8, b8 := c.Clamped().RGB255()
	return color.RGBA{R: r8, G: g8, B: b8, A: 0xff}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
