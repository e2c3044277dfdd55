// SPDX-License-Identifier: MIT

// Package imageio decodes source images, encodes feedback snapshots, and
// scales the canvas for display.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // Registers the WebP decoder.
)

// ErrUnsupportedFormat is returned for extensions or data no codec handles.
var ErrUnsupportedFormat = errors.New("imageio: unsupported image format")

// Load decodes the image at path. PNG, JPEG, GIF, BMP, TIFF and WebP are
// recognised by content, not extension.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
		}
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, fmt.Errorf("failed to decode %s: %s image is empty", path, format)
	}

	return img, nil
}

// SaveOptions tunes lossy encoders.
type SaveOptions struct {
	JPEGQuality int // 1-100; jpeg.DefaultQuality when zero
}

// Save encodes img to path, choosing the codec from the extension.
func Save(path string, img image.Image, opts SaveOptions) error {
	encode, err := encoderFor(path, opts)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

type encodeFunc func(io.Writer, image.Image) error

func encoderFor(path string, opts SaveOptions) (encodeFunc, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return png.Encode, nil
	case ".jpg", ".jpeg":
		quality := opts.JPEGQuality
		if quality == 0 {
			quality = jpeg.DefaultQuality
		}
		return func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		}, nil
	case ".gif":
		return func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, nil)
		}, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	default:
		return nil, fmt.Errorf("%w: cannot encode '%s'", ErrUnsupportedFormat, ext)
	}
}

// CanSave reports whether Save supports the extension of path.
func CanSave(path string) bool {
	_, err := encoderFor(path, SaveOptions{})
	return err == nil
}

// Filter is a named scaling kernel.
type Filter struct {
	Name   string
	Kernel draw.Interpolator
}

// Filters are the scaling kernels, fastest first.
var Filters = []Filter{
	{"nearest", draw.NearestNeighbor},
	{"approx-bilinear", draw.ApproxBiLinear},
	{"bilinear", draw.BiLinear},
	{"catmull-rom", draw.CatmullRom},
}

// ParseFilter looks a kernel up by name (case-insensitive).
func ParseFilter(name string) (Filter, error) {
	for _, f := range Filters {
		if strings.EqualFold(f.Name, strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return Filter{}, fmt.Errorf("unknown filter: '%s'", name)
}

// Scale resamples all of src into all of dst with the filter's kernel.
func Scale(dst *image.RGBA, src image.Image, f Filter) {
	f.Kernel.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}
