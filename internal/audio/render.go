// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"sonify/internal/synth"
)

// RenderResult summarizes an offline render.
type RenderResult struct {
	Frames     int64   // Mono frames fed to the engine
	SampleRate float64 // Rate the engine was retuned to
	Hops       uint64  // Hop boundaries crossed
}

// Render feeds src through eng in blocks of framesPerBuffer mono frames,
// as a live stream would, and discards the synthesized output. The engine
// is retuned to the source's sample rate first. Cancelling ctx stops the
// render between blocks.
func Render(ctx context.Context, src Source, eng *synth.Engine, framesPerBuffer int) (RenderResult, error) {
	result := RenderResult{SampleRate: float64(src.SampleRate())}
	if framesPerBuffer < 1 {
		return result, fmt.Errorf("frames per buffer must be >= 1, got %d", framesPerBuffer)
	}
	if err := eng.SetSampleRate(result.SampleRate); err != nil {
		return result, fmt.Errorf("failed to retune engine: %w", err)
	}

	mono := NewMonoMixer(src)
	in := make([]float32, framesPerBuffer)
	out := make([]float32, framesPerBuffer)
	startHops := eng.Stats().Hops

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, err := mono.ReadSamples(in)
		if n > 0 {
			eng.Process(in[:n], out[:n])
			result.Frames += int64(n)
			result.Hops = eng.Stats().Hops - startHops
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			return result, nil
		}
		if err != nil {
			return result, fmt.Errorf("failed to read source: %w", err)
		}
	}
}
