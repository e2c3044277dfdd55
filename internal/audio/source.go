// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// ErrUnsupportedSource is returned for files that no decoder accepts.
var ErrUnsupportedSource = errors.New("audio: unsupported source format")

// Source is a decoded PCM stream.
type Source interface {
	// SampleRate of the stream in Hz.
	SampleRate() int
	// Channels count (1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved samples in [-1, 1] and returns
	// the number of values written. At the end of the stream it returns
	// 0 and io.EOF.
	ReadSamples(dst []float32) (n int, err error)
	// Close releases any resources.
	Close() error
}

// OpenFile decodes path, choosing the decoder from its extension.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	var src Source
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		src, err = NewWAVSource(f)
	case ".mp3":
		src, err = NewMP3Source(f)
	case ".ogg", ".oga":
		src, err = NewOggSource(f)
	default:
		err = fmt.Errorf("%w: '%s'", ErrUnsupportedSource, ext)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	return &fileSource{Source: src, file: f}, nil
}

// fileSource closes the underlying file with the decoder.
type fileSource struct {
	Source
	file *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// --- WAV ---

type wavSource struct {
	dec   *wav.Decoder
	buf   *goaudio.IntBuffer
	scale float32
}

// NewWAVSource decodes integer PCM WAV data of any bit depth.
func NewWAVSource(r io.ReadSeeker) (Source, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedSource)
	}
	if dec.BitDepth < 8 || dec.BitDepth > 32 {
		return nil, fmt.Errorf("%w: WAV bit depth %d", ErrUnsupportedSource, dec.BitDepth)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV encoding %d is not integer PCM", ErrUnsupportedSource, dec.WavAudioFormat)
	}

	return &wavSource{
		dec:   dec,
		buf:   &goaudio.IntBuffer{Format: dec.Format(), Data: make([]int, 4096)},
		scale: 1 / float32(int64(1)<<(dec.BitDepth-1)),
	}, nil
}

func (s *wavSource) SampleRate() int { return int(s.dec.SampleRate) }
func (s *wavSource) Channels() int   { return int(s.dec.NumChans) }
func (s *wavSource) Close() error    { return nil }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to decode WAV: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.buf.Data[:n] {
		dst[i] = float32(v) * s.scale
	}
	return n, nil
}

// --- MP3 ---

type mp3Source struct {
	dec *gomp3.Decoder
	buf []byte
}

// NewMP3Source decodes MPEG-1/2 Layer III. go-mp3 always produces 16-bit
// little-endian stereo.
func NewMP3Source(r io.Reader) (Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedSource, err)
	}
	return &mp3Source{dec: dec, buf: make([]byte, 8192)}, nil
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }
func (s *mp3Source) Channels() int   { return 2 }
func (s *mp3Source) Close() error    { return nil }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := io.ReadFull(s.dec, s.buf)
	samples := n / 2
	for i := range samples {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = float32(v) / 32768
	}

	switch {
	case samples > 0:
		return samples, nil
	case err == nil || err == io.ErrUnexpectedEOF:
		return 0, io.EOF
	default:
		return 0, err
	}
}

// --- Ogg Vorbis ---

type oggSource struct {
	dec *oggvorbis.Reader
}

// NewOggSource decodes Ogg Vorbis.
func NewOggSource(r io.Reader) (Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedSource, err)
	}
	return &oggSource{dec: dec}, nil
}

func (s *oggSource) SampleRate() int { return s.dec.SampleRate() }
func (s *oggSource) Channels() int   { return s.dec.Channels() }
func (s *oggSource) Close() error    { return nil }

func (s *oggSource) ReadSamples(dst []float32) (int, error) {
	// Keep reads frame aligned.
	dst = dst[:len(dst)-len(dst)%s.dec.Channels()]
	n, err := s.dec.Read(dst)
	if n > 0 {
		return n, nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}

// --- Mono downmix ---

// MonoMixer averages the channels of a Source into one.
type MonoMixer struct {
	src Source
	tmp []float32
}

// NewMonoMixer wraps src. Mono sources pass through untouched.
func NewMonoMixer(src Source) *MonoMixer {
	return &MonoMixer{src: src}
}

func (m *MonoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *MonoMixer) Channels() int   { return 1 }
func (m *MonoMixer) Close() error    { return m.src.Close() }

func (m *MonoMixer) ReadSamples(dst []float32) (int, error) {
	channels := m.src.Channels()
	if channels <= 1 || len(dst) == 0 {
		return m.src.ReadSamples(dst)
	}

	need := len(dst) * channels
	if cap(m.tmp) < need {
		m.tmp = make([]float32, need)
	}
	m.tmp = m.tmp[:need]

	n, err := m.src.ReadSamples(m.tmp)
	frames := n / channels
	inv := 1 / float32(channels)
	for f := range frames {
		var sum float32
		for _, v := range m.tmp[f*channels : (f+1)*channels] {
			sum += v
		}
		dst[f] = sum * inv
	}
	if frames == 0 && err == nil && n > 0 {
		// A trailing partial frame; drop it.
		err = io.EOF
	}
	return frames, err
}
