package astiportaudio

import (
	"github.com/asticode/go-astilog"
	"github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// Stream represents a portaudio output stream
type Stream struct {
	b []int32
	o StreamOptions
	s *portaudio.Stream
}

// StreamOptions represents stream options
type StreamOptions struct {
	NumOutputChannels int     `toml:"num_output_channels"`
	SampleRate        float64 `toml:"sample_rate"`
}

// NewDefaultStream creates a new default output stream. b holds interleaved
// samples for every output channel.
func (p *PortAudio) NewDefaultStream(b []int32, o StreamOptions) (s *Stream, err error) {
	// Init
	s = &Stream{
		b: b,
		o: o,
	}

	// Open default stream
	astilog.Debugf("astiportaudio: opening default stream %p", s)
	if s.s, err = portaudio.OpenDefaultStream(0, s.o.NumOutputChannels, s.o.SampleRate, len(s.b)/s.o.NumOutputChannels, s.b); err != nil {
		err = errors.Wrapf(err, "astiportaudio: opening default stream %p failed", s)
		return
	}
	return
}

// Close implements the io.Closer interface
func (s *Stream) Close() (err error) {
	// Close stream
	astilog.Debugf("astiportaudio: closing stream %p", s)
	if err = s.s.Close(); err != nil {
		err = errors.Wrapf(err, "astiportaudio: closing stream %p failed", s)
		return
	}
	return
}

// Start starts the stream
func (s *Stream) Start() (err error) {
	// Start stream
	astilog.Debugf("astiportaudio: starting stream %p", s)
	if err = s.s.Start(); err != nil {
		err = errors.Wrapf(err, "astiportaudio: starting stream %p failed", s)
		return
	}
	return
}

// Stop stops the stream
func (s *Stream) Stop() (err error) {
	// Stop stream
	astilog.Debugf("astiportaudio: stopping stream %p", s)
	if err = s.s.Stop(); err != nil {
		err = errors.Wrapf(err, "astiportaudio: stopping stream %p failed", s)
		return
	}
	return
}

// Write writes the stream buffer
func (s *Stream) Write() (err error) {
	if err = s.s.Write(); err != nil {
		err = errors.Wrap(err, "astiportaudio: writing failed")
		return
	}
	return
}

// Play plays PCM samples on the default output device and blocks until they
// have all been written
func (p *PortAudio) Play(buf *audio.IntBuffer) (err error) {
	// Check format
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		err = errors.New("astiportaudio: invalid format")
		return
	}

	// Create stream
	var s *Stream
	if s, err = p.NewDefaultStream(make([]int32, 1024*buf.Format.NumChannels), StreamOptions{
		NumOutputChannels: buf.Format.NumChannels,
		SampleRate:        float64(buf.Format.SampleRate),
	}); err != nil {
		err = errors.Wrap(err, "astiportaudio: creating default stream failed")
		return
	}
	defer s.Close()

	// Start
	if err = s.Start(); err != nil {
		err = errors.Wrap(err, "astiportaudio: starting stream failed")
		return
	}
	defer s.Stop()

	// Loop through chunks
	samples := ToInt32(buf.Data, buf.SourceBitDepth)
	for len(samples) > 0 {
		// Fill buffer
		n := copy(s.b, samples)
		for i := n; i < len(s.b); i++ {
			s.b[i] = 0
		}
		samples = samples[n:]

		// Write
		if err = s.Write(); err != nil {
			err = errors.Wrap(err, "astiportaudio: writing to stream failed")
			return
		}
	}
	return
}

// ToInt32 scales samples of the provided bit depth to the int32 range
func ToInt32(samples []int, bitDepth int) (o []int32) {
	shift := uint(0)
	if bitDepth > 0 && bitDepth < 32 {
		shift = uint(32 - bitDepth)
	}
	o = make([]int32, len(samples))
	for i, v := range samples {
		o[i] = int32(v) << shift
	}
	return
}
