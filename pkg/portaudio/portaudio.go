package astiportaudio

import (
	"github.com/asticode/go-astilog"
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// PortAudio represents the portaudio library
type PortAudio struct{}

// New creates a new portaudio
func New() *PortAudio {
	return &PortAudio{}
}

// Init initializes the portaudio library
func (p *PortAudio) Init() (err error) {
	astilog.Debug("astiportaudio: initializing portaudio")
	if err = portaudio.Initialize(); err != nil {
		err = errors.Wrap(err, "astiportaudio: initializing portaudio failed")
		return
	}
	return
}

// Close implements the io.Closer interface
func (p *PortAudio) Close() (err error) {
	astilog.Debug("astiportaudio: terminating portaudio")
	if err = portaudio.Terminate(); err != nil {
		err = errors.Wrap(err, "astiportaudio: terminating portaudio failed")
		return
	}
	return
}
