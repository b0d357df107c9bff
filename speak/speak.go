package speak

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/asticode/go-astilog"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// Outputs
const (
	OutputDirect = "direct"
	OutputWav    = "wav"
)

// Options represents announcement options
type Options struct {
	Output      string `toml:"output"`
	PhrasesPath string `toml:"phrases_path"`
}

// Speaker says text out loud
type Speaker interface {
	Say(s string) error
}

// Announcer speaks the phrase of a label. Announcements never overlap.
type Announcer struct {
	m  *sync.Mutex
	pb *Phrasebook
	s  Speaker
}

// NewAnnouncer creates a new announcer. pb may be nil.
func NewAnnouncer(s Speaker, pb *Phrasebook) *Announcer {
	return &Announcer{
		m:  &sync.Mutex{},
		pb: pb,
		s:  s,
	}
}

// Announce implements the classifier.Announcer interface
func (a *Announcer) Announce(label string) (phrase string, err error) {
	// Lock
	a.m.Lock()
	defer a.m.Unlock()

	// Say
	phrase = a.pb.Phrase(label)
	if err = a.s.Say(phrase); err != nil {
		err = errors.Wrapf(err, "speak: saying %q failed", phrase)
		return
	}
	return
}

// WavWriter writes spoken words to a wav file
type WavWriter interface {
	SayToWav(s, path string) error
}

// Player plays PCM samples
type Player interface {
	Play(buf *audio.IntBuffer) error
}

// WavSpeaker synthesizes to a wav file and plays it back itself
type WavSpeaker struct {
	p Player
	w WavWriter
}

// NewWavSpeaker creates a new wav speaker
func NewWavSpeaker(w WavWriter, p Player) *WavSpeaker {
	return &WavSpeaker{
		p: p,
		w: w,
	}
}

// Say implements the Speaker interface
func (s *WavSpeaker) Say(i string) (err error) {
	// Create temp dir
	var dir string
	if dir, err = ioutil.TempDir("", "astiglove"); err != nil {
		err = errors.Wrap(err, "speak: creating temp dir failed")
		return
	}
	defer os.RemoveAll(dir)

	// Write wav
	path := filepath.Join(dir, "say.wav")
	if err = s.w.SayToWav(i, path); err != nil {
		err = errors.Wrap(err, "speak: writing wav failed")
		return
	}

	// Decode
	var buf *audio.IntBuffer
	if buf, err = DecodeWav(path); err != nil {
		err = errors.Wrap(err, "speak: decoding wav failed")
		return
	}

	// Play
	astilog.Debugf("speak: playing %d samples at %dHz", len(buf.Data), buf.Format.SampleRate)
	if err = s.p.Play(buf); err != nil {
		err = errors.Wrap(err, "speak: playing failed")
		return
	}
	return
}

// DecodeWav decodes the whole PCM content of a wav file
func DecodeWav(path string) (buf *audio.IntBuffer, err error) {
	// Open
	var f *os.File
	if f, err = os.Open(path); err != nil {
		err = errors.Wrapf(err, "speak: opening %s failed", path)
		return
	}
	defer f.Close()

	// Check file
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		err = errors.Errorf("speak: %s is not a valid wav file", path)
		return
	}

	// Decode
	if buf, err = d.FullPCMBuffer(); err != nil {
		err = errors.Wrapf(err, "speak: decoding %s failed", path)
		return
	}
	return
}
