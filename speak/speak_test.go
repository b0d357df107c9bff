package speak

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPhrasebook(t *testing.T) {
	p := filepath.Join(t.TempDir(), "phrases.toml")
	assert.NoError(t, ioutil.WriteFile(p, []byte("fallback = \"unknown\"\n\n[phrases]\nhello = \"hello there\"\n"), 0644))
	pb, err := LoadPhrasebook(p)
	assert.NoError(t, err)
	assert.Equal(t, "hello there", pb.Phrase("hello"))
	assert.Equal(t, "unknown", pb.Phrase("bye"))

	var npb *Phrasebook
	assert.Equal(t, "bye", npb.Phrase("bye"))
	assert.Equal(t, "bye", (&Phrasebook{}).Phrase("bye"))

	_, err = LoadPhrasebook(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

type mockedSpeaker struct {
	err  error
	said []string
}

func (s *mockedSpeaker) Say(i string) error {
	s.said = append(s.said, i)
	return s.err
}

func TestAnnouncer(t *testing.T) {
	s := &mockedSpeaker{}
	a := NewAnnouncer(s, &Phrasebook{Phrases: map[string]string{"hello": "hi"}})
	p, err := a.Announce("hello")
	assert.NoError(t, err)
	assert.Equal(t, "hi", p)
	p, err = a.Announce("bye")
	assert.NoError(t, err)
	assert.Equal(t, "bye", p)
	assert.Equal(t, []string{"hi", "bye"}, s.said)

	s.err = errors.New("test")
	_, err = a.Announce("hello")
	assert.Error(t, err)
}

type mockedWavWriter struct {
	data []int
}

func (w *mockedWavWriter) SayToWav(i, path string) (err error) {
	var f *os.File
	if f, err = os.Create(path); err != nil {
		return
	}
	defer f.Close()
	e := wav.NewEncoder(f, 8000, 16, 1, 1)
	if err = e.Write(&audio.IntBuffer{
		Data:           w.data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: 8000},
		SourceBitDepth: 16,
	}); err != nil {
		return
	}
	return e.Close()
}

type mockedPlayer struct {
	bufs []*audio.IntBuffer
}

func (p *mockedPlayer) Play(buf *audio.IntBuffer) error {
	p.bufs = append(p.bufs, buf)
	return nil
}

func TestWavSpeaker(t *testing.T) {
	w := &mockedWavWriter{data: []int{0, 100, -100, 32767}}
	p := &mockedPlayer{}
	s := NewWavSpeaker(w, p)
	assert.NoError(t, s.Say("hello"))
	assert.Len(t, p.bufs, 1)
	assert.Equal(t, []int{0, 100, -100, 32767}, p.bufs[0].Data)
	assert.Equal(t, 1, p.bufs[0].Format.NumChannels)
	assert.Equal(t, 8000, p.bufs[0].Format.SampleRate)
}
