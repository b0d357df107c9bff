package astispeak

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeakerCommand(t *testing.T) {
	s := New(Options{BinaryDirPath: "/usr/bin", BinaryName: "espeak", Voice: "en"})
	cmd := s.command("-w", "a.wav", "hello")
	assert.Equal(t, filepath.Join("/usr/bin", "espeak"), cmd.Path)
	assert.Equal(t, []string{filepath.Join("/usr/bin", "espeak"), "-v", "en", "-w", "a.wav", "hello"}, cmd.Args)

	s = New(Options{BinaryName: "espeak"})
	assert.Equal(t, []string{"espeak", "hello"}, s.command("hello").Args)
}

func TestVoiceMatches(t *testing.T) {
	d := "Microsoft Zira Desktop - English (United States)"
	assert.True(t, voiceMatches(d, "zira"))
	assert.True(t, voiceMatches(d, " English (United States) "))
	assert.False(t, voiceMatches(d, "david"))
}
