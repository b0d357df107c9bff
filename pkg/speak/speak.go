package astispeak

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-ole/go-ole"
)

// Speaker says text out loud through the OS speech synthesizer
type Speaker struct {
	o Options

	// Windows
	windowsIDispatch *ole.IDispatch
	windowsIUnknown  *ole.IUnknown
}

// Options represents speaker options
type Options struct {
	BinaryDirPath string `toml:"binary_dir_path"`
	BinaryName    string `toml:"binary_name"`
	Voice         string `toml:"voice"`
}

// New creates a new speaker
func New(o Options) *Speaker {
	return &Speaker{o: o}
}

func (s *Speaker) binary() (name string) {
	// Name
	if name = s.o.BinaryName; len(name) == 0 {
		name = "espeak"
		if runtime.GOOS == "darwin" {
			name = "say"
		}
	}

	// Dir path
	if len(s.o.BinaryDirPath) > 0 {
		name = filepath.Join(s.o.BinaryDirPath, name)
	}
	return
}

func (s *Speaker) command(args ...string) *exec.Cmd {
	if len(s.o.Voice) > 0 {
		args = append([]string{"-v", s.o.Voice}, args...)
	}
	return exec.Command(s.binary(), args...)
}

// voiceMatches checks whether a voice description, such as "Microsoft Zira
// Desktop - English (United States)", designates the configured voice
func voiceMatches(description, voice string) bool {
	return strings.Contains(strings.ToLower(description), strings.ToLower(strings.TrimSpace(voice)))
}
