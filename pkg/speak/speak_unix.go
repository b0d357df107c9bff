//go:build !windows
// +build !windows

package astispeak

import (
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
)

// Init initializes the speaker
func (s *Speaker) Init() error { return nil }

// Close implements the io.Closer interface
func (s *Speaker) Close() error { return nil }

// Say says words
func (s *Speaker) Say(i string) (err error) {
	if err = run(s.command(i)); err != nil {
		err = errors.Wrap(err, "astispeak: running command failed")
		return
	}
	return
}

// SayToWav writes the spoken words to a wav file instead of the speakers
func (s *Speaker) SayToWav(i, path string) (err error) {
	// Init args
	var args []string
	if filepath.Base(s.binary()) == "say" {
		args = []string{"-o", path, "--data-format=LEI16@22050", i}
	} else {
		args = []string{"-w", path, i}
	}

	// Run
	if err = run(s.command(args...)); err != nil {
		err = errors.Wrap(err, "astispeak: running command failed")
		return
	}
	return
}

func run(cmd *exec.Cmd) (err error) {
	astilog.Debugf("astispeak: executing %s", strings.Join(cmd.Args, " "))
	var b []byte
	if b, err = cmd.CombinedOutput(); err != nil {
		err = errors.Wrapf(err, "astispeak: running %s failed with combined output %s", strings.Join(cmd.Args, " "), b)
		return
	}
	return
}
