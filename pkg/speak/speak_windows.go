package astispeak

import (
	"github.com/asticode/go-astilog"
	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/pkg/errors"
)

// SAPI stream file modes
const sapiFileModeCreateForWrite = 3

// Init initializes COM, creates the SAPI voice and selects the configured
// voice token
func (s *Speaker) Init() (err error) {
	// Initialize ole
	if err = ole.CoInitialize(0); err != nil {
		err = errors.Wrap(err, "astispeak: initializing ole failed")
		return
	}

	// Create voice
	if s.windowsIUnknown, s.windowsIDispatch, err = createObject("SAPI.SpVoice"); err != nil {
		err = errors.Wrap(err, "astispeak: creating voice failed")
		return
	}

	// Select voice
	if len(s.o.Voice) > 0 {
		if err = s.selectVoice(); err != nil {
			err = errors.Wrap(err, "astispeak: selecting voice failed")
			return
		}
	}
	return
}

func createObject(programID string) (u *ole.IUnknown, d *ole.IDispatch, err error) {
	// Create object
	if u, err = oleutil.CreateObject(programID); err != nil {
		err = errors.Wrapf(err, "astispeak: creating %s ole object failed", programID)
		return
	}

	// Get IDispatch
	if d, err = u.QueryInterface(ole.IID_IDispatch); err != nil {
		u.Release()
		u = nil
		err = errors.Wrapf(err, "astispeak: getting %s IDispatch failed", programID)
		return
	}
	return
}

func (s *Speaker) selectVoice() (err error) {
	// Get tokens
	var v *ole.VARIANT
	if v, err = oleutil.CallMethod(s.windowsIDispatch, "GetVoices"); err != nil {
		err = errors.Wrap(err, "astispeak: getting voices failed")
		return
	}
	defer v.Clear()

	// Loop through tokens
	var found bool
	var ds []string
	if err = oleutil.ForEach(v.ToIDispatch(), func(t *ole.VARIANT) (err error) {
		defer t.Clear()

		// Get description
		var d *ole.VARIANT
		if d, err = oleutil.CallMethod(t.ToIDispatch(), "GetDescription"); err != nil {
			err = errors.Wrap(err, "astispeak: getting voice description failed")
			return
		}
		desc := d.ToString()
		d.Clear()
		ds = append(ds, desc)

		// Match
		if found || !voiceMatches(desc, s.o.Voice) {
			return
		}
		if _, err = oleutil.PutPropertyRef(s.windowsIDispatch, "Voice", t.ToIDispatch()); err != nil {
			err = errors.Wrapf(err, "astispeak: setting voice %q failed", desc)
			return
		}
		astilog.Debugf("astispeak: voice %q selected", desc)
		found = true
		return
	}); err != nil {
		return
	}

	// Not found
	if !found {
		err = errors.Errorf("astispeak: no voice matches %q among %v", s.o.Voice, ds)
		return
	}
	return
}

// Close implements the io.Closer interface
func (s *Speaker) Close() (err error) {
	if s.windowsIDispatch != nil {
		s.windowsIDispatch.Release()
		s.windowsIDispatch = nil
	}
	if s.windowsIUnknown != nil {
		s.windowsIUnknown.Release()
		s.windowsIUnknown = nil
	}
	ole.CoUninitialize()
	return
}

func (s *Speaker) speak(i string) (err error) {
	// Init has not been executed
	if s.windowsIDispatch == nil {
		err = errors.New("astispeak: Init has not been called")
		return
	}

	// Speak
	var v *ole.VARIANT
	if v, err = oleutil.CallMethod(s.windowsIDispatch, "Speak", i); err != nil {
		err = errors.Wrap(err, "astispeak: calling Speak failed")
		return
	}
	v.Clear()
	return
}

// Say says words
func (s *Speaker) Say(i string) error {
	return s.speak(i)
}

// SayToWav writes the spoken words to a wav file by swapping the voice
// output for a SAPI file stream
func (s *Speaker) SayToWav(i, path string) (err error) {
	// Init has not been executed
	if s.windowsIDispatch == nil {
		err = errors.New("astispeak: Init has not been called")
		return
	}

	// Create stream
	u, d, err := createObject("SAPI.SpFileStream")
	if err != nil {
		err = errors.Wrap(err, "astispeak: creating file stream failed")
		return
	}
	defer u.Release()
	defer d.Release()

	// Open file
	var v *ole.VARIANT
	if v, err = oleutil.CallMethod(d, "Open", path, sapiFileModeCreateForWrite, false); err != nil {
		err = errors.Wrapf(err, "astispeak: opening %s failed", path)
		return
	}
	v.Clear()
	defer func() {
		if v, errClose := oleutil.CallMethod(d, "Close"); errClose != nil {
			astilog.Error(errors.Wrapf(errClose, "astispeak: closing %s failed", path))
		} else {
			v.Clear()
		}
	}()

	// Swap output
	if v, err = oleutil.PutPropertyRef(s.windowsIDispatch, "AudioOutputStream", d); err != nil {
		err = errors.Wrap(err, "astispeak: setting audio output stream failed")
		return
	}
	v.Clear()
	defer func() {
		if v, errReset := oleutil.PutPropertyRef(s.windowsIDispatch, "AudioOutputStream", (*ole.IDispatch)(nil)); errReset != nil {
			astilog.Error(errors.Wrap(errReset, "astispeak: resetting audio output stream failed"))
		} else {
			v.Clear()
		}
	}()

	// Speak
	if err = s.speak(i); err != nil {
		err = errors.Wrapf(err, "astispeak: speaking to %s failed", path)
		return
	}
	return
}
