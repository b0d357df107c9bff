package astiserial

import (
	"bytes"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// Options represents serial options
type Options struct {
	BaudRate    int           `toml:"baud_rate"`
	MaxLineSize int           `toml:"max_line_size"`
	Port        string        `toml:"port"`
	ReadTimeout time.Duration `toml:"read_timeout"`
}

// Default options
const (
	DefaultBaudRate    = 115200
	DefaultMaxLineSize = 4096
	DefaultReadTimeout = 100 * time.Millisecond
)

// Reader reads newline terminated lines out of a port
type Reader struct {
	b       []byte
	o       Options
	p       io.ReadCloser
	pending []byte
}

// NewReader creates a new reader on top of an already opened port
func NewReader(p io.ReadCloser, o Options) *Reader {
	if o.MaxLineSize <= 0 {
		o.MaxLineSize = DefaultMaxLineSize
	}
	return &Reader{
		b: make([]byte, 1024),
		o: o,
		p: p,
	}
}

// Open opens the serial port, lowers DTR and RTS so that the device is not
// reset, and drops whatever was buffered before
func Open(o Options) (r *Reader, err error) {
	// Default options
	if o.BaudRate <= 0 {
		o.BaudRate = DefaultBaudRate
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}

	// Open
	astilog.Debugf("astiserial: opening %s at %d bauds", o.Port, o.BaudRate)
	var p serial.Port
	if p, err = serial.Open(o.Port, &serial.Mode{BaudRate: o.BaudRate}); err != nil {
		err = errors.Wrapf(astiglove.ErrTransport, "astiserial: opening %s failed: %s", o.Port, err)
		return
	}

	// Make sure the port is closed on error
	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	// Set read timeout
	if err = p.SetReadTimeout(o.ReadTimeout); err != nil {
		err = errors.Wrapf(astiglove.ErrTransport, "astiserial: setting read timeout on %s failed: %s", o.Port, err)
		return
	}

	// Lower DTR and RTS
	if err = p.SetDTR(false); err != nil {
		err = errors.Wrapf(astiglove.ErrTransport, "astiserial: setting DTR on %s failed: %s", o.Port, err)
		return
	}
	if err = p.SetRTS(false); err != nil {
		err = errors.Wrapf(astiglove.ErrTransport, "astiserial: setting RTS on %s failed: %s", o.Port, err)
		return
	}

	// Reset input buffer
	if err = p.ResetInputBuffer(); err != nil {
		err = errors.Wrapf(astiglove.ErrTransport, "astiserial: resetting input buffer of %s failed: %s", o.Port, err)
		return
	}

	r = NewReader(p, o)
	return
}

// Close implements the io.Closer interface
func (r *Reader) Close() (err error) {
	astilog.Debug("astiserial: closing port")
	if err = r.p.Close(); err != nil {
		err = errors.Wrap(err, "astiserial: closing port failed")
		return
	}
	return
}

// ReadLine returns the next complete line. It performs at most one read on
// the port, which means an empty line is returned when the read times out or
// when the line is not complete yet. Bytes that are not valid UTF-8 are
// dropped.
func (r *Reader) ReadLine() (l string, err error) {
	// Complete line is already pending
	if s, ok := r.next(); ok {
		return s, nil
	}

	// Read
	var n int
	if n, err = r.p.Read(r.b); err != nil {
		err = errors.Wrapf(astiglove.ErrTransport, "astiserial: reading failed: %s", err)
		return
	}
	r.pending = append(r.pending, r.b[:n]...)

	// Complete line
	if s, ok := r.next(); ok {
		return s, nil
	}

	// Line is too long
	if len(r.pending) > r.o.MaxLineSize {
		err = errors.Wrapf(astiglove.ErrDecode, "astiserial: dropping %d bytes without line break", len(r.pending))
		r.pending = r.pending[:0]
		return
	}
	return
}

func (r *Reader) next() (string, bool) {
	// Look for line break
	i := bytes.IndexByte(r.pending, '\n')
	if i < 0 {
		return "", false
	}

	// Extract line
	b := r.pending[:i]
	r.pending = r.pending[i+1:]

	// Sanitize
	s := string(b)
	if !utf8.ValidString(s) {
		astilog.Debugf("astiserial: dropping invalid UTF-8 bytes in %q", s)
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimSpace(s), true
}
