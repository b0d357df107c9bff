package astiserial

import (
	"io"
	"testing"

	"github.com/asticode/go-astiglove"
	"github.com/stretchr/testify/assert"
)

type mockedPort struct {
	closed bool
	reads  []string
}

func (p *mockedPort) Read(b []byte) (n int, err error) {
	if len(p.reads) == 0 {
		err = io.ErrUnexpectedEOF
		return
	}
	n = copy(b, p.reads[0])
	p.reads = p.reads[1:]
	return
}

func (p *mockedPort) Close() error {
	p.closed = true
	return nil
}

func TestReader(t *testing.T) {
	p := &mockedPort{reads: []string{
		"START_SIG",
		"NAL\r\nS 1 2",
		"",
		" 3 E\nfoo\xff\xfe bar\nlast\n",
	}}
	r := NewReader(p, Options{})
	var ls []string
	for {
		l, err := r.ReadLine()
		if err != nil {
			assert.True(t, astiglove.Is(err, astiglove.ErrTransport))
			break
		}
		ls = append(ls, l)
	}
	assert.Equal(t, []string{"", "START_SIGNAL", "", "S 1 2 3 E", "foo bar", "last"}, ls)
	assert.NoError(t, r.Close())
	assert.True(t, p.closed)
}

func TestReaderLineTooLong(t *testing.T) {
	p := &mockedPort{reads: []string{"0123456789", "abc\nok\n"}}
	r := NewReader(p, Options{MaxLineSize: 8})
	_, err := r.ReadLine()
	assert.True(t, astiglove.Is(err, astiglove.ErrDecode))
	l, err := r.ReadLine()
	assert.NoError(t, err)
	assert.Equal(t, "abc", l)
	l, err = r.ReadLine()
	assert.NoError(t, err)
	assert.Equal(t, "ok", l)
}
