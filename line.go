package astiglove

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Signal is a control signal embedded in the transport
type Signal int

// Signals
const (
	SignalNone Signal = iota
	SignalStart
	SignalSuccess
	SignalCancel
	SignalDiscard
	SignalDelete
)

// Detection order matters when a line carries several tokens
var signalTokens = []struct {
	s     Signal
	token string
}{
	{s: SignalDelete, token: "DELETE_SIGNAL"},
	{s: SignalStart, token: "START_SIGNAL"},
	{s: SignalCancel, token: "CANCEL_SIGNAL"},
	{s: SignalDiscard, token: "DISCARD_SIGNAL"},
	{s: SignalSuccess, token: "SUCCESS_SIGNAL"},
}

func (s Signal) String() string {
	switch s {
	case SignalStart:
		return "start"
	case SignalSuccess:
		return "success"
	case SignalCancel:
		return "cancel"
	case SignalDiscard:
		return "discard"
	case SignalDelete:
		return "delete"
	}
	return "none"
}

// Token returns the transport token of the signal
func (s Signal) Token() string {
	for _, t := range signalTokens {
		if t.s == s {
			return t.token
		}
	}
	return ""
}

// LineKind classifies a line
type LineKind int

// Line kinds
const (
	LineNoise LineKind = iota
	LineSignal
	LineFrame
	LineRejected
)

func (k LineKind) String() string {
	switch k {
	case LineSignal:
		return "signal"
	case LineFrame:
		return "frame"
	case LineRejected:
		return "rejected"
	}
	return "noise"
}

// RejectReason explains why a frame candidate was rejected
type RejectReason string

// Reject reasons
const (
	RejectFieldCount RejectReason = "field_count"
	RejectNotFinite  RejectReason = "not_finite"
	RejectNotNumeric RejectReason = "not_numeric"
)

// Sentinel tokens surrounding data lines
const (
	sentinelStart = "S"
	sentinelEnd   = "E"
)

// Line is the result of parsing one transport line
type Line struct {
	Err    error
	Frame  Frame
	Kind   LineKind
	Reason RejectReason
	Signal Signal
}

// ParseLine classifies a line as a signal, a frame, a rejected frame
// candidate or noise. It never panics.
func ParseLine(s string) (l Line) {
	// Signal
	for _, t := range signalTokens {
		if strings.Contains(s, t.token) {
			l.Kind = LineSignal
			l.Signal = t.s
			return
		}
	}

	// Strip sentinels
	var fs []string
	for _, f := range strings.Fields(s) {
		if f != sentinelStart && f != sentinelEnd {
			fs = append(fs, f)
		}
	}

	// Not a frame candidate
	if len(fs) == 0 || !looksNumeric(fs[0]) {
		l.Kind = LineNoise
		return
	}

	// Parse frame
	if l.Frame, l.Reason, l.Err = parseFrame(fs); l.Err != nil {
		l.Kind = LineRejected
		return
	}
	l.Kind = LineFrame
	return
}

func looksNumeric(s string) bool {
	switch c := s[0]; {
	case c >= '0' && c <= '9', c == '-', c == '+', c == '.':
		return true
	}
	return false
}

func parseFrame(fs []string) (f Frame, r RejectReason, err error) {
	// Check field count
	if len(fs) != NumChannels {
		r = RejectFieldCount
		err = errors.Wrapf(ErrFrameParse, "astiglove: expected %d fields, got %d", NumChannels, len(fs))
		return
	}

	// Loop through fields
	for idx, s := range fs {
		// Parse
		var v float64
		var errParse error
		if v, errParse = strconv.ParseFloat(s, 64); errParse != nil {
			r = RejectNotNumeric
			err = errors.Wrapf(ErrFrameParse, "astiglove: field #%d %q is not numeric", idx, s)
			return
		}

		// Not finite
		if math.IsNaN(v) || math.IsInf(v, 0) {
			r = RejectNotFinite
			err = errors.Wrapf(ErrFrameParse, "astiglove: field #%d %q is not finite", idx, s)
			return
		}
		f[idx] = v
	}
	return
}
