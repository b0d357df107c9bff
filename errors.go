package astiglove

import "github.com/pkg/errors"

// Errors
var (
	ErrClassifierLoad   = errors.New("astiglove: loading classifier failed")
	ErrDecode           = errors.New("astiglove: decoding failed")
	ErrFrameParse       = errors.New("astiglove: parsing frame failed")
	ErrInsufficientData = errors.New("astiglove: insufficient data")
	ErrInvalidTarget    = errors.New("astiglove: invalid target frame count")
	ErrNoArtifact       = errors.New("astiglove: no artifact")
	ErrPersistence      = errors.New("astiglove: persistence failed")
	ErrPreempted        = errors.New("astiglove: preempted")
	ErrTransport        = errors.New("astiglove: transport failed")
)

// Is returns whether err is caused by target.
func Is(err, target error) bool {
	return err != nil && errors.Cause(err) == target
}
