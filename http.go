package astiglove

import (
	"encoding/json"
	"net/http"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
)

// Error is the body of failed HTTP responses. Kind is set when the error is
// caused by one of the package errors.
type Error struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

type errorKind struct {
	code int
	name string
}

var errorKinds = map[error]errorKind{
	ErrClassifierLoad:   {code: http.StatusInternalServerError, name: "classifier_load"},
	ErrDecode:           {code: http.StatusBadRequest, name: "decode"},
	ErrFrameParse:       {code: http.StatusBadRequest, name: "frame_parse"},
	ErrInsufficientData: {code: http.StatusUnprocessableEntity, name: "insufficient_data"},
	ErrInvalidTarget:    {code: http.StatusBadRequest, name: "invalid_target"},
	ErrNoArtifact:       {code: http.StatusNotFound, name: "no_artifact"},
	ErrPersistence:      {code: http.StatusInternalServerError, name: "persistence"},
	ErrPreempted:        {code: http.StatusConflict, name: "preempted"},
	ErrTransport:        {code: http.StatusBadGateway, name: "transport"},
}

// WriteHTTPError writes err as a JSON body. A zero code is derived from the
// error cause, defaulting to 500.
func WriteHTTPError(rw http.ResponseWriter, code int, err error) {
	// Build body
	b := Error{Message: err.Error()}
	k, ok := errorKinds[errors.Cause(err)]
	if ok {
		b.Kind = k.name
	}
	if code == 0 {
		if code = http.StatusInternalServerError; ok {
			code = k.code
		}
	}

	// Log
	if code >= http.StatusInternalServerError {
		astilog.Error(err)
	} else {
		astilog.Debugf("astiglove: responding %d: %s", code, err)
	}

	// Write
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	if err := json.NewEncoder(rw).Encode(b); err != nil {
		astilog.Error(errors.Wrap(err, "astiglove: marshaling error body failed"))
	}
}

// WriteHTTPData writes data as a JSON body
func WriteHTTPData(rw http.ResponseWriter, data interface{}) {
	// Marshal first so that a failure can still be reported with a status code
	b, err := json.Marshal(data)
	if err != nil {
		WriteHTTPError(rw, http.StatusInternalServerError, errors.Wrap(err, "astiglove: marshaling data failed"))
		return
	}

	// Write
	rw.Header().Set("Content-Type", "application/json")
	if _, err = rw.Write(append(b, '\n')); err != nil {
		astilog.Error(errors.Wrap(err, "astiglove: writing data failed"))
	}
}
