package astiglove

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestWriteHTTPError(t *testing.T) {
	for _, c := range []struct {
		code         int
		err          error
		expectedCode int
		expectedKind string
	}{
		{err: errors.Wrap(ErrNoArtifact, "dataset: deleting failed"), expectedCode: http.StatusNotFound, expectedKind: "no_artifact"},
		{err: errors.Wrapf(ErrPreempted, "classifier: %s", "stop"), expectedCode: http.StatusConflict, expectedKind: "preempted"},
		{err: errors.New("api: unknown"), expectedCode: http.StatusInternalServerError},
		{code: http.StatusServiceUnavailable, err: errors.Wrap(ErrPersistence, "x"), expectedCode: http.StatusServiceUnavailable, expectedKind: "persistence"},
	} {
		rw := httptest.NewRecorder()
		WriteHTTPError(rw, c.code, c.err)
		assert.Equal(t, c.expectedCode, rw.Code)
		assert.Equal(t, "application/json", rw.Header().Get("Content-Type"))
		var b Error
		assert.NoError(t, json.NewDecoder(rw.Body).Decode(&b))
		assert.Equal(t, c.expectedKind, b.Kind)
		assert.Equal(t, c.err.Error(), b.Message)
	}
}

func TestWriteHTTPData(t *testing.T) {
	rw := httptest.NewRecorder()
	WriteHTTPData(rw, map[string]int{"a": 1})
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "{\"a\":1}\n", rw.Body.String())

	rw = httptest.NewRecorder()
	WriteHTTPData(rw, math.NaN())
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	var b Error
	assert.NoError(t, json.NewDecoder(rw.Body).Decode(&b))
	assert.Empty(t, b.Kind)
}
