package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/asticode/go-astiglove"
	"github.com/pkg/errors"
)

// Artifact file names
const (
	FileLabels = "labels.json"
	FileLayout = "layout.json"
	FileModel  = "model.json"
)

// Artifact is a trained model as persisted in the model dir
type Artifact struct {
	Kind   string
	Labels []string
	Layout astiglove.Layout
	Model  json.RawMessage
}

type modelEnvelope struct {
	Data json.RawMessage `json:"data"`
	Kind string          `json:"kind"`
}

// Decoder builds a model out of its persisted data
type Decoder func(data json.RawMessage) (Model, error)

// SaveArtifact persists a model, its ordered labels and the layout its
// vectors were built with
func SaveArtifact(dir, kind string, m interface{}, labels []string, l astiglove.Layout) (err error) {
	// Create dir
	if err = os.MkdirAll(dir, 0755); err != nil {
		err = errors.Wrapf(err, "classifier: creating %s failed", dir)
		return
	}

	// Marshal model
	var b []byte
	if b, err = json.Marshal(m); err != nil {
		err = errors.Wrap(err, "classifier: marshaling model failed")
		return
	}

	// Write
	for n, v := range map[string]interface{}{
		FileLabels: labels,
		FileLayout: l,
		FileModel:  modelEnvelope{Data: b, Kind: kind},
	} {
		if err = writeJSON(filepath.Join(dir, n), v); err != nil {
			err = errors.Wrapf(err, "classifier: writing %s failed", n)
			return
		}
	}
	return
}

func writeJSON(path string, v interface{}) (err error) {
	// Create file
	var f *os.File
	if f, err = os.Create(path); err != nil {
		err = errors.Wrapf(err, "classifier: creating %s failed", path)
		return
	}
	defer f.Close()

	// Encode
	e := json.NewEncoder(f)
	e.SetIndent("", "  ")
	if err = e.Encode(v); err != nil {
		err = errors.Wrapf(err, "classifier: encoding %s failed", path)
		return
	}
	return
}

// LoadArtifact loads an artifact. Every failure is wrapped with
// ErrClassifierLoad.
func LoadArtifact(dir string) (a Artifact, err error) {
	// Read labels
	if err = readJSON(filepath.Join(dir, FileLabels), &a.Labels); err != nil {
		return
	}
	if len(a.Labels) == 0 {
		err = errors.Wrapf(astiglove.ErrClassifierLoad, "classifier: no labels in %s", filepath.Join(dir, FileLabels))
		return
	}

	// Read layout
	if err = readJSON(filepath.Join(dir, FileLayout), &a.Layout); err != nil {
		return
	}
	if errValidate := a.Layout.Validate(); errValidate != nil {
		err = errors.Wrapf(astiglove.ErrClassifierLoad, "classifier: invalid layout: %s", errValidate)
		return
	}

	// Read model
	var e modelEnvelope
	if err = readJSON(filepath.Join(dir, FileModel), &e); err != nil {
		return
	}
	a.Kind = e.Kind
	a.Model = e.Data
	return
}

func readJSON(path string, v interface{}) (err error) {
	// Open
	var f *os.File
	if f, err = os.Open(path); err != nil {
		err = errors.Wrapf(astiglove.ErrClassifierLoad, "classifier: opening %s failed: %s", path, err)
		return
	}
	defer f.Close()

	// Decode
	if err = json.NewDecoder(f).Decode(v); err != nil {
		err = errors.Wrapf(astiglove.ErrClassifierLoad, "classifier: decoding %s failed: %s", path, err)
		return
	}
	return
}

// NewModel builds the artifact model with the decoder registered for its
// kind and checks the artifact was trained with the expected layout
func (a Artifact) NewModel(ds map[string]Decoder, expected astiglove.Layout) (m Model, err error) {
	// Check layout
	if a.Layout != expected {
		err = errors.Wrapf(astiglove.ErrClassifierLoad, "classifier: artifact layout %+v differs from configured layout %+v", a.Layout, expected)
		return
	}

	// Get decoder
	d, ok := ds[a.Kind]
	if !ok {
		err = errors.Wrapf(astiglove.ErrClassifierLoad, "classifier: no decoder for model kind %q", a.Kind)
		return
	}

	// Decode
	if m, err = d(a.Model); err != nil {
		err = errors.Wrapf(astiglove.ErrClassifierLoad, "classifier: decoding %s model failed: %s", a.Kind, err)
		return
	}

	// Check shape
	if s, ok := m.(Shaper); ok {
		if i, o := s.Shape(); i != expected.VectorLength() {
			err = errors.Wrapf(astiglove.ErrClassifierLoad, "classifier: %s model expects %d entries, layout produces %d", a.Kind, i, expected.VectorLength())
		} else if o != len(a.Labels) {
			err = errors.Wrapf(astiglove.ErrClassifierLoad, "classifier: %s model scores %d labels, artifact has %d", a.Kind, o, len(a.Labels))
		}
		if err != nil {
			m = nil
			return
		}
	}
	return
}
