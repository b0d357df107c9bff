package speak

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Phrasebook translates labels into the phrases that are spoken
type Phrasebook struct {
	Fallback string            `toml:"fallback"`
	Phrases  map[string]string `toml:"phrases"`
}

// LoadPhrasebook loads a phrasebook from a TOML file such as:
//
//	fallback = "unknown gesture"
//
//	[phrases]
//	hello = "hello there"
func LoadPhrasebook(path string) (pb *Phrasebook, err error) {
	pb = &Phrasebook{}
	if _, err = toml.DecodeFile(path, pb); err != nil {
		err = errors.Wrapf(err, "speak: decoding %s failed", path)
		return
	}
	return
}

// Phrase returns the phrase of a label. Unknown labels yield the fallback
// phrase, or the label itself when there is none.
func (pb *Phrasebook) Phrase(label string) string {
	if pb != nil {
		if p, ok := pb.Phrases[label]; ok {
			return p
		}
		if pb.Fallback != "" {
			return pb.Fallback
		}
	}
	return label
}
