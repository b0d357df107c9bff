package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
)

// Options represents dataset options
type Options struct {
	Root string `toml:"root"`
}

// Session identifies who is performing which gesture
type Session struct {
	Gesture string `toml:"gesture"`
	Subject string `toml:"subject"`
}

// Validate checks the session can be used in file names
func (s Session) Validate() error {
	for k, v := range map[string]string{"gesture": s.Gesture, "subject": s.Subject} {
		if v == "" {
			return errors.Errorf("dataset: %s is empty", k)
		} else if strings.ContainsAny(v, `/\`) || v == "." || v == ".." {
			return errors.Errorf("dataset: %s %q is not a valid file name", k, v)
		}
	}
	return nil
}

func (s Session) prefix() string {
	return s.Subject + "_" + s.Gesture + "_"
}

// Date and sequence that follow the session prefix
var regexpArtifactSuffix = regexp.MustCompile(`^\d{6}_\d{3,}\.csv$`)

// Artifact is a persisted recording
type Artifact struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
}

// Writer persists recordings as CSV files under {root}/{gesture}/
type Writer struct {
	ctime func(fi os.FileInfo) time.Time
	m     *sync.Mutex // Locks writes and deletions
	now   func() time.Time
	o     Options
}

// NewWriter creates a new writer
func NewWriter(o Options) *Writer {
	return &Writer{
		ctime: creationTime,
		m:     &sync.Mutex{},
		now:   time.Now,
		o:     o,
	}
}

// Dir returns the directory holding a gesture
func (w *Writer) Dir(gesture string) string {
	return filepath.Join(w.o.Root, gesture)
}

// List returns the artifacts of the exact session pair ordered by creation
// time. A missing directory yields no artifacts.
func (w *Writer) List(s Session) (as []Artifact, err error) {
	// Read dir
	dir := w.Dir(s.Gesture)
	var fis []os.FileInfo
	if fis, err = readDir(dir); err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			err = nil
			return
		}
		err = errors.Wrapf(astiglove.ErrPersistence, "dataset: reading %s failed: %s", dir, err)
		return
	}

	// Loop through files
	p := s.prefix()
	for _, fi := range fis {
		// Not an artifact of the session
		if fi.IsDir() || !strings.HasPrefix(fi.Name(), p) || !regexpArtifactSuffix.MatchString(strings.TrimPrefix(fi.Name(), p)) {
			continue
		}

		// Append
		as = append(as, Artifact{
			CreatedAt: w.ctime(fi),
			Name:      fi.Name(),
			Path:      filepath.Join(dir, fi.Name()),
		})
	}

	// Sort
	sort.Slice(as, func(i, j int) bool {
		if as[i].CreatedAt.Equal(as[j].CreatedAt) {
			return as[i].Name < as[j].Name
		}
		return as[i].CreatedAt.Before(as[j].CreatedAt)
	})
	return
}

func readDir(dir string) (fis []os.FileInfo, err error) {
	var f *os.File
	if f, err = os.Open(dir); err != nil {
		return
	}
	defer f.Close()
	return f.Readdir(-1)
}

// Count returns the number of artifacts of the session pair
func (w *Writer) Count(s Session) (n int, err error) {
	var as []Artifact
	if as, err = w.List(s); err != nil {
		err = errors.Wrap(err, "dataset: listing artifacts failed")
		return
	}
	n = len(as)
	return
}

// Write persists frames with one row per frame and returns the artifact path
// as well as the number of artifacts of the session pair once written
func (w *Writer) Write(s Session, fs []astiglove.Frame) (path string, count int, err error) {
	// Lock
	w.m.Lock()
	defer w.m.Unlock()

	// Create dir
	dir := w.Dir(s.Gesture)
	if err = os.MkdirAll(dir, 0755); err != nil {
		err = errors.Wrapf(astiglove.ErrPersistence, "dataset: creating %s failed: %s", dir, err)
		return
	}

	// Count
	if count, err = w.Count(s); err != nil {
		err = errors.Wrap(err, "dataset: counting artifacts failed")
		return
	}

	// Create file
	var f *os.File
	if path, f, err = w.create(dir, s, count+1); err != nil {
		err = errors.Wrap(err, "dataset: creating artifact failed")
		return
	}
	count++

	// Write
	if err = writeCSV(f, fs); err != nil {
		f.Close()
		os.Remove(path)
		err = errors.Wrapf(astiglove.ErrPersistence, "dataset: writing %s failed: %s", path, err)
		return
	}

	// Close
	if err = f.Close(); err != nil {
		os.Remove(path)
		err = errors.Wrapf(astiglove.ErrPersistence, "dataset: closing %s failed: %s", path, err)
		return
	}
	astilog.Debugf("dataset: %d frames written to %s", len(fs), path)
	return
}

// create creates the next free file, bumping the sequence when the name is
// already taken by a file that doesn't match the count
func (w *Writer) create(dir string, s Session, seq int) (path string, f *os.File, err error) {
	d := w.now().Format("010206")
	for {
		path = filepath.Join(dir, fmt.Sprintf("%s%s_%03d.csv", s.prefix(), d, seq))
		if f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644); err == nil {
			return
		} else if !os.IsExist(err) {
			err = errors.Wrapf(astiglove.ErrPersistence, "dataset: creating %s failed: %s", path, err)
			return
		}
		seq++
	}
}

func writeCSV(f *os.File, fs []astiglove.Frame) (err error) {
	// Create writers
	bw := bufio.NewWriter(f)
	cw := csv.NewWriter(bw)

	// Write header
	if err = cw.Write(astiglove.ChannelNames()); err != nil {
		err = errors.Wrap(err, "dataset: writing header failed")
		return
	}

	// Write rows
	for _, fr := range fs {
		if err = cw.Write(fr.Strings()); err != nil {
			err = errors.Wrap(err, "dataset: writing row failed")
			return
		}
	}

	// Flush
	cw.Flush()
	if err = cw.Error(); err != nil {
		err = errors.Wrap(err, "dataset: flushing csv failed")
		return
	}
	if err = bw.Flush(); err != nil {
		err = errors.Wrap(err, "dataset: flushing buffer failed")
		return
	}
	return
}

// DeleteLatest removes the most recently created artifact of the exact
// session pair
func (w *Writer) DeleteLatest(s Session) (d astiglove.Deletion, err error) {
	// Lock
	w.m.Lock()
	defer w.m.Unlock()

	// Init deletion
	d = astiglove.Deletion{
		Gesture: s.Gesture,
		Subject: s.Subject,
	}

	// List
	var as []Artifact
	if as, err = w.List(s); err != nil {
		err = errors.Wrap(err, "dataset: listing artifacts failed")
		return
	}

	// No artifact
	if len(as) == 0 {
		err = errors.Wrapf(astiglove.ErrNoArtifact, "dataset: no artifact for %s in %s", strings.TrimSuffix(s.prefix(), "_"), w.Dir(s.Gesture))
		return
	}

	// Remove
	a := as[len(as)-1]
	if err = os.Remove(a.Path); err != nil {
		err = errors.Wrapf(astiglove.ErrPersistence, "dataset: removing %s failed: %s", a.Path, err)
		d.Remaining = len(as)
		return
	}
	d.Path = a.Path
	d.Remaining = len(as) - 1
	astilog.Debugf("dataset: %s removed", a.Path)
	return
}
