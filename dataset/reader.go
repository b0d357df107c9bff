package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/asticode/go-astiglove"
	"github.com/pkg/errors"
)

// ReadFile reads the frames of an artifact
func ReadFile(path string) (fs []astiglove.Frame, err error) {
	// Open
	var f *os.File
	if f, err = os.Open(path); err != nil {
		err = errors.Wrapf(astiglove.ErrPersistence, "dataset: opening %s failed: %s", path, err)
		return
	}
	defer f.Close()

	// Read
	if fs, err = Read(f); err != nil {
		err = errors.Wrapf(err, "dataset: reading %s failed", path)
		return
	}
	return
}

// Read reads frames out of CSV content with the canonical header
func Read(r io.Reader) (fs []astiglove.Frame, err error) {
	// Create reader
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = astiglove.NumChannels
	cr.TrimLeadingSpace = true

	// Read header
	var h []string
	if h, err = cr.Read(); err != nil {
		err = errors.Wrapf(astiglove.ErrFrameParse, "dataset: reading header failed: %s", err)
		return
	}

	// Check header
	for i, n := range astiglove.ChannelNames() {
		if h[i] != n {
			err = errors.Wrapf(astiglove.ErrFrameParse, "dataset: column #%d is %q, expected %q", i, h[i], n)
			return
		}
	}

	// Loop through rows
	for idx := 1; ; idx++ {
		// Read
		var rec []string
		if rec, err = cr.Read(); err == io.EOF {
			err = nil
			return
		} else if err != nil {
			err = errors.Wrapf(astiglove.ErrFrameParse, "dataset: reading row #%d failed: %s", idx, err)
			return
		}

		// Parse
		var f astiglove.Frame
		for i, s := range rec {
			if f[i], err = strconv.ParseFloat(s, 64); err != nil {
				err = errors.Wrapf(astiglove.ErrFrameParse, "dataset: parsing row #%d column #%d failed: %s", idx, i, err)
				return
			} else if math.IsNaN(f[i]) || math.IsInf(f[i], 0) {
				err = errors.Wrapf(astiglove.ErrFrameParse, "dataset: row #%d column #%d %q is not finite", idx, i, s)
				return
			}
		}
		fs = append(fs, f)
	}
}

// Labels returns the sorted gesture directories of a dataset root. The order
// is the label index order.
func Labels(root string) (ls []string, err error) {
	// Read dir
	var fis []os.FileInfo
	if fis, err = readDir(root); err != nil {
		err = errors.Wrapf(astiglove.ErrPersistence, "dataset: reading %s failed: %s", root, err)
		return
	}

	// Loop through dirs
	for _, fi := range fis {
		if fi.IsDir() && !strings.HasPrefix(fi.Name(), ".") {
			ls = append(ls, fi.Name())
		}
	}
	sort.Strings(ls)
	return
}

// Files returns the sorted artifact paths of a gesture, whatever the subject
func Files(root, gesture string) (ps []string, err error) {
	// Read dir
	dir := filepath.Join(root, gesture)
	var fis []os.FileInfo
	if fis, err = readDir(dir); err != nil {
		err = errors.Wrapf(astiglove.ErrPersistence, "dataset: reading %s failed: %s", dir, err)
		return
	}

	// Loop through files
	for _, fi := range fis {
		if !fi.IsDir() && strings.HasSuffix(fi.Name(), ".csv") {
			ps = append(ps, filepath.Join(dir, fi.Name()))
		}
	}
	sort.Strings(ps)
	return
}
