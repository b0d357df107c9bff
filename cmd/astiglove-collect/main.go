package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astiglove/api"
	"github.com/asticode/go-astiglove/dataset"
	"github.com/asticode/go-astiglove/pipeline"
	"github.com/asticode/go-astiglove/pkg/serial"
	"github.com/asticode/go-astiglove/recorder"
	"github.com/asticode/go-astiglove/report"
	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astitools/config"
	astiworker "github.com/asticode/go-astitools/worker"
	"github.com/pkg/errors"
)

// Flags
var (
	config  = flag.String("c", "", "the config path")
	gesture = flag.String("g", "", "the gesture being recorded")
	port    = flag.String("p", "", "the serial port")
	subject = flag.String("s", "", "the subject performing the gesture")
)

func main() {
	// Parse flags
	flag.Parse()
	astilog.FlagInit()

	// Create configuration
	c := newConfiguration()

	// Prompt for missing session fields
	if err := promptSession(os.Stdin, os.Stdout, &c.Session); err != nil {
		astilog.Fatal(errors.Wrap(err, "main: prompting session failed"))
	}

	// Validate
	if err := c.Session.Validate(); err != nil {
		astilog.Fatal(errors.Wrap(err, "main: validating session failed"))
	}
	if err := c.Layout.Validate(); err != nil {
		astilog.Fatal(errors.Wrap(err, "main: validating layout failed"))
	}

	// Create worker
	w := astiworker.NewWorker()

	// Handle signals
	w.HandleSignals()

	// Create dispatcher
	d := astiglove.NewDispatcher()
	d.On("", report.NewPrinter(os.Stdout).HandleEvent)

	// Create dataset writer
	dw := dataset.NewWriter(c.Dataset)
	n, err := dw.Count(c.Session)
	if err != nil {
		astilog.Fatal(errors.Wrap(err, "main: counting recordings failed"))
	}
	astilog.Infof("main: %d recordings found for %s / %s in %s", n, c.Session.Subject, c.Session.Gesture, dw.Dir(c.Session.Gesture))

	// Create recorder
	col := pipeline.NewCollector(dw, c.Session, c.Layout, d, c.Collector)
	r := recorder.New(c.Recorder, d, col, col)

	// Serve API
	if c.API.ListenAddr != "" {
		s := api.New(c.API, "collect", r, true)
		defer s.Close()
		d.On("", s.HandleEvent)
		w.Serve(c.API.ListenAddr, s.Handler())
	}

	// Open serial port
	sr, err := astiserial.Open(c.Serial)
	if err != nil {
		astilog.Fatal(errors.Wrap(err, "main: opening serial port failed"))
	}
	defer sr.Close()

	// Consume
	tc := w.NewTask()
	go func() {
		defer tc.Done()
		r.Consume()
	}()

	// Read
	tr := w.NewTask()
	go func() {
		defer tr.Done()
		defer r.Close()
		astilog.Infof("main: waiting for %s on %s", astiglove.SignalStart.Token(), c.Serial.Port)
		if err := r.Run(w.Context(), sr); err != nil {
			astilog.Error(errors.Wrap(err, "main: running recorder failed"))
			w.Stop()
		}
	}()

	// Blocking pattern
	w.Wait()
}

// promptSession asks for the session fields that are still empty
func promptSession(r io.Reader, w io.Writer, s *dataset.Session) (err error) {
	br := bufio.NewReader(r)
	for _, f := range []struct {
		label string
		v     *string
	}{
		{label: "Subject", v: &s.Subject},
		{label: "Gesture", v: &s.Gesture},
	} {
		// Already set
		if *f.v != "" {
			continue
		}

		// Prompt
		fmt.Fprintf(w, "%s: ", f.label)
		var l string
		if l, err = br.ReadString('\n'); err != nil && (err != io.EOF || l == "") {
			err = errors.Wrapf(err, "main: reading %s failed", strings.ToLower(f.label))
			return
		}
		err = nil
		*f.v = strings.TrimSpace(l)
	}
	return
}

// Configuration represents a configuration
type Configuration struct {
	API       api.Options               `toml:"api"`
	Collector pipeline.CollectorOptions `toml:"collector"`
	Dataset   dataset.Options           `toml:"dataset"`
	Layout    astiglove.Layout          `toml:"layout"`
	Recorder  recorder.Options          `toml:"recorder"`
	Serial    astiserial.Options        `toml:"serial"`
	Session   dataset.Session           `toml:"session"`
}

// newConfiguration creates a new configuration
func newConfiguration() *Configuration {
	// Global config
	gc := &Configuration{
		API: api.Options{
			Timeout: 5 * time.Second,
		},
		Dataset: dataset.Options{
			Root: "dataset",
		},
		Layout: astiglove.DefaultLayout,
		Recorder: recorder.Options{
			Handoff:           recorder.HandoffBlocking,
			InactivityTimeout: 10 * time.Second,
			MinRawFrames:      5,
		},
		Serial: astiserial.Options{
			BaudRate: 115200,
		},
	}

	// Flag config
	fc := &Configuration{
		Serial: astiserial.Options{Port: *port},
		Session: dataset.Session{
			Gesture: *gesture,
			Subject: *subject,
		},
	}

	// Build configuration
	c, err := asticonfig.New(gc, *config, fc)
	if err != nil {
		astilog.Fatal(err)
	}
	return c.(*Configuration)
}
