package main

import (
	"flag"
	"os"
	"time"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astiglove/api"
	"github.com/asticode/go-astiglove/classifier"
	"github.com/asticode/go-astiglove/classifier/centroid"
	"github.com/asticode/go-astiglove/pipeline"
	"github.com/asticode/go-astiglove/pkg/portaudio"
	"github.com/asticode/go-astiglove/pkg/serial"
	"github.com/asticode/go-astiglove/pkg/speak"
	"github.com/asticode/go-astiglove/recorder"
	"github.com/asticode/go-astiglove/report"
	"github.com/asticode/go-astiglove/speak"
	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astitools/config"
	astiworker "github.com/asticode/go-astitools/worker"
	"github.com/pkg/errors"
)

// Flags
var (
	config   = flag.String("c", "", "the config path")
	modelDir = flag.String("m", "", "the model directory")
	port     = flag.String("p", "", "the serial port")
)

// Model decoders indexed by kind
var decoders = map[string]classifier.Decoder{
	centroid.Kind: centroid.Decode,
}

func main() {
	// Parse flags
	flag.Parse()
	astilog.FlagInit()

	// Create configuration
	c := newConfiguration()

	// Validate layout
	if err := c.Layout.Validate(); err != nil {
		astilog.Fatal(errors.Wrap(err, "main: validating layout failed"))
	}

	// Load model
	a, err := classifier.LoadArtifact(c.Classifier.ModelDir)
	if err != nil {
		astilog.Fatal(errors.Wrap(err, "main: loading artifact failed"))
	}
	m, err := a.NewModel(decoders, c.Layout)
	if err != nil {
		astilog.Fatal(errors.Wrap(err, "main: creating model failed"))
	}
	astilog.Infof("main: %s model loaded with labels %v", a.Kind, a.Labels)

	// Load phrasebook
	var pb *speak.Phrasebook
	if c.Announcer.PhrasesPath != "" {
		if pb, err = speak.LoadPhrasebook(c.Announcer.PhrasesPath); err != nil {
			astilog.Fatal(errors.Wrap(err, "main: loading phrasebook failed"))
		}
	}

	// Init speaker
	ss := astispeak.New(c.Speaker)
	if err = ss.Init(); err != nil {
		astilog.Fatal(errors.Wrap(err, "main: initializing speaker failed"))
	}
	defer ss.Close()

	// Pick output
	var sp speak.Speaker = ss
	if c.Announcer.Output == speak.OutputWav {
		// Init portaudio
		p := astiportaudio.New()
		if err = p.Init(); err != nil {
			astilog.Fatal(errors.Wrap(err, "main: initializing portaudio failed"))
		}
		defer p.Close()
		sp = speak.NewWavSpeaker(ss, p)
	}

	// Create worker
	w := astiworker.NewWorker()

	// Handle signals
	w.HandleSignals()

	// Create dispatcher
	d := astiglove.NewDispatcher()
	d.On("", report.NewPrinter(os.Stdout).HandleEvent)

	// Create recorder
	i := classifier.NewInvoker(m, a.Labels, speak.NewAnnouncer(sp, pb), c.Classifier.ConfidenceThreshold)
	r := recorder.New(c.Recorder, d, pipeline.NewInferer(i, c.Layout, d, pb), nil)

	// Serve API
	if c.API.ListenAddr != "" {
		s := api.New(c.API, "infer", r, false)
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
		astilog.Infof("main: classifying gestures read on %s", c.Serial.Port)
		if err := r.Run(w.Context(), sr); err != nil {
			astilog.Error(errors.Wrap(err, "main: running recorder failed"))
			w.Stop()
		}
	}()

	// Blocking pattern
	w.Wait()
}

// Configuration represents a configuration
type Configuration struct {
	API        api.Options        `toml:"api"`
	Announcer  speak.Options      `toml:"announcer"`
	Classifier classifier.Options `toml:"classifier"`
	Layout     astiglove.Layout   `toml:"layout"`
	Recorder   recorder.Options   `toml:"recorder"`
	Serial     astiserial.Options `toml:"serial"`
	Speaker    astispeak.Options  `toml:"speaker"`
}

// newConfiguration creates a new configuration
func newConfiguration() *Configuration {
	// Global config
	gc := &Configuration{
		API: api.Options{
			Timeout: 5 * time.Second,
		},
		Announcer: speak.Options{
			Output: speak.OutputDirect,
		},
		Classifier: classifier.Options{
			ConfidenceThreshold: classifier.DefaultConfidenceThreshold,
			ModelDir:            "model",
		},
		Layout: astiglove.DefaultLayout,
		Recorder: recorder.Options{
			Handoff:           recorder.HandoffMailbox,
			InactivityTimeout: 10 * time.Second,
			MinRawFrames:      10,
			PreemptOnStart:    true,
		},
		Serial: astiserial.Options{
			BaudRate: 115200,
		},
	}

	// Flag config
	fc := &Configuration{
		Classifier: classifier.Options{ModelDir: *modelDir},
		Serial:     astiserial.Options{Port: *port},
	}

	// Build configuration
	c, err := asticonfig.New(gc, *config, fc)
	if err != nil {
		astilog.Fatal(err)
	}
	return c.(*Configuration)
}
