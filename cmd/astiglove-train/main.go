package main

import (
	"flag"
	"fmt"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astiglove/report"
	"github.com/asticode/go-astiglove/train"
	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astitools/config"
	astiworker "github.com/asticode/go-astitools/worker"
	"github.com/pkg/errors"
)

// Flags
var (
	config      = flag.String("c", "", "the config path")
	datasetRoot = flag.String("d", "", "the dataset root")
	force       = flag.Bool("f", false, "train even when the model is up to date")
	modelDir    = flag.String("m", "", "the model directory")
)

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

	// Create worker
	w := astiworker.NewWorker()

	// Handle signals
	w.HandleSignals()

	// Train
	t := w.NewTask()
	go func() {
		defer t.Done()
		defer w.Stop()
		r, err := train.Train(w.Context(), c.Train, c.Layout, func(p train.Progress) {
			astilog.Debugf("main: %s %.0f%%", p.CurrentStep, p.Progress)
		})
		if err != nil {
			astilog.Error(errors.Wrap(err, "main: training failed"))
			return
		}
		fmt.Println(report.RenderTraining(r))
	}()

	// Blocking pattern
	w.Wait()
}

// Configuration represents a configuration
type Configuration struct {
	Layout astiglove.Layout `toml:"layout"`
	Train  train.Options    `toml:"train"`
}

// newConfiguration creates a new configuration
func newConfiguration() *Configuration {
	// Global config
	gc := &Configuration{
		Layout: astiglove.DefaultLayout,
		Train: train.Options{
			DatasetRoot:  "dataset",
			HoldoutRatio: train.DefaultHoldoutRatio,
			ModelDir:     "model",
		},
	}

	// Flag config
	fc := &Configuration{
		Train: train.Options{
			DatasetRoot: *datasetRoot,
			Force:       *force,
			ModelDir:    *modelDir,
		},
	}

	// Build configuration
	c, err := asticonfig.New(gc, *config, fc)
	if err != nil {
		astilog.Fatal(err)
	}
	return c.(*Configuration)
}
