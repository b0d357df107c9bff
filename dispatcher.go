package astiglove

import (
	"sync"

	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"
)

// Listener handles an event
type Listener func(e Event) error

// Dispatcher forwards events to listeners
type Dispatcher struct {
	ls map[string][]Listener
	m  *sync.Mutex // Locks ls
}

// NewDispatcher creates a new dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		ls: make(map[string][]Listener),
		m:  &sync.Mutex{},
	}
}

// On adds a listener to an event. An empty name listens to every event.
func (d *Dispatcher) On(name string, l Listener) {
	d.m.Lock()
	defer d.m.Unlock()
	d.ls[name] = append(d.ls[name], l)
}

// Dispatch dispatches an event synchronously so that listeners see events of
// an attempt in order
func (d *Dispatcher) Dispatch(e Event) {
	// Get listeners
	d.m.Lock()
	ls := append(append([]Listener{}, d.ls[e.Name]...), d.ls[""]...)
	d.m.Unlock()

	// Loop through listeners
	for _, l := range ls {
		if err := l(e); err != nil {
			astilog.Error(errors.Wrapf(err, "astiglove: handling %s event failed", e.Name))
		}
	}
}
