package astiglove

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()
	var ns []string
	d.On(EventNameAttemptStarted, func(e Event) error {
		ns = append(ns, "started:"+e.Attempt.ID)
		return errors.New("test")
	})
	d.On("", func(e Event) error {
		ns = append(ns, "all:"+e.Name)
		return nil
	})
	d.Dispatch(Event{Attempt: &Attempt{ID: "1"}, Name: EventNameAttemptStarted})
	d.Dispatch(Event{Name: EventNameAttemptEnded, Outcome: &Outcome{Name: OutcomeSaved}})
	assert.Equal(t, []string{"started:1", "all:attempt.started", "all:attempt.ended"}, ns)
}
