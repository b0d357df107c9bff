package astiglove

import "time"

// Event names
const (
	EventNameArtifactDeleted   = "artifact.deleted"
	EventNameAttemptEnded      = "attempt.ended"
	EventNameAttemptStarted    = "attempt.started"
	EventNameSequenceResampled = "sequence.resampled"
)

// Outcomes. Every recording attempt ends with exactly one of them.
const (
	OutcomeCancelled        = "cancelled"
	OutcomeClassified       = "classified"
	OutcomeDiscarded        = "discarded"
	OutcomeDropped          = "dropped"
	OutcomeFailed           = "failed"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeInterrupted      = "interrupted"
	OutcomePreempted        = "preempted"
	OutcomeReset            = "reset"
	OutcomeRestarted        = "restarted"
	OutcomeSaved            = "saved"
	OutcomeTimedOut         = "timed_out"
	OutcomeTooShort         = "too_short"
)

// Event is dispatched to listeners whenever something happens to an attempt
// or to the dataset
type Event struct {
	Attempt  *Attempt  `json:"attempt,omitempty"`
	Deletion *Deletion `json:"deletion,omitempty"`
	Name     string    `json:"name"`
	Outcome  *Outcome  `json:"outcome,omitempty"`
	Sequence []Frame   `json:"sequence,omitempty"`
}

// Attempt identifies a recording attempt
type Attempt struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// Outcome is the terminal state of an attempt
type Outcome struct {
	AttemptID      string          `json:"attempt_id"`
	Classification *Classification `json:"classification,omitempty"`
	Count          int             `json:"count,omitempty"`
	EndedAt        time.Time       `json:"ended_at"`
	Error          string          `json:"error,omitempty"`
	Gesture        string          `json:"gesture,omitempty"`
	Name           string          `json:"name"`
	NumFrames      int             `json:"num_frames"`
	Path           string          `json:"path,omitempty"`
	Peaks          *FlexPeaks      `json:"peaks,omitempty"`
	Subject        string          `json:"subject,omitempty"`
}

// Terminal returns whether the outcome produced a downstream effect
func (o Outcome) Terminal() bool {
	return o.Name == OutcomeSaved || o.Name == OutcomeClassified
}

// Classification is the result of classifying one vector
type Classification struct {
	Announced  bool    `json:"announced"`
	Confidence float64 `json:"confidence"`
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Phrase     string  `json:"phrase,omitempty"`
}

// Deletion describes a removed artifact
type Deletion struct {
	Error     string `json:"error,omitempty"`
	Gesture   string `json:"gesture"`
	Path      string `json:"path,omitempty"`
	Remaining int    `json:"remaining"`
	Subject   string `json:"subject"`
}
