package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astiglove/train"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
)

// Styles
var (
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(9)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Printer prints events for the operator
type Printer struct {
	m *sync.Mutex // Locks w
	w io.Writer
}

// NewPrinter creates a new printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		m: &sync.Mutex{},
		w: w,
	}
}

// HandleEvent implements the astiglove.Listener signature
func (p *Printer) HandleEvent(e astiglove.Event) (err error) {
	// Render
	var s string
	switch e.Name {
	case astiglove.EventNameAttemptStarted:
		s = dimStyle.Render("[*] Recording...")
	case astiglove.EventNameAttemptEnded:
		s = RenderOutcome(*e.Outcome)
	case astiglove.EventNameArtifactDeleted:
		s = RenderDeletion(*e.Deletion)
	default:
		return
	}

	// Print
	p.m.Lock()
	defer p.m.Unlock()
	if _, err = fmt.Fprintln(p.w, s); err != nil {
		err = errors.Wrap(err, "report: printing failed")
		return
	}
	return
}

// RenderOutcome renders an attempt outcome
func RenderOutcome(o astiglove.Outcome) string {
	switch o.Name {
	case astiglove.OutcomeSaved:
		var ls []string
		ls = append(ls, successStyle.Render(fmt.Sprintf("SAVED #%d", o.Count))+" "+dimStyle.Render(o.Path))
		ls = append(ls, fmt.Sprintf("%d frames for %s / %s", o.NumFrames, o.Subject, o.Gesture))
		if o.Peaks != nil {
			ls = append(ls, "", RenderPeaks(*o.Peaks))
		}
		return boxStyle.Render(strings.Join(ls, "\n"))
	case astiglove.OutcomeClassified:
		if o.Classification != nil {
			return RenderClassification(*o.Classification)
		}
	}

	// Failure
	s := fmt.Sprintf("[!] %s after %d frames", strings.Replace(o.Name, "_", " ", -1), o.NumFrames)
	if o.Error != "" {
		s += ": " + o.Error
	}
	if o.Name == astiglove.OutcomeFailed {
		return errorStyle.Render(s)
	}
	return warningStyle.Render(s)
}

// RenderPeaks renders the per finger maximums of both hands
func RenderPeaks(p astiglove.FlexPeaks) string {
	var ls []string
	h := []string{labelStyle.Render("FLEX MAX")}
	for i := 0; i < astiglove.NumFlexChannels; i++ {
		h = append(h, fmt.Sprintf("%8s", fmt.Sprintf("F%d", i+1)))
	}
	ls = append(ls, strings.Join(h, ""))
	for _, r := range []struct {
		n  string
		vs [astiglove.NumFlexChannels]float64
	}{
		{n: "Left", vs: p.Left},
		{n: "Right", vs: p.Right},
	} {
		row := []string{labelStyle.Render(r.n)}
		for _, v := range r.vs {
			row = append(row, fmt.Sprintf("%8.2f", v))
		}
		ls = append(ls, strings.Join(row, ""))
	}
	return strings.Join(ls, "\n")
}

// RenderClassification renders a classification banner
func RenderClassification(c astiglove.Classification) string {
	// Result
	r := c.Phrase
	if r == "" {
		r = c.Label
	} else if r != c.Label {
		r += dimStyle.Render(" (" + c.Label + ")")
	}

	// Build lines
	ls := []string{
		labelStyle.Render("RESULT") + ": " + successStyle.Render(r),
		labelStyle.Render("CONF") + ": " + fmt.Sprintf("%.2f%%", c.Confidence*100),
	}
	if !c.Announced {
		ls = append(ls, warningStyle.Render("Confidence too low to speak"))
	}
	return boxStyle.Render(strings.Join(ls, "\n"))
}

// RenderDeletion renders an artifact deletion
func RenderDeletion(d astiglove.Deletion) string {
	if d.Error != "" {
		return errorStyle.Render(fmt.Sprintf("[!] deleting latest %s / %s failed: %s", d.Subject, d.Gesture, d.Error))
	}
	return warningStyle.Render(fmt.Sprintf("DELETED %s", d.Path)) + dimStyle.Render(fmt.Sprintf(" (%d left for %s / %s)", d.Remaining, d.Subject, d.Gesture))
}

// RenderTraining renders a training result
func RenderTraining(r train.Result) string {
	// Up to date
	if r.UpToDate {
		return dimStyle.Render("Model is up to date, nothing to train")
	}

	// Build lines
	ls := []string{
		successStyle.Render(fmt.Sprintf("TRAINED on %d samples", r.NumSamples)),
		labelStyle.Render("LABELS") + ": " + strings.Join(r.Labels, ", "),
	}
	if r.NumHoldout > 0 {
		ls = append(ls, labelStyle.Render("ACCURACY")+": "+fmt.Sprintf("%.2f%% on %d held out samples", r.Accuracy*100, r.NumHoldout))
		for _, sc := range r.Scores {
			l := fmt.Sprintf("  %-12s precision %6.2f%%  recall %6.2f%%  support %d", sc.Label, sc.Precision*100, sc.Recall*100, sc.Support)
			if sc.Support > 0 && sc.Recall < r.Accuracy {
				l = warningStyle.Render(l)
			}
			ls = append(ls, l)
		}
	} else {
		ls = append(ls, warningStyle.Render("Not enough samples to evaluate"))
	}
	if r.NumSkipped > 0 {
		ls = append(ls, warningStyle.Render(fmt.Sprintf("%d files skipped", r.NumSkipped)))
	}
	return boxStyle.Render(strings.Join(ls, "\n"))
}
