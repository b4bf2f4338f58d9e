package upengine

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// SpinnerReporter drives a briandowns/spinner while a TTY is attached to
// stderr (spec §4.3). It is a no-op Reporter otherwise, so callers don't
// need to branch on terminal state themselves.
type SpinnerReporter struct {
	s *spinner.Spinner
}

// NewSpinnerReporter builds a Reporter, enabling the animation only when
// stderr is a terminal and accessibility mode isn't requested.
func NewSpinnerReporter() *SpinnerReporter {
	if !isatty.IsTerminal(os.Stderr.Fd()) || os.Getenv("ACCESSIBLE") != "" {
		return &SpinnerReporter{}
	}
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	return &SpinnerReporter{s: s}
}

func (r *SpinnerReporter) StepStart(inst Instance) {
	if r.s == nil {
		return
	}
	r.s.Suffix = fmt.Sprintf(" %s", inst.Kind)
	r.s.Start()
}

func (r *SpinnerReporter) StepDone(inst Instance, skipped bool, err error) {
	if r.s == nil {
		return
	}
	r.s.Stop()
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "✗ %s: %v\n", inst.Kind, err)
	case skipped:
		fmt.Fprintf(os.Stderr, "- %s (already met)\n", inst.Kind)
	default:
		fmt.Fprintf(os.Stderr, "✓ %s\n", inst.Kind)
	}
}
