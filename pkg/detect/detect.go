package detect

import (
	"slices"

	"github.com/matzehuels/gridlock/pkg/sim"
)

// Report is the reconciled outcome of one detection pass.
//
// Deadlocked is non-empty only when both algorithms agree on the same
// non-empty set. When the sets differ, Disagreement is set, both raw sets
// are surfaced, and no deadlock is asserted - the consumer decides policy.
type Report struct {
	// Deadlocked is the confirmed deadlocked set, ascending process IDs.
	Deadlocked []string `json:"deadlocked"`

	// Safe reports the Banker's-algorithm verdict.
	Safe bool `json:"safe"`

	// SafeSequence is a valid completion order when Safe is true.
	SafeSequence []string `json:"safe_sequence,omitempty"`

	// Disagreement is set when the two algorithms report different sets.
	Disagreement bool `json:"disagreement"`

	// Knot is the raw graph-reduction result.
	Knot []string `json:"knot,omitempty"`

	// Unfinished is the raw Banker's unfinished set.
	Unfinished []string `json:"unfinished,omitempty"`
}

// Deadlock reports whether the pass confirmed a deadlock.
func (r Report) Deadlock() bool { return len(r.Deadlocked) > 0 }

// Detect runs both algorithms on a snapshot and reconciles their results.
//
// Outcomes:
//   - both sets empty: no deadlock
//   - sets identical and non-empty: confirmed deadlock, Deadlocked = set
//   - sets differ: Disagreement is set, Deadlocked stays empty
//
// Detect is pure and idempotent over an unchanged snapshot.
func Detect(snap sim.Snapshot) Report {
	knot := Reduce(snap)
	safety := Safety(snap)

	report := Report{
		Deadlocked:   []string{},
		Safe:         safety.Safe,
		SafeSequence: safety.Sequence,
		Knot:         knot,
		Unfinished:   safety.Unfinished,
	}

	switch {
	case len(knot) == 0 && len(safety.Unfinished) == 0:
		// No deadlock under either algorithm.
	case slices.Equal(knot, safety.Unfinished):
		report.Deadlocked = slices.Clone(knot)
	default:
		report.Disagreement = true
	}

	return report
}
