package detect

import (
	"github.com/matzehuels/gridlock/pkg/sim"
)

// SafetyResult is the outcome of the Banker's-algorithm safety check.
type SafetyResult struct {
	// Safe reports whether every process can run to its maximum claim and
	// complete in some order.
	Safe bool

	// Sequence is a valid completion order when Safe is true: replaying it
	// never requires any process to wait. Empty when unsafe.
	Sequence []string

	// Unfinished holds the processes left over when the search stalls,
	// in ascending order. Empty when safe.
	Unfinished []string
}

// Safety runs the Banker's-algorithm safety check on a snapshot.
//
// For each process, need = max claim - allocation. A working vector starts
// at the available counts; any unfinished process whose need fits into the
// working vector is assumed to complete and returns its allocation to the
// vector. Candidates are scanned in ascending process ID order, so the
// returned safe sequence is deterministic.
func Safety(snap sim.Snapshot) SafetyResult {
	work := snap.Available()
	active := snap.Active()
	finished := make(map[string]bool, len(active))

	var sequence []string
	for {
		progress := false
		for _, p := range active {
			if finished[p.ID] {
				continue
			}
			if !fits(need(p), work) {
				continue
			}
			for rid, n := range p.Held {
				work[rid] += n
			}
			finished[p.ID] = true
			sequence = append(sequence, p.ID)
			progress = true
		}
		if !progress {
			break
		}
	}

	res := SafetyResult{Safe: len(sequence) == len(active)}
	if res.Safe {
		res.Sequence = sequence
		return res
	}
	for _, p := range active {
		if !finished[p.ID] {
			res.Unfinished = append(res.Unfinished, p.ID)
		}
	}
	return res
}

// need computes max claim minus current allocation for one process.
func need(p sim.ProcessInfo) map[string]int {
	n := make(map[string]int, len(p.MaxClaim))
	for rid, claim := range p.MaxClaim {
		if d := claim - p.Held[rid]; d > 0 {
			n[rid] = d
		}
	}
	return n
}
