package detect

import (
	"github.com/matzehuels/gridlock/pkg/sim"
)

// Reduce runs the graph-reduction algorithm on a snapshot and returns the
// knot: the IDs of processes that cannot be reduced, in ascending order.
// An empty knot means the system is deadlock-free under this algorithm.
//
// A process is reducible when, for every resource it has pending requests
// on, the hypothetically available count covers the full requested amount
// (multi-instance resources included). Reducing a process treats it as if
// it ran to completion: its held instances are returned to the working
// pool for the remainder of the pass. The real snapshot is never mutated.
func Reduce(snap sim.Snapshot) []string {
	work := snap.Available()
	active := snap.Active()
	reduced := make(map[string]bool, len(active))

	// Fixed-point iteration. Processes are scanned in ascending ID order
	// (snapshot order) so the pass is deterministic.
	for {
		progress := false
		for _, p := range active {
			if reduced[p.ID] {
				continue
			}
			if !fits(p.Requested, work) {
				continue
			}
			reduced[p.ID] = true
			for rid, n := range p.Held {
				work[rid] += n
			}
			progress = true
		}
		if !progress {
			break
		}
	}

	var knot []string
	for _, p := range active {
		if !reduced[p.ID] {
			knot = append(knot, p.ID)
		}
	}
	return knot
}

// fits reports whether every demanded amount is covered by the working
// vector, component-wise.
func fits(demand, work map[string]int) bool {
	for rid, n := range demand {
		if work[rid] < n {
			return false
		}
	}
	return true
}
