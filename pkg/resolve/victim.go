package resolve

import (
	"github.com/matzehuels/gridlock/pkg/sim"
)

// SelectVictim picks the victim among candidate process IDs: the one with
// the minimal priority, or the maximal one when invert is set. Ties are
// broken by ascending process ID. Candidates missing from the snapshot are
// ignored. Returns "" when no candidate qualifies.
//
// This is the shared selection policy used by the termination and rollback
// strategies, and for choosing which holder preemption takes from.
func SelectVictim(snap sim.Snapshot, candidates []string, invert bool) string {
	victim := ""
	best := 0
	for _, id := range candidates {
		p, ok := snap.Process(id)
		if !ok {
			continue
		}
		better := victim == "" ||
			(!invert && p.Priority < best) ||
			(invert && p.Priority > best) ||
			(p.Priority == best && id < victim)
		if better {
			victim = id
			best = p.Priority
		}
	}
	return victim
}

// MostContended returns the resource with the highest number of distinct
// waiting requesters among the given processes, breaking ties by ascending
// resource ID. The distinct-waiter metric (rather than total requested
// instances) measures how many deadlocked processes a single preemption
// can unblock. Returns false when none of the processes is waiting.
func MostContended(snap sim.Snapshot, deadlocked []string) (string, bool) {
	inSet := make(map[string]bool, len(deadlocked))
	for _, id := range deadlocked {
		inSet[id] = true
	}

	waiters := make(map[string]int)
	for _, r := range snap.Resources {
		seen := make(map[string]bool)
		for _, w := range r.WaitQueue {
			if inSet[w.Process] && !seen[w.Process] {
				seen[w.Process] = true
				waiters[r.ID]++
			}
		}
	}

	best := ""
	for _, r := range snap.Resources {
		n := waiters[r.ID]
		if n == 0 {
			continue
		}
		if best == "" || n > waiters[best] || (n == waiters[best] && r.ID < best) {
			best = r.ID
		}
	}
	return best, best != ""
}
