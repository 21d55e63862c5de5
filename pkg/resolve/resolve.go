package resolve

import (
	"slices"

	"golang.org/x/exp/maps"

	"github.com/matzehuels/gridlock/pkg/detect"
	"github.com/matzehuels/gridlock/pkg/errors"
	"github.com/matzehuels/gridlock/pkg/sim"
)

// ActionKind identifies one resolving mutation in the resolution log.
type ActionKind string

const (
	ActionTerminate ActionKind = "terminate"
	ActionPreempt   ActionKind = "preempt"
	ActionRollback  ActionKind = "rollback"
)

// Action records one applied resolving mutation.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Victim string     `json:"victim"`
	// Resources maps resource IDs to the instance counts the action
	// released or preempted.
	Resources map[string]int `json:"resources,omitempty"`
}

// Log is the ordered record of a resolution run: every action taken, the
// final detection report, and the final snapshot of the mutated model.
type Log struct {
	Actions  []Action      `json:"actions"`
	Final    detect.Report `json:"final"`
	Snapshot sim.Snapshot  `json:"snapshot"`
}

// Resolve applies resolving actions to the system until the deadlock
// reported by the detector is gone.
//
// Each iteration applies exactly one action (one victim, one strategy) and
// then re-runs detection on the mutated model. If the deadlocked set does
// not strictly shrink after an action, Resolve stops with a
// RESOLUTION_FAILED error rather than looping; the partial log is still
// returned. A disagreement outcome after an action also ends the loop -
// with no agreed set there is no confirmed deadlock left to resolve, and
// the final report carries both raw sets for the caller.
func Resolve(sys *sim.System, report detect.Report, cfg Config) (*Log, error) {
	log := &Log{Actions: []Action{}}

	current := report.Deadlocked
	for len(current) > 0 {
		action, err := applyOne(sys, current, cfg)
		if err != nil {
			log.Final = detect.Detect(sys.Snapshot())
			log.Snapshot = sys.Snapshot()
			return log, errors.Wrap(errors.ErrCodeResolutionFailed, err, "%s action on deadlocked set of %d", cfg.Strategy, len(current))
		}
		log.Actions = append(log.Actions, action)

		snap := sys.Snapshot()
		next := detect.Detect(snap)
		if len(next.Deadlocked) == 0 {
			log.Final = next
			log.Snapshot = snap
			return log, nil
		}
		if len(next.Deadlocked) >= len(current) {
			log.Final = next
			log.Snapshot = snap
			return log, errors.New(errors.ErrCodeResolutionFailed,
				"deadlocked set did not shrink after %s of %s (%d before, %d after)",
				action.Kind, action.Victim, len(current), len(next.Deadlocked))
		}
		current = next.Deadlocked
	}

	log.Final = detect.Detect(sys.Snapshot())
	log.Snapshot = sys.Snapshot()
	return log, nil
}

// applyOne applies a single resolving action for the configured strategy.
func applyOne(sys *sim.System, deadlocked []string, cfg Config) (Action, error) {
	snap := sys.Snapshot()

	switch cfg.Strategy {
	case StrategyTermination:
		victim := SelectVictim(snap, deadlocked, cfg.InvertPriority)
		if victim == "" {
			return Action{}, errors.New(errors.ErrCodeInternal, "no victim selectable from deadlocked set")
		}
		info, _ := snap.Process(victim)
		if _, err := sys.Terminate(victim); err != nil {
			return Action{}, err
		}
		return Action{Kind: ActionTerminate, Victim: victim, Resources: maps.Clone(info.Held)}, nil

	case StrategyPreemption:
		return preemptOne(sys, snap, deadlocked, cfg)

	case StrategyRollback:
		victim := SelectVictim(snap, deadlocked, cfg.InvertPriority)
		if victim == "" {
			return Action{}, errors.New(errors.ErrCodeInternal, "no victim selectable from deadlocked set")
		}
		before, _ := snap.Process(victim)
		if _, err := sys.Rollback(victim); err != nil {
			return Action{}, err
		}
		after, _ := sys.Snapshot().Process(victim)
		released := make(map[string]int)
		for rid, n := range before.Held {
			if d := n - after.Held[rid]; d > 0 {
				released[rid] = d
			}
		}
		return Action{Kind: ActionRollback, Victim: victim, Resources: released}, nil

	default:
		return Action{}, errors.New(errors.ErrCodeInvalidStrategy, "unknown strategy %d", cfg.Strategy)
	}
}

// preemptOne picks the most contended resource within the deadlocked set,
// the lowest-priority current holder, and the minimum number of instances
// sufficient to satisfy the longest-waiting blocked request (the wait-queue
// head), clamped to what the holder actually holds.
func preemptOne(sys *sim.System, snap sim.Snapshot, deadlocked []string, cfg Config) (Action, error) {
	rid, ok := MostContended(snap, deadlocked)
	if !ok {
		return Action{}, errors.New(errors.ErrCodeInternal, "deadlocked set has no waiting requests to preempt for")
	}
	res, _ := snap.Resource(rid)
	if len(res.WaitQueue) == 0 || len(res.Allocation) == 0 {
		return Action{}, errors.New(errors.ErrCodeInternal, "resource %s has no preemptable allocation", rid)
	}

	holders := sortedKeys(res.Allocation)
	holder := SelectVictim(snap, holders, cfg.InvertPriority)

	needed := res.WaitQueue[0].Count - res.Available
	if needed < 1 {
		needed = 1
	}
	if held := res.Allocation[holder]; needed > held {
		needed = held
	}

	if _, err := sys.Preempt(holder, rid, needed); err != nil {
		return Action{}, err
	}
	return Action{Kind: ActionPreempt, Victim: holder, Resources: map[string]int{rid: needed}}, nil
}

func sortedKeys(m map[string]int) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
