// Package resolve breaks confirmed deadlocks by mutating the allocation
// model one action at a time.
//
// # Overview
//
// The resolver consumes a detector report with a non-empty deadlocked set
// and applies exactly one resolving action per iteration - terminating,
// preempting from, or rolling back a single victim - then re-runs detection
// on the mutated model. The loop ends when the deadlocked set becomes empty
// (success) or fails to strictly shrink after an action (explicit
// no-progress failure, surfaced as RESOLUTION_FAILED).
//
// Strategies are a tagged variant dispatched by the loop; priority-based
// victim selection is a shared pure function, not a strategy of its own.
//
// # Usage
//
//	report := detect.Detect(sys.Snapshot())
//	if report.Deadlock() {
//	    log, err := resolve.Resolve(sys, report, resolve.Config{Strategy: resolve.StrategyTermination})
//	    ...
//	}
package resolve

import (
	"github.com/matzehuels/gridlock/pkg/errors"
)

// Strategy selects the mutation applied to each victim.
type Strategy int

const (
	// StrategyTermination terminates the victim and force-releases
	// everything it holds.
	StrategyTermination Strategy = iota
	// StrategyPreemption takes instances of the most contended resource
	// away from one holder to satisfy the longest-waiting blocked request.
	StrategyPreemption
	// StrategyRollback restores the victim to its last saved checkpoint.
	StrategyRollback
)

// String returns the canonical lowercase name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyTermination:
		return "termination"
	case StrategyPreemption:
		return "preemption"
	case StrategyRollback:
		return "rollback"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStrategy converts a strategy name into its tagged value.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "termination":
		return StrategyTermination, nil
	case "preemption":
		return StrategyPreemption, nil
	case "rollback":
		return StrategyRollback, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidStrategy,
			"unknown strategy %q (must be one of: termination, preemption, rollback)", name)
	}
}

// Config carries the strategy and the victim-selection policy knobs.
type Config struct {
	// Strategy is the mutation applied per iteration.
	Strategy Strategy

	// InvertPriority flips victim selection to prefer the highest priority
	// instead of the lowest.
	InvertPriority bool
}
