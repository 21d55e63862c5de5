package sim

import "maps"

// ProcessState is the lifecycle state of a process record.
type ProcessState int

const (
	// StateRunning means the process has no pending requests.
	StateRunning ProcessState = iota
	// StateWaiting means at least one request could not be granted yet.
	StateWaiting
	// StateTerminated means the process was removed by a termination action.
	// Terminated is the only absorbing state.
	StateTerminated
	// StateRolledBack means the process was restored to a checkpoint and has
	// not yet re-entered Running or Waiting.
	StateRolledBack
)

// String returns the canonical lowercase name of the state.
func (s ProcessState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateTerminated:
		return "terminated"
	case StateRolledBack:
		return "rolledback"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so states serialize as
// their names rather than integers.
func (s ProcessState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// process is the internal record for one simulated process.
// All fields are owned by System; mutations happen only through System
// operations so the invariants can be enforced in one place.
type process struct {
	id        string
	priority  int
	state     ProcessState
	held      map[string]int // resource ID -> instances held
	requested map[string]int // resource ID -> instances pending
	maxClaim  map[string]int // resource ID -> declared upper bound
	ckpt      *checkpoint
}

// checkpoint is a saved held/requested snapshot used by Rollback.
type checkpoint struct {
	held      map[string]int
	requested map[string]int
}

// saveCheckpoint captures the current held and requested maps.
func (p *process) saveCheckpoint() {
	p.ckpt = &checkpoint{
		held:      maps.Clone(p.held),
		requested: maps.Clone(p.requested),
	}
}

// refreshState moves the process between Running and Waiting based on its
// pending requests. Terminated is absorbing; RolledBack is left for the
// rollback path to resolve explicitly.
func (p *process) refreshState() {
	if p.state == StateTerminated || p.state == StateRolledBack {
		return
	}
	if len(p.requested) > 0 {
		p.state = StateWaiting
	} else {
		p.state = StateRunning
	}
}
