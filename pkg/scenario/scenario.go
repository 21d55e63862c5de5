// Package scenario defines reproducible allocation workloads.
//
// A scenario declares a fixed set of resources and processes plus an
// ordered event script (requests, releases, checkpoints) that the pipeline
// replays against a fresh model. Scenarios load from TOML files or come
// from the built-in catalog of classic deadlock configurations.
//
// # File Format
//
//	name = "simple"
//	description = "two processes, crossed requests"
//
//	[[resources]]
//	id = "R1"
//	total = 1
//
//	[[processes]]
//	id = "P1"
//	priority = 1
//	max_claim = { R1 = 1, R2 = 1 }
//
//	[[events]]
//	op = "request"
//	process = "P1"
//	resource = "R1"
//	count = 1
package scenario

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gridlock/pkg/errors"
	"github.com/matzehuels/gridlock/pkg/sim"
)

// Event operations understood by the replay loop.
const (
	OpRequest    = "request"
	OpRelease    = "release"
	OpCheckpoint = "checkpoint"
)

// Scenario is one reproducible workload definition.
type Scenario struct {
	Name        string        `toml:"name" json:"name"`
	Description string        `toml:"description,omitempty" json:"description,omitempty"`
	Resources   []ResourceDef `toml:"resources" json:"resources"`
	Processes   []ProcessDef  `toml:"processes" json:"processes"`
	Events      []Event       `toml:"events" json:"events"`
}

// ResourceDef declares a resource and its fixed total instance count.
type ResourceDef struct {
	ID    string `toml:"id" json:"id"`
	Total int    `toml:"total" json:"total"`
}

// ProcessDef declares a process, its priority, and its max-claim vector.
// Resources absent from MaxClaim default to their total instance count.
type ProcessDef struct {
	ID       string         `toml:"id" json:"id"`
	Priority int            `toml:"priority" json:"priority"`
	MaxClaim map[string]int `toml:"max_claim,omitempty" json:"max_claim,omitempty"`
}

// Event is one scripted step. Count is required for request and release;
// checkpoint takes only a process.
type Event struct {
	Op       string `toml:"op" json:"op"`
	Process  string `toml:"process" json:"process"`
	Resource string `toml:"resource,omitempty" json:"resource,omitempty"`
	Count    int    `toml:"count,omitempty" json:"count,omitempty"`
}

// Load reads and validates a scenario from a TOML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidScenario, err, "read scenario %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario from TOML bytes.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidScenario, err, "decode scenario")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks internal consistency: unique IDs, positive totals, and
// events that reference declared processes and resources.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.New(errors.ErrCodeInvalidScenario, "scenario name must not be empty")
	}
	if len(s.Resources) == 0 || len(s.Processes) == 0 {
		return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: needs at least one resource and one process", s.Name)
	}

	rids := make(map[string]bool, len(s.Resources))
	for _, r := range s.Resources {
		if r.ID == "" {
			return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: resource ID must not be empty", s.Name)
		}
		if rids[r.ID] {
			return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: duplicate resource %s", s.Name, r.ID)
		}
		if r.Total <= 0 {
			return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: resource %s total must be positive, got %d", s.Name, r.ID, r.Total)
		}
		rids[r.ID] = true
	}

	pids := make(map[string]bool, len(s.Processes))
	for _, p := range s.Processes {
		if p.ID == "" {
			return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: process ID must not be empty", s.Name)
		}
		if pids[p.ID] {
			return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: duplicate process %s", s.Name, p.ID)
		}
		for rid := range p.MaxClaim {
			if !rids[rid] {
				return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: process %s claims unknown resource %s", s.Name, p.ID, rid)
			}
		}
		pids[p.ID] = true
	}

	for i, e := range s.Events {
		if !pids[e.Process] {
			return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: event %d references unknown process %s", s.Name, i, e.Process)
		}
		switch e.Op {
		case OpRequest, OpRelease:
			if !rids[e.Resource] {
				return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: event %d references unknown resource %s", s.Name, i, e.Resource)
			}
			if e.Count <= 0 {
				return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: event %d count must be positive, got %d", s.Name, i, e.Count)
			}
		case OpCheckpoint:
			// No resource or count.
		default:
			return errors.New(errors.ErrCodeInvalidScenario, "scenario %s: event %d has unknown op %q", s.Name, i, e.Op)
		}
	}

	return nil
}

// Build creates a fresh allocation model with the scenario's resources and
// processes registered. Events are not applied; the pipeline replays them.
func (s *Scenario) Build() (*sim.System, error) {
	sys := sim.NewSystem()
	for _, r := range s.Resources {
		if err := sys.AddResource(r.ID, r.Total); err != nil {
			return nil, err
		}
	}
	for _, p := range s.Processes {
		if err := sys.AddProcess(p.ID, p.Priority, p.MaxClaim); err != nil {
			return nil, err
		}
	}
	return sys, nil
}
