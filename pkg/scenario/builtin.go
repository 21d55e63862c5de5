package scenario

import "fmt"

// Built-in scenario names.
const (
	NameSimple     = "simple"
	NameDining5    = "dining-5"
	NameChain      = "chain"
	NameNoDeadlock = "no-deadlock"
)

// Names lists the built-in scenario names in catalog order.
func Names() []string {
	return []string{NameSimple, NameDining5, NameChain, NameNoDeadlock}
}

// Builtin returns the built-in scenario with the given name.
func Builtin(name string) (*Scenario, bool) {
	switch name {
	case NameSimple:
		return Simple(), true
	case NameDining5:
		return Dining(5), true
	case NameChain:
		return Chain(3), true
	case NameNoDeadlock:
		return NoDeadlock(), true
	default:
		return nil, false
	}
}

// Simple is the classic two-process crossed-request deadlock: P1 holds R1
// and requests R2, P2 holds R2 and requests R1, both resources single
// instance. Checkpoints are taken after the initial grants so the rollback
// strategy has somewhere to go.
func Simple() *Scenario {
	return &Scenario{
		Name:        NameSimple,
		Description: "two processes with crossed single-instance requests",
		Resources: []ResourceDef{
			{ID: "R1", Total: 1},
			{ID: "R2", Total: 1},
		},
		Processes: []ProcessDef{
			{ID: "P1", Priority: 1, MaxClaim: map[string]int{"R1": 1, "R2": 1}},
			{ID: "P2", Priority: 2, MaxClaim: map[string]int{"R1": 1, "R2": 1}},
		},
		Events: []Event{
			{Op: OpRequest, Process: "P1", Resource: "R1", Count: 1},
			{Op: OpRequest, Process: "P2", Resource: "R2", Count: 1},
			{Op: OpCheckpoint, Process: "P1"},
			{Op: OpCheckpoint, Process: "P2"},
			{Op: OpRequest, Process: "P1", Resource: "R2", Count: 1},
			{Op: OpRequest, Process: "P2", Resource: "R1", Count: 1},
		},
	}
}

// Dining is the dining-philosophers configuration for n processes: each
// holds its left fork and requests its right fork, which the neighbor
// holds. Every fork is a single-instance resource.
func Dining(n int) *Scenario {
	s := &Scenario{
		Name:        fmt.Sprintf("dining-%d", n),
		Description: fmt.Sprintf("%d philosophers each holding a left fork and requesting the right", n),
	}
	fork := func(i int) string { return fmt.Sprintf("F%d", i%n+1) }
	for i := 0; i < n; i++ {
		s.Resources = append(s.Resources, ResourceDef{ID: fork(i), Total: 1})
	}
	for i := 0; i < n; i++ {
		s.Processes = append(s.Processes, ProcessDef{
			ID:       fmt.Sprintf("P%d", i+1),
			Priority: i + 1,
			MaxClaim: map[string]int{fork(i): 1, fork(i + 1): 1},
		})
	}
	for i := 0; i < n; i++ {
		s.Events = append(s.Events, Event{Op: OpRequest, Process: fmt.Sprintf("P%d", i+1), Resource: fork(i), Count: 1})
	}
	for i := 0; i < n; i++ {
		s.Events = append(s.Events, Event{Op: OpRequest, Process: fmt.Sprintf("P%d", i+1), Resource: fork(i + 1), Count: 1})
	}
	return s
}

// Chain is a circular wait of n processes: each holds its own resource and
// requests the next one around the ring.
func Chain(n int) *Scenario {
	s := &Scenario{
		Name:        NameChain,
		Description: fmt.Sprintf("circular wait of %d processes", n),
	}
	res := func(i int) string { return fmt.Sprintf("R%d", i%n+1) }
	for i := 0; i < n; i++ {
		s.Resources = append(s.Resources, ResourceDef{ID: res(i), Total: 1})
	}
	for i := 0; i < n; i++ {
		s.Processes = append(s.Processes, ProcessDef{
			ID:       fmt.Sprintf("P%d", i+1),
			Priority: i + 1,
			MaxClaim: map[string]int{res(i): 1, res(i + 1): 1},
		})
	}
	for i := 0; i < n; i++ {
		s.Events = append(s.Events, Event{Op: OpRequest, Process: fmt.Sprintf("P%d", i+1), Resource: res(i), Count: 1})
	}
	for i := 0; i < n; i++ {
		s.Events = append(s.Events, Event{Op: OpRequest, Process: fmt.Sprintf("P%d", i+1), Resource: res(i + 1), Count: 1})
	}
	return s
}

// NoDeadlock is a satisfiable workload: three processes over two-instance
// resources with modest claims, so every request is granted and the safety
// check finds a complete sequence.
func NoDeadlock() *Scenario {
	return &Scenario{
		Name:        NameNoDeadlock,
		Description: "three processes over multi-instance resources, all requests satisfiable",
		Resources: []ResourceDef{
			{ID: "R1", Total: 2},
			{ID: "R2", Total: 2},
			{ID: "R3", Total: 2},
		},
		Processes: []ProcessDef{
			{ID: "P1", Priority: 1, MaxClaim: map[string]int{"R1": 1, "R2": 1, "R3": 0}},
			{ID: "P2", Priority: 2, MaxClaim: map[string]int{"R1": 0, "R2": 1, "R3": 1}},
			{ID: "P3", Priority: 3, MaxClaim: map[string]int{"R1": 1, "R2": 0, "R3": 1}},
		},
		Events: []Event{
			{Op: OpRequest, Process: "P1", Resource: "R1", Count: 1},
			{Op: OpRequest, Process: "P2", Resource: "R2", Count: 1},
			{Op: OpRequest, Process: "P3", Resource: "R3", Count: 1},
			{Op: OpRequest, Process: "P1", Resource: "R2", Count: 1},
			{Op: OpRequest, Process: "P2", Resource: "R3", Count: 1},
			{Op: OpRequest, Process: "P3", Resource: "R1", Count: 1},
		},
	}
}
