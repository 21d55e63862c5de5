package sim

import (
	"slices"

	"golang.org/x/exp/maps"
)

// Edge kinds in the derived resource-allocation graph.
const (
	// EdgeAssignment is a resource -> process edge weighted by held count.
	EdgeAssignment = "assignment"
	// EdgeRequest is a process -> resource edge weighted by pending count.
	EdgeRequest = "request"
)

// Snapshot is an immutable, consistent view of the system taken between
// mutations. It is the only thing handed to the detector and to external
// consumers; the graph edges are derived from the held and requested maps
// at capture time. The format is JSON-serializable without loss.
type Snapshot struct {
	Processes []ProcessInfo  `json:"processes"`
	Resources []ResourceInfo `json:"resources"`
	Edges     []Edge         `json:"edges"`
}

// ProcessInfo is the captured state of one process.
type ProcessInfo struct {
	ID            string         `json:"id"`
	State         ProcessState   `json:"state"`
	Priority      int            `json:"priority"`
	Held          map[string]int `json:"held,omitempty"`
	Requested     map[string]int `json:"requested,omitempty"`
	MaxClaim      map[string]int `json:"max_claim,omitempty"`
	HasCheckpoint bool           `json:"has_checkpoint,omitempty"`
}

// ResourceInfo is the captured state of one resource, including the FIFO
// wait-queue order.
type ResourceInfo struct {
	ID         string           `json:"id"`
	Total      int              `json:"total"`
	Available  int              `json:"available"`
	Allocation map[string]int   `json:"allocation,omitempty"`
	WaitQueue  []PendingRequest `json:"wait_queue,omitempty"`
}

// PendingRequest is one wait-queue entry.
type PendingRequest struct {
	Process string `json:"process"`
	Count   int    `json:"count"`
}

// Edge is one derived allocation-graph edge. Assignment edges point from
// resource to process; request edges point from process to resource.
type Edge struct {
	Kind   string `json:"kind"`
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// Snapshot produces an immutable view of the current state for detection
// and external consumers. It is side-effect-free; the returned value shares
// no mutable data with the system.
func (s *System) Snapshot() Snapshot {
	snap := Snapshot{
		Processes: make([]ProcessInfo, 0, len(s.processes)),
		Resources: make([]ResourceInfo, 0, len(s.resources)),
	}

	pids := s.ProcessIDs()
	rids := s.ResourceIDs()

	for _, pid := range pids {
		p := s.processes[pid]
		snap.Processes = append(snap.Processes, ProcessInfo{
			ID:            p.id,
			State:         p.state,
			Priority:      p.priority,
			Held:          cloneNonEmpty(p.held),
			Requested:     cloneNonEmpty(p.requested),
			MaxClaim:      maps.Clone(p.maxClaim),
			HasCheckpoint: p.ckpt != nil,
		})
	}

	for _, rid := range rids {
		r := s.resources[rid]
		info := ResourceInfo{
			ID:         r.id,
			Total:      r.total,
			Available:  r.available,
			Allocation: cloneNonEmpty(r.allocation),
		}
		for _, w := range r.queue {
			info.WaitQueue = append(info.WaitQueue, PendingRequest{Process: w.pid, Count: w.count})
		}
		snap.Resources = append(snap.Resources, info)
	}

	// Assignment edges in resource order, then request edges in process
	// order, each sorted by the opposite endpoint for determinism.
	for _, ri := range snap.Resources {
		for _, pid := range sortedKeys(ri.Allocation) {
			snap.Edges = append(snap.Edges, Edge{Kind: EdgeAssignment, From: ri.ID, To: pid, Weight: ri.Allocation[pid]})
		}
	}
	for _, pi := range snap.Processes {
		for _, rid := range sortedKeys(pi.Requested) {
			snap.Edges = append(snap.Edges, Edge{Kind: EdgeRequest, From: pi.ID, To: rid, Weight: pi.Requested[rid]})
		}
	}

	return snap
}

// Process returns the captured info for a process ID.
func (sn Snapshot) Process(id string) (ProcessInfo, bool) {
	for _, p := range sn.Processes {
		if p.ID == id {
			return p, true
		}
	}
	return ProcessInfo{}, false
}

// Resource returns the captured info for a resource ID.
func (sn Snapshot) Resource(id string) (ResourceInfo, bool) {
	for _, r := range sn.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return ResourceInfo{}, false
}

// Available returns the available vector keyed by resource ID.
func (sn Snapshot) Available() map[string]int {
	avail := make(map[string]int, len(sn.Resources))
	for _, r := range sn.Resources {
		avail[r.ID] = r.Available
	}
	return avail
}

// Active returns the processes that still participate in allocation,
// excluding terminated ones.
func (sn Snapshot) Active() []ProcessInfo {
	var active []ProcessInfo
	for _, p := range sn.Processes {
		if p.State != StateTerminated {
			active = append(active, p)
		}
	}
	return active
}

func sortedKeys(m map[string]int) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

func cloneNonEmpty(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	return maps.Clone(m)
}
