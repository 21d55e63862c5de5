package sim

import (
	"slices"

	"golang.org/x/exp/maps"

	"github.com/matzehuels/gridlock/pkg/errors"
)

// System is the allocation model: id-indexed registries of processes and
// resources plus the operations that mutate them. The zero value is not
// usable - use NewSystem.
//
// System is not safe for concurrent use. All mutations are expected to be
// serialized by a single driving loop.
type System struct {
	processes map[string]*process
	resources map[string]*resource
}

// NewSystem creates an empty allocation model.
func NewSystem() *System {
	return &System{
		processes: make(map[string]*process),
		resources: make(map[string]*resource),
	}
}

// AddResource registers a resource with a fixed total instance count.
// Resources must be registered before the processes that claim them.
func (s *System) AddResource(id string, total int) error {
	if id == "" {
		return errors.New(errors.ErrCodeUnknownResource, "resource ID must not be empty")
	}
	if total <= 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "resource %s: total instances must be positive, got %d", id, total)
	}
	if _, exists := s.resources[id]; exists {
		return errors.New(errors.ErrCodeDuplicateID, "resource %s already registered", id)
	}
	s.resources[id] = &resource{
		id:         id,
		total:      total,
		available:  total,
		allocation: make(map[string]int),
	}
	return nil
}

// AddProcess registers a process with a priority and a max-claim vector.
// Lower priority means preferred victim for resolution strategies unless the
// resolver is configured with the inverse rule.
//
// maxClaim maps resource IDs to the declared upper bound used by the safety
// algorithm. Resources absent from maxClaim default to their total instance
// count (the most conservative claim). Claims must not exceed totals.
func (s *System) AddProcess(id string, priority int, maxClaim map[string]int) error {
	if id == "" {
		return errors.New(errors.ErrCodeUnknownProcess, "process ID must not be empty")
	}
	if _, exists := s.processes[id]; exists {
		return errors.New(errors.ErrCodeDuplicateID, "process %s already registered", id)
	}

	claims := make(map[string]int, len(s.resources))
	for rid, r := range s.resources {
		claims[rid] = r.total
	}
	for rid, claim := range maxClaim {
		r, ok := s.resources[rid]
		if !ok {
			return errors.New(errors.ErrCodeUnknownResource, "process %s: max claim references unknown resource %s", id, rid)
		}
		if claim < 0 || claim > r.total {
			return errors.New(errors.ErrCodeInvalidRequest, "process %s: max claim %d for %s outside [0, %d]", id, claim, rid, r.total)
		}
		claims[rid] = claim
	}

	s.processes[id] = &process{
		id:        id,
		priority:  priority,
		state:     StateRunning,
		held:      make(map[string]int),
		requested: make(map[string]int),
		maxClaim:  claims,
	}
	return nil
}

// ProcessIDs returns all registered process IDs in ascending order.
func (s *System) ProcessIDs() []string {
	ids := maps.Keys(s.processes)
	slices.Sort(ids)
	return ids
}

// ResourceIDs returns all registered resource IDs in ascending order.
func (s *System) ResourceIDs() []string {
	ids := maps.Keys(s.resources)
	slices.Sort(ids)
	return ids
}

// Request asks for count instances of a resource on behalf of a process.
//
// If the resource has enough available instances the request is granted
// immediately and Request returns true. Otherwise the request is recorded
// as pending, the process is enqueued on the resource's FIFO wait queue,
// the process transitions to Waiting, and Request returns false.
//
// The request is rejected before any mutation when count is not positive,
// when either ID is unknown, when the process is terminated, or when
// held + pending + count would exceed the process's max claim.
func (s *System) Request(pid, rid string, count int) (bool, error) {
	p, r, err := s.lookup(pid, rid)
	if err != nil {
		return false, err
	}
	if count <= 0 {
		return false, errors.New(errors.ErrCodeInvalidRequest, "%s requests %d of %s: count must be positive", pid, count, rid)
	}
	if p.state == StateTerminated {
		return false, errors.New(errors.ErrCodeProcessTerminated, "%s is terminated and cannot request resources", pid)
	}
	if p.held[rid]+p.requested[rid]+count > p.maxClaim[rid] {
		return false, errors.New(errors.ErrCodeInvalidRequest,
			"%s requests %d of %s: exceeds remaining claim (max %d, held %d, pending %d)",
			pid, count, rid, p.maxClaim[rid], p.held[rid], p.requested[rid])
	}

	// A rolled-back process re-enters the normal lifecycle by issuing requests.
	if p.state == StateRolledBack {
		p.state = StateRunning
	}

	if r.available >= count {
		r.grant(pid, count)
		p.held[rid] += count
		p.refreshState()
		return true, nil
	}

	p.requested[rid] += count
	r.queue = append(r.queue, waiter{pid: pid, count: count})
	p.refreshState()
	return false, nil
}

// Release returns count held instances of a resource to the available pool,
// then satisfies the head of the resource's wait queue in FIFO order while
// capacity suffices. It returns the IDs of processes that were woken
// (transitioned Waiting to Running) by the freed capacity.
//
// The release is rejected before any mutation when count is not positive or
// exceeds the amount currently held.
func (s *System) Release(pid, rid string, count int) ([]string, error) {
	p, r, err := s.lookup(pid, rid)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidRelease, "%s releases %d of %s: count must be positive", pid, count, rid)
	}
	if p.held[rid] < count {
		return nil, errors.New(errors.ErrCodeInvalidRelease, "%s releases %d of %s but holds only %d", pid, count, rid, p.held[rid])
	}

	r.reclaim(pid, count)
	p.held[rid] -= count
	if p.held[rid] == 0 {
		delete(p.held, rid)
	}
	return s.drain(r), nil
}

// Checkpoint saves the process's current held and requested maps as its
// rollback checkpoint, replacing any earlier checkpoint.
func (s *System) Checkpoint(pid string) error {
	p, ok := s.processes[pid]
	if !ok {
		return errors.New(errors.ErrCodeUnknownProcess, "unknown process %s", pid)
	}
	if p.state == StateTerminated {
		return errors.New(errors.ErrCodeProcessTerminated, "%s is terminated and cannot checkpoint", pid)
	}
	p.saveCheckpoint()
	return nil
}

// Terminate force-releases everything the process holds, discards its
// pending requests, and moves it to the absorbing Terminated state. Freed
// capacity wakes waiters per the usual FIFO rules; the woken process IDs
// are returned.
func (s *System) Terminate(pid string) ([]string, error) {
	p, ok := s.processes[pid]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownProcess, "unknown process %s", pid)
	}
	if p.state == StateTerminated {
		return nil, errors.New(errors.ErrCodeProcessTerminated, "%s is already terminated", pid)
	}

	for rid, n := range p.held {
		s.resources[rid].reclaim(pid, n)
	}
	clear(p.held)
	for rid := range p.requested {
		s.resources[rid].dropWaiters(pid)
	}
	clear(p.requested)
	p.state = StateTerminated

	return s.drainAll(), nil
}

// Preempt takes count instances of a resource away from the process. The
// preempted amount is converted into a pending request at the tail of the
// resource's wait queue and the victim transitions to Waiting, so the
// instances can be re-acquired later without violating its max claim.
// Freed capacity is offered to the wait queue head first.
func (s *System) Preempt(pid, rid string, count int) ([]string, error) {
	p, r, err := s.lookup(pid, rid)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidRelease, "preempt %d of %s from %s: count must be positive", count, rid, pid)
	}
	if p.held[rid] < count {
		return nil, errors.New(errors.ErrCodeInvalidRelease, "preempt %d of %s from %s: holds only %d", count, rid, pid, p.held[rid])
	}

	r.reclaim(pid, count)
	p.held[rid] -= count
	if p.held[rid] == 0 {
		delete(p.held, rid)
	}
	p.requested[rid] += count
	r.queue = append(r.queue, waiter{pid: pid, count: count})
	if p.state == StateRolledBack {
		p.state = StateRunning
	}
	p.refreshState()

	return s.drain(r), nil
}

// Rollback restores the process to its last saved checkpoint: instances
// held beyond the checkpoint are released, pending requests are replaced by
// the checkpoint's pending requests (re-enqueued at queue tails in resource
// order), and the state becomes RolledBack - then Waiting if pending
// requests remain. Returns the processes woken by the freed capacity.
//
// Instances the process released after the checkpoint are not re-acquired;
// a rollback never takes instances away from other processes.
func (s *System) Rollback(pid string) ([]string, error) {
	p, ok := s.processes[pid]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownProcess, "unknown process %s", pid)
	}
	if p.state == StateTerminated {
		return nil, errors.New(errors.ErrCodeProcessTerminated, "%s is terminated and cannot roll back", pid)
	}
	if p.ckpt == nil {
		return nil, errors.New(errors.ErrCodeNoCheckpoint, "%s has no saved checkpoint", pid)
	}

	heldIDs := maps.Keys(p.held)
	slices.Sort(heldIDs)
	for _, rid := range heldIDs {
		if excess := p.held[rid] - p.ckpt.held[rid]; excess > 0 {
			s.resources[rid].reclaim(pid, excess)
			p.held[rid] -= excess
			if p.held[rid] == 0 {
				delete(p.held, rid)
			}
		}
	}

	for rid := range p.requested {
		s.resources[rid].dropWaiters(pid)
	}
	clear(p.requested)
	requestedIDs := maps.Keys(p.ckpt.requested)
	slices.Sort(requestedIDs)
	for _, rid := range requestedIDs {
		n := p.ckpt.requested[rid]
		p.requested[rid] = n
		s.resources[rid].queue = append(s.resources[rid].queue, waiter{pid: pid, count: n})
	}

	p.state = StateRolledBack
	if len(p.requested) > 0 {
		p.state = StateWaiting
	}

	return s.drainAll(), nil
}

// CheckInvariants verifies the model invariants and returns the first
// violation found, or nil if the state is consistent. It is side-effect-free
// and intended for tests and post-resolution verification.
func (s *System) CheckInvariants() error {
	for _, rid := range s.ResourceIDs() {
		r := s.resources[rid]
		if r.available < 0 {
			return errors.New(errors.ErrCodeInconsistentState, "resource %s: negative available count %d", rid, r.available)
		}
		allocated := 0
		for pid, n := range r.allocation {
			allocated += n
			p, ok := s.processes[pid]
			if !ok {
				return errors.New(errors.ErrCodeInconsistentState, "resource %s: allocation to unknown process %s", rid, pid)
			}
			if p.held[rid] != n {
				return errors.New(errors.ErrCodeInconsistentState,
					"resource %s: allocation to %s is %d but process holds %d", rid, pid, n, p.held[rid])
			}
		}
		if r.available+allocated != r.total {
			return errors.New(errors.ErrCodeInconsistentState,
				"resource %s: available %d + allocated %d != total %d", rid, r.available, allocated, r.total)
		}
		queued := make(map[string]int)
		for _, w := range r.queue {
			queued[w.pid] += w.count
		}
		for pid, n := range queued {
			if s.processes[pid].requested[rid] != n {
				return errors.New(errors.ErrCodeInconsistentState,
					"resource %s: queue holds %d for %s but process has %d pending", rid, n, pid, s.processes[pid].requested[rid])
			}
		}
	}
	for _, pid := range s.ProcessIDs() {
		p := s.processes[pid]
		for rid, n := range p.held {
			if _, ok := s.resources[rid]; !ok {
				return errors.New(errors.ErrCodeInconsistentState, "process %s holds unknown resource %s", pid, rid)
			}
			if n <= 0 {
				return errors.New(errors.ErrCodeInconsistentState, "process %s: non-positive held count %d for %s", pid, n, rid)
			}
		}
		for rid, n := range p.requested {
			if n <= 0 {
				return errors.New(errors.ErrCodeInconsistentState, "process %s: non-positive pending count %d for %s", pid, n, rid)
			}
			if p.held[rid]+n > p.maxClaim[rid] {
				return errors.New(errors.ErrCodeInconsistentState,
					"process %s: held %d + pending %d exceeds max claim %d for %s", pid, p.held[rid], n, p.maxClaim[rid], rid)
			}
		}
	}
	return nil
}

// lookup resolves a process/resource ID pair.
func (s *System) lookup(pid, rid string) (*process, *resource, error) {
	p, ok := s.processes[pid]
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeUnknownProcess, "unknown process %s", pid)
	}
	r, ok := s.resources[rid]
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeUnknownResource, "unknown resource %s", rid)
	}
	return p, r, nil
}

// drain satisfies the head of the resource's wait queue while capacity
// suffices, granting in strict FIFO order. Returns the IDs of processes
// whose last pending request was satisfied (Waiting -> Running).
func (s *System) drain(r *resource) []string {
	var woken []string
	for len(r.queue) > 0 {
		head := r.queue[0]
		if r.available < head.count {
			break
		}
		p := s.processes[head.pid]
		r.grant(head.pid, head.count)
		p.held[r.id] += head.count
		p.requested[r.id] -= head.count
		if p.requested[r.id] == 0 {
			delete(p.requested, r.id)
		}
		r.queue = r.queue[1:]
		if len(p.requested) == 0 && p.state == StateWaiting {
			p.state = StateRunning
			woken = append(woken, head.pid)
		}
	}
	return woken
}

// drainAll drains every resource in ascending ID order. Used after
// operations that can free capacity or unblock queues on several resources
// at once (terminate, rollback).
func (s *System) drainAll() []string {
	var woken []string
	for _, rid := range s.ResourceIDs() {
		woken = append(woken, s.drain(s.resources[rid])...)
	}
	return woken
}
