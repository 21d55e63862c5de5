package sim

// waiter is one pending entry in a resource's FIFO wait queue.
type waiter struct {
	pid   string
	count int
}

// resource is the internal record for one resource type.
// The total instance count is fixed at creation; only the allocation map,
// available count, and wait queue mutate over the resource's lifetime.
type resource struct {
	id         string
	total      int
	available  int
	allocation map[string]int // process ID -> instances held
	queue      []waiter       // FIFO pending requests
}

// grant moves n instances from the available pool to the process.
// The caller has already verified available >= n.
func (r *resource) grant(pid string, n int) {
	r.available -= n
	r.allocation[pid] += n
}

// reclaim returns n instances held by the process to the available pool.
// The caller has already verified the process holds at least n.
func (r *resource) reclaim(pid string, n int) {
	r.allocation[pid] -= n
	if r.allocation[pid] == 0 {
		delete(r.allocation, pid)
	}
	r.available += n
}

// dropWaiters removes every queue entry belonging to the process.
func (r *resource) dropWaiters(pid string) {
	out := r.queue[:0]
	for _, w := range r.queue {
		if w.pid != pid {
			out = append(out, w)
		}
	}
	r.queue = out
}
