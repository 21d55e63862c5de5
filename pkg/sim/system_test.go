package sim

import (
	"slices"
	"testing"

	"github.com/matzehuels/gridlock/pkg/errors"
)

// newTestSystem builds a system with the given resources (id -> total) and
// processes registered with default max claims.
func newTestSystem(t *testing.T, resources map[string]int, processes ...string) *System {
	t.Helper()
	sys := NewSystem()
	for _, rid := range sortedKeys(resources) {
		if err := sys.AddResource(rid, resources[rid]); err != nil {
			t.Fatalf("AddResource(%s) error: %v", rid, err)
		}
	}
	for i, pid := range processes {
		if err := sys.AddProcess(pid, i+1, nil); err != nil {
			t.Fatalf("AddProcess(%s) error: %v", pid, err)
		}
	}
	return sys
}

func mustRequest(t *testing.T, sys *System, pid, rid string, count int, wantGranted bool) {
	t.Helper()
	granted, err := sys.Request(pid, rid, count)
	if err != nil {
		t.Fatalf("Request(%s, %s, %d) error: %v", pid, rid, count, err)
	}
	if granted != wantGranted {
		t.Fatalf("Request(%s, %s, %d) = %v, want %v", pid, rid, count, granted, wantGranted)
	}
}

func processState(t *testing.T, sys *System, pid string) ProcessState {
	t.Helper()
	p, ok := sys.Snapshot().Process(pid)
	if !ok {
		t.Fatalf("process %s not in snapshot", pid)
	}
	return p.State
}

func TestAddResource(t *testing.T) {
	sys := NewSystem()
	if err := sys.AddResource("R1", 2); err != nil {
		t.Fatalf("AddResource() error: %v", err)
	}

	tests := []struct {
		name  string
		id    string
		total int
		code  errors.Code
	}{
		{name: "EmptyID", id: "", total: 1, code: errors.ErrCodeUnknownResource},
		{name: "ZeroTotal", id: "R2", total: 0, code: errors.ErrCodeInvalidRequest},
		{name: "NegativeTotal", id: "R2", total: -1, code: errors.ErrCodeInvalidRequest},
		{name: "Duplicate", id: "R1", total: 1, code: errors.ErrCodeDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sys.AddResource(tt.id, tt.total)
			if !errors.Is(err, tt.code) {
				t.Errorf("AddResource(%q, %d) error = %v, want code %s", tt.id, tt.total, err, tt.code)
			}
		})
	}
}

func TestAddProcessMaxClaim(t *testing.T) {
	sys := NewSystem()
	if err := sys.AddResource("R1", 3); err != nil {
		t.Fatalf("AddResource() error: %v", err)
	}

	// Explicit claim below the total is honored.
	if err := sys.AddProcess("P1", 1, map[string]int{"R1": 2}); err != nil {
		t.Fatalf("AddProcess() error: %v", err)
	}
	if _, err := sys.Request("P1", "R1", 3); !errors.Is(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("Request beyond claim error = %v, want INVALID_REQUEST", err)
	}
	mustRequest(t, sys, "P1", "R1", 2, true)

	// Omitted claims default to the resource total.
	if err := sys.AddProcess("P2", 2, nil); err != nil {
		t.Fatalf("AddProcess() error: %v", err)
	}
	mustRequest(t, sys, "P2", "R1", 1, true)

	// Claims above the total are rejected.
	err := sys.AddProcess("P3", 3, map[string]int{"R1": 4})
	if !errors.Is(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("AddProcess with oversized claim error = %v, want INVALID_REQUEST", err)
	}

	// Claims on unknown resources are rejected.
	err = sys.AddProcess("P4", 4, map[string]int{"R9": 1})
	if !errors.Is(err, errors.ErrCodeUnknownResource) {
		t.Errorf("AddProcess with unknown resource error = %v, want UNKNOWN_RESOURCE", err)
	}
}

func TestRequestGrantAndWait(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 1}, "P1", "P2")

	mustRequest(t, sys, "P1", "R1", 1, true)
	if got := processState(t, sys, "P1"); got != StateRunning {
		t.Errorf("P1 state = %v, want %v", got, StateRunning)
	}

	mustRequest(t, sys, "P2", "R1", 1, false)
	if got := processState(t, sys, "P2"); got != StateWaiting {
		t.Errorf("P2 state = %v, want %v", got, StateWaiting)
	}

	r, _ := sys.Snapshot().Resource("R1")
	if r.Available != 0 {
		t.Errorf("R1 available = %d, want 0", r.Available)
	}
	if len(r.WaitQueue) != 1 || r.WaitQueue[0].Process != "P2" {
		t.Errorf("R1 wait queue = %v, want [P2]", r.WaitQueue)
	}
}

func TestRequestRejectedBeforeMutation(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 1}, "P1")
	mustRequest(t, sys, "P1", "R1", 1, true)
	before := sys.Snapshot()

	tests := []struct {
		name  string
		pid   string
		rid   string
		count int
		code  errors.Code
	}{
		{name: "NonPositiveCount", pid: "P1", rid: "R1", count: 0, code: errors.ErrCodeInvalidRequest},
		{name: "UnknownProcess", pid: "P9", rid: "R1", count: 1, code: errors.ErrCodeUnknownProcess},
		{name: "UnknownResource", pid: "P1", rid: "R9", count: 1, code: errors.ErrCodeUnknownResource},
		{name: "ExceedsClaim", pid: "P1", rid: "R1", count: 1, code: errors.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sys.Request(tt.pid, tt.rid, tt.count)
			if !errors.Is(err, tt.code) {
				t.Fatalf("Request() error = %v, want code %s", err, tt.code)
			}
			if got := sys.Snapshot(); !snapshotsEqual(got, before) {
				t.Errorf("rejected request mutated the model")
			}
		})
	}
}

func TestReleaseWakesFIFO(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 2}, "P1", "P2", "P3")

	mustRequest(t, sys, "P1", "R1", 2, true)
	mustRequest(t, sys, "P2", "R1", 2, false)
	mustRequest(t, sys, "P3", "R1", 1, false)

	// One freed instance does not satisfy the head; P3 must not jump the queue.
	woken, err := sys.Release("P1", "R1", 1)
	if err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if len(woken) != 0 {
		t.Errorf("Release(1) woke %v, want none", woken)
	}
	if got := processState(t, sys, "P3"); got != StateWaiting {
		t.Errorf("P3 state = %v, want %v", got, StateWaiting)
	}

	// The second instance satisfies P2; its grant consumes all capacity so
	// P3 keeps waiting.
	woken, err = sys.Release("P1", "R1", 1)
	if err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if !slices.Equal(woken, []string{"P2"}) {
		t.Errorf("Release(1) woke %v, want [P2]", woken)
	}
	if got := processState(t, sys, "P3"); got != StateWaiting {
		t.Errorf("P3 state = %v, want %v", got, StateWaiting)
	}

	woken, err = sys.Release("P2", "R1", 2)
	if err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if !slices.Equal(woken, []string{"P3"}) {
		t.Errorf("Release(2) woke %v, want [P3]", woken)
	}

	if err := sys.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants() = %v", err)
	}
}

func TestReleaseRejected(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 2}, "P1")
	mustRequest(t, sys, "P1", "R1", 1, true)

	if _, err := sys.Release("P1", "R1", 2); !errors.Is(err, errors.ErrCodeInvalidRelease) {
		t.Errorf("Release beyond held error = %v, want INVALID_RELEASE", err)
	}
	if _, err := sys.Release("P1", "R1", 0); !errors.Is(err, errors.ErrCodeInvalidRelease) {
		t.Errorf("Release(0) error = %v, want INVALID_RELEASE", err)
	}

	p, _ := sys.Snapshot().Process("P1")
	if p.Held["R1"] != 1 {
		t.Errorf("P1 held R1 = %d, want 1 after rejected releases", p.Held["R1"])
	}
}

func TestTerminate(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 1, "R2": 1}, "P1", "P2")

	mustRequest(t, sys, "P1", "R1", 1, true)
	mustRequest(t, sys, "P2", "R2", 1, true)
	mustRequest(t, sys, "P1", "R2", 1, false)
	mustRequest(t, sys, "P2", "R1", 1, false)

	woken, err := sys.Terminate("P1")
	if err != nil {
		t.Fatalf("Terminate() error: %v", err)
	}
	if !slices.Equal(woken, []string{"P2"}) {
		t.Errorf("Terminate(P1) woke %v, want [P2]", woken)
	}

	p, _ := sys.Snapshot().Process("P1")
	if p.State != StateTerminated {
		t.Errorf("P1 state = %v, want %v", p.State, StateTerminated)
	}
	if len(p.Held) != 0 || len(p.Requested) != 0 {
		t.Errorf("P1 held=%v requested=%v, want both empty", p.Held, p.Requested)
	}

	// Terminated processes leave the lifecycle for good.
	if _, err := sys.Terminate("P1"); !errors.Is(err, errors.ErrCodeProcessTerminated) {
		t.Errorf("second Terminate error = %v, want PROCESS_TERMINATED", err)
	}
	if _, err := sys.Request("P1", "R1", 1); !errors.Is(err, errors.ErrCodeProcessTerminated) {
		t.Errorf("Request after Terminate error = %v, want PROCESS_TERMINATED", err)
	}

	if err := sys.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants() = %v", err)
	}
}

func TestPreempt(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 1}, "P1", "P2")

	mustRequest(t, sys, "P1", "R1", 1, true)
	mustRequest(t, sys, "P2", "R1", 1, false)

	woken, err := sys.Preempt("P1", "R1", 1)
	if err != nil {
		t.Fatalf("Preempt() error: %v", err)
	}
	if !slices.Equal(woken, []string{"P2"}) {
		t.Errorf("Preempt woke %v, want [P2]", woken)
	}

	// The preempted amount becomes a pending request at the queue tail.
	p1, _ := sys.Snapshot().Process("P1")
	if p1.State != StateWaiting {
		t.Errorf("P1 state = %v, want %v", p1.State, StateWaiting)
	}
	if p1.Requested["R1"] != 1 {
		t.Errorf("P1 pending R1 = %d, want 1", p1.Requested["R1"])
	}

	r, _ := sys.Snapshot().Resource("R1")
	if len(r.WaitQueue) != 1 || r.WaitQueue[0].Process != "P1" {
		t.Errorf("R1 wait queue = %v, want [P1]", r.WaitQueue)
	}

	if err := sys.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants() = %v", err)
	}
}

func TestPreemptRejected(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 1}, "P1")
	if _, err := sys.Preempt("P1", "R1", 1); !errors.Is(err, errors.ErrCodeInvalidRelease) {
		t.Errorf("Preempt of unheld resource error = %v, want INVALID_RELEASE", err)
	}
}

func TestCheckpointRollback(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 1, "R2": 1}, "P1", "P2")

	// Rollback without a checkpoint is rejected.
	if _, err := sys.Rollback("P1"); !errors.Is(err, errors.ErrCodeNoCheckpoint) {
		t.Errorf("Rollback without checkpoint error = %v, want NO_CHECKPOINT", err)
	}

	mustRequest(t, sys, "P1", "R1", 1, true)
	if err := sys.Checkpoint("P1"); err != nil {
		t.Fatalf("Checkpoint() error: %v", err)
	}

	mustRequest(t, sys, "P2", "R2", 1, true)
	mustRequest(t, sys, "P1", "R2", 1, false)
	mustRequest(t, sys, "P2", "R1", 1, false)

	// Rolling P1 back drops its pending request on R2 but keeps R1, which
	// it already held at checkpoint time.
	if _, err := sys.Rollback("P1"); err != nil {
		t.Fatalf("Rollback() error: %v", err)
	}

	p1, _ := sys.Snapshot().Process("P1")
	if p1.State != StateRolledBack {
		t.Errorf("P1 state = %v, want %v", p1.State, StateRolledBack)
	}
	if p1.Held["R1"] != 1 {
		t.Errorf("P1 held R1 = %d, want 1", p1.Held["R1"])
	}
	if len(p1.Requested) != 0 {
		t.Errorf("P1 requested = %v, want empty", p1.Requested)
	}

	r2, _ := sys.Snapshot().Resource("R2")
	if len(r2.WaitQueue) != 0 {
		t.Errorf("R2 wait queue = %v, want empty after rollback", r2.WaitQueue)
	}

	// Issuing a new request puts the process back into the normal lifecycle.
	mustRequest(t, sys, "P1", "R2", 1, false)
	if got := processState(t, sys, "P1"); got != StateWaiting {
		t.Errorf("P1 state after new request = %v, want %v", got, StateWaiting)
	}

	if err := sys.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants() = %v", err)
	}
}

func TestRollbackReleasesExcess(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 2}, "P1", "P2")

	mustRequest(t, sys, "P1", "R1", 1, true)
	if err := sys.Checkpoint("P1"); err != nil {
		t.Fatalf("Checkpoint() error: %v", err)
	}
	mustRequest(t, sys, "P1", "R1", 1, true)
	mustRequest(t, sys, "P2", "R1", 1, false)

	// The instance acquired after the checkpoint is released and wakes P2.
	woken, err := sys.Rollback("P1")
	if err != nil {
		t.Fatalf("Rollback() error: %v", err)
	}
	if !slices.Equal(woken, []string{"P2"}) {
		t.Errorf("Rollback woke %v, want [P2]", woken)
	}

	p1, _ := sys.Snapshot().Process("P1")
	if p1.Held["R1"] != 1 {
		t.Errorf("P1 held R1 = %d, want 1", p1.Held["R1"])
	}

	if err := sys.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants() = %v", err)
	}
}

func snapshotsEqual(a, b Snapshot) bool {
	if len(a.Processes) != len(b.Processes) || len(a.Resources) != len(b.Resources) || len(a.Edges) != len(b.Edges) {
		return false
	}
	for i := range a.Processes {
		pa, pb := a.Processes[i], b.Processes[i]
		if pa.ID != pb.ID || pa.State != pb.State ||
			!mapsEqual(pa.Held, pb.Held) || !mapsEqual(pa.Requested, pb.Requested) {
			return false
		}
	}
	for i := range a.Resources {
		ra, rb := a.Resources[i], b.Resources[i]
		if ra.ID != rb.ID || ra.Available != rb.Available ||
			!mapsEqual(ra.Allocation, rb.Allocation) || !slices.Equal(ra.WaitQueue, rb.WaitQueue) {
			return false
		}
	}
	return slices.Equal(a.Edges, b.Edges)
}

func mapsEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
