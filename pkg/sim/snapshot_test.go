package sim

import (
	"slices"
	"testing"
)

func TestSnapshotDerivedEdges(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 1, "R2": 1}, "P1", "P2")

	mustRequest(t, sys, "P1", "R1", 1, true)
	mustRequest(t, sys, "P2", "R2", 1, true)
	mustRequest(t, sys, "P1", "R2", 1, false)
	mustRequest(t, sys, "P2", "R1", 1, false)

	snap := sys.Snapshot()

	want := []Edge{
		{Kind: EdgeAssignment, From: "R1", To: "P1", Weight: 1},
		{Kind: EdgeAssignment, From: "R2", To: "P2", Weight: 1},
		{Kind: EdgeRequest, From: "P1", To: "R2", Weight: 1},
		{Kind: EdgeRequest, From: "P2", To: "R1", Weight: 1},
	}
	if !slices.Equal(snap.Edges, want) {
		t.Errorf("Edges = %v, want %v", snap.Edges, want)
	}
}

func TestSnapshotDeterministic(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 2, "R2": 1}, "P1", "P2", "P3")

	mustRequest(t, sys, "P2", "R1", 1, true)
	mustRequest(t, sys, "P1", "R1", 1, true)
	mustRequest(t, sys, "P3", "R2", 1, true)
	mustRequest(t, sys, "P1", "R2", 1, false)

	a := sys.Snapshot()
	b := sys.Snapshot()
	if !snapshotsEqual(a, b) {
		t.Errorf("consecutive snapshots differ:\n%v\n%v", a, b)
	}

	wantPIDs := []string{"P1", "P2", "P3"}
	for i, p := range a.Processes {
		if p.ID != wantPIDs[i] {
			t.Errorf("Processes[%d].ID = %s, want %s", i, p.ID, wantPIDs[i])
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 2}, "P1")
	mustRequest(t, sys, "P1", "R1", 1, true)

	snap := sys.Snapshot()
	snap.Processes[0].Held["R1"] = 99
	snap.Resources[0].Allocation["P1"] = 99

	fresh := sys.Snapshot()
	if fresh.Processes[0].Held["R1"] != 1 {
		t.Errorf("mutating a snapshot leaked into the model: held = %d, want 1", fresh.Processes[0].Held["R1"])
	}
	if fresh.Resources[0].Allocation["P1"] != 1 {
		t.Errorf("mutating a snapshot leaked into the model: allocation = %d, want 1", fresh.Resources[0].Allocation["P1"])
	}
}

func TestSnapshotActive(t *testing.T) {
	sys := newTestSystem(t, map[string]int{"R1": 1}, "P1", "P2")
	mustRequest(t, sys, "P1", "R1", 1, true)
	if _, err := sys.Terminate("P1"); err != nil {
		t.Fatalf("Terminate() error: %v", err)
	}

	active := sys.Snapshot().Active()
	if len(active) != 1 || active[0].ID != "P2" {
		t.Errorf("Active() = %v, want [P2]", active)
	}
}

func TestProcessStateString(t *testing.T) {
	tests := []struct {
		state ProcessState
		want  string
	}{
		{StateRunning, "running"},
		{StateWaiting, "waiting"},
		{StateTerminated, "terminated"},
		{StateRolledBack, "rolledback"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
