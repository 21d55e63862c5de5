// Package sim models resource contention among cooperating processes.
//
// # Overview
//
// The package provides the authoritative mutable state of the simulation:
// a [System] holds flat, id-indexed registries of processes and resources,
// and every mutation goes through System operations that preserve the
// allocation invariants. The resource-allocation graph is never stored as
// an independent structure - assignment and request edges are derived on
// demand from the held and requested maps when a [Snapshot] is taken.
//
// # Basic Usage
//
// Create a system, register resources before the processes that claim them,
// then drive it with requests and releases:
//
//	sys := sim.NewSystem()
//	sys.AddResource("R1", 1)
//	sys.AddResource("R2", 1)
//	sys.AddProcess("P1", 1, map[string]int{"R1": 1, "R2": 1})
//	granted, _ := sys.Request("P1", "R1", 1)
//
// A request that cannot be granted immediately is recorded as pending, the
// process is enqueued on the resource's FIFO wait queue, and the process
// transitions to [StateWaiting]. Releasing instances wakes waiters in FIFO
// order while capacity suffices.
//
// # Invariants
//
// After every public operation:
//
//   - available + sum of the allocation map equals the total instance count
//     for every resource
//   - a process's held map equals the weights of its assignment edges
//   - pending requests are positive and never exceed max claim minus held
//   - no resource has a negative available count
//
// Operations are atomic: a precondition violation is rejected before any
// state changes. [System.CheckInvariants] verifies the full set at any point.
//
// # Concurrency
//
// The simulation is a deterministic, single-threaded discrete-event model.
// "Waiting" is a state flag on a process record, not a suspended goroutine.
// System is not safe for concurrent use; ownership belongs to the driving
// loop, which hands out read-only snapshots to detector and consumers.
package sim
