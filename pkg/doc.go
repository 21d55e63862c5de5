// Package pkg provides the core libraries for Gridlock deadlock simulation.
//
// # Overview
//
// Gridlock models resource allocation among cooperating processes as a
// discrete-event simulation, detects deadlocks with two independent
// algorithms, and resolves them with pluggable strategies. The pkg directory
// is organized into five main areas:
//
//  1. [sim] - The allocation model (processes, resources, wait queues)
//  2. [detect] - Deadlock detection (graph reduction + Banker's safety check)
//  3. [resolve] - Deadlock resolution (termination, preemption, rollback)
//  4. [scenario] - Reproducible workloads (TOML files + built-in catalog)
//  5. [pipeline] - Orchestration (replay, detect, resolve)
//
// # Architecture
//
// The typical data flow through Gridlock:
//
//	Scenario (TOML or built-in)
//	         ↓
//	    [sim] package (apply request/release/checkpoint events)
//	         ↓
//	    [sim.Snapshot] (immutable view with derived graph edges)
//	         ↓
//	    [detect] package (reduction knot + safety check, reconciled)
//	         ↓
//	    [resolve] package (one action per iteration until clear)
//
// # Quick Start
//
// Replay a built-in scenario with automatic resolution:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/gridlock/pkg/pipeline"
//	    "github.com/matzehuels/gridlock/pkg/resolve"
//	    "github.com/matzehuels/gridlock/pkg/scenario"
//	)
//
//	runner := pipeline.NewRunner(nil)
//	result, err := runner.Execute(context.Background(), pipeline.Options{
//	    Scenario: scenario.Simple(),
//	    Resolve:  true,
//	    Strategy: resolve.StrategyTermination,
//	})
//
// Or drive the model directly:
//
//	sys := sim.NewSystem()
//	sys.AddResource("R1", 1)
//	sys.AddProcess("P1", 1, nil)
//	granted, _ := sys.Request("P1", "R1", 1)
//	report := detect.Detect(sys.Snapshot())
//
// # Main Packages
//
// [sim] - The single-threaded allocation model. Multi-instance resources
// with FIFO wait queues, process lifecycle (running, waiting, terminated,
// rolled back), checkpoints, and invariant checking. Snapshots derive the
// resource-allocation graph on demand; edges are never stored.
//
// [detect] - Two detection algorithms over snapshots. Graph reduction finds
// the knot of irreducible processes; the Banker's safety check finds states
// that cannot run to completion under worst-case claims. [detect.Detect]
// reconciles both and flags disagreement instead of guessing.
//
// [resolve] - Strategies for breaking a confirmed deadlock, applied one
// victim at a time with re-detection between actions and an explicit
// failure when the deadlocked set stops shrinking.
//
// [scenario] - Workload definitions: declared resources and processes plus
// an ordered event script. Loadable from TOML or taken from the built-in
// catalog (simple, dining-5, chain, no-deadlock).
//
// [pipeline] - The replay/detect/resolve loop shared by the CLI and
// library consumers, with run statistics and per-step reports.
//
// [errors] - Structured errors with machine-readable codes shared by every
// layer.
//
// [observability] - Hook interfaces for instrumenting model mutations,
// detection passes, and resolution runs without backend dependencies.
//
// [buildinfo] - Build-time version information set via ldflags.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/detect/...   # Specific package
//
// [sim]: https://pkg.go.dev/github.com/matzehuels/gridlock/pkg/sim
// [sim.Snapshot]: https://pkg.go.dev/github.com/matzehuels/gridlock/pkg/sim#Snapshot
// [detect]: https://pkg.go.dev/github.com/matzehuels/gridlock/pkg/detect
// [detect.Detect]: https://pkg.go.dev/github.com/matzehuels/gridlock/pkg/detect#Detect
// [resolve]: https://pkg.go.dev/github.com/matzehuels/gridlock/pkg/resolve
// [scenario]: https://pkg.go.dev/github.com/matzehuels/gridlock/pkg/scenario
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/gridlock/pkg/pipeline
// [errors]: https://pkg.go.dev/github.com/matzehuels/gridlock/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/gridlock/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/gridlock/pkg/buildinfo
package pkg
