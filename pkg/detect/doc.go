// Package detect implements deadlock detection over allocation snapshots.
//
// # Overview
//
// Two independent algorithms run on every detection pass:
//
//   - Graph reduction: repeatedly reduce any process whose outstanding
//     requests fit into the currently available instances, hypothetically
//     returning its held instances to the pool. Whatever cannot be reduced
//     is the knot - the deadlocked set under this algorithm.
//   - Banker's safety check: using available, allocation, and max-claim
//     vectors, search for an order in which every process can run to its
//     maximum claim and complete. Processes left unfinished are unsafe and
//     potentially deadlocked.
//
// [Detect] runs both and reconciles them. The algorithms agree in the
// common cases; when their sets differ, the report carries a disagreement
// flag and both raw sets, and no deadlock is asserted - the consumer
// decides how to react.
//
// Detection is pure: it never mutates the snapshot or the system it was
// taken from, and running it twice on the same snapshot yields identical
// reports.
//
// # Usage
//
//	report := detect.Detect(sys.Snapshot())
//	if len(report.Deadlocked) > 0 {
//	    // confirmed deadlock, hand to the resolver
//	}
package detect
