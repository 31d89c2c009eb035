// Package executor schedules a validated task graph and fuses the evidence
// its tasks produce.
//
// Tasks move pending -> ready -> running -> done or failed. A failed
// dependency skips its dependents instead of aborting the run, and every
// ready task in a scheduling step runs concurrently. The synthesizer is
// invoked even when all tasks fail, so callers always receive an explicit
// result rather than an error escaping the graph boundary.
package executor
