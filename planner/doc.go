// Package planner turns a user query into a validated research plan.
//
// The classification call goes to an external text-completion service whose
// output is untrusted data: it is parsed, filtered against the known agent
// set, normalized, and checked for cycles before a TaskGraph is constructed.
// Every failure path degrades to a safe default plan, so callers always
// receive a structurally valid, non-empty, acyclic decision.
package planner
