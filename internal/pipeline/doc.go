// Package pipeline runs the split and trim stages over their unit pools.
//
// A run holds an advisory file lock for its whole duration, opens a ledger
// run, and for each stage discovers units and processes them on a bounded
// worker pool. Every unit gets its own timeout; a failed or timed-out unit is
// recorded and the run moves on. Only process-level problems (the lock, the
// ledger, discovery, preflight) abort a run.
package pipeline
