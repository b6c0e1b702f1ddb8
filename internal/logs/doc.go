// Package logs reads the per-day log files written by internal/logging.
//
// It locates the newest day file, returns the last N lines with bounded
// memory, and follows a file from an offset until the context ends. Lines
// can be narrowed to one run by matching its run ID.
package logs
