// Package preflight provides readiness checks for the external binaries and
// filesystem paths that drillcut depends on.
//
// These checks run in two contexts:
//   - The pipeline runner calls RunAll before a run. If any check fails the
//     run stops before touching a single recording.
//   - The CLI "drillcut status" command displays the same results as a table.
package preflight
