// Package ledger records every pipeline run and the outcome of each unit it
// processed in SQLite.
//
// A run is opened with BeginRun, receives one RecordUnit call per recording
// or clip, and is closed by FinishRun, which folds the unit outcomes into the
// run's counters. The CLI history and status commands read from the same
// store. Schema changes bump the version in schema.go; users delete the
// ledger database to adopt a new schema.
package ledger
