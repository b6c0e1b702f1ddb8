// Package services defines shared utilities consumed by the split and trim
// stages and the pipeline runner.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and unit names for
//     logging and the run ledger.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the unit-scoped failure kinds recorded for each unit (format,
//     decode, extraction, timeout).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
