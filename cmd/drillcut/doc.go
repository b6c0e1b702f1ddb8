// Package main hosts the drillcut CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the split and trim
// stages, the run ledger, deck conversion, and configuration scaffolding.
// Configuration loading, logger construction, and ledger access are
// centralized in commandContext so subcommands only render results.
//
// New behavior belongs in the internal packages first; commands here stay
// thin wrappers around them.
package main
