// Package config loads, normalizes, and validates drillcut configuration data.
//
// It supplies repository defaults for every threshold the splitter and
// trimmer rely on, expands user paths (including tilde shortcuts), resolves
// relative output directories against the source directory, and reads TOML
// files. The Config type centralizes every knob the CLI and pipeline need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
