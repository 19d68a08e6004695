// Package config loads, validates and templates the mcsm.toml configuration.
//
// Load performs a single fallible decode-and-validate step: every recognized
// field is enumerated, defaults are applied, environment overrides (MCSM_*)
// are merged and all problems are returned together as a ValidationError.
// Non-fatal findings are returned as Diagnostics instead of being logged from
// package state. The installation root is always the directory containing the
// configuration file.
//
// The template helpers render the commented configuration written by `init`
// and patch mc_version and server.type in place without losing comments.
package config
