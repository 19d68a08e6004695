// Package version exposes build metadata for mcsm.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags and
// default to sensible values for local builds. Full is printed by the `version`
// subcommand and logged at debug level when a command starts.
package version
