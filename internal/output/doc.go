// Package output renders command reports as tables, JSON or YAML and prints
// the colored status lines used by the CLI.
package output
