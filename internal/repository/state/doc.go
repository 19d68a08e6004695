// Package state persists the installed-state record of an installation root.
//
// The FileRepository stores the record as TOML (state.toml) next to the
// configuration. Writes go to a temporary file in the same directory which is
// then renamed over the previous record, so a crash never leaves a truncated
// state file behind.
package state
