// Package install contains the core domain types of an installation:
// resolved plans (what upstream currently offers), the persisted State (what
// was actually installed), per-artifact update decisions and the closed set of
// error kinds shared by every layer.
package install
