// Package lock serializes mutating commands on one installation root
// with an exclusive lock file. A lock left behind by a dead process is
// detected and taken over.
package lock
