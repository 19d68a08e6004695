// Package backup relocates files that are about to be overwritten into
// <root>/.bak/<backup-id>/, mirroring their path relative to the root.
//
// All moves of one apply share a backup id. Each move is an independent
// filesystem operation; there is no multi-file transaction and backups are
// never pruned.
package backup
