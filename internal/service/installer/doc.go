// Package installer downloads resolved artifacts and places them at their
// destinations with checksum verification, producing the state records that
// describe what ended up on disk.
package installer
