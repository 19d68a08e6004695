// Package listing implements the read-only list command: the latest server
// build and the latest version of every target for a platform and game version.
package listing
