// Package status reports what the state file says is installed, whether those
// files are still on disk with the recorded content and, optionally, what an
// update would do right now.
package status
