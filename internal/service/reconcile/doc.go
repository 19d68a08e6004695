// Package reconcile decides, per artifact, whether a freshly resolved plan
// requires a download by comparing it with the persisted state and the files
// present under the installation root.
package reconcile
