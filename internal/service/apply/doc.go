// Package apply runs the install and update commands: it loads the
// configuration, takes the root lock, builds the plan, decides what changed,
// backs up and installs the changed artifacts and finally records the result
// in the state file.
//
// Every resolver call happens before the first backup. Any failure aborts the
// whole apply and leaves the previous state file untouched.
package apply
