package version

import (
	"fmt"
	"runtime"
)

const product = "mcsm"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0-dev"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Product returns "mcsm/<version>", the product token of user agents and logs.
func Product() string {
	return product + "/" + Version
}

// Full returns the product token with commit, build time and the Go target platform.
func Full() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s/%s)", Product(), Commit, BuildTime, runtime.GOOS, runtime.GOARCH)
}
