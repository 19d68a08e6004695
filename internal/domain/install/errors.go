package install

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can tell fallback-eligible conditions from fatal ones.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	// KindConfig covers missing or invalid configuration; raised before any I/O.
	KindConfig
	// KindResolution covers empty or malformed upstream responses.
	KindResolution
	// KindNetwork covers timeouts, connection failures and bad HTTP statuses.
	KindNetwork
	// KindFilesystem covers local file operations.
	KindFilesystem
	// KindState covers a missing or unreadable state file.
	KindState
	// KindSymlinkUnsupported marks a failed symlink that may fall back to a copy.
	KindSymlinkUnsupported
	// KindLocked reports another apply holding the installation root.
	KindLocked
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindConfig:             "config",
	KindResolution:         "resolution",
	KindNetwork:            "network",
	KindFilesystem:         "filesystem",
	KindState:              "state",
	KindSymlinkUnsupported: "symlink-unsupported",
	KindLocked:             "locked",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return kindNames[KindUnknown]
}

// ErrStateMissing is returned by update when no state exists yet.
var ErrStateMissing = errors.New("no installation state found, run `mcsm install <platform> <mc_version>` first")

// Error is a classified failure of one operation, optionally scoped to a target.
type Error struct {
	Kind   Kind
	Op     string
	Target string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: target %q: %v", e.Op, e.Target, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewTargetError builds a classified error scoped to a target.
func NewTargetError(kind Kind, op, target string, err error) *Error {
	return &Error{Kind: kind, Op: op, Target: target, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}

	if errors.Is(err, ErrStateMissing) {
		return KindState
	}

	return KindUnknown
}
