package reconcile

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

// Input is everything the decision engine looks at.
type Input struct {
	Mode  install.Mode
	Plan  *install.Plan
	State *install.State
	// Root is the installation root the plan's relative paths resolve against.
	Root string
	// JarOut is the configured canonical server jar, relative to Root.
	JarOut string
}

// Decide returns one decision per planned artifact.
// Update mode requires a state; each artifact is decided independently.
func Decide(in Input) (*install.Decisions, error) {
	if in.Mode == install.ModeUpdate && in.State == nil {
		return nil, install.NewError(install.KindState, "decide updates", install.ErrStateMissing)
	}

	decisions := &install.Decisions{
		Targets: make([]install.Decision, 0, len(in.Plan.Targets)),
	}

	var serverRecord *install.ServerRecord
	if in.State != nil {
		serverRecord = in.State.Installed.Server
	}

	serverDecision := install.Decision{
		Artifact: install.ServerArtifact,
		Latest:   in.Plan.Server.Label,
	}

	if serverRecord != nil {
		serverDecision.Current = serverRecord.Label
	}

	serverDecision.NeedsUpdate, serverDecision.Reason = decide(
		in.Mode, serverRecord != nil, serverDecision.Current, serverDecision.Latest, filepath.Join(in.Root, filepath.FromSlash(in.JarOut)))
	decisions.Server = serverDecision

	for i := range in.Plan.Targets {
		target := &in.Plan.Targets[i]
		record := in.State.Target(target.Name)

		decision := install.Decision{
			Artifact: target.Name,
			Latest:   target.Identity(),
		}

		if record != nil {
			decision.Current = record.Identity()
		}

		decision.NeedsUpdate, decision.Reason = decide(
			in.Mode, record != nil, decision.Current, decision.Latest, filepath.Join(in.Root, filepath.FromSlash(target.Out)))
		decisions.Targets = append(decisions.Targets, decision)
	}

	return decisions, nil
}

func decide(mode install.Mode, hasRecord bool, current, latest, path string) (bool, install.Reason) {
	switch {
	case mode == install.ModeInstall:
		return true, install.ReasonInstall
	case !hasRecord:
		return true, install.ReasonNoRecord
	case current != latest:
		return true, install.ReasonIdentityChanged
	case !exists(path):
		return true, install.ReasonFileMissing
	default:
		return false, install.ReasonUpToDate
	}
}

// exists follows symlinks, so a dangling canonical jar link counts as missing.
func exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil || !errors.Is(err, os.ErrNotExist)
}
