package install

// Mode selects how the decision engine treats prior state.
type Mode int

const (
	// ModeInstall installs every requested artifact unconditionally.
	ModeInstall Mode = iota
	// ModeUpdate compares the plan against the persisted state.
	ModeUpdate
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModeUpdate {
		return "update"
	}

	return "install"
}

// Reason explains a decision.
type Reason string

// Decision reasons.
const (
	ReasonInstall         Reason = "install"
	ReasonNoRecord        Reason = "no record"
	ReasonIdentityChanged Reason = "identity changed"
	ReasonFileMissing     Reason = "file missing"
	ReasonUpToDate        Reason = "up to date"
)

// Decision is the update verdict for one artifact.
type Decision struct {
	// Artifact is ServerArtifact or a target name.
	Artifact string
	// NeedsUpdate tells whether the artifact is backed up and downloaded.
	NeedsUpdate bool
	// Reason explains the verdict.
	Reason Reason
	// Current is the recorded identity, empty without a record.
	Current string
	// Latest is the resolved identity.
	Latest string
}

// Decisions holds one decision per planned artifact, targets in plan order.
type Decisions struct {
	Server  Decision
	Targets []Decision
}

// Target returns the decision for the named target.
func (d *Decisions) Target(name string) (Decision, bool) {
	for _, decision := range d.Targets {
		if decision.Artifact == name {
			return decision, true
		}
	}

	return Decision{}, false
}

// Pending counts artifacts that need an update.
func (d *Decisions) Pending() int {
	count := 0
	if d.Server.NeedsUpdate {
		count++
	}

	for _, decision := range d.Targets {
		if decision.NeedsUpdate {
			count++
		}
	}

	return count
}
