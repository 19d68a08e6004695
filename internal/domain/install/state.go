package install

import "maps"

// StateSchema is the schema version written to state files.
const StateSchema = 2

// State is the persisted record of what was actually installed.
type State struct {
	// Schema is the state file format version.
	Schema int `toml:"schema" yaml:"schema" json:"schema"`
	// LastChecked is when an apply last completed against this root.
	LastChecked Timestamp `toml:"last_checked" yaml:"last_checked" json:"last_checked"`
	// Installed holds the per-artifact records.
	Installed Installed `toml:"installed" yaml:"installed" json:"installed"`
}

// Installed groups the server record and the target records.
type Installed struct {
	Server  *ServerRecord            `toml:"server,omitempty" yaml:"server,omitempty" json:"server,omitempty"`
	Targets map[string]*TargetRecord `toml:"targets,omitempty" yaml:"targets,omitempty" json:"targets,omitempty"`
}

// ServerRecord describes the installed server runtime.
type ServerRecord struct {
	// Type is the platform identifier.
	Type string `toml:"type" yaml:"type" json:"type"`
	// GameVersion is the game version of the build.
	GameVersion string `toml:"mc_version" yaml:"mc_version" json:"mc_version"`
	// Label is the identity key ("<game_version>-<build>").
	Label string `toml:"server_version" yaml:"server_version" json:"server_version"`
	// URL is the source the build was downloaded from.
	URL string `toml:"url" yaml:"url" json:"url"`
	// Jar is the canonical jar path relative to the root.
	Jar string `toml:"jar" yaml:"jar" json:"jar"`
	// VersionedJar is the version-qualified file Jar points at, if any.
	VersionedJar string `toml:"versioned_jar,omitempty" yaml:"versioned_jar,omitempty" json:"versioned_jar,omitempty"`
	// SHA256 is the hex content hash of the bytes behind Jar.
	SHA256 string `toml:"sha256" yaml:"sha256" json:"sha256"`
	// InstalledAt is when the build was downloaded.
	InstalledAt Timestamp `toml:"installed_at" yaml:"installed_at" json:"installed_at"`
}

// TargetRecord describes one installed plugin target.
type TargetRecord struct {
	Type        string    `toml:"type" yaml:"type" json:"type"`
	ResolvedID  string    `toml:"resolved_id,omitempty" yaml:"resolved_id,omitempty" json:"resolved_id,omitempty"`
	Resolved    string    `toml:"resolved_version" yaml:"resolved_version" json:"resolved_version"`
	URL         string    `toml:"url" yaml:"url" json:"url"`
	Out         string    `toml:"out" yaml:"out" json:"out"`
	SHA256      string    `toml:"sha256" yaml:"sha256" json:"sha256"`
	InstalledAt Timestamp `toml:"installed_at" yaml:"installed_at" json:"installed_at"`
}

// Identity returns the recorded identity key, mirroring TargetPlan.Identity.
func (r *TargetRecord) Identity() string {
	return identity(r.ResolvedID, r.Resolved)
}

// NewState returns an empty state of the current schema.
func NewState() *State {
	return &State{
		Schema: StateSchema,
		Installed: Installed{
			Targets: make(map[string]*TargetRecord),
		},
	}
}

// Target returns the record of the named target, or nil.
func (s *State) Target(name string) *TargetRecord {
	if s == nil || s.Installed.Targets == nil {
		return nil
	}

	return s.Installed.Targets[name]
}

// SetTarget stores a target record, allocating the map when needed.
func (s *State) SetTarget(name string, record *TargetRecord) {
	if s.Installed.Targets == nil {
		s.Installed.Targets = make(map[string]*TargetRecord)
	}

	s.Installed.Targets[name] = record
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	cloned := &State{
		Schema:      s.Schema,
		LastChecked: s.LastChecked,
	}

	if s.Installed.Server != nil {
		server := *s.Installed.Server
		cloned.Installed.Server = &server
	}

	if s.Installed.Targets != nil {
		cloned.Installed.Targets = make(map[string]*TargetRecord, len(s.Installed.Targets))
		for name, record := range maps.All(s.Installed.Targets) {
			if record == nil {
				continue
			}

			r := *record
			cloned.Installed.Targets[name] = &r
		}
	}

	return cloned
}
