package install

import (
	"regexp"
	"strings"
)

// Supported server platforms.
const (
	PlatformPurpur = "purpur"
	PlatformPaper  = "paper"
)

// Supported target types.
const (
	// TargetModrinth is a plugin hosted on the general plugin registry.
	TargetModrinth = "modrinth"
	// TargetGeyser is one half of the Geyser/Floodgate companion pair.
	TargetGeyser = "geyser"
)

// Labels used when an upstream cannot name a version.
const (
	LabelNotFound = "(not found)"
	LabelUnknown  = "(unknown)"
)

// ServerArtifact is the artifact name used for the server runtime in decisions and logs.
const ServerArtifact = "server"

var (
	unsafeNameChars = regexp.MustCompile(`[^a-z0-9._-]+`)
	repeatedDashes  = regexp.MustCompile(`-{2,}`)
)

// ServerPlan is the freshly resolved server runtime. It is never persisted.
type ServerPlan struct {
	// Platform is the runtime type (purpur or paper).
	Platform string
	// GameVersion is the locked game version the build belongs to.
	GameVersion string
	// Label is "<game_version>-<build>" and is the identity key of the server.
	Label string
	// URL is where the build is downloaded from.
	URL string
}

// TargetPlan is the freshly resolved state of one configured plugin target.
type TargetPlan struct {
	// Name is the unique key of the target in the configuration.
	Name string
	// Type is the target type (modrinth or geyser).
	Type string
	// ID is the stable upstream version id, empty when the upstream has none.
	ID string
	// Label is the human-readable version.
	Label string
	// URL is the download location, empty when nothing matched.
	URL string
	// Out is the output path relative to the installation root.
	Out string
}

// Identity returns the key compared against State: the stable id when present, else the label.
func (p *TargetPlan) Identity() string {
	return identity(p.ID, p.Label)
}

// Plan is the complete resolution result of one invocation.
type Plan struct {
	Server  ServerPlan
	Targets []TargetPlan
}

// Target returns the plan of the named target.
func (p *Plan) Target(name string) (*TargetPlan, bool) {
	for i := range p.Targets {
		if p.Targets[i].Name == name {
			return &p.Targets[i], true
		}
	}

	return nil, false
}

// SafeName lowercases s and reduces it to [a-z0-9._-], falling back to "mcserver".
func SafeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = unsafeNameChars.ReplaceAllString(s, "-")
	s = strings.Trim(repeatedDashes.ReplaceAllString(s, "-"), "-")

	if s == "" {
		return "mcserver"
	}

	return s
}

// VersionedJarName returns the filesystem-safe file name that keeps one server build.
func VersionedJarName(platform, label string) string {
	return SafeName(platform+"-"+label) + ".jar"
}

func identity(id, label string) string {
	if id != "" {
		return id
	}

	return label
}
