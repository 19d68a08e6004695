package status

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
	"github.com/oshokin/mcserver-manager/internal/output"
	"github.com/oshokin/mcserver-manager/internal/repository/state"
	"github.com/oshokin/mcserver-manager/internal/service/installer"
	"github.com/oshokin/mcserver-manager/internal/service/planner"
	"github.com/oshokin/mcserver-manager/internal/service/reconcile"
	"github.com/oshokin/mcserver-manager/internal/upstream"
)

// Options controls one status run.
type Options struct {
	ConfigPath string
	// Check resolves a fresh plan and shows the update decisions.
	Check         bool
	Endpoints     *upstream.Endpoints
	ClientOptions []upstream.Option
}

// Report is the status of one installation root.
type Report struct {
	Root        string        `json:"root" yaml:"root"`
	StatePath   string        `json:"state_path" yaml:"state_path"`
	LastChecked string        `json:"last_checked,omitempty" yaml:"last_checked,omitempty"`
	Checked     bool          `json:"checked" yaml:"checked"`
	Pending     int           `json:"pending" yaml:"pending"`
	Artifacts   []ArtifactRow `json:"artifacts" yaml:"artifacts"`
}

// ArtifactRow is one recorded artifact.
type ArtifactRow struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Version     string `json:"version" yaml:"version"`
	Path        string `json:"path" yaml:"path"`
	Exists      bool   `json:"exists" yaml:"exists"`
	HashMatches bool   `json:"hash_matches" yaml:"hash_matches"`
	Latest      string `json:"latest,omitempty" yaml:"latest,omitempty"`
	NeedsUpdate bool   `json:"needs_update,omitempty" yaml:"needs_update,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Run builds the status report. A missing state file is a KindState error.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	ctx = logger.WithName(ctx, "mcsm-status")

	cfg, diags, err := config.Read(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	repository := state.ForRoot(cfg.Root)

	current, err := repository.Load(ctx)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, install.NewError(install.KindState, "load state", install.ErrStateMissing)
		}

		return nil, err
	}

	report := &Report{
		Root:      cfg.Root,
		StatePath: repository.Path(),
		Artifacts: inspect(cfg, current),
	}

	if !current.LastChecked.IsZero() {
		report.LastChecked = current.LastChecked.Format(time.RFC3339)
	}

	if !opts.Check {
		return report, nil
	}

	if err = cfg.Validate(&diags); err != nil {
		return nil, install.NewError(install.KindConfig, "validate config", err)
	}

	endpoints := upstream.DefaultEndpoints()
	if opts.Endpoints != nil {
		endpoints = *opts.Endpoints
	}

	client := upstream.ClientForConfig(cfg, opts.ClientOptions...)

	plan, err := planner.Build(ctx, upstream.NewResolver(client, endpoints), cfg)
	if err != nil {
		return nil, err
	}

	decisions, err := reconcile.Decide(reconcile.Input{
		Mode:   install.ModeUpdate,
		Plan:   plan,
		State:  current,
		Root:   cfg.Root,
		JarOut: cfg.Server.JarOut,
	})
	if err != nil {
		return nil, err
	}

	report.Checked = true
	report.Pending = decisions.Pending()
	report.merge(decisions)

	return report, nil
}

// inspect turns state records into rows, server first and targets by name.
func inspect(cfg *config.Config, current *install.State) []ArtifactRow {
	rows := make([]ArtifactRow, 0, len(current.Installed.Targets)+1)

	if server := current.Installed.Server; server != nil {
		jar := server.Jar
		if jar == "" {
			jar = cfg.Server.JarOut
		}

		rows = append(rows, row(cfg, install.ServerArtifact, server.Type, server.Label, jar, server.SHA256))
	}

	names := make([]string, 0, len(current.Installed.Targets))
	for name := range current.Installed.Targets {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		target := current.Installed.Targets[name]
		rows = append(rows, row(cfg, name, target.Type, target.Resolved, target.Out, target.SHA256))
	}

	return rows
}

func row(cfg *config.Config, name, artifactType, version, rel, sum string) ArtifactRow {
	result := ArtifactRow{
		Name:    name,
		Type:    artifactType,
		Version: version,
		Path:    rel,
	}

	path := cfg.Abs(rel)
	if _, err := os.Stat(path); err != nil {
		return result
	}

	result.Exists = true

	if actual, err := installer.FileSHA256(path); err == nil {
		result.HashMatches = actual == sum
	}

	return result
}

// merge annotates rows with fresh decisions and appends planned artifacts that have no record.
func (r *Report) merge(decisions *install.Decisions) {
	all := append([]install.Decision{decisions.Server}, decisions.Targets...)

	for _, decision := range all {
		index := -1

		for i := range r.Artifacts {
			if r.Artifacts[i].Name == decision.Artifact {
				index = i
				break
			}
		}

		if index < 0 {
			r.Artifacts = append(r.Artifacts, ArtifactRow{Name: decision.Artifact, Version: "-"})
			index = len(r.Artifacts) - 1
		}

		r.Artifacts[index].Latest = decision.Latest
		r.Artifacts[index].NeedsUpdate = decision.NeedsUpdate
		r.Artifacts[index].Reason = string(decision.Reason)
	}
}

// Sections implements output.Report.
func (r *Report) Sections() []output.Section {
	header := []string{"ARTIFACT", "TYPE", "VERSION", "PATH", "EXISTS", "HASH OK"}
	if r.Checked {
		header = append(header, "LATEST", "ACTION")
	}

	rows := make([][]string, 0, len(r.Artifacts))

	for _, artifact := range r.Artifacts {
		cells := []string{
			artifact.Name,
			artifact.Type,
			artifact.Version,
			artifact.Path,
			output.Check(artifact.Exists),
			output.Check(artifact.HashMatches),
		}

		if r.Checked {
			action := "-"
			if artifact.Latest != "" {
				action = output.Marker(artifact.NeedsUpdate, artifact.Reason)
			}

			cells = append(cells, artifact.Latest, action)
		}

		rows = append(rows, cells)
	}

	return []output.Section{{
		Title:  "State: " + r.StatePath,
		Header: header,
		Rows:   rows,
	}}
}
