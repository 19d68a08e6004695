package apply

import (
	"io"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/output"
)

// Result describes a finished (or dry) apply.
type Result struct {
	Mode          string         `json:"mode" yaml:"mode"`
	DryRun        bool           `json:"dry_run" yaml:"dry_run"`
	Root          string         `json:"root" yaml:"root"`
	ConfigPath    string         `json:"config" yaml:"config"`
	ConfigCreated bool           `json:"config_created" yaml:"config_created"`
	StatePath     string         `json:"state_path" yaml:"state_path"`
	BackupDir     string         `json:"backup_dir,omitempty" yaml:"backup_dir,omitempty"`
	Pending       int            `json:"pending" yaml:"pending"`
	Downloads     int            `json:"downloads" yaml:"downloads"`
	Backups       int            `json:"backups" yaml:"backups"`
	EULAWritten   bool           `json:"eula_written" yaml:"eula_written"`
	ShortcutName  string         `json:"shortcut_name" yaml:"shortcut_name"`
	Decisions     []DecisionView `json:"decisions" yaml:"decisions"`
	State         *install.State `json:"state,omitempty" yaml:"state,omitempty"`
}

// DecisionView is the printable form of one decision.
type DecisionView struct {
	Artifact    string `json:"artifact" yaml:"artifact"`
	NeedsUpdate bool   `json:"needs_update" yaml:"needs_update"`
	Reason      string `json:"reason" yaml:"reason"`
	Current     string `json:"current" yaml:"current"`
	Latest      string `json:"latest" yaml:"latest"`
}

func newDecisionViews(decisions *install.Decisions) []DecisionView {
	views := make([]DecisionView, 0, len(decisions.Targets)+1)

	for _, decision := range append([]install.Decision{decisions.Server}, decisions.Targets...) {
		views = append(views, DecisionView{
			Artifact:    decision.Artifact,
			NeedsUpdate: decision.NeedsUpdate,
			Reason:      string(decision.Reason),
			Current:     decision.Current,
			Latest:      decision.Latest,
		})
	}

	return views
}

// Sections implements output.Report.
func (r *Result) Sections() []output.Section {
	rows := make([][]string, 0, len(r.Decisions))

	for _, decision := range r.Decisions {
		current := decision.Current
		if current == "" {
			current = "-"
		}

		rows = append(rows, []string{
			decision.Artifact,
			current,
			decision.Latest,
			output.Marker(decision.NeedsUpdate, decision.Reason),
		})
	}

	return []output.Section{{
		Header: []string{"ARTIFACT", "CURRENT", "LATEST", "ACTION"},
		Rows:   rows,
	}}
}

// PrintSummary writes the human-oriented lines that follow the decision table.
func PrintSummary(w io.Writer, r *Result) {
	if r.DryRun {
		output.Info(w, "Dry run: %d artifact(s) would be updated, nothing was changed", r.Pending)
		return
	}

	if r.Downloads == 0 {
		output.OK(w, "Everything is up to date")
	} else {
		output.OK(w, "Installed %d artifact(s)", r.Downloads)
	}

	output.Info(w, "SERVER_DIR: %s", r.Root)

	if r.BackupDir != "" {
		output.Info(w, "Backup: %s", r.BackupDir)
	} else {
		output.Info(w, "Backup: (nothing replaced)")
	}

	output.Info(w, "State: %s", r.StatePath)

	if r.EULAWritten {
		output.Info(w, "EULA accepted (eula.txt written)")
	}

	output.Info(w, "Suggested shortcut name: %s", r.ShortcutName)
	output.Step(w, "Next steps:")
	output.Info(w, "mcsm setup       # create a launcher script and shortcut")
	output.Info(w, "mcsm addsrv      # start the server automatically at login")
	output.Info(w, "mcsm shortcuts list")
}
