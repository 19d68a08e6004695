package listing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
	"github.com/oshokin/mcserver-manager/internal/output"
	"github.com/oshokin/mcserver-manager/internal/upstream"
)

// Options controls one list run.
type Options struct {
	// ConfigPath is read leniently for targets and HTTP settings; it may be absent.
	ConfigPath string
	// Platform is the server runtime to query.
	Platform string
	// MCVersion is the game version; empty means the newest one.
	MCVersion string
	// Endpoints overrides the upstream base URLs.
	Endpoints *upstream.Endpoints
	// ClientOptions are applied after the configured HTTP settings.
	ClientOptions []upstream.Option
}

// Report is the result of a list run. Resolution failures are kept per row.
type Report struct {
	Platform      string      `json:"platform" yaml:"platform"`
	MCVersion     string      `json:"mc_version" yaml:"mc_version"`
	TargetsSource string      `json:"targets_source" yaml:"targets_source"`
	Server        ServerRow   `json:"server" yaml:"server"`
	Targets       []TargetRow `json:"targets" yaml:"targets"`
}

// ServerRow is the resolved server build.
type ServerRow struct {
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// TargetRow is one resolved target.
type TargetRow struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Latest string `json:"latest" yaml:"latest"`
	Note   string `json:"note" yaml:"note"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Sources of the listed targets.
const (
	SourceConfig   = "config"
	SourceDefaults = "defaults"
)

const errorLabel = "(error)"

var errUnsupportedPlatform = errors.New("unsupported platform (use purpur or paper)")

// Run resolves the report. Only a bad request or a failed game version lookup is fatal.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	ctx = logger.WithName(ctx, "mcsm-list")

	if !config.IsSupportedPlatform(opts.Platform) {
		return nil, install.NewError(install.KindConfig, "list", fmt.Errorf("%w: %q", errUnsupportedPlatform, opts.Platform))
	}

	cfg := readConfig(ctx, opts.ConfigPath)

	var client *upstream.Client
	if cfg != nil {
		client = upstream.ClientForConfig(cfg, opts.ClientOptions...)
	} else {
		client = upstream.NewClient(opts.ClientOptions...)
	}

	endpoints := upstream.DefaultEndpoints()
	if opts.Endpoints != nil {
		endpoints = *opts.Endpoints
	}

	resolver := upstream.NewResolver(client, endpoints)

	mcVersion := opts.MCVersion
	if mcVersion == "" {
		latest, err := resolver.LatestGameVersion(ctx, opts.Platform)
		if err != nil {
			return nil, err
		}

		logger.InfoKV(ctx, "Using the newest game version", "mc_version", latest)

		mcVersion = latest
	}

	report := &Report{
		Platform:  opts.Platform,
		MCVersion: mcVersion,
	}

	server, err := resolver.ResolveServer(ctx, opts.Platform, mcVersion)
	if err != nil {
		report.Server = ServerRow{Label: errorLabel, Error: err.Error()}
	} else {
		report.Server = ServerRow{Label: server.Label, URL: server.URL}
	}

	order, specs := defaults()
	report.TargetsSource = SourceDefaults

	if cfg != nil && cfg.Server.Type == opts.Platform && len(cfg.Targets) > 0 {
		order, specs = configured(cfg)
		report.TargetsSource = SourceConfig
	}

	for _, name := range order {
		spec := specs[name]
		report.Targets = append(report.Targets, resolveRow(ctx, resolver, name, &spec, mcVersion))
	}

	return report, nil
}

func resolveRow(ctx context.Context, resolver *upstream.Resolver, name string, spec *config.Target, mcVersion string) TargetRow {
	row := TargetRow{
		Name: name,
		Type: spec.Type,
		Note: note(spec.Type, mcVersion),
	}

	plan, err := resolver.ResolveTarget(ctx, name, spec, mcVersion)
	if err != nil {
		logger.DebugKV(ctx, "Target resolution failed", "target", name, "error", err)

		row.Latest = errorLabel
		row.Error = err.Error()

		return row
	}

	row.Latest = plan.Label
	row.URL = plan.URL

	return row
}

func note(targetType, mcVersion string) string {
	if targetType == install.TargetModrinth {
		return "for " + mcVersion
	}

	return "unfiltered"
}

// readConfig returns nil when no usable configuration exists.
func readConfig(ctx context.Context, path string) *config.Config {
	cfg, _, err := config.Read(path)
	if err == nil {
		return cfg
	}

	if errors.Is(err, config.ErrConfigNotFound) {
		logger.Debug(ctx, "No configuration found, using built-in targets")
	} else {
		logger.WarnKV(ctx, "Ignoring unreadable configuration", "error", err)
	}

	return nil
}

func defaults() ([]string, map[string]config.Target) {
	return config.DefaultTargets()
}

// configured lists default_targets first, then every other configured target alphabetically.
func configured(cfg *config.Config) ([]string, map[string]config.Target) {
	order := make([]string, 0, len(cfg.Targets))

	for _, name := range cfg.DefaultTargets {
		if _, ok := cfg.Targets[name]; ok && !slices.Contains(order, name) {
			order = append(order, name)
		}
	}

	rest := make([]string, 0, len(cfg.Targets))

	for name := range cfg.Targets {
		if !slices.Contains(order, name) {
			rest = append(rest, name)
		}
	}

	sort.Strings(rest)

	return append(order, rest...), cfg.Targets
}

// Sections implements output.Report.
func (r *Report) Sections() []output.Section {
	rows := make([][]string, 0, len(r.Targets))
	for _, target := range r.Targets {
		rows = append(rows, []string{target.Name, target.Type, target.Latest, target.Note})
	}

	return []output.Section{
		{
			Header: []string{"PLATFORM", "MC_VERSION", "SERVER"},
			Rows:   [][]string{{r.Platform, r.MCVersion, r.Server.Label}},
		},
		{
			Title:  "Targets (" + r.TargetsSource + "):",
			Header: []string{"NAME", "TYPE", "LATEST", "NOTE"},
			Rows:   rows,
		},
	}
}

// Errors returns the inline failures, for printing below the tables.
func (r *Report) Errors() []string {
	var problems []string

	if r.Server.Error != "" {
		problems = append(problems, install.ServerArtifact+": "+r.Server.Error)
	}

	for _, target := range r.Targets {
		if target.Error != "" {
			problems = append(problems, target.Name+": "+target.Error)
		}
	}

	return problems
}
