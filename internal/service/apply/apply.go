package apply

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
	"github.com/oshokin/mcserver-manager/internal/repository/state"
	"github.com/oshokin/mcserver-manager/internal/service/backup"
	"github.com/oshokin/mcserver-manager/internal/service/installer"
	"github.com/oshokin/mcserver-manager/internal/service/lock"
	"github.com/oshokin/mcserver-manager/internal/service/planner"
	"github.com/oshokin/mcserver-manager/internal/service/reconcile"
	"github.com/oshokin/mcserver-manager/internal/upstream"
)

// Options controls one install or update run.
type Options struct {
	// ConfigPath is the configuration file; its directory is the installation root.
	ConfigPath string
	// Mode selects install (unconditional) or update (state-driven) behavior.
	Mode install.Mode
	// Platform and MCVersion are the install request; update ignores them.
	Platform  string
	MCVersion string
	// AcceptEULA writes eula.txt after a successful apply.
	AcceptEULA bool
	// DryRun stops after the decisions are known.
	DryRun bool
	// Endpoints overrides the upstream base URLs.
	Endpoints *upstream.Endpoints
	// ClientOptions are applied after the configured HTTP settings.
	ClientOptions []upstream.Option
	// Now overrides the clock used for backup ids and timestamps.
	Now func() time.Time
}

var (
	errUnsupportedPlatform = errors.New("unsupported platform (use purpur or paper)")
	errMCVersionRequired   = errors.New("mc_version is required")
	errConfigMismatch      = errors.New("configuration does not match the requested installation")
)

// Run executes an apply and returns what it did.
//
//nolint:cyclop,funlen // Linear pipeline; each step is a single call.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "mcsm-"+opts.Mode.String())

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	result := &Result{
		Mode:   opts.Mode.String(),
		DryRun: opts.DryRun,
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigFilename
	}

	// Install creates or patches the configuration to match the request.
	if opts.Mode == install.ModeInstall {
		created, err := prepareInstall(configPath, opts.Platform, opts.MCVersion)
		if err != nil {
			return nil, err
		}

		if created {
			logger.InfoKV(ctx, "Created configuration", "path", configPath)
		}

		result.ConfigCreated = created
	}

	cfg, diags, err := config.Load(configPath)
	for _, diag := range diags {
		logger.WarnKV(ctx, diag.Message, "field", diag.Field)
	}

	if err != nil {
		return nil, err
	}

	if opts.Mode == install.ModeInstall && (cfg.Server.Type != opts.Platform || cfg.MCVersion != opts.MCVersion) {
		return nil, install.NewError(install.KindConfig, "check configuration",
			fmt.Errorf("%w: config has %s %s, requested %s %s",
				errConfigMismatch, cfg.Server.Type, cfg.MCVersion, opts.Platform, opts.MCVersion))
	}

	result.Root = cfg.Root
	result.ConfigPath = cfg.Path
	result.ShortcutName, _ = cfg.ShortcutName("")

	// Serialize mutating runs on this root.
	if !opts.DryRun {
		var held *lock.Lock

		held, err = lock.Acquire(ctx, cfg.Root)
		if err != nil {
			return nil, err
		}

		defer func() {
			if releaseErr := held.Release(ctx); releaseErr != nil {
				logger.WarnKV(ctx, "Unable to release lock", "path", held.Path(), "error", releaseErr)
			}
		}()
	}

	var repository state.Repository = state.ForRoot(cfg.Root)

	result.StatePath = repository.Path()

	var previous *install.State

	if opts.Mode == install.ModeUpdate {
		previous, err = repository.Load(ctx)

		switch {
		case errors.Is(err, state.ErrNotFound):
			return nil, install.NewError(install.KindState, "load state", install.ErrStateMissing)
		case err != nil:
			return nil, err
		}
	}

	endpoints := upstream.DefaultEndpoints()
	if opts.Endpoints != nil {
		endpoints = *opts.Endpoints
	}

	client := upstream.ClientForConfig(cfg, opts.ClientOptions...)

	// Resolve everything before touching the filesystem.
	plan, err := planner.Build(ctx, upstream.NewResolver(client, endpoints), cfg)
	if err != nil {
		return nil, err
	}

	decisions, err := reconcile.Decide(reconcile.Input{
		Mode:   opts.Mode,
		Plan:   plan,
		State:  previous,
		Root:   cfg.Root,
		JarOut: cfg.Server.JarOut,
	})
	if err != nil {
		return nil, err
	}

	result.Decisions = newDecisionViews(decisions)
	result.Pending = decisions.Pending()

	if opts.DryRun {
		logger.InfoKV(ctx, "Dry run, nothing changed", "pending", result.Pending)
		return result, nil
	}

	started := now()
	backups := backup.NewManager(cfg.Root, backup.NewID(started))

	// Move every file about to be replaced out of the way.
	for _, rel := range replacedPaths(cfg, plan, decisions) {
		var moved bool

		if moved, err = backups.Move(ctx, rel); err != nil {
			return nil, err
		}

		if moved {
			result.Backups++
		}
	}

	if result.Backups > 0 {
		result.BackupDir = backups.Dir()
		logger.InfoKV(ctx, "Backed up replaced files", "id", backups.ID(), "count", result.Backups)
	}

	installed, err := installAll(ctx, installer.New(client, cfg.Root, installer.WithClock(now)), cfg, plan, decisions)
	if err != nil {
		return nil, err
	}

	result.Downloads = installed.count()

	next := reconstruct(ctx, cfg, plan, previous, installed)
	next.LastChecked = install.NewTimestamp(now())

	// The only state write of the run.
	if err = repository.Save(ctx, next); err != nil {
		return nil, err
	}

	result.State = next

	if opts.AcceptEULA {
		if err = installer.WriteEULA(cfg.Root); err != nil {
			return nil, err
		}

		result.EULAWritten = true
	}

	logger.InfoKV(ctx, "Apply finished", "downloads", result.Downloads, "backups", result.Backups)

	return result, nil
}

func prepareInstall(configPath, platform, mcVersion string) (bool, error) {
	if !config.IsSupportedPlatform(platform) {
		return false, install.NewError(install.KindConfig, "prepare install", fmt.Errorf("%w: %q", errUnsupportedPlatform, platform))
	}

	if mcVersion == "" {
		return false, install.NewError(install.KindConfig, "prepare install", errMCVersionRequired)
	}

	return config.EnsureForInstall(configPath, platform, mcVersion)
}

// replacedPaths lists root-relative paths the apply is about to overwrite, in install order.
func replacedPaths(cfg *config.Config, plan *install.Plan, decisions *install.Decisions) []string {
	paths := make([]string, 0, len(plan.Targets)+2) //nolint:mnd // Canonical and versioned server jars.

	if decisions.Server.NeedsUpdate {
		paths = append(paths, cfg.Server.JarOut)

		if cfg.Server.KeepVersioned() {
			paths = append(paths, path.Join(path.Dir(cfg.Server.JarOut), install.VersionedJarName(plan.Server.Platform, plan.Server.Label)))
		}
	}

	for _, target := range plan.Targets {
		if decision, ok := decisions.Target(target.Name); ok && decision.NeedsUpdate {
			paths = append(paths, target.Out)
		}
	}

	return paths
}

// installedRecords holds the records produced by this run.
type installedRecords struct {
	server  *install.ServerRecord
	targets map[string]*install.TargetRecord
}

func (r *installedRecords) count() int {
	count := len(r.targets)
	if r.server != nil {
		count++
	}

	return count
}

// installAll downloads every artifact that needs an update, one at a time in plan order.
func installAll(
	ctx context.Context,
	inst *installer.Installer,
	cfg *config.Config,
	plan *install.Plan,
	decisions *install.Decisions,
) (*installedRecords, error) {
	records := &installedRecords{targets: make(map[string]*install.TargetRecord)}

	if decisions.Server.NeedsUpdate {
		record, err := inst.InstallServer(ctx, plan.Server, cfg.Server.JarOut, cfg.Server.KeepVersioned())
		if err != nil {
			return nil, err
		}

		records.server = record
	}

	for _, target := range plan.Targets {
		decision, ok := decisions.Target(target.Name)
		if !ok || !decision.NeedsUpdate {
			continue
		}

		record, err := inst.InstallTarget(ctx, target)
		if err != nil {
			return nil, err
		}

		records.targets[target.Name] = record
	}

	return records, nil
}
