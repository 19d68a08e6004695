package apply

import (
	"context"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
	"github.com/oshokin/mcserver-manager/internal/service/installer"
)

// reconstruct builds the state to persist after a successful apply.
// Fresh records win. Records of skipped artifacts are kept with their hash
// recomputed from disk. Records whose file disappeared, and records of targets
// outside the plan, are dropped.
func reconstruct(
	ctx context.Context,
	cfg *config.Config,
	plan *install.Plan,
	previous *install.State,
	installed *installedRecords,
) *install.State {
	next := install.NewState()
	prior := previous.Clone()

	switch {
	case installed.server != nil:
		next.Installed.Server = installed.server
	case prior != nil && prior.Installed.Server != nil:
		record := prior.Installed.Server
		if record.Jar == "" {
			record.Jar = cfg.Server.JarOut
		}

		if rehash(ctx, cfg, install.ServerArtifact, record.Jar, &record.SHA256) {
			next.Installed.Server = record
		}
	}

	for _, target := range plan.Targets {
		if record, ok := installed.targets[target.Name]; ok {
			next.SetTarget(target.Name, record)
			continue
		}

		record := prior.Target(target.Name)
		if record == nil {
			continue
		}

		if record.Out == "" {
			record.Out = target.Out
		}

		if rehash(ctx, cfg, target.Name, record.Out, &record.SHA256) {
			next.SetTarget(target.Name, record)
		}
	}

	return next
}

// rehash refreshes *sum from the file at rel and reports whether the file still exists.
func rehash(ctx context.Context, cfg *config.Config, artifact, rel string, sum *string) bool {
	current, err := installer.FileSHA256(cfg.Abs(rel))
	if err != nil {
		logger.WarnKV(ctx, "Dropping record, file is unreadable", "artifact", artifact, "path", rel, "error", err)
		return false
	}

	if *sum != "" && *sum != current {
		logger.WarnKV(ctx, "File changed outside mcsm, recording current hash", "artifact", artifact, "path", rel)
	}

	*sum = current

	return true
}
