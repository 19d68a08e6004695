package planner

import (
	"context"
	"fmt"
	"slices"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
	"github.com/oshokin/mcserver-manager/internal/upstream"
)

// Resolver resolves individual artifacts.
type Resolver interface {
	ResolveServer(ctx context.Context, platform, gameVersion string) (*install.ServerPlan, error)
	ResolveTarget(ctx context.Context, name string, spec *config.Target, gameVersion string) (*install.TargetPlan, error)
}

// Select returns the default targets that are configured and enabled, in default_targets order.
func Select(cfg *config.Config) []string {
	selected := make([]string, 0, len(cfg.DefaultTargets))

	for _, name := range cfg.DefaultTargets {
		target, ok := cfg.Targets[name]
		if !ok || !target.IsEnabled() || slices.Contains(selected, name) {
			continue
		}

		selected = append(selected, name)
	}

	return selected
}

// Validate checks the whole configuration that Build depends on without touching the network.
// An unsupported type on any configured target fails the whole plan.
func Validate(cfg *config.Config, selected []string) error {
	if !config.IsSupportedPlatform(cfg.Server.Type) {
		return install.NewError(install.KindConfig, "build plan",
			fmt.Errorf("unsupported server.type %q", cfg.Server.Type))
	}

	names := make([]string, 0, len(cfg.Targets))
	for name := range cfg.Targets {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		if target := cfg.Targets[name]; !config.IsSupportedTargetType(target.Type) {
			return install.NewTargetError(install.KindConfig, "build plan", name,
				fmt.Errorf("unsupported type %q", target.Type))
		}
	}

	for _, name := range selected {
		target := cfg.Targets[name]
		if err := upstream.ValidateTarget(name, &target); err != nil {
			return err
		}
	}

	return nil
}

// Build validates the configuration, then resolves the server and every selected target.
func Build(ctx context.Context, resolver Resolver, cfg *config.Config) (*install.Plan, error) {
	ctx = logger.WithName(ctx, "planner")

	selected := Select(cfg)
	if err := Validate(cfg, selected); err != nil {
		return nil, err
	}

	server, err := resolver.ResolveServer(ctx, cfg.Server.Type, cfg.MCVersion)
	if err != nil {
		return nil, fmt.Errorf("resolve server: %w", err)
	}

	logger.InfoKV(ctx, "Resolved server", "platform", server.Platform, "version", server.Label)

	plan := &install.Plan{
		Server:  *server,
		Targets: make([]install.TargetPlan, 0, len(selected)),
	}

	for _, name := range selected {
		target := cfg.Targets[name]

		resolved, err := resolver.ResolveTarget(ctx, name, &target, cfg.MCVersion)
		if err != nil {
			return nil, fmt.Errorf("resolve target %q: %w", name, err)
		}

		logger.InfoKV(ctx, "Resolved target", "target", name, "version", resolved.Label)

		plan.Targets = append(plan.Targets, *resolved)
	}

	return plan, nil
}
