package upstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

var errOutMissing = errors.New("missing 'out'")

// Resolver turns requested artifacts into plan entries using the upstream services.
type Resolver struct {
	client    *Client
	endpoints Endpoints
}

// NewResolver creates a resolver over client and endpoints.
func NewResolver(client *Client, endpoints Endpoints) *Resolver {
	return &Resolver{
		client:    client,
		endpoints: endpoints,
	}
}

// ResolveServer returns the latest build of platform for gameVersion.
func (r *Resolver) ResolveServer(ctx context.Context, platform, gameVersion string) (*install.ServerPlan, error) {
	switch platform {
	case install.PlatformPurpur:
		return r.purpurServer(ctx, gameVersion)
	case install.PlatformPaper:
		return r.paperServer(ctx, gameVersion)
	default:
		return nil, install.NewError(install.KindConfig, "resolve server",
			fmt.Errorf("unsupported platform %q", platform))
	}
}

// ValidateTarget checks a target specification without any network access.
func ValidateTarget(name string, spec *config.Target) error {
	switch spec.Type {
	case install.TargetModrinth:
		if err := validateModrinth(name, spec); err != nil {
			return err
		}
	case install.TargetGeyser:
		if err := validateGeyser(name, spec); err != nil {
			return err
		}
	default:
		return install.NewTargetError(install.KindConfig, "validate target", name,
			fmt.Errorf("unsupported type %q", spec.Type))
	}

	if spec.Out == "" {
		return install.NewTargetError(install.KindConfig, "validate target", name, errOutMissing)
	}

	return nil
}

// ResolveTarget validates spec and resolves its latest version for gameVersion.
func (r *Resolver) ResolveTarget(
	ctx context.Context,
	name string,
	spec *config.Target,
	gameVersion string,
) (*install.TargetPlan, error) {
	if err := ValidateTarget(name, spec); err != nil {
		return nil, err
	}

	if spec.Type == install.TargetModrinth {
		return r.modrinthTarget(ctx, name, spec, gameVersion)
	}

	return r.geyserTarget(ctx, name, spec)
}

// LatestGameVersion returns the newest game version offered for platform.
func (r *Resolver) LatestGameVersion(ctx context.Context, platform string) (string, error) {
	switch platform {
	case install.PlatformPurpur:
		return r.purpurLatestGameVersion(ctx)
	case install.PlatformPaper:
		return r.paperLatestGameVersion(ctx)
	default:
		return "", install.NewError(install.KindConfig, "latest game version",
			fmt.Errorf("unsupported platform %q", platform))
	}
}
