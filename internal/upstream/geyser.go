package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

var errInvalidGeyserSpec = errors.New("invalid geyser config (project must be geyser or floodgate, platform is required)")

type geyserLatest struct {
	Version string `json:"version"`
}

func validateGeyser(name string, spec *config.Target) error {
	if (spec.Project != "geyser" && spec.Project != "floodgate") || spec.Platform == "" {
		return install.NewTargetError(install.KindConfig, "validate target", name, errInvalidGeyserSpec)
	}

	return nil
}

// geyserTarget reads the latest release label. The endpoint is not filtered by game version.
func (r *Resolver) geyserTarget(
	ctx context.Context,
	name string,
	spec *config.Target,
) (*install.TargetPlan, error) {
	base := r.endpoints.Geyser + "/v2/projects/" + url.PathEscape(spec.Project) + "/versions/latest"

	var latest geyserLatest
	if err := r.client.GetJSON(ctx, base, &latest); err != nil {
		return nil, fmt.Errorf("target %q: %w", name, err)
	}

	label := latest.Version
	if label == "" {
		label = install.LabelUnknown
	}

	return &install.TargetPlan{
		Name:  name,
		Type:  install.TargetGeyser,
		Label: label,
		URL:   base + "/builds/latest/downloads/" + url.PathEscape(spec.Platform),
		Out:   spec.Out,
	}, nil
}
