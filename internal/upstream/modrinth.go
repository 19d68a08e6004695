package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

var errInvalidModrinthSpec = errors.New("invalid modrinth config (slug and loaders are required)")

type modrinthVersion struct {
	ID            string `json:"id"`
	VersionNumber string `json:"version_number"`
	Files         []struct {
		URL string `json:"url"`
	} `json:"files"`
}

func validateModrinth(name string, spec *config.Target) error {
	if spec.Slug == "" || len(spec.Loaders) == 0 {
		return install.NewTargetError(install.KindConfig, "validate target", name, errInvalidModrinthSpec)
	}

	return nil
}

// modrinthTarget takes the newest version matching the loaders and game version.
// No match yields the not-found label and an empty URL instead of an error.
func (r *Resolver) modrinthTarget(
	ctx context.Context,
	name string,
	spec *config.Target,
	gameVersion string,
) (*install.TargetPlan, error) {
	endpoint, err := r.modrinthVersionsURL(spec.Slug, spec.Loaders, gameVersion)
	if err != nil {
		return nil, install.NewTargetError(install.KindConfig, "build modrinth query", name, err)
	}

	var versions []modrinthVersion
	if err := r.client.GetJSON(ctx, endpoint, &versions); err != nil {
		return nil, fmt.Errorf("target %q: %w", name, err)
	}

	plan := &install.TargetPlan{
		Name:  name,
		Type:  install.TargetModrinth,
		Label: install.LabelNotFound,
		Out:   spec.Out,
	}

	if len(versions) == 0 {
		return plan, nil
	}

	newest := versions[0]

	plan.ID = newest.ID

	plan.Label = newest.VersionNumber
	if plan.Label == "" {
		plan.Label = install.LabelUnknown
	}

	if len(newest.Files) > 0 {
		plan.URL = newest.Files[0].URL
	}

	return plan, nil
}

func (r *Resolver) modrinthVersionsURL(slug string, loaders []string, gameVersion string) (string, error) {
	encodedLoaders, err := json.Marshal(loaders)
	if err != nil {
		return "", err
	}

	encodedVersions, err := json.Marshal([]string{gameVersion})
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("loaders", string(encodedLoaders))
	query.Set("game_versions", string(encodedVersions))

	return r.endpoints.Modrinth + "/v2/project/" + url.PathEscape(slug) + "/version?" + query.Encode(), nil
}
