package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

var errEmptyVersions = errors.New("versions list is empty")

type purpurProject struct {
	Versions []string `json:"versions"`
}

type purpurVersion struct {
	Builds struct {
		Latest json.Number `json:"latest"`
	} `json:"builds"`
}

// purpurServer resolves the latest build of the primary runtime; the download URL is deterministic.
func (r *Resolver) purpurServer(ctx context.Context, gameVersion string) (*install.ServerPlan, error) {
	var version purpurVersion
	if err := r.client.GetJSON(ctx, r.purpurURL(gameVersion), &version); err != nil {
		return nil, fmt.Errorf("purpur latest build for %s: %w", gameVersion, err)
	}

	build, err := parseBuild(version.Builds.Latest)
	if err != nil {
		return nil, install.NewError(install.KindResolution, "purpur latest build for "+gameVersion, err)
	}

	return &install.ServerPlan{
		Platform:    install.PlatformPurpur,
		GameVersion: gameVersion,
		Label:       fmt.Sprintf("%s-%d", gameVersion, build),
		URL:         r.purpurURL(gameVersion, "latest", "download"),
	}, nil
}

func (r *Resolver) purpurLatestGameVersion(ctx context.Context) (string, error) {
	var project purpurProject
	if err := r.client.GetJSON(ctx, r.endpoints.Purpur+"/v2/purpur/", &project); err != nil {
		return "", fmt.Errorf("purpur versions: %w", err)
	}

	if len(project.Versions) == 0 {
		return "", install.NewError(install.KindResolution, "purpur versions", errEmptyVersions)
	}

	return project.Versions[len(project.Versions)-1], nil
}

func (r *Resolver) purpurURL(gameVersion string, segments ...string) string {
	result := r.endpoints.Purpur + "/v2/purpur/" + url.PathEscape(gameVersion)
	for _, segment := range segments {
		result += "/" + segment
	}

	return result
}

// parseBuild accepts build numbers encoded either as JSON numbers or numeric strings.
func parseBuild(raw json.Number) (int, error) {
	if raw == "" {
		return 0, errors.New("build number is missing")
	}

	build, err := strconv.Atoi(raw.String())
	if err != nil {
		return 0, fmt.Errorf("build number %q is not an integer: %w", raw, err)
	}

	return build, nil
}
