package upstream

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/hashicorp/go-version"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
)

const (
	paperProject      = "paper"
	stableChannel     = "STABLE"
	serverDownloadKey = "server:default"
)

var (
	errNoBuilds          = errors.New("no builds")
	errDownloadMissing   = errors.New("download URL missing (" + serverDownloadKey + ")")
	errUnexpectedPayload = errors.New("unexpected builds response")
)

type fillBuild struct {
	ID        json.Number `json:"id"`
	Channel   string      `json:"channel"`
	Downloads map[string]struct {
		URL string `json:"url"`
	} `json:"downloads"`
}

type fillFailure struct {
	OK      *bool  `json:"ok"`
	Message string `json:"message"`
}

type fillProject struct {
	Versions map[string][]string `json:"versions"`
}

type legacyProject struct {
	Versions []string `json:"versions"`
}

type legacyVersion struct {
	Builds []json.Number `json:"builds"`
}

// paperServer tries the modern builds API first and falls back to the legacy API on any failure.
func (r *Resolver) paperServer(ctx context.Context, gameVersion string) (*install.ServerPlan, error) {
	build, downloadURL, fillErr := r.fillLatestDownload(ctx, paperProject, gameVersion)
	if fillErr == nil {
		return &install.ServerPlan{
			Platform:    install.PlatformPaper,
			GameVersion: gameVersion,
			Label:       gameVersion + "-" + build,
			URL:         downloadURL,
		}, nil
	}

	logger.DebugKV(ctx, "Fill API failed, falling back to legacy API", "mc_version", gameVersion, "error", fillErr)

	legacyBuild, err := r.legacyLatestBuild(ctx, paperProject, gameVersion)
	if err != nil {
		return nil, fmt.Errorf("%w (fill api also failed: %v)", err, fillErr) //nolint:errorlint // Only the legacy error is classified.
	}

	return &install.ServerPlan{
		Platform:    install.PlatformPaper,
		GameVersion: gameVersion,
		Label:       fmt.Sprintf("%s-%d", gameVersion, legacyBuild),
		URL:         r.legacyDownloadURL(paperProject, gameVersion, legacyBuild),
	}, nil
}

// fillLatestDownload prefers the first stable build and otherwise takes the first build listed.
func (r *Resolver) fillLatestDownload(ctx context.Context, project, gameVersion string) (string, string, error) {
	builds, err := r.fillBuilds(ctx, project, gameVersion)
	if err != nil {
		return "", "", err
	}

	if len(builds) == 0 {
		return "", "", install.NewError(install.KindResolution, "fill builds for "+gameVersion, errNoBuilds)
	}

	chosen := builds[0]

	for _, build := range builds {
		if build.Channel == stableChannel {
			chosen = build
			break
		}
	}

	if chosen.ID == "" {
		return "", "", install.NewError(install.KindResolution, "fill builds for "+gameVersion, errors.New("build id missing"))
	}

	download, ok := chosen.Downloads[serverDownloadKey]
	if !ok || download.URL == "" {
		return "", "", install.NewError(install.KindResolution, "fill builds for "+gameVersion, errDownloadMissing)
	}

	return chosen.ID.String(), download.URL, nil
}

func (r *Resolver) fillBuilds(ctx context.Context, project, gameVersion string) ([]fillBuild, error) {
	endpoint := fmt.Sprintf("%s/v3/projects/%s/versions/%s/builds",
		r.endpoints.PaperFill, url.PathEscape(project), url.PathEscape(gameVersion))

	var raw json.RawMessage
	if err := r.client.GetJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)

	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		var builds []fillBuild
		if err := json.Unmarshal(trimmed, &builds); err != nil {
			return nil, install.NewError(install.KindResolution, "decode fill builds", err)
		}

		return builds, nil
	case bytes.HasPrefix(trimmed, []byte("{")):
		var failure fillFailure
		if err := json.Unmarshal(trimmed, &failure); err == nil && failure.OK != nil && !*failure.OK {
			return nil, install.NewError(install.KindResolution, "fill builds for "+gameVersion,
				fmt.Errorf("fill api error: %s", cmp.Or(failure.Message, "unknown")))
		}
	}

	return nil, install.NewError(install.KindResolution, "fill builds for "+gameVersion, errUnexpectedPayload)
}

func (r *Resolver) legacyLatestBuild(ctx context.Context, project, gameVersion string) (int, error) {
	endpoint := fmt.Sprintf("%s/v2/projects/%s/versions/%s",
		r.endpoints.PaperLegacy, url.PathEscape(project), url.PathEscape(gameVersion))

	var response legacyVersion
	if err := r.client.GetJSON(ctx, endpoint, &response); err != nil {
		return 0, fmt.Errorf("legacy builds for %s: %w", gameVersion, err)
	}

	if len(response.Builds) == 0 {
		return 0, install.NewError(install.KindResolution, "legacy builds for "+gameVersion, errNoBuilds)
	}

	build, err := parseBuild(response.Builds[len(response.Builds)-1])
	if err != nil {
		return 0, install.NewError(install.KindResolution, "legacy builds for "+gameVersion, err)
	}

	return build, nil
}

func (r *Resolver) legacyDownloadURL(project, gameVersion string, build int) string {
	return fmt.Sprintf("%s/v2/projects/%s/versions/%s/builds/%d/downloads/%s-%s-%d.jar",
		r.endpoints.PaperLegacy, project, url.PathEscape(gameVersion), build, project, gameVersion, build)
}

// paperLatestGameVersion returns the newest version known to the fill API, else the legacy API.
func (r *Resolver) paperLatestGameVersion(ctx context.Context) (string, error) {
	var project fillProject

	err := r.client.GetJSON(ctx, r.endpoints.PaperFill+"/v3/projects/"+paperProject, &project)
	if err == nil {
		if versions := sortVersionsDescending(project.Versions); len(versions) > 0 {
			return versions[0], nil
		}

		err = install.NewError(install.KindResolution, "fill versions", errEmptyVersions)
	}

	logger.DebugKV(ctx, "Fill API failed, falling back to legacy API", "error", err)

	var legacy legacyProject
	if legacyErr := r.client.GetJSON(ctx, r.endpoints.PaperLegacy+"/v2/projects/"+paperProject, &legacy); legacyErr != nil {
		return "", fmt.Errorf("paper versions: %w", legacyErr)
	}

	if len(legacy.Versions) == 0 {
		return "", install.NewError(install.KindResolution, "paper versions", errEmptyVersions)
	}

	return legacy.Versions[len(legacy.Versions)-1], nil
}

// sortVersionsDescending flattens the grouped version lists and sorts them newest first.
// Strings that are not versions are skipped.
func sortVersionsDescending(groups map[string][]string) []string {
	var (
		parsed = make(version.Collection, 0, len(groups))
		seen   = make(map[string]struct{})
	)

	for _, group := range groups {
		for _, raw := range group {
			if _, ok := seen[raw]; ok {
				continue
			}

			seen[raw] = struct{}{}

			v, err := version.NewVersion(raw)
			if err != nil {
				continue
			}

			parsed = append(parsed, v)
		}
	}

	sort.Sort(sort.Reverse(parsed))

	versions := make([]string, 0, len(parsed))
	for _, v := range parsed {
		versions = append(versions, v.Original())
	}

	return versions
}
