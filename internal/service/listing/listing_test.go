package listing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/upstream"
)

func serveJSON(mux *http.ServeMux, pattern string, payload any) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // Test server.
	})
}

func newUpstream(t *testing.T) (*httptest.Server, *upstream.Endpoints) {
	t.Helper()

	mux := http.NewServeMux()
	serveJSON(mux, "GET /v2/purpur/", map[string]any{"versions": []string{"1.21.3", "1.21.4"}})
	serveJSON(mux, "GET /v2/purpur/1.21.4", map[string]any{"builds": map[string]any{"latest": "2388"}})
	serveJSON(mux, "GET /v2/project/viaversion/version", []any{
		map[string]any{
			"id":             "abc123",
			"version_number": "5.2.1",
			"files":          []any{map[string]any{"url": "https://cdn.modrinth.com/ViaVersion-5.2.1.jar"}},
		},
	})
	serveJSON(mux, "GET /v2/projects/floodgate/versions/latest", map[string]any{"version": "2.2.3"})
	mux.HandleFunc("GET /v2/projects/geyser/versions/latest", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	endpoints := upstream.SameHost(server.URL)

	return server, &endpoints
}

// TestRunDefaultsWithInlineErrors checks built-in targets, the newest game version and per-row failures.
func TestRunDefaultsWithInlineErrors(t *testing.T) {
	t.Parallel()

	_, endpoints := newUpstream(t)

	report, err := Run(context.Background(), &Options{
		ConfigPath: filepath.Join(t.TempDir(), "mcsm.toml"),
		Platform:   install.PlatformPurpur,
		Endpoints:  endpoints,
	})
	require.NoError(t, err)

	require.Equal(t, "1.21.4", report.MCVersion)
	require.Equal(t, "1.21.4-2388", report.Server.Label)
	require.Equal(t, SourceDefaults, report.TargetsSource)
	require.Len(t, report.Targets, 3)

	require.Equal(t, "viaversion", report.Targets[0].Name)
	require.Equal(t, "5.2.1", report.Targets[0].Latest)
	require.Equal(t, "for 1.21.4", report.Targets[0].Note)

	require.Equal(t, "geyser", report.Targets[1].Name)
	require.Equal(t, "(error)", report.Targets[1].Latest)
	require.NotEmpty(t, report.Targets[1].Error)

	require.Equal(t, "2.2.3", report.Targets[2].Latest)
	require.Equal(t, "unfiltered", report.Targets[2].Note)

	require.Len(t, report.Errors(), 1)
}

// TestRunUsesMatchingConfig checks that configured targets are listed in default_targets-then-name order.
func TestRunUsesMatchingConfig(t *testing.T) {
	t.Parallel()

	_, endpoints := newUpstream(t)

	configPath := filepath.Join(t.TempDir(), "mcsm.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`schema = 1
mc_version = "1.21.4"
default_targets = ["floodgate"]

[server]
type = "purpur"

[targets.zzz]
type = "modrinth"
slug = "missing-slug"
out = "plugins/zzz.jar"

[targets.floodgate]
type = "geyser"
project = "floodgate"
platform = "spigot"
out = "plugins/Floodgate-spigot.jar"

[targets.aaa]
type = "modrinth"
slug = "viaversion"
loaders = ["paper"]
out = "plugins/ViaVersion.jar"
`), 0o600))

	report, err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		Platform:   install.PlatformPurpur,
		MCVersion:  "1.21.4",
		Endpoints:  endpoints,
	})
	require.NoError(t, err)

	require.Equal(t, SourceConfig, report.TargetsSource)

	names := make([]string, 0, len(report.Targets))
	for _, target := range report.Targets {
		names = append(names, target.Name)
	}

	require.Equal(t, []string{"floodgate", "aaa", "zzz"}, names)
	require.Equal(t, "(error)", report.Targets[2].Latest)
}

// TestRunOtherPlatformUsesDefaults checks that a config for another runtime does not supply targets.
func TestRunOtherPlatformUsesDefaults(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "mcsm.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("schema = 1\n[server]\ntype = \"paper\"\n[targets.x]\ntype = \"geyser\"\n"), 0o600))

	mux := http.NewServeMux()
	serveJSON(mux, "GET /v2/purpur/1.21.4", map[string]any{"builds": map[string]any{"latest": 1}})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	endpoints := upstream.SameHost(server.URL)

	report, err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		Platform:   install.PlatformPurpur,
		MCVersion:  "1.21.4",
		Endpoints:  &endpoints,
	})
	require.NoError(t, err)
	require.Equal(t, SourceDefaults, report.TargetsSource)
	require.Equal(t, "1.21.4-1", report.Server.Label)
	require.Len(t, report.Errors(), 3)
}

// TestRunRejectsUnknownPlatform checks request validation.
func TestRunRejectsUnknownPlatform(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), &Options{Platform: "forge"})
	require.Error(t, err)
	require.Equal(t, install.KindConfig, install.KindOf(err))
}
