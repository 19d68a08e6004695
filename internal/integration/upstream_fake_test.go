package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mcserver-manager/internal/upstream"
)

const gameVersion = "1.21.4"

// configText selects one registry target and both companion targets.
const configText = `schema = 1
mc_version = "1.21.4"
user_agent = "mcsm-integration/1.0 (ops@mc.local)"
default_targets = ["viaversion", "geyser", "floodgate"]

[server]
type = "purpur"
name = "survival"

[http]
retries = 0

[targets.viaversion]
type = "modrinth"
slug = "viaversion"
loaders = ["paper"]
out = "plugins/ViaVersion.jar"

[targets.geyser]
type = "geyser"
project = "geyser"
platform = "spigot"
out = "plugins/Geyser-Spigot.jar"

[targets.floodgate]
type = "geyser"
project = "floodgate"
platform = "spigot"
out = "plugins/floodgate-spigot.jar"
`

// fakeUpstream serves every upstream API from one httptest server. Versions can be bumped between runs.
type fakeUpstream struct {
	mu sync.Mutex

	server *httptest.Server

	purpurBuild int
	via         string
	companions  map[string]string
	failing     map[string]bool
	downloads   map[string]int
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()

	fake := &fakeUpstream{
		purpurBuild: 2400,
		via:         "5.2.1",
		companions: map[string]string{
			"geyser":    "2.6.0",
			"floodgate": "2.2.4",
		},
		failing:   make(map[string]bool),
		downloads: make(map[string]int),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v2/purpur/{version}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("version") != gameVersion {
			http.NotFound(w, r)
			return
		}

		fake.mu.Lock()
		build := fake.purpurBuild
		fake.mu.Unlock()

		writeJSON(w, map[string]any{"builds": map[string]any{"latest": build}})
	})

	mux.HandleFunc("GET /v2/purpur/{version}/latest/download", func(w http.ResponseWriter, _ *http.Request) {
		fake.mu.Lock()
		body := fake.serverBody()
		fake.mu.Unlock()

		fake.serve(w, "server", body)
	})

	mux.HandleFunc("GET /v2/project/viaversion/version", func(w http.ResponseWriter, _ *http.Request) {
		fake.mu.Lock()
		version := fake.via
		fake.mu.Unlock()

		writeJSON(w, []map[string]any{{
			"id":             "via-" + version,
			"version_number": version,
			"files": []map[string]any{
				{"url": fake.server.URL + "/cdn/ViaVersion-" + version + ".jar"},
			},
		}})
	})

	mux.HandleFunc("GET /cdn/{file}", func(w http.ResponseWriter, r *http.Request) {
		fake.serve(w, "viaversion", "bytes of "+r.PathValue("file"))
	})

	mux.HandleFunc("GET /v2/projects/{project}/versions/latest", func(w http.ResponseWriter, r *http.Request) {
		fake.mu.Lock()
		version, ok := fake.companions[r.PathValue("project")]
		fake.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}

		writeJSON(w, map[string]string{"version": version})
	})

	mux.HandleFunc(
		"GET /v2/projects/{project}/versions/latest/builds/latest/downloads/{platform}",
		func(w http.ResponseWriter, r *http.Request) {
			project := r.PathValue("project")

			fake.mu.Lock()
			body := fake.companionBody(project)
			fake.mu.Unlock()

			fake.serve(w, project, body)
		},
	)

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *fakeUpstream) endpoints() *upstream.Endpoints {
	endpoints := upstream.SameHost(f.server.URL)
	return &endpoints
}

// serverBody must be called with mu held.
func (f *fakeUpstream) serverBody() string {
	return fmt.Sprintf("purpur %s build %d", gameVersion, f.purpurBuild)
}

// companionBody must be called with mu held.
func (f *fakeUpstream) companionBody(project string) string {
	return project + " " + f.companions[project]
}

func (f *fakeUpstream) serve(w http.ResponseWriter, artifact, body string) {
	f.mu.Lock()
	failing := f.failing[artifact]
	if !failing {
		f.downloads[artifact]++
	}
	f.mu.Unlock()

	if failing {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
		return
	}

	_, _ = w.Write([]byte(body))
}

func (f *fakeUpstream) bumpCompanion(project, version string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.companions[project] = version
}

func (f *fakeUpstream) bumpServer(build int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.purpurBuild = build
}

func (f *fakeUpstream) fail(artifact string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failing[artifact] = true
}

func (f *fakeUpstream) downloadCount(artifact string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.downloads[artifact]
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

// newRoot returns a temporary installation root holding the test configuration.
func newRoot(t *testing.T) (string, string) {
	t.Helper()

	root := t.TempDir()
	configPath := filepath.Join(root, "mcsm.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(configText), 0o600))

	return root, configPath
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(contents)
}
