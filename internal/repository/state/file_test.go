package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

// TestForRoot checks that the repository for a root keeps state.toml inside it.
func TestForRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	var repo Repository = ForRoot(root)

	require.Equal(t, filepath.Join(root, Filename), repo.Path())
}

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := ForRoot(t.TempDir())

	s, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns an equal state.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	repo := ForRoot(root)

	installedAt := install.NewTimestamp(time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC))

	want := install.NewState()
	want.LastChecked = install.NewTimestamp(installedAt.Add(time.Minute))
	want.Installed.Server = &install.ServerRecord{
		Type:         install.PlatformPurpur,
		GameVersion:  "1.21.4",
		Label:        "1.21.4-2388",
		URL:          "https://api.purpurmc.org/v2/purpur/1.21.4/latest/download",
		Jar:          "server.jar",
		VersionedJar: "purpur-1.21.4-2388.jar",
		SHA256:       "ab12",
		InstalledAt:  installedAt,
	}
	want.SetTarget("viaversion", &install.TargetRecord{
		Type:        install.TargetModrinth,
		ResolvedID:  "Xy12AbCd",
		Resolved:    "5.2.1",
		URL:         "https://cdn.local/ViaVersion.jar",
		Out:         "plugins/ViaVersion.jar",
		SHA256:      "cd34",
		InstalledAt: installedAt,
	})

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, install.StateSchema, got.Schema)
	require.True(t, want.LastChecked.Equal(got.LastChecked.Time))
	require.Equal(t, want.Installed.Server.Label, got.Installed.Server.Label)
	require.Equal(t, want.Installed.Server.VersionedJar, got.Installed.Server.VersionedJar)
	require.True(t, installedAt.Equal(got.Installed.Server.InstalledAt.Time))
	require.Equal(t, "Xy12AbCd", got.Target("viaversion").Identity())
	require.Equal(t, "plugins/ViaVersion.jar", got.Target("viaversion").Out)

	contents, err := os.ReadFile(filepath.Join(root, Filename))
	require.NoError(t, err)
	require.Contains(t, string(contents), "[installed.server]")
	require.Contains(t, string(contents), "[installed.targets.viaversion]")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

// TestFileRepository_LoadsFirstSchema checks that records written by the first state format decode.
func TestFileRepository_LoadsFirstSchema(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	legacy := `schema = 1

[installed.server]
type = "paper"
mc_version = "1.20.1"
server_version = "1.20.1-196"
url = "https://api.papermc.io/v2/projects/paper/versions/1.20.1/builds/196/downloads/paper-1.20.1-196.jar"
sha256 = "ef56"
installed_at = "2024-11-05T10:20:30.123456+09:00"

[installed.targets.geyser]
type = "geyser"
resolved_version = "2.4.0"
url = "https://download.geysermc.org/v2/projects/geyser/versions/latest/builds/latest/downloads/spigot"
out = "plugins/Geyser-spigot.jar"
sha256 = "0a0b"
installed_at = "2024-11-05T10:20:31.5+09:00"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, Filename), []byte(legacy), 0o600))

	got, err := ForRoot(root).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, got.Schema)
	require.Equal(t, "1.20.1-196", got.Installed.Server.Label)
	require.Empty(t, got.Installed.Server.Jar)
	require.Equal(t, 2024, got.Installed.Server.InstalledAt.Year())
	require.Equal(t, "2.4.0", got.Target("geyser").Identity())
}

// TestFileRepository_Corrupt checks that an unreadable state is reported as a state error.
func TestFileRepository_Corrupt(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, Filename), []byte("schema = [unterminated"), 0o600))

	_, err := ForRoot(root).Load(context.Background())
	require.Error(t, err)
	require.Equal(t, install.KindState, install.KindOf(err))
}
