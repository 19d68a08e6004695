package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/repository/state"
	"github.com/oshokin/mcserver-manager/internal/service/apply"
	"github.com/oshokin/mcserver-manager/internal/service/backup"
	"github.com/oshokin/mcserver-manager/internal/service/installer"
	"github.com/oshokin/mcserver-manager/internal/service/lock"
	"github.com/oshokin/mcserver-manager/internal/service/status"
)

var firstRun = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func clockAt(moment time.Time) func() time.Time {
	return func() time.Time {
		return moment
	}
}

func runInstall(t *testing.T, fake *fakeUpstream, configPath string, now time.Time) *apply.Result {
	t.Helper()

	result, err := apply.Run(context.Background(), &apply.Options{
		ConfigPath: configPath,
		Mode:       install.ModeInstall,
		Platform:   install.PlatformPurpur,
		MCVersion:  gameVersion,
		AcceptEULA: true,
		Endpoints:  fake.endpoints(),
		Now:        clockAt(now),
	})
	require.NoError(t, err)

	return result
}

func runUpdate(t *testing.T, fake *fakeUpstream, configPath string, now time.Time) *apply.Result {
	t.Helper()

	result, err := apply.Run(context.Background(), &apply.Options{
		ConfigPath: configPath,
		Mode:       install.ModeUpdate,
		Endpoints:  fake.endpoints(),
		Now:        clockAt(now),
	})
	require.NoError(t, err)

	return result
}

func loadState(t *testing.T, root string) *install.State {
	t.Helper()

	current, err := state.ForRoot(root).Load(context.Background())
	require.NoError(t, err)

	return current
}

// requireHashesMatch checks that every recorded hash equals the hash of the bytes on disk.
func requireHashesMatch(t *testing.T, root string, current *install.State) {
	t.Helper()

	require.NotNil(t, current.Installed.Server)

	sum, err := installer.FileSHA256(filepath.Join(root, filepath.FromSlash(current.Installed.Server.Jar)))
	require.NoError(t, err)
	require.Equal(t, current.Installed.Server.SHA256, sum)

	for name, record := range current.Installed.Targets {
		sum, err = installer.FileSHA256(filepath.Join(root, filepath.FromSlash(record.Out)))
		require.NoError(t, err, name)
		require.Equal(t, record.SHA256, sum, name)
	}
}

// TestApply_InstallThenUpdate_IsIdempotent installs everything once and checks a second update changes nothing.
//
//nolint:funlen // Integration test requires comprehensive setup and verification.
func TestApply_InstallThenUpdate_IsIdempotent(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstream(t)
	root, configPath := newRoot(t)

	// Fresh install downloads the server and the three targets.
	result := runInstall(t, fake, configPath, firstRun)
	require.Equal(t, 4, result.Downloads)
	require.Zero(t, result.Backups)
	require.Empty(t, result.BackupDir)
	require.True(t, result.EULAWritten)
	require.Equal(t, "survival-1.21.4", result.ShortcutName)

	require.Equal(t, "purpur 1.21.4 build 2400", readFile(t, filepath.Join(root, "server.jar")))
	require.Equal(t, "bytes of ViaVersion-5.2.1.jar", readFile(t, filepath.Join(root, "plugins", "ViaVersion.jar")))
	require.Equal(t, "geyser 2.6.0", readFile(t, filepath.Join(root, "plugins", "Geyser-Spigot.jar")))
	require.Equal(t, "floodgate 2.2.4", readFile(t, filepath.Join(root, "plugins", "floodgate-spigot.jar")))
	require.Equal(t, "eula=true\n", readFile(t, filepath.Join(root, installer.EULAFilename)))
	require.NoFileExists(t, filepath.Join(root, lock.Filename))

	current := loadState(t, root)
	require.Equal(t, "1.21.4-2400", current.Installed.Server.Label)
	require.Equal(t, "server.jar", current.Installed.Server.Jar)
	require.Equal(t, install.VersionedJarName(install.PlatformPurpur, "1.21.4-2400"), current.Installed.Server.VersionedJar)
	require.Len(t, current.Installed.Targets, 3)
	require.Equal(t, "via-5.2.1", current.Target("viaversion").ResolvedID)
	require.Equal(t, "2.6.0", current.Target("geyser").Resolved)
	require.True(t, current.LastChecked.Time.Equal(firstRun))
	requireHashesMatch(t, root, current)

	// Nothing changed upstream, so update downloads and backs up nothing.
	result = runUpdate(t, fake, configPath, firstRun.Add(time.Hour))
	require.Zero(t, result.Downloads)
	require.Zero(t, result.Backups)
	require.Zero(t, result.Pending)
	require.NoDirExists(t, filepath.Join(root, backup.Dirname))

	for _, decision := range result.Decisions {
		require.False(t, decision.NeedsUpdate, decision.Artifact)
		require.Equal(t, string(install.ReasonUpToDate), decision.Reason, decision.Artifact)
	}

	require.Equal(t, 1, fake.downloadCount("server"))
	require.Equal(t, 1, fake.downloadCount("geyser"))

	after := loadState(t, root)
	require.True(t, after.LastChecked.Time.Equal(firstRun.Add(time.Hour)))
	require.Equal(t, current.Installed.Targets, after.Installed.Targets)
	requireHashesMatch(t, root, after)
}

// TestApply_Update_BacksUpReplacedTarget bumps one companion upstream and checks only it is replaced.
func TestApply_Update_BacksUpReplacedTarget(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstream(t)
	root, configPath := newRoot(t)

	runInstall(t, fake, configPath, firstRun)
	fake.bumpCompanion("geyser", "2.6.1")

	second := firstRun.Add(24 * time.Hour)
	result := runUpdate(t, fake, configPath, second)
	require.Equal(t, 1, result.Downloads)
	require.Equal(t, 1, result.Backups)
	require.Equal(t, 1, result.Pending)

	backupDir := filepath.Join(root, backup.Dirname, backup.NewID(second))
	require.Equal(t, backupDir, result.BackupDir)
	require.Equal(t, "geyser 2.6.0", readFile(t, filepath.Join(backupDir, "plugins", "Geyser-Spigot.jar")))
	require.Equal(t, "geyser 2.6.1", readFile(t, filepath.Join(root, "plugins", "Geyser-Spigot.jar")))
	require.NoFileExists(t, filepath.Join(backupDir, "plugins", "floodgate-spigot.jar"))
	require.NoFileExists(t, filepath.Join(backupDir, "server.jar"))

	current := loadState(t, root)
	require.Equal(t, "2.6.1", current.Target("geyser").Resolved)
	require.True(t, current.Target("geyser").InstalledAt.Time.Equal(second))
	require.True(t, current.Target("floodgate").InstalledAt.Time.Equal(firstRun))
	requireHashesMatch(t, root, current)
}

// TestApply_Update_BacksUpServerJar bumps the server build and checks the canonical jar is preserved and relinked.
func TestApply_Update_BacksUpServerJar(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstream(t)
	root, configPath := newRoot(t)

	runInstall(t, fake, configPath, firstRun)
	fake.bumpServer(2401)

	second := firstRun.Add(24 * time.Hour)
	result := runUpdate(t, fake, configPath, second)
	require.Equal(t, 1, result.Downloads)

	backupDir := filepath.Join(root, backup.Dirname, backup.NewID(second))

	// The backup holds real bytes even when the canonical jar was a link.
	info, err := os.Lstat(filepath.Join(backupDir, "server.jar"))
	require.NoError(t, err)
	require.True(t, info.Mode().IsRegular())
	require.Equal(t, "purpur 1.21.4 build 2400", readFile(t, filepath.Join(backupDir, "server.jar")))

	require.Equal(t, "purpur 1.21.4 build 2401", readFile(t, filepath.Join(root, "server.jar")))
	require.FileExists(t, filepath.Join(root, install.VersionedJarName(install.PlatformPurpur, "1.21.4-2401")))
	require.FileExists(t, filepath.Join(root, install.VersionedJarName(install.PlatformPurpur, "1.21.4-2400")))

	current := loadState(t, root)
	require.Equal(t, "1.21.4-2401", current.Installed.Server.Label)
	requireHashesMatch(t, root, current)
}

// TestApply_Update_ReinstallsMissingFile deletes a plugin and checks update restores it without a backup.
func TestApply_Update_ReinstallsMissingFile(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstream(t)
	root, configPath := newRoot(t)

	runInstall(t, fake, configPath, firstRun)
	require.NoError(t, os.Remove(filepath.Join(root, "plugins", "ViaVersion.jar")))

	result := runUpdate(t, fake, configPath, firstRun.Add(time.Minute))
	require.Equal(t, 1, result.Downloads)
	require.Zero(t, result.Backups)

	for _, decision := range result.Decisions {
		if decision.Artifact == "viaversion" {
			require.Equal(t, string(install.ReasonFileMissing), decision.Reason)
		}
	}

	require.Equal(t, "bytes of ViaVersion-5.2.1.jar", readFile(t, filepath.Join(root, "plugins", "ViaVersion.jar")))
}

// TestApply_Update_DryRunChangesNothing checks that a dry run reports pending work and leaves files alone.
func TestApply_Update_DryRunChangesNothing(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstream(t)
	root, configPath := newRoot(t)

	runInstall(t, fake, configPath, firstRun)
	fake.bumpCompanion("floodgate", "2.2.5")

	before := readFile(t, filepath.Join(root, state.Filename))

	result, err := apply.Run(context.Background(), &apply.Options{
		ConfigPath: configPath,
		Mode:       install.ModeUpdate,
		DryRun:     true,
		Endpoints:  fake.endpoints(),
		Now:        clockAt(firstRun.Add(time.Hour)),
	})
	require.NoError(t, err)
	require.True(t, result.DryRun)
	require.Equal(t, 1, result.Pending)
	require.Zero(t, result.Downloads)

	require.Equal(t, before, readFile(t, filepath.Join(root, state.Filename)))
	require.Equal(t, "floodgate 2.2.4", readFile(t, filepath.Join(root, "plugins", "floodgate-spigot.jar")))
	require.NoDirExists(t, filepath.Join(root, backup.Dirname))
	require.Equal(t, 1, fake.downloadCount("floodgate"))
}

// TestApply_Install_FailedTargetSkipsStateWrite checks that a failing download aborts the run without writing state.
func TestApply_Install_FailedTargetSkipsStateWrite(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstream(t)
	root, configPath := newRoot(t)
	fake.fail("floodgate")

	_, err := apply.Run(context.Background(), &apply.Options{
		ConfigPath: configPath,
		Mode:       install.ModeInstall,
		Platform:   install.PlatformPurpur,
		MCVersion:  gameVersion,
		AcceptEULA: true,
		Endpoints:  fake.endpoints(),
		Now:        clockAt(firstRun),
	})
	require.Error(t, err)
	require.Equal(t, install.KindNetwork, install.KindOf(err))
	require.Contains(t, err.Error(), "floodgate")

	require.NoFileExists(t, filepath.Join(root, state.Filename))
	require.NoFileExists(t, filepath.Join(root, lock.Filename))
	require.NoFileExists(t, filepath.Join(root, installer.EULAFilename))
}

// TestStatus_Check_AfterUpstreamBump checks that status reads the installed state and flags the bumped artifact.
func TestStatus_Check_AfterUpstreamBump(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstream(t)
	root, configPath := newRoot(t)

	runInstall(t, fake, configPath, firstRun)
	fake.bumpCompanion("geyser", "2.7.0")

	report, err := status.Run(context.Background(), &status.Options{
		ConfigPath: configPath,
		Check:      true,
		Endpoints:  fake.endpoints(),
	})
	require.NoError(t, err)
	require.Equal(t, root, report.Root)
	require.Equal(t, 1, report.Pending)
	require.Len(t, report.Artifacts, 4)

	for _, artifact := range report.Artifacts {
		require.True(t, artifact.Exists, artifact.Name)
		require.True(t, artifact.HashMatches, artifact.Name)
		require.Equal(t, artifact.Name == "geyser", artifact.NeedsUpdate, artifact.Name)
	}
}

// TestApply_Update_DropsDeselectedTarget removes a target from default_targets and checks its record leaves the state.
func TestApply_Update_DropsDeselectedTarget(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstream(t)
	root, configPath := newRoot(t)

	runInstall(t, fake, configPath, firstRun)
	require.NotNil(t, loadState(t, root).Target("geyser"))

	trimmed := strings.Replace(configText,
		`default_targets = ["viaversion", "geyser", "floodgate"]`,
		`default_targets = ["viaversion", "floodgate"]`, 1)
	require.NoError(t, os.WriteFile(configPath, []byte(trimmed), 0o600))
	require.NoError(t, os.Remove(filepath.Join(root, "plugins", "Geyser-Spigot.jar")))

	result := runUpdate(t, fake, configPath, firstRun.Add(time.Hour))
	require.Zero(t, result.Downloads)

	current := loadState(t, root)
	require.Nil(t, current.Target("geyser"))
	require.Len(t, current.Installed.Targets, 2)
	require.NotNil(t, current.Target("viaversion"))
	require.NotNil(t, current.Target("floodgate"))
	requireHashesMatch(t, root, current)
}
