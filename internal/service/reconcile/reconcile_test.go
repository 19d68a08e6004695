package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

func fixture(t *testing.T) Input {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "plugins"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "server.jar"), []byte("server"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "plugins", "Geyser.jar"), []byte("geyser"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "plugins", "Via.jar"), []byte("via"), 0o600))

	state := install.NewState()
	state.Installed.Server = &install.ServerRecord{Label: "1.21.4-100", Jar: "server.jar"}
	state.SetTarget("geyser", &install.TargetRecord{Resolved: "2.6.0", Out: "plugins/Geyser.jar"})
	state.SetTarget("viaversion", &install.TargetRecord{ResolvedID: "id-1", Resolved: "5.2.1", Out: "plugins/Via.jar"})

	return Input{
		Mode: install.ModeUpdate,
		Plan: &install.Plan{
			Server: install.ServerPlan{Label: "1.21.4-100"},
			Targets: []install.TargetPlan{
				{Name: "geyser", Label: "2.6.0", Out: "plugins/Geyser.jar"},
				{Name: "viaversion", ID: "id-1", Label: "5.2.1", Out: "plugins/Via.jar"},
			},
		},
		State:  state,
		Root:   root,
		JarOut: "server.jar",
	}
}

// TestDecideUpToDate checks that matching identities with files present need nothing.
func TestDecideUpToDate(t *testing.T) {
	t.Parallel()

	decisions, err := Decide(fixture(t))
	require.NoError(t, err)
	require.False(t, decisions.Server.NeedsUpdate)
	require.Equal(t, install.ReasonUpToDate, decisions.Server.Reason)
	require.Zero(t, decisions.Pending())
}

// TestDecideServerIdentityChanged checks that a new label flips the server decision only.
func TestDecideServerIdentityChanged(t *testing.T) {
	t.Parallel()

	in := fixture(t)
	in.Plan.Server.Label = "1.21.4-101"

	decisions, err := Decide(in)
	require.NoError(t, err)
	require.True(t, decisions.Server.NeedsUpdate)
	require.Equal(t, install.ReasonIdentityChanged, decisions.Server.Reason)
	require.Equal(t, "1.21.4-100", decisions.Server.Current)
	require.Equal(t, 1, decisions.Pending())
}

// TestDecideServerFileMissing checks that deleting the jar flips the decision.
func TestDecideServerFileMissing(t *testing.T) {
	t.Parallel()

	in := fixture(t)
	require.NoError(t, os.Remove(filepath.Join(in.Root, "server.jar")))

	decisions, err := Decide(in)
	require.NoError(t, err)
	require.True(t, decisions.Server.NeedsUpdate)
	require.Equal(t, install.ReasonFileMissing, decisions.Server.Reason)
}

// TestDecideDanglingSymlink checks that a canonical link to a deleted jar counts as missing.
func TestDecideDanglingSymlink(t *testing.T) {
	t.Parallel()

	in := fixture(t)
	jar := filepath.Join(in.Root, "server.jar")
	require.NoError(t, os.Remove(jar))

	if err := os.Symlink("purpur-1.21.4-100.jar", jar); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	decisions, err := Decide(in)
	require.NoError(t, err)
	require.Equal(t, install.ReasonFileMissing, decisions.Server.Reason)
}

// TestDecideTargetIdentity checks that targets compare the stable id when present and the label otherwise.
func TestDecideTargetIdentity(t *testing.T) {
	t.Parallel()

	in := fixture(t)
	// Same id with a relabelled version number is still up to date.
	in.Plan.Targets[1].Label = "5.2.1+build.7"
	// No id: the label is the identity.
	in.Plan.Targets[0].Label = "2.7.0"

	decisions, err := Decide(in)
	require.NoError(t, err)

	geyser, ok := decisions.Target("geyser")
	require.True(t, ok)
	require.True(t, geyser.NeedsUpdate)
	require.Equal(t, install.ReasonIdentityChanged, geyser.Reason)

	viaversion, ok := decisions.Target("viaversion")
	require.True(t, ok)
	require.False(t, viaversion.NeedsUpdate)
}

// TestDecideTargetWithoutRecord checks that new targets are installed on update.
func TestDecideTargetWithoutRecord(t *testing.T) {
	t.Parallel()

	in := fixture(t)
	in.Plan.Targets = append(in.Plan.Targets, install.TargetPlan{Name: "floodgate", Label: "2.2.4", Out: "plugins/Floodgate.jar"})

	decisions, err := Decide(in)
	require.NoError(t, err)

	floodgate, ok := decisions.Target("floodgate")
	require.True(t, ok)
	require.True(t, floodgate.NeedsUpdate)
	require.Equal(t, install.ReasonNoRecord, floodgate.Reason)
	require.Equal(t, 1, decisions.Pending())
}

// TestDecideUpdateWithoutState checks the user-correctable state error.
func TestDecideUpdateWithoutState(t *testing.T) {
	t.Parallel()

	in := fixture(t)
	in.State = nil

	_, err := Decide(in)
	require.ErrorIs(t, err, install.ErrStateMissing)
	require.Equal(t, install.KindState, install.KindOf(err))
}

// TestDecideInstallIgnoresState checks that install mode installs everything.
func TestDecideInstallIgnoresState(t *testing.T) {
	t.Parallel()

	in := fixture(t)
	in.Mode = install.ModeInstall
	in.State = nil

	decisions, err := Decide(in)
	require.NoError(t, err)
	require.Equal(t, 3, decisions.Pending())
	require.Equal(t, install.ReasonInstall, decisions.Server.Reason)
}
