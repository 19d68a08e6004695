package launcher

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

const agentLabelPrefix = "mcsm.mcserver."

// launchdIntegration writes a shell launcher, a Terminal .command file and a launchd agent.
type launchdIntegration struct {
	env Environment
}

func (l *launchdIntegration) Name() string { return "darwin" }

func (l *launchdIntegration) Columns() []string { return []string{"launcher", "command", "launchagent"} }

func (l *launchdIntegration) binDir() string {
	return filepath.Join(l.env.Home, ".local", "bin")
}

func (l *launchdIntegration) appsDir() string {
	return filepath.Join(l.env.Home, "Applications")
}

func (l *launchdIntegration) agentsDir() string {
	return filepath.Join(l.env.Home, "Library", "LaunchAgents")
}

func (l *launchdIntegration) scriptPath(h *Handoff) string {
	return filepath.Join(l.binDir(), filePrefix+h.SafeID+".sh")
}

func (l *launchdIntegration) domain() string {
	return "gui/" + strconv.Itoa(l.env.UID)
}

func (l *launchdIntegration) InstallLauncher(_ context.Context, h *Handoff) ([]string, error) {
	script := l.scriptPath(h)
	if err := writeFile(script, render(shellScriptTemplate, launchValues(h)), scriptPermissions); err != nil {
		return nil, err
	}

	command := filepath.Join(l.appsDir(), filePrefix+h.SafeID+".command")
	if err := writeFile(command, render(commandWrapperTemplate, map[string]string{"EXEC_PATH": script}), scriptPermissions); err != nil {
		return nil, err
	}

	return []string{script, command}, nil
}

func (l *launchdIntegration) RegisterAutostart(ctx context.Context, h *Handoff) (*Registration, error) {
	script := l.scriptPath(h)
	if err := ensureFile(script, render(shellScriptTemplate, launchValues(h)), scriptPermissions); err != nil {
		return nil, err
	}

	// The agent writes its stdout and stderr under <root>/logs.
	if err := os.MkdirAll(filepath.Join(h.Root, "logs"), 0o755); err != nil { //nolint:mnd // Directory permissions.
		return nil, install.NewError(install.KindFilesystem, "create logs directory", err)
	}

	label := agentLabelPrefix + h.SafeID
	path := filepath.Join(l.agentsDir(), label+".plist")

	agent := render(launchAgentTemplate, map[string]string{
		"LABEL":     label,
		"EXEC_PATH": script,
		"WORKDIR":   h.Root,
	})
	if err := writeFile(path, agent, regularPermissions); err != nil {
		return nil, err
	}

	service := l.domain() + "/" + label

	runBestEffort(ctx, l.env.Run, "launchctl", "bootstrap", l.domain(), path)
	runBestEffort(ctx, l.env.Run, "launchctl", "enable", service)
	runBestEffort(ctx, l.env.Run, "launchctl", "kickstart", "-k", service)

	return &Registration{
		Name: label,
		Path: path,
		Hint: "launchctl print " + service,
	}, nil
}

func (l *launchdIntegration) RemoveAutostart(ctx context.Context, h *Handoff) (*Registration, error) {
	label := agentLabelPrefix + h.SafeID
	path := filepath.Join(l.agentsDir(), label+".plist")

	runBestEffort(ctx, l.env.Run, "launchctl", "bootout", l.domain(), path)

	removed, err := removeFile(path)
	if err != nil {
		return nil, err
	}

	return &Registration{Name: label, Path: path, Removed: removed}, nil
}

func (l *launchdIntegration) ListShortcuts(_ context.Context) ([]Shortcut, error) {
	return collect(
		pattern{column: "launcher", dir: l.binDir(), prefix: filePrefix, suffix: ".sh"},
		pattern{column: "command", dir: l.appsDir(), prefix: filePrefix, suffix: ".command"},
		pattern{column: "launchagent", dir: l.agentsDir(), prefix: agentLabelPrefix, suffix: ".plist"},
	)
}
