package launcher

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

var errSystemctlMissing = errors.New("systemctl not found (systemd user services require systemd)")

// systemdIntegration writes a shell launcher, a desktop entry and a systemd user service.
type systemdIntegration struct {
	env Environment
}

func (s *systemdIntegration) Name() string { return "linux" }

func (s *systemdIntegration) Columns() []string { return []string{"launcher", "desktop", "service"} }

func (s *systemdIntegration) binDir() string {
	return filepath.Join(s.env.Home, ".local", "bin")
}

func (s *systemdIntegration) appsDir() string {
	return filepath.Join(s.env.Home, ".local", "share", "applications")
}

func (s *systemdIntegration) serviceDir() string {
	return filepath.Join(s.env.Home, ".config", "systemd", "user")
}

func (s *systemdIntegration) scriptPath(h *Handoff) string {
	return filepath.Join(s.binDir(), filePrefix+h.SafeID+".sh")
}

func (s *systemdIntegration) serviceName(h *Handoff) string {
	return filePrefix + h.SafeID + ".service"
}

func (s *systemdIntegration) InstallLauncher(_ context.Context, h *Handoff) ([]string, error) {
	script := s.scriptPath(h)
	if err := writeFile(script, render(shellScriptTemplate, launchValues(h)), scriptPermissions); err != nil {
		return nil, err
	}

	desktop := filepath.Join(s.appsDir(), filePrefix+h.SafeID+".desktop")

	entry := render(desktopEntryTemplate, map[string]string{
		"DISPLAY_NAME": h.DisplayName,
		"EXEC_PATH":    script,
	})
	if err := writeFile(desktop, entry, regularPermissions); err != nil {
		return nil, err
	}

	return []string{script, desktop}, nil
}

func (s *systemdIntegration) RegisterAutostart(ctx context.Context, h *Handoff) (*Registration, error) {
	if _, err := s.env.LookPath("systemctl"); err != nil {
		return nil, install.NewError(install.KindConfig, "register service", errSystemctlMissing)
	}

	script := s.scriptPath(h)
	if err := ensureFile(script, render(shellScriptTemplate, launchValues(h)), scriptPermissions); err != nil {
		return nil, err
	}

	name := s.serviceName(h)
	path := filepath.Join(s.serviceDir(), name)

	unit := render(systemdUnitTemplate, map[string]string{
		"DISPLAY_NAME": h.DisplayName,
		"EXEC_PATH":    script,
		"WORKDIR":      h.Root,
	})
	if err := writeFile(path, unit, regularPermissions); err != nil {
		return nil, err
	}

	runBestEffort(ctx, s.env.Run, "systemctl", "--user", "daemon-reload")

	if err := s.env.Run(ctx, "systemctl", "--user", "enable", "--now", name); err != nil {
		return nil, install.NewError(install.KindFilesystem, "enable service", err)
	}

	return &Registration{
		Name: name,
		Path: path,
		Hint: "systemctl --user status " + name,
	}, nil
}

func (s *systemdIntegration) RemoveAutostart(ctx context.Context, h *Handoff) (*Registration, error) {
	if _, err := s.env.LookPath("systemctl"); err != nil {
		return nil, install.NewError(install.KindConfig, "remove service", errSystemctlMissing)
	}

	name := s.serviceName(h)
	path := filepath.Join(s.serviceDir(), name)

	runBestEffort(ctx, s.env.Run, "systemctl", "--user", "disable", "--now", name)

	removed, err := removeFile(path)
	if err != nil {
		return nil, err
	}

	runBestEffort(ctx, s.env.Run, "systemctl", "--user", "daemon-reload")

	return &Registration{Name: name, Path: path, Removed: removed}, nil
}

func (s *systemdIntegration) ListShortcuts(_ context.Context) ([]Shortcut, error) {
	return collect(
		pattern{column: "launcher", dir: s.binDir(), prefix: filePrefix, suffix: ".sh"},
		pattern{column: "desktop", dir: s.appsDir(), prefix: filePrefix, suffix: ".desktop"},
		pattern{column: "service", dir: s.serviceDir(), prefix: filePrefix, suffix: ".service"},
	)
}
