package launcher

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

var errAppDataMissing = errors.New("APPDATA is not set")

// startMenuIntegration writes a Start Menu batch file and copies it into Startup for autostart.
type startMenuIntegration struct {
	env Environment
}

func (w *startMenuIntegration) Name() string { return "windows" }

func (w *startMenuIntegration) Columns() []string { return []string{"start_menu", "startup"} }

func (w *startMenuIntegration) programsDir() (string, error) {
	if w.env.AppData == "" {
		return "", install.NewError(install.KindConfig, "locate start menu", errAppDataMissing)
	}

	return filepath.Join(w.env.AppData, "Microsoft", "Windows", "Start Menu", "Programs"), nil
}

func batchName(h *Handoff) string {
	return filePrefix + h.SafeID + ".bat"
}

func (w *startMenuIntegration) InstallLauncher(_ context.Context, h *Handoff) ([]string, error) {
	programs, err := w.programsDir()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(programs, batchName(h))
	if err = writeFile(path, render(batchFileTemplate, launchValues(h)), regularPermissions); err != nil {
		return nil, err
	}

	return []string{path}, nil
}

func (w *startMenuIntegration) RegisterAutostart(_ context.Context, h *Handoff) (*Registration, error) {
	programs, err := w.programsDir()
	if err != nil {
		return nil, err
	}

	source := filepath.Join(programs, batchName(h))
	if err = ensureFile(source, render(batchFileTemplate, launchValues(h)), regularPermissions); err != nil {
		return nil, err
	}

	destination := filepath.Join(programs, "Startup", batchName(h))
	if err = copyFile(source, destination); err != nil {
		return nil, err
	}

	return &Registration{Name: batchName(h), Path: destination}, nil
}

func (w *startMenuIntegration) RemoveAutostart(_ context.Context, h *Handoff) (*Registration, error) {
	programs, err := w.programsDir()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(programs, "Startup", batchName(h))

	removed, err := removeFile(path)
	if err != nil {
		return nil, err
	}

	return &Registration{Name: batchName(h), Path: path, Removed: removed}, nil
}

func (w *startMenuIntegration) ListShortcuts(_ context.Context) ([]Shortcut, error) {
	programs, err := w.programsDir()
	if err != nil {
		return nil, err
	}

	return collect(
		pattern{column: "start_menu", dir: programs, prefix: filePrefix, suffix: ".bat"},
		pattern{column: "startup", dir: filepath.Join(programs, "Startup"), prefix: filePrefix, suffix: ".bat"},
	)
}
