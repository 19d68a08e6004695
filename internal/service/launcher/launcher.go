package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
)

// filePrefix starts every file this package writes.
const filePrefix = "mcserver-"

const (
	scriptPermissions  os.FileMode = 0o755
	regularPermissions os.FileMode = 0o644
)

// ErrUnsupportedOS indicates an OS family without an integration.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Handoff is everything the OS layer gets from the installation.
type Handoff struct {
	// Root is the absolute installation root.
	Root string
	// Jar is the server jar relative to Root.
	Jar       string
	Xmx       string
	Xms       string
	ExtraArgs []string
	// DisplayName is shown in menus; SafeID names files and units.
	DisplayName string
	SafeID      string
}

// HandoffFromConfig builds the hand-off for cfg. An empty name yields "<server.name>-<mc_version>".
func HandoffFromConfig(cfg *config.Config, name string) *Handoff {
	display, safe := cfg.ShortcutName(name)

	return &Handoff{
		Root:        cfg.Root,
		Jar:         filepath.FromSlash(cfg.Server.JarOut),
		Xmx:         cfg.Server.JVM.Xmx,
		Xms:         cfg.Server.JVM.Xms,
		ExtraArgs:   cfg.Server.JVM.ExtraArgs,
		DisplayName: display,
		SafeID:      safe,
	}
}

// Registration describes an autostart entry that was added or removed.
type Registration struct {
	// Name is the unit, agent label or file name.
	Name string
	// Path is the file backing the entry.
	Path string
	// Hint is a command that shows the entry's status, if any.
	Hint string
	// Removed reports whether RemoveAutostart found something to delete.
	Removed bool
}

// Shortcut groups the files found for one shortcut id, keyed by column.
type Shortcut struct {
	ID    string            `json:"id" yaml:"id"`
	Files map[string]string `json:"files" yaml:"files"`
}

// Integration is one OS family's launcher and autostart implementation.
type Integration interface {
	// Name identifies the OS family.
	Name() string
	// InstallLauncher writes the launcher files and returns their paths.
	InstallLauncher(ctx context.Context, h *Handoff) ([]string, error)
	// RegisterAutostart starts the server at login.
	RegisterAutostart(ctx context.Context, h *Handoff) (*Registration, error)
	// RemoveAutostart undoes RegisterAutostart.
	RemoveAutostart(ctx context.Context, h *Handoff) (*Registration, error)
	// ListShortcuts finds every shortcut written by this package.
	ListShortcuts(ctx context.Context) ([]Shortcut, error)
	// Columns lists the Shortcut.Files keys in display order.
	Columns() []string
}

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// Environment is what the integrations need from the host.
type Environment struct {
	// Home is the user's home directory.
	Home string
	// AppData is %APPDATA% on Windows.
	AppData string
	// UID is the numeric user id for launchd domains.
	UID int
	// Run executes external commands.
	Run Runner
	// LookPath finds executables.
	LookPath func(file string) (string, error)
}

// New returns the integration for goos.
func New(goos string, env Environment) (Integration, error) {
	if env.Run == nil {
		env.Run = ExecRunner
	}

	if env.LookPath == nil {
		env.LookPath = exec.LookPath
	}

	osName := strings.ToLower(goos)

	switch {
	case strings.Contains(osName, "linux"):
		return &systemdIntegration{env: env}, nil
	case strings.Contains(osName, "darwin"):
		return &launchdIntegration{env: env}, nil
	case strings.Contains(osName, "windows"):
		return &startMenuIntegration{env: env}, nil
	default:
		return nil, fmt.Errorf("%s: %w", goos, ErrUnsupportedOS)
	}
}

// Detect returns the integration of the running host.
func Detect() (Integration, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, install.NewError(install.KindFilesystem, "find home directory", err)
	}

	return New(runtime.GOOS, Environment{
		Home:    home,
		AppData: os.Getenv("APPDATA"),
		UID:     os.Getuid(),
	})
}

// ExecRunner runs a command and folds its output into the error.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	logger.DebugKV(ctx, "Running", "command", name, "args", args)

	combined, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(combined)))
	}

	return nil
}

// runBestEffort runs a command whose failure is only worth a warning.
func runBestEffort(ctx context.Context, run Runner, name string, args ...string) {
	if err := run(ctx, name, args...); err != nil {
		logger.WarnKV(ctx, "Command failed, continuing", "error", err)
	}
}

func writeFile(path, contents string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd // Directory permissions.
		return install.NewError(install.KindFilesystem, "create directory", err)
	}

	if err := os.WriteFile(path, []byte(contents), mode); err != nil {
		return install.NewError(install.KindFilesystem, "write "+filepath.Base(path), err)
	}

	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, mode); err != nil {
		return install.NewError(install.KindFilesystem, "chmod "+filepath.Base(path), err)
	}

	return nil
}

// ensureFile writes path only when it does not exist yet.
func ensureFile(path, contents string, mode os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return writeFile(path, contents, mode)
}

// removeFile deletes path and reports whether it existed.
func removeFile(path string) (bool, error) {
	err := os.Remove(path)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, install.NewError(install.KindFilesystem, "remove "+filepath.Base(path), err)
	}
}

func copyFile(source, destination string) error {
	contents, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		return install.NewError(install.KindFilesystem, "read "+filepath.Base(source), err)
	}

	return writeFile(destination, string(contents), regularPermissions)
}

// pattern describes one kind of shortcut file.
type pattern struct {
	column string
	dir    string
	prefix string
	suffix string
}

// collect globs every pattern and groups the matches by shortcut id.
func collect(patterns ...pattern) ([]Shortcut, error) {
	found := make(map[string]map[string]string)

	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(p.dir, p.prefix+"*"+p.suffix))
		if err != nil {
			return nil, err
		}

		for _, match := range matches {
			id := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(match), p.prefix), p.suffix)
			if id == "" {
				continue
			}

			if found[id] == nil {
				found[id] = make(map[string]string)
			}

			found[id][p.column] = match
		}
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	shortcuts := make([]Shortcut, 0, len(ids))
	for _, id := range ids {
		shortcuts = append(shortcuts, Shortcut{ID: id, Files: found[id]})
	}

	return shortcuts, nil
}
