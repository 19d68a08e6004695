package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
)

// Dirname is the backup area inside the installation root.
const Dirname = ".bak"

// IDLayout formats backup ids; ids sort chronologically.
const IDLayout = "20060102-150405"

// NewID returns the backup id for an apply started at now.
func NewID(now time.Time) string {
	return now.Format(IDLayout)
}

// Manager moves files of one apply into a shared backup directory.
type Manager struct {
	root string
	id   string
}

// NewManager creates a manager for root using backup id id.
func NewManager(root, id string) *Manager {
	return &Manager{root: root, id: id}
}

// ID returns the backup id.
func (m *Manager) ID() string {
	return m.id
}

// Dir returns the backup directory of this apply. It exists only once something was moved.
func (m *Manager) Dir() string {
	return filepath.Join(m.root, Dirname, m.id)
}

// Move relocates root/rel into the backup directory and reports whether anything was moved.
// A missing source is a no-op. A symlink is backed up as a regular file holding
// the bytes it resolved to, so the backup stays readable after the link target changes.
func (m *Manager) Move(ctx context.Context, rel string) (bool, error) {
	source := filepath.Join(m.root, filepath.FromSlash(rel))

	info, err := os.Lstat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, install.NewError(install.KindFilesystem, "backup "+rel, err)
	}

	destination := filepath.Join(m.Dir(), filepath.FromSlash(rel))

	if err = os.MkdirAll(filepath.Dir(destination), 0o755); err != nil { //nolint:mnd // Directory permissions.
		return false, install.NewError(install.KindFilesystem, "create backup directory", err)
	}

	if err = os.RemoveAll(destination); err != nil {
		return false, install.NewError(install.KindFilesystem, "replace previous backup of "+rel, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if err = m.materialize(source, destination); err != nil {
			return false, install.NewError(install.KindFilesystem, "backup "+rel, err)
		}
	} else if err = os.Rename(source, destination); err != nil {
		return false, install.NewError(install.KindFilesystem, "backup "+rel, err)
	}

	logger.InfoKV(ctx, "Backed up", "path", rel, "backup", destination)

	return true, nil
}

// materialize copies the bytes behind a symlink to destination and removes the link.
// A dangling link is moved as is.
func (m *Manager) materialize(link, destination string) error {
	source, err := os.Open(filepath.Clean(link))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.Rename(link, destination)
		}

		return err
	}

	defer source.Close() //nolint:errcheck // Read-only.

	target, err := os.OpenFile(filepath.Clean(destination), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:mnd // Jar permissions.
	if err != nil {
		return err
	}

	if _, err = io.Copy(target, source); err != nil {
		target.Close() //nolint:errcheck,gosec // Already failing.
		return fmt.Errorf("copy link content: %w", err)
	}

	if err = target.Close(); err != nil {
		return err
	}

	return os.Remove(link)
}
