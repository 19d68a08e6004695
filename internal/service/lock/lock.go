package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-ps"
	"github.com/pelletier/go-toml/v2"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
)

// Filename is the lock file inside the installation root.
const Filename = ".mcsm.lock"

// unreadableGrace is how long an unparsable lock file is assumed to be mid-write.
const unreadableGrace = time.Minute

// ErrLocked is returned when another live process holds the lock.
var ErrLocked = errors.New("installation root is locked by another mcsm process")

// owner is the lock file content.
type owner struct {
	PID        int              `toml:"pid"`
	Token      string           `toml:"token"`
	Host       string           `toml:"host"`
	AcquiredAt install.Timestamp `toml:"acquired_at"`
}

// Lock is a held installation lock.
type Lock struct {
	path  string
	token string
}

// processAlive reports whether pid still runs. Replaced in tests.
//
//nolint:gochecknoglobals // Test seam.
var processAlive = func(pid int) bool {
	process, err := ps.FindProcess(pid)
	if err != nil {
		return true
	}

	return process != nil
}

// Acquire takes the lock of root or fails with a KindLocked error.
func Acquire(ctx context.Context, root string) (*Lock, error) {
	path := filepath.Join(root, Filename)

	if err := os.MkdirAll(root, 0o755); err != nil { //nolint:mnd // Directory permissions.
		return nil, install.NewError(install.KindFilesystem, "create installation root", err)
	}

	host, _ := os.Hostname() //nolint:errcheck // Informational only.

	current := owner{
		PID:        os.Getpid(),
		Token:      uuid.NewString(),
		Host:       host,
		AcquiredAt: install.NewTimestamp(time.Now()),
	}

	contents, err := toml.Marshal(current)
	if err != nil {
		return nil, install.NewError(install.KindFilesystem, "encode lock", err)
	}

	// One retry after removing a stale lock.
	for range 2 {
		err = create(path, contents)
		if err == nil {
			logger.DebugKV(ctx, "Lock acquired", "path", path, "token", current.Token)

			return &Lock{path: path, token: current.Token}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, install.NewError(install.KindFilesystem, "create lock", err)
		}

		stale, holder := inspect(path)
		if !stale {
			return nil, install.NewError(install.KindLocked, "acquire lock",
				fmt.Errorf("%w (pid %d on %q since %s)", ErrLocked, holder.PID, holder.Host, holder.AcquiredAt.Format(time.RFC3339)))
		}

		logger.WarnKV(ctx, "Removing stale lock", "path", path, "pid", holder.PID)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, install.NewError(install.KindFilesystem, "remove stale lock", err)
		}
	}

	return nil, install.NewError(install.KindLocked, "acquire lock", ErrLocked)
}

// Release removes the lock file if this holder still owns it.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}

	contents, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return install.NewError(install.KindFilesystem, "read lock", err)
	}

	var holder owner
	if err = toml.Unmarshal(contents, &holder); err != nil || holder.Token != l.token {
		logger.WarnKV(ctx, "Lock was taken over, leaving it in place", "path", l.path)
		return nil
	}

	if err = os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return install.NewError(install.KindFilesystem, "release lock", err)
	}

	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

func create(path string, contents []byte) error {
	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:mnd // Private.
	if err != nil {
		return err
	}

	if _, err = file.Write(contents); err != nil {
		file.Close()    //nolint:errcheck,gosec // Already failing.
		os.Remove(path) //nolint:errcheck,gosec // Best effort.

		return err
	}

	return file.Close()
}

// inspect reports whether the lock at path is stale and who holds it.
func inspect(path string) (bool, owner) {
	var holder owner

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return errors.Is(err, os.ErrNotExist), holder
	}

	if err = toml.Unmarshal(contents, &holder); err != nil || holder.PID <= 0 {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return true, holder
		}

		return time.Since(info.ModTime()) > unreadableGrace, holder
	}

	return !processAlive(holder.PID), holder
}
