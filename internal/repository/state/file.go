package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

// Filename is the name of the state file inside the installation root.
const Filename = "state.toml"

const header = "# Managed by mcsm. Records what was installed; edits are overwritten on the next apply.\n\n"

// Repository defines persistence operations for the installed state.
type Repository interface {
	Load(ctx context.Context) (*install.State, error)
	Save(ctx context.Context, state *install.State) error
	Path() string
}

var _ Repository = (*FileRepository)(nil)

// FileRepository persists the installed state to a TOML file on disk.
type FileRepository struct {
	// path is the filesystem location of the state file.
	path string
	// mu serializes access within one process; the apply lock covers other processes.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// NewFileRepository creates a repository that reads and writes TOML at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// ForRoot creates a repository for the state file of an installation root.
func ForRoot(root string) *FileRepository {
	return NewFileRepository(filepath.Join(root, Filename))
}

// Path returns the location of the state file.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the state from disk.
func (r *FileRepository) Load(_ context.Context) (*install.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, install.NewError(install.KindState, "read state file", err)
	}

	state := install.NewState()
	if err = toml.Unmarshal(contents, state); err != nil {
		return nil, install.NewError(install.KindState, "decode state file "+r.path, err)
	}

	if state.Installed.Targets == nil {
		state.Installed.Targets = make(map[string]*install.TargetRecord)
	}

	return state, nil
}

// Save replaces the state file atomically.
func (r *FileRepository) Save(_ context.Context, state *install.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var buffer bytes.Buffer

	buffer.WriteString(header)

	encoder := toml.NewEncoder(&buffer)
	encoder.SetIndentTables(false)

	if err := encoder.Encode(state); err != nil {
		return install.NewError(install.KindState, "encode state", err)
	}

	if err := writeAtomic(r.path, buffer.Bytes()); err != nil {
		return install.NewError(install.KindFilesystem, "write state file", err)
	}

	return nil
}

// writeAtomic writes data to a sibling temporary file and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // Directory permissions.
		return err
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	tempPath := temp.Name()

	cleanup := func(cause error) error {
		temp.Close()        //nolint:errcheck,gosec // Already failing.
		os.Remove(tempPath) //nolint:errcheck,gosec // Best effort.

		return cause
	}

	if _, err = temp.Write(data); err != nil {
		return cleanup(fmt.Errorf("write temporary file: %w", err))
	}

	if err = temp.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync temporary file: %w", err))
	}

	if err = temp.Close(); err != nil {
		os.Remove(tempPath) //nolint:errcheck,gosec // Best effort.
		return fmt.Errorf("close temporary file: %w", err)
	}

	if err = os.Chmod(tempPath, config.DefaultFilePermissions); err != nil {
		os.Remove(tempPath) //nolint:errcheck,gosec // Best effort.
		return fmt.Errorf("chmod temporary file: %w", err)
	}

	if err = os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath) //nolint:errcheck,gosec // Best effort.
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
