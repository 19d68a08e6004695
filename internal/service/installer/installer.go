package installer

import (
	"context"
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
)

const (
	// EULAFilename is the file the server reads to check EULA acceptance.
	EULAFilename = "eula.txt"

	eulaContents = "eula=true\n"
)

var errNoDownloadURL = errors.New("no download url")

// Downloader fetches a URL into a local file.
type Downloader interface {
	DownloadFile(ctx context.Context, url, path string) (int64, error)
}

// Installer places downloaded artifacts under one installation root.
type Installer struct {
	downloader Downloader
	root       string
	now        func() time.Time
	symlink    func(oldname, newname string) error
}

// Option configures an Installer.
type Option func(*Installer)

// WithClock overrides the installation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(i *Installer) {
		if now != nil {
			i.now = now
		}
	}
}

// New creates an installer writing under root.
func New(downloader Downloader, root string, opts ...Option) *Installer {
	i := &Installer{
		downloader: downloader,
		root:       root,
		now:        time.Now,
		symlink:    os.Symlink,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// InstallServer installs the planned server build at jarOut.
// With keepVersioned the build is stored under a version-qualified name next to
// jarOut and jarOut becomes a symlink to it, or a full copy where symlinks fail.
func (i *Installer) InstallServer(
	ctx context.Context,
	plan install.ServerPlan,
	jarOut string,
	keepVersioned bool,
) (*install.ServerRecord, error) {
	ctx = logger.WithName(ctx, "installer")

	if plan.URL == "" {
		return nil, install.NewTargetError(install.KindResolution, "install server", install.ServerArtifact, errNoDownloadURL)
	}

	record := &install.ServerRecord{
		Type:        plan.Platform,
		GameVersion: plan.GameVersion,
		Label:       plan.Label,
		URL:         plan.URL,
		Jar:         filepath.ToSlash(jarOut),
		InstalledAt: install.NewTimestamp(i.now()),
	}

	destination := record.Jar
	if keepVersioned {
		record.VersionedJar = path.Join(path.Dir(record.Jar), install.VersionedJarName(plan.Platform, plan.Label))
		destination = record.VersionedJar
	}

	sum, err := i.place(ctx, plan.URL, destination, install.ServerArtifact)
	if err != nil {
		return nil, err
	}

	record.SHA256 = sum

	if keepVersioned {
		if err = i.link(ctx, record.VersionedJar, record.Jar); err != nil {
			return nil, err
		}
	}

	logger.InfoKV(ctx, "Installed server", "label", plan.Label, "jar", record.Jar)

	return record, nil
}

// InstallTarget installs one planned plugin target at its output path.
func (i *Installer) InstallTarget(ctx context.Context, plan install.TargetPlan) (*install.TargetRecord, error) {
	ctx = logger.WithName(ctx, "installer")

	if plan.URL == "" {
		return nil, install.NewTargetError(install.KindResolution, "install target", plan.Name, errNoDownloadURL)
	}

	sum, err := i.place(ctx, plan.URL, plan.Out, plan.Name)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Installed target", "target", plan.Name, "version", plan.Label, "out", plan.Out)

	return &install.TargetRecord{
		Type:        plan.Type,
		ResolvedID:  plan.ID,
		Resolved:    plan.Label,
		URL:         plan.URL,
		Out:         filepath.ToSlash(plan.Out),
		SHA256:      sum,
		InstalledAt: install.NewTimestamp(i.now()),
	}, nil
}

// place downloads url and applies it at root/rel, returning the hex SHA-256 of the bytes.
func (i *Installer) place(ctx context.Context, url, rel, artifact string) (string, error) {
	tempDir, err := os.MkdirTemp("", "mcsm-download-")
	if err != nil {
		return "", install.NewTargetError(install.KindFilesystem, "create download directory", artifact, err)
	}

	defer os.RemoveAll(tempDir) //nolint:errcheck // Temporary data.

	downloaded := filepath.Join(tempDir, "artifact")

	size, err := i.downloader.DownloadFile(ctx, url, downloaded)
	if err != nil {
		return "", wrapTarget(err, artifact)
	}

	sum, err := FileSHA256(downloaded)
	if err != nil {
		return "", install.NewTargetError(install.KindFilesystem, "hash download", artifact, err)
	}

	logger.DebugKV(ctx, "Downloaded", "target", artifact, "bytes", size, "sha256", sum)

	if err = apply(downloaded, filepath.Join(i.root, filepath.FromSlash(rel)), sum); err != nil {
		return "", install.NewTargetError(install.KindFilesystem, "place "+rel, artifact, err)
	}

	return sum, nil
}

// apply moves the downloaded bytes onto target, verifying them against sum.
func apply(downloaded, target, sum string) error {
	checksum, err := hex.DecodeString(sum)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil { //nolint:mnd // Directory permissions.
		return err
	}

	// A leftover link must not redirect the write into another file.
	if info, statErr := os.Lstat(target); statErr == nil && info.Mode()&os.ModeSymlink != 0 {
		if err = os.Remove(target); err != nil {
			return err
		}
	}

	// go-update renames the previous file aside, so the target has to exist.
	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		if placeholder, err = os.Create(filepath.Clean(target)); err != nil {
			return err
		}

		if err = placeholder.Close(); err != nil {
			return err
		}
	}

	source, err := os.Open(filepath.Clean(downloaded))
	if err != nil {
		return err
	}

	defer source.Close() //nolint:errcheck // Read-only.

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: config.DefaultFilePermissions,
		Checksum:   checksum,
		Hash:       crypto.SHA256,
	}

	if err = goupdate.Apply(source, options); err != nil {
		return fmt.Errorf("apply %s: %w", filepath.Base(target), err)
	}

	return nil
}

// link points canonical at versioned, falling back to a byte copy.
func (i *Installer) link(ctx context.Context, versioned, canonical string) error {
	canonicalPath := filepath.Join(i.root, filepath.FromSlash(canonical))
	versionedPath := filepath.Join(i.root, filepath.FromSlash(versioned))

	if err := os.Remove(canonicalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return install.NewTargetError(install.KindFilesystem, "replace "+canonical, install.ServerArtifact, err)
	}

	linkErr := i.symlink(filepath.Base(versionedPath), canonicalPath)
	if linkErr == nil {
		if info, err := os.Stat(canonicalPath); err == nil && info.Mode().IsRegular() {
			return nil
		}

		linkErr = errors.New("link does not resolve to the versioned jar")

		os.Remove(canonicalPath) //nolint:errcheck,gosec // Replaced by the copy below.
	}

	logger.WarnKV(ctx, "Symlink failed, copying server jar instead",
		"error", install.NewTargetError(install.KindSymlinkUnsupported, "link "+canonical, install.ServerArtifact, linkErr))

	if err := copyFile(versionedPath, canonicalPath); err != nil {
		return install.NewTargetError(install.KindFilesystem, "copy "+versioned+" to "+canonical, install.ServerArtifact, err)
	}

	return nil
}

func copyFile(source, destination string) error {
	in, err := os.Open(filepath.Clean(source))
	if err != nil {
		return err
	}

	defer in.Close() //nolint:errcheck // Read-only.

	out, err := os.OpenFile(filepath.Clean(destination), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck,gosec // Already failing.
		return err
	}

	return out.Close()
}

// FileSHA256 returns the hex SHA-256 of the file at path, following symlinks.
func FileSHA256(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer file.Close() //nolint:errcheck // Read-only.

	hash := sha256.New()
	if _, err = io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// WriteEULA records EULA acceptance in root.
func WriteEULA(root string) error {
	target := filepath.Join(root, EULAFilename)

	if err := os.WriteFile(target, []byte(eulaContents), config.DefaultFilePermissions); err != nil {
		return install.NewError(install.KindFilesystem, "write "+EULAFilename, err)
	}

	return nil
}

// wrapTarget scopes an already classified error to artifact.
func wrapTarget(err error, artifact string) error {
	var classified *install.Error
	if errors.As(err, &classified) && classified.Target == "" {
		return install.NewTargetError(classified.Kind, classified.Op, artifact, classified.Err)
	}

	if errors.As(err, &classified) {
		return err
	}

	return install.NewTargetError(install.KindNetwork, "download", artifact, err)
}
