package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

const templatePlatform = "{{PLATFORM}}"

var (
	errTOMLOnly = errors.New("new configurations are written as TOML, use a .toml path")

	// ErrConfigExists is returned by WriteTemplate when the file exists and force is off.
	ErrConfigExists = errors.New("config already exists, use --force to overwrite")

	mcVersionLine   = regexp.MustCompile(`(?m)^[ \t]*mc_version[ \t]*=[ \t]*".*"[ \t]*$`)
	schemaLine      = regexp.MustCompile(`(?m)^[ \t]*schema[ \t]*=[ \t]*\d+[ \t]*$`)
	serverTypeLine  = regexp.MustCompile(`(?m)^[ \t]*type[ \t]*=[ \t]*".*"[ \t]*$`)
	serverSectionRe = regexp.MustCompile(`(?ms)^\[server\][ \t]*$(.*?)(?:^\[|\z)`)
)

const configTemplate = `# =========================================================
# mcsm.toml - Minecraft server & plugin manager config
#
# How mcsm decides the installation directory:
#   - mcsm always installs into the directory that contains this mcsm.toml.
#   - Run mcsm inside your server directory.
#
# PLACEHOLDER format:
#   - PLACEHOLDER_MC_VERSION
#   - PLACEHOLDER_USER_AGENT
#   - PLACEHOLDER_SERVERNAME
#
# Notes:
# - install will set mc_version by editing this file while preserving comments.
# - MCSM_USER_AGENT, MCSM_METADATA_TIMEOUT, MCSM_DOWNLOAD_TIMEOUT and
#   MCSM_RETRIES override the values below.
# =========================================================

schema = 1
mc_version = "PLACEHOLDER_MC_VERSION"
user_agent = "PLACEHOLDER_USER_AGENT"

# (Deprecated) dest_dir is ignored. mcsm uses the mcsm.toml directory.
#dest_dir = "PLACEHOLDER_DEST_DIR"

default_targets = ["viaversion", "geyser", "floodgate"]

[server]
type = "{{PLATFORM}}"
name = "PLACEHOLDER_SERVERNAME"
jar_out = "server.jar"
keep_versioned_jar = true

[server.jvm]
xmx = "1024M"
xms = "1024M"
# extra_args will be appended after "-jar <server.jar>"
#extra_args = ["nogui"]

# Upstream HTTP tuning (optional).
#[http]
#metadata_timeout = "30s"
#download_timeout = "3m"
#retries = 0

[targets.viaversion]
type = "modrinth"
slug = "viaversion"
loaders = ["paper", "purpur", "spigot", "bukkit"]
out = "plugins/ViaVersion.jar"

[targets.geyser]
type = "geyser"
project = "geyser"
platform = "spigot"
out = "plugins/Geyser-spigot.jar"

[targets.floodgate]
type = "geyser"
project = "floodgate"
platform = "spigot"
out = "plugins/Floodgate-spigot.jar"

# ---------------------------------------------------------
# Other plugin examples (commented out)
# ---------------------------------------------------------

#[targets.discordsrv]
#type = "modrinth"
#slug = "discordsrv"
#loaders = ["paper", "purpur", "spigot", "bukkit"]
#out = "plugins/DiscordSRV.jar"

#[targets.fawe]
#type = "modrinth"
#slug = "fastasyncworldedit"
#loaders = ["paper", "purpur", "spigot", "bukkit"]
#out = "plugins/FastAsyncWorldEdit.jar"

#[targets.voicechat]
#type = "modrinth"
#slug = "simple-voice-chat"
#loaders = ["paper", "purpur", "spigot", "bukkit"]
#out = "plugins/voicechat.jar"
`

// Template renders the commented configuration template for platform.
func Template(platform string) (string, error) {
	if !IsSupportedPlatform(platform) {
		return "", install.NewError(install.KindConfig, "render template",
			fmt.Errorf("unknown platform %q", platform))
	}

	return strings.Replace(configTemplate, templatePlatform, platform, 1), nil
}

// DefaultText renders the template with mc_version already set.
func DefaultText(platform, mcVersion string) (string, error) {
	text, err := Template(platform)
	if err != nil {
		return "", err
	}

	return Patch(text, platform, mcVersion), nil
}

// Patch sets mc_version and server.type in text while keeping every other line untouched.
func Patch(text, platform, mcVersion string) string {
	versionLine := fmt.Sprintf("mc_version = %q", mcVersion)

	if mcVersionLine.MatchString(text) {
		text = mcVersionLine.ReplaceAllLiteralString(text, versionLine)
	} else if loc := schemaLine.FindStringIndex(text); loc != nil {
		text = text[:loc[1]] + "\n" + versionLine + text[loc[1]:]
	} else {
		text = versionLine + "\n" + text
	}

	return patchServerType(text, platform)
}

func patchServerType(text, platform string) string {
	loc := serverSectionRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return text
	}

	typeLine := fmt.Sprintf("type = %q", platform)

	blockStart, blockEnd := loc[2], loc[3]
	block := text[blockStart:blockEnd]

	if serverTypeLine.MatchString(block) {
		block = serverTypeLine.ReplaceAllLiteralString(block, typeLine)
	} else {
		block = "\n" + typeLine + "\n" + strings.TrimLeft(block, "\n")
	}

	return text[:blockStart] + block + text[blockEnd:]
}

// WriteTemplate writes the template for platform to path.
func WriteTemplate(path, platform string, force bool) error {
	text, err := Template(platform)
	if err != nil {
		return err
	}

	if isYAML(path) {
		return install.NewError(install.KindConfig, "write template", fmt.Errorf("%s: %w", path, errTOMLOnly))
	}

	if _, err := os.Stat(path); err == nil && !force {
		return install.NewError(install.KindConfig, "write template", fmt.Errorf("%s: %w", path, ErrConfigExists))
	}

	return writeText(path, text)
}

// EnsureForInstall patches an existing configuration or creates a default one.
// It reports whether the file was created.
func EnsureForInstall(path, platform, mcVersion string) (bool, error) {
	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil && isYAML(path):
		// Patching only understands TOML; YAML files are validated against the request instead.
		return false, nil
	case err == nil:
		return false, writeText(path, Patch(string(contents), platform, mcVersion))
	case errors.Is(err, os.ErrNotExist) && isYAML(path):
		return false, install.NewError(install.KindConfig, "create config", fmt.Errorf("%s: %w", path, errTOMLOnly))
	case errors.Is(err, os.ErrNotExist):
		text, renderErr := DefaultText(platform, mcVersion)
		if renderErr != nil {
			return false, renderErr
		}

		return true, writeText(path, text)
	default:
		return false, install.NewError(install.KindFilesystem, "read config", err)
	}
}

func writeText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd // Directory permissions.
		return install.NewError(install.KindFilesystem, "create config directory", err)
	}

	if err := os.WriteFile(filepath.Clean(path), []byte(text), DefaultFilePermissions); err != nil {
		return install.NewError(install.KindFilesystem, "write config", err)
	}

	return nil
}
