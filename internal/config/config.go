package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
)

const (
	// DefaultConfigFilename is the configuration file looked up when --config is not given.
	DefaultConfigFilename = "mcsm.toml"

	// DefaultUserAgent identifies mcsm when the configuration does not.
	DefaultUserAgent = "mcsm/1.0 (you@example.com)"

	// DefaultMetadataTimeout bounds JSON metadata calls.
	DefaultMetadataTimeout = 30 * time.Second

	// DefaultDownloadTimeout bounds binary downloads.
	DefaultDownloadTimeout = 180 * time.Second

	// DefaultFilePermissions is used for files written by mcsm.
	DefaultFilePermissions = 0o644

	envPrefix = "MCSM"

	defaultSchema     = 1
	defaultServerName = "server"
	defaultJarOut     = "server.jar"
	defaultHeap       = "1024M"
	placeholderPrefix = "PLACEHOLDER"
	exampleContact    = "you@example.com"
)

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("config not found (run install or init first)")

	errMCVersionNotSet = errors.New("mc_version is not set, run: mcsm install <platform> <mc_version>")

	defaultExtraArgs = []string{"nogui"}
)

// Config is the validated mcsm configuration.
type Config struct {
	// Schema is the configuration format version.
	Schema int `toml:"schema" yaml:"schema"`
	// MCVersion is the locked game version.
	MCVersion string `toml:"mc_version" yaml:"mc_version"`
	// UserAgent is sent with every upstream request.
	UserAgent string `toml:"user_agent" yaml:"user_agent"`
	// DestDir is deprecated and ignored; the root is the config directory.
	DestDir *string `toml:"dest_dir" yaml:"dest_dir"`
	// DefaultTargets lists the target names installed by install and update.
	DefaultTargets []string `toml:"default_targets" yaml:"default_targets"`
	// Server describes the server runtime.
	Server Server `toml:"server" yaml:"server"`
	// Targets maps a target name to its specification.
	Targets map[string]Target `toml:"targets" yaml:"targets"`
	// HTTP tunes upstream calls.
	HTTP HTTP `toml:"http" yaml:"http"`

	// Path is the absolute path of the configuration file.
	Path string `toml:"-" yaml:"-"`
	// Root is the installation root: the directory containing Path.
	Root string `toml:"-" yaml:"-"`
}

// Server describes the server runtime section.
type Server struct {
	Type             string `toml:"type" yaml:"type"`
	Name             string `toml:"name" yaml:"name"`
	JarOut           string `toml:"jar_out" yaml:"jar_out"`
	KeepVersionedJar *bool  `toml:"keep_versioned_jar" yaml:"keep_versioned_jar"`
	JVM              JVM    `toml:"jvm" yaml:"jvm"`
}

// KeepVersioned reports whether the canonical jar should link to a versioned file.
func (s *Server) KeepVersioned() bool {
	return s.KeepVersionedJar == nil || *s.KeepVersionedJar
}

// JVM holds the launcher memory and argument settings.
type JVM struct {
	Xmx       string   `toml:"xmx" yaml:"xmx"`
	Xms       string   `toml:"xms" yaml:"xms"`
	ExtraArgs []string `toml:"extra_args" yaml:"extra_args"`
}

// Target is one plugin target specification. Type-specific fields are validated by the resolver.
type Target struct {
	Type    string `toml:"type" yaml:"type"`
	Enabled *bool  `toml:"enabled" yaml:"enabled"`
	Out     string `toml:"out" yaml:"out"`

	// Slug and Loaders are used by registry targets.
	Slug    string   `toml:"slug" yaml:"slug"`
	Loaders []string `toml:"loaders" yaml:"loaders"`

	// Project and Platform are used by companion targets.
	Project  string `toml:"project" yaml:"project"`
	Platform string `toml:"platform" yaml:"platform"`
}

// IsEnabled reports whether the target is enabled; targets are enabled unless disabled explicitly.
func (t *Target) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// HTTP tunes the upstream client.
type HTTP struct {
	MetadataTimeout Duration `toml:"metadata_timeout" yaml:"metadata_timeout"`
	DownloadTimeout Duration `toml:"download_timeout" yaml:"download_timeout"`
	Retries         int      `toml:"retries" yaml:"retries"`
}

// Duration is a time.Duration written as a Go duration string ("30s", "3m").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}

	d.Duration = parsed

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// envOverrides are merged on top of the file contents.
type envOverrides struct {
	UserAgent       string        `envconfig:"USER_AGENT"`
	MetadataTimeout time.Duration `envconfig:"METADATA_TIMEOUT"`
	DownloadTimeout time.Duration `envconfig:"DOWNLOAD_TIMEOUT"`
	Retries         *int          `envconfig:"RETRIES"`
}

// Diagnostic is a non-fatal finding produced while loading the configuration.
type Diagnostic struct {
	Field   string
	Message string
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	return d.Field + ": " + d.Message
}

// Diagnostics is the list of warnings returned alongside a loaded configuration.
type Diagnostics []Diagnostic

func (d *Diagnostics) add(field, format string, args ...any) {
	*d = append(*d, Diagnostic{Field: field, Message: fmt.Sprintf(format, args...)})
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid configuration: " + errors.Join(e.Problems...).Error()
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// Load reads, decodes and validates the configuration at path.
// The returned error is classified as install.KindConfig.
func Load(path string) (*Config, Diagnostics, error) {
	cfg, diags, err := Read(path)
	if err != nil {
		return nil, diags, err
	}

	if err := cfg.Validate(&diags); err != nil {
		return nil, diags, install.NewError(install.KindConfig, "validate config", err)
	}

	return cfg, diags, nil
}

// Read decodes the configuration at path, merges environment overrides and applies
// defaults without enforcing required fields. Read-only commands use it to tolerate
// incomplete templates.
func Read(path string) (*Config, Diagnostics, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, install.NewError(install.KindConfig, "resolve config path", err)
	}

	contents, err := os.ReadFile(filepath.Clean(absPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, install.NewError(install.KindConfig, "read config", fmt.Errorf("%s: %w", path, ErrConfigNotFound))
		}

		return nil, nil, install.NewError(install.KindConfig, "read config", err)
	}

	cfg, err := Decode(absPath, contents)
	if err != nil {
		return nil, nil, install.NewError(install.KindConfig, "decode config", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, nil, install.NewError(install.KindConfig, "read environment overrides", err)
	}

	var diags Diagnostics

	cfg.applyDefaults(&diags)

	return cfg, diags, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))

	return ext == ".yaml" || ext == ".yml"
}

// Decode parses contents as YAML when path ends in .yaml or .yml and as TOML otherwise.
func Decode(path string, contents []byte) (*Config, error) {
	var cfg Config

	switch {
	case isYAML(path):
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	default:
		if err := toml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal toml: %w", err)
		}
	}

	cfg.Path = path
	cfg.Root = filepath.Dir(path)

	return &cfg, nil
}

// Validate enforces required fields and reports every problem at once.
func (c *Config) Validate(diags *Diagnostics) error {
	var problems []error

	if c.Schema != defaultSchema {
		problems = append(problems, fmt.Errorf("schema: unsupported value %d", c.Schema))
	}

	if c.MCVersion == "" || strings.HasPrefix(c.MCVersion, placeholderPrefix) {
		problems = append(problems, errMCVersionNotSet)
	}

	if !IsSupportedPlatform(c.Server.Type) {
		problems = append(problems, fmt.Errorf("server.type: unsupported value %q (expected purpur or paper)", c.Server.Type))
	}

	if err := checkRelative(c.Server.JarOut); err != nil {
		problems = append(problems, fmt.Errorf("server.jar_out: %w", err))
	}

	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		target := c.Targets[name]

		if !IsSupportedTargetType(target.Type) {
			problems = append(problems, fmt.Errorf("targets.%s.type: unsupported value %q", name, target.Type))
		}

		if target.Out == "" {
			problems = append(problems, fmt.Errorf("targets.%s.out: missing", name))
		} else if err := checkRelative(target.Out); err != nil {
			problems = append(problems, fmt.Errorf("targets.%s.out: %w", name, err))
		}
	}

	for _, name := range c.DefaultTargets {
		if _, ok := c.Targets[name]; !ok && diags != nil {
			diags.add("default_targets", "target %q is not defined in [targets] and will be skipped", name)
		}
	}

	if c.HTTP.Retries < 0 {
		problems = append(problems, fmt.Errorf("http.retries: must not be negative, got %d", c.HTTP.Retries))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

// Abs returns the absolute path of a root-relative, slash-separated path.
func (c *Config) Abs(rel string) string {
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}

// ShortcutName returns the display name and the filesystem-safe id used by the
// OS integration layer. An empty override yields "<server.name>-<mc_version>".
func (c *Config) ShortcutName(override string) (string, string) {
	display := strings.TrimSpace(override)
	if display == "" {
		display = c.Server.Name + "-" + c.MCVersion
	}

	return display, install.SafeName(display)
}

// IsSupportedPlatform reports whether platform is a known server runtime.
func IsSupportedPlatform(platform string) bool {
	return platform == install.PlatformPurpur || platform == install.PlatformPaper
}

// IsSupportedTargetType reports whether targetType is a known target type.
func IsSupportedTargetType(targetType string) bool {
	return targetType == install.TargetModrinth || targetType == install.TargetGeyser
}

// DefaultTargets returns the built-in targets used when no configuration applies.
func DefaultTargets() ([]string, map[string]Target) {
	loaders := []string{"paper", "purpur", "spigot", "bukkit"}

	return []string{"viaversion", "geyser", "floodgate"}, map[string]Target{
		"viaversion": {Type: install.TargetModrinth, Slug: "viaversion", Loaders: loaders, Out: "plugins/ViaVersion.jar"},
		"geyser":     {Type: install.TargetGeyser, Project: "geyser", Platform: "spigot", Out: "plugins/Geyser-spigot.jar"},
		"floodgate":  {Type: install.TargetGeyser, Project: "floodgate", Platform: "spigot", Out: "plugins/Floodgate-spigot.jar"},
	}
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := envconfig.Process(envPrefix, &overrides); err != nil {
		return err
	}

	if overrides.UserAgent != "" {
		c.UserAgent = overrides.UserAgent
	}

	if overrides.MetadataTimeout > 0 {
		c.HTTP.MetadataTimeout.Duration = overrides.MetadataTimeout
	}

	if overrides.DownloadTimeout > 0 {
		c.HTTP.DownloadTimeout.Duration = overrides.DownloadTimeout
	}

	if overrides.Retries != nil {
		c.HTTP.Retries = *overrides.Retries
	}

	return nil
}

func (c *Config) applyDefaults(diags *Diagnostics) {
	if c.Schema == 0 {
		c.Schema = defaultSchema
	}

	c.MCVersion = strings.TrimSpace(c.MCVersion)
	c.Server.Type = strings.TrimSpace(c.Server.Type)

	c.UserAgent = strings.TrimSpace(c.UserAgent)
	if c.UserAgent == "" || strings.Contains(c.UserAgent, placeholderPrefix) || strings.Contains(c.UserAgent, exampleContact) {
		diags.add("user_agent", "not set (or placeholder), set user_agent in %s for better API compatibility", filepath.Base(c.Path))

		if c.UserAgent == "" || strings.Contains(c.UserAgent, placeholderPrefix) {
			c.UserAgent = DefaultUserAgent
		}
	}

	if c.DestDir != nil {
		diags.add("dest_dir", "ignored, mcsm installs into the directory containing %s", filepath.Base(c.Path))
	}

	c.Server.Name = strings.TrimSpace(c.Server.Name)
	if c.Server.Name == "" {
		c.Server.Name = defaultServerName
	}

	if strings.Contains(c.Server.Name, placeholderPrefix) {
		diags.add("server.name", "still a placeholder (%s)", c.Server.Name)
	}

	c.Server.JarOut = strings.TrimSpace(c.Server.JarOut)
	if c.Server.JarOut == "" {
		c.Server.JarOut = defaultJarOut
	}

	c.Server.JVM.Xmx = orDefault(c.Server.JVM.Xmx, defaultHeap)
	c.Server.JVM.Xms = orDefault(c.Server.JVM.Xms, defaultHeap)

	c.Server.JVM.ExtraArgs = trimmed(c.Server.JVM.ExtraArgs)
	if len(c.Server.JVM.ExtraArgs) == 0 {
		c.Server.JVM.ExtraArgs = slices.Clone(defaultExtraArgs)
	}

	c.DefaultTargets = trimmed(c.DefaultTargets)

	for name, target := range c.Targets {
		target.Type = strings.TrimSpace(target.Type)
		target.Out = strings.TrimSpace(target.Out)
		target.Slug = strings.TrimSpace(target.Slug)
		target.Project = strings.TrimSpace(target.Project)
		target.Platform = strings.TrimSpace(target.Platform)
		target.Loaders = trimmed(target.Loaders)
		c.Targets[name] = target
	}

	if c.HTTP.MetadataTimeout.Duration <= 0 {
		c.HTTP.MetadataTimeout.Duration = DefaultMetadataTimeout
	}

	if c.HTTP.DownloadTimeout.Duration <= 0 {
		c.HTTP.DownloadTimeout.Duration = DefaultDownloadTimeout
	}
}

// checkRelative rejects absolute paths and paths escaping the installation root.
func checkRelative(rel string) error {
	if rel == "" {
		return nil
	}

	slashed := filepath.ToSlash(rel)
	if filepath.IsAbs(rel) || path.IsAbs(slashed) {
		return fmt.Errorf("path %q must be relative to the config directory", rel)
	}

	cleaned := path.Clean(slashed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("path %q escapes the config directory", rel)
	}

	return nil
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}

	return value
}

func trimmed(values []string) []string {
	result := make([]string, 0, len(values))

	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			result = append(result, value)
		}
	}

	return result
}
