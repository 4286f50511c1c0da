package imageconfig

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// CacheOnly controls whether dnf may contact the network for metadata and packages
type CacheOnly string

const (
	// CacheOnlyAuto refreshes metadata only when the package cache has none yet
	CacheOnlyAuto CacheOnly = "auto"
	// CacheOnlyAlways never contacts the network
	CacheOnlyAlways CacheOnly = "always"
	// CacheOnlyMetadata reuses cached metadata but still downloads packages
	CacheOnlyMetadata CacheOnly = "metadata"
	// CacheOnlyNone refreshes metadata on every build
	CacheOnlyNone CacheOnly = "none"
)

// Repository describes one stanza of the generated repository file
type Repository struct {
	ID string `yaml:"id"`
	// URL is the complete source line, e.g. "baseurl=https://..." or "mirrorlist=https://..."
	URL           string   `yaml:"url"`
	Enabled       bool     `yaml:"enabled"`
	GPGURLs       []string `yaml:"gpgurls,omitempty"`
	SSLCACert     string   `yaml:"sslcacert"`
	SSLClientCert string   `yaml:"sslclientcert"`
	SSLClientKey  string   `yaml:"sslclientkey"`
	Priority      int      `yaml:"priority"`
}

// UnmarshalYAML decodes a repository, treating a missing "enabled" key as true
func (r *Repository) UnmarshalYAML(value *yaml.Node) error {
	type plain Repository
	repo := plain{Enabled: true}
	if err := value.Decode(&repo); err != nil {
		return err
	}
	*r = Repository(repo)
	return nil
}

// BuildSource is a host directory exposed to the package manager under /work/src
type BuildSource struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

type Config struct {
	Distribution Distribution `yaml:"distribution"`
	Release      string       `yaml:"release"`
	Architecture Architecture `yaml:"architecture"`

	Root               string `yaml:"root"`
	PackageManagerTree string `yaml:"package_manager_tree"`
	PackageCacheDir    string `yaml:"package_cache_dir"`
	PackagesDir        string `yaml:"packages_dir"`
	ToolsTree          string `yaml:"tools_tree"`

	Repositories       []Repository      `yaml:"repos"`
	EnableRepos        []string          `yaml:"enable_repos,omitempty"`
	CacheOnly          CacheOnly         `yaml:"cache_only"`
	WithRecommends     bool              `yaml:"with_recommends"`
	WithDocs           bool              `yaml:"with_docs"`
	RepositoryKeyCheck bool              `yaml:"repository_key_check"`
	Environment        map[string]string `yaml:"environment,omitempty"`

	BuildSources          []BuildSource `yaml:"build_sources,omitempty"`
	BuildSourcesEphemeral bool          `yaml:"build_sources_ephemeral"`

	Packages       []string `yaml:"packages,omitempty"`
	RemovePackages []string `yaml:"remove_packages,omitempty"`

	// Debug raises dnf's own debug level
	Debug bool `yaml:"debug"`
}

// NewConfig returns a Config populated with the defaults used when a key is absent
func NewConfig() *Config {
	return &Config{
		Architecture:       NativeArchitecture(),
		ToolsTree:          "/",
		CacheOnly:          CacheOnlyAuto,
		WithDocs:           true,
		RepositoryKeyCheck: true,
		Environment:        map[string]string{},
	}
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Validate performs validation on the Config struct
func (c *Config) Validate() error {
	if c.Distribution == "" {
		return &ValidationError{Field: "distribution", Msg: "is required"}
	}
	if !slices.Contains(Distributions(), c.Distribution) {
		return &ValidationError{Field: "distribution", Msg: fmt.Sprintf("unsupported distribution %q", c.Distribution)}
	}
	if c.Release == "" {
		return &ValidationError{Field: "release", Msg: "is required"}
	}
	if _, ok := c.Distribution.Architecture(c.Architecture); !ok {
		return &ValidationError{
			Field: "architecture",
			Msg:   fmt.Sprintf("%q is not supported by %s", c.Architecture, c.Distribution),
		}
	}

	if c.Root == "" {
		return &ValidationError{Field: "root", Msg: "is required"}
	}
	if c.PackageManagerTree == "" {
		return &ValidationError{Field: "package_manager_tree", Msg: "is required"}
	}

	switch c.CacheOnly {
	case CacheOnlyAuto, CacheOnlyAlways, CacheOnlyMetadata, CacheOnlyNone:
	default:
		return &ValidationError{Field: "cache_only", Msg: "must be one of: auto, always, metadata, none"}
	}

	// Validate Repositories
	for i, repo := range c.Repositories {
		if repo.ID == "" {
			return &ValidationError{Field: fmt.Sprintf("repos[%d].id", i), Msg: "is required"}
		}
		if repo.URL == "" {
			return &ValidationError{Field: fmt.Sprintf("repos[%d].url", i), Msg: "is required"}
		}
		if !strings.Contains(repo.URL, "=") {
			return &ValidationError{
				Field: fmt.Sprintf("repos[%d].url", i),
				Msg:   "must be a complete line such as baseurl=<url> or mirrorlist=<url>",
			}
		}
		if len(repo.GPGURLs) == 0 {
			return &ValidationError{Field: fmt.Sprintf("repos[%d].gpgurls", i), Msg: "at least one key is required"}
		}
		if repo.Priority < 0 {
			return &ValidationError{Field: fmt.Sprintf("repos[%d].priority", i), Msg: "must not be negative"}
		}
	}

	for i, src := range c.BuildSources {
		if src.Source == "" {
			return &ValidationError{Field: fmt.Sprintf("build_sources[%d].source", i), Msg: "is required"}
		}
		if strings.HasPrefix(src.Target, "/") || strings.Contains(src.Target, "..") {
			return &ValidationError{Field: fmt.Sprintf("build_sources[%d].target", i), Msg: "must be a relative path"}
		}
	}

	return nil
}

// LoadConfig loads and validates a configuration file
func LoadConfig(path string) (*Config, error) {
	// Read the configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Keys missing from the file keep their defaults
	config := NewConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Environment == nil {
		config.Environment = map[string]string{}
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		// Check if it's our custom validation error
		if valErr, ok := err.(*ValidationError); ok {
			return nil, fmt.Errorf("configuration validation failed:\n  %s", valErr.Error())
		}
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// WriteConfig writes a configuration to a YAML file
func WriteConfig(config *Config, path string) error {
	// Marshal the configuration to YAML
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write the configuration to the file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
