package config

import (
	"fmt"
	"time"

	"github.com/grovetools/phlux/pkg/paths"
	"github.com/mitchellh/mapstructure"
)

const (
	DefaultVersion     = "1.0"
	DefaultBackend     = "file"
	DefaultFormat      = "yaml"
	DefaultRunner      = RunnerInline
	DefaultAddr        = "127.0.0.1:7420"
	DefaultResumeGrace = "30s"
)

// Store runners.
const (
	RunnerInline    = "inline"
	RunnerGoroutine = "goroutine"
)

// Config represents a phlux.yml configuration file
type Config struct {
	Version     string            `yaml:"version" toml:"version" json:"version" jsonschema:"description=Configuration version (e.g. '1.0')"`
	Store       StoreConfig       `yaml:"store,omitempty" toml:"store,omitempty" json:"store,omitempty" jsonschema:"description=Scope store settings"`
	Persistence PersistenceConfig `yaml:"persistence,omitempty" toml:"persistence,omitempty" json:"persistence,omitempty" jsonschema:"description=Where saved scopes are kept"`
	Server      ServerConfig      `yaml:"server,omitempty" toml:"server,omitempty" json:"server,omitempty" jsonschema:"description=Websocket server used by 'phlux serve'"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// StoreConfig configures the scope store.
type StoreConfig struct {
	Metrics *bool  `yaml:"metrics,omitempty" toml:"metrics,omitempty" json:"metrics,omitempty" jsonschema:"description=Export prometheus metrics for the store"`
	Runner  string `yaml:"runner,omitempty" toml:"runner,omitempty" json:"runner,omitempty" jsonschema:"enum=inline,enum=goroutine,description=How background tasks are started"`
}

// PersistenceConfig selects the repository for saved scopes.
type PersistenceConfig struct {
	Backend string `yaml:"backend,omitempty" toml:"backend,omitempty" json:"backend,omitempty" jsonschema:"enum=file,enum=pebble,description=Repository backend"`
	Dir     string `yaml:"dir,omitempty" toml:"dir,omitempty" json:"dir,omitempty" jsonschema:"description=Directory holding saved scopes"`
	Format  string `yaml:"format,omitempty" toml:"format,omitempty" json:"format,omitempty" jsonschema:"enum=yaml,enum=json,enum=toml,description=Encoding of saved scopes"`
}

// ServerConfig configures the websocket server.
type ServerConfig struct {
	Addr        string `yaml:"addr,omitempty" toml:"addr,omitempty" json:"addr,omitempty" jsonschema:"description=Listen address"`
	ResumeGrace string `yaml:"resume_grace,omitempty" toml:"resume_grace,omitempty" json:"resume_grace,omitempty" jsonschema:"description=How long a dropped connection's scope is kept for resumption (e.g. '30s')"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults applies default values to the configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Store.Metrics == nil {
		enabled := true
		c.Store.Metrics = &enabled
	}
	if c.Store.Runner == "" {
		c.Store.Runner = DefaultRunner
	}
	if c.Persistence.Backend == "" {
		c.Persistence.Backend = DefaultBackend
	}
	if c.Persistence.Dir == "" {
		c.Persistence.Dir = paths.ScopesDir()
	}
	if c.Persistence.Format == "" {
		c.Persistence.Format = DefaultFormat
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ResumeGrace == "" {
		c.Server.ResumeGrace = DefaultResumeGrace
	}
}

// MetricsEnabled reports whether store metrics are exported.
func (c *Config) MetricsEnabled() bool {
	return c.Store.Metrics == nil || *c.Store.Metrics
}

// ResumeGrace returns the parsed server.resume_grace. Validate has already
// rejected malformed values for loaded configurations.
func (c *Config) ResumeGrace() time.Duration {
	d, err := time.ParseDuration(c.Server.ResumeGrace)
	if err != nil {
		d, _ = time.ParseDuration(DefaultResumeGrace)
	}
	return d
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded phlux.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// A missing key leaves target zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
