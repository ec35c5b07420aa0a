// Package config loads the snippetd service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cpp4you/snippetexec/sandbox"
	"github.com/cpp4you/snippetexec/sandbox/backend/process"
	"github.com/cpp4you/snippetexec/snippet"
)

// ErrConfiguration is returned when a configuration is invalid.
var ErrConfiguration = errors.New("invalid configuration")

// Backend kinds.
const (
	BackendProcess = "process"
	BackendRemote  = "remote"
	BackendNone    = "none"
)

// Cache kinds.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
)

// Config holds the full snippetd configuration.
type Config struct {
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`
	// SnippetsDir is a directory of snippet sources. Empty uses the bundled
	// collection.
	SnippetsDir string        `yaml:"snippets_dir"`
	Runner      RunnerConfig  `yaml:"runner"`
	Backend     BackendConfig `yaml:"backend"`
	Cache       CacheConfig   `yaml:"cache"`
	MCP         MCPConfig     `yaml:"mcp"`
}

// RunnerConfig holds execution limits.
type RunnerConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxOutputBytes int           `yaml:"max_output_bytes"`
	CancelGrace    time.Duration `yaml:"cancel_grace"`
	// Concurrency bounds parallel executions in batch renders.
	Concurrency int `yaml:"concurrency"`
}

// BackendConfig selects and configures the execution collaborator.
//
// The default kind is none: snippets render as static source. The process
// kind compiles and runs snippets with the host toolchain and is only
// appropriate for trusted snippets on a developer machine or inside an
// already isolated container.
type BackendConfig struct {
	Kind    string        `yaml:"kind"` // process | remote | none
	Process ProcessConfig `yaml:"process"`
	Remote  RemoteConfig  `yaml:"remote"`
}

// ProcessConfig configures the local process backend.
type ProcessConfig struct {
	WorkDir string `yaml:"work_dir"`
	// Toolchains are keyed by language tag (cpp, cpp17, cpp20, cpp23).
	Toolchains map[string]process.Toolchain `yaml:"toolchains"`
}

// RemoteConfig configures the remote sandbox backend.
type RemoteConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	Token           string        `yaml:"token"`
	TimeoutOverhead time.Duration `yaml:"timeout_overhead"`
}

// CacheConfig configures the execution result cache.
type CacheConfig struct {
	Kind string `yaml:"kind"` // none | memory | sqlite
	Path string `yaml:"path"`
}

// MCPConfig configures the MCP tool surface.
type MCPConfig struct {
	// Stdio serves MCP tools over stdin/stdout in addition to HTTP.
	Stdio bool `yaml:"stdio"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:   ":8080",
		LogLevel: "info",
		Runner: RunnerConfig{
			Timeout:        sandbox.DefaultTimeout,
			MaxOutputBytes: sandbox.DefaultMaxOutputBytes,
			CancelGrace:    sandbox.DefaultCancelGrace,
			Concurrency:    4,
		},
		Backend: BackendConfig{Kind: BackendNone},
		Cache:   CacheConfig{Kind: CacheMemory},
	}
}

// Load reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Listen == "" {
		add("listen is required")
	}
	if _, err := c.SlogLevel(); err != nil {
		add("log_level %q is not a slog level", c.LogLevel)
	}
	if c.Runner.Timeout <= 0 {
		add("runner.timeout must be > 0")
	}
	if c.Runner.MaxOutputBytes <= 0 {
		add("runner.max_output_bytes must be > 0")
	}
	if c.Runner.CancelGrace < 0 {
		add("runner.cancel_grace must not be negative")
	}
	if c.Runner.Concurrency <= 0 {
		add("runner.concurrency must be > 0")
	}

	switch c.Backend.Kind {
	case BackendProcess:
		for lang, tc := range c.Backend.Process.Toolchains {
			if _, err := snippet.ParseLanguage(lang); err != nil {
				add("backend.process.toolchains: unknown language %q", lang)
			}
			if len(tc.Run) == 0 {
				add("backend.process.toolchains.%s: run is required", lang)
			}
		}
	case BackendRemote:
		if c.Backend.Remote.Endpoint == "" {
			add("backend.remote.endpoint is required")
		}
	case BackendNone:
	default:
		add("unsupported backend.kind %q (use process, remote or none)", c.Backend.Kind)
	}

	switch c.Cache.Kind {
	case CacheNone, CacheMemory:
	case CacheSQLite:
		if c.Cache.Path == "" {
			add("cache.path is required for sqlite")
		}
	default:
		add("unsupported cache.kind %q (use none, memory or sqlite)", c.Cache.Kind)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel returns LogLevel as a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// Toolchains returns the process toolchains keyed by language.
func (c *Config) Toolchains() map[snippet.Language]process.Toolchain {
	out := make(map[snippet.Language]process.Toolchain, len(c.Backend.Process.Toolchains))
	for name, tc := range c.Backend.Process.Toolchains {
		if lang, err := snippet.ParseLanguage(name); err == nil {
			out[lang] = tc
		}
	}
	return out
}
