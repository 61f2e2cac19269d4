// Package config provides configuration loading for the solvergen compiler.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wbrown/janus-solvergen/datalog/ingest"
)

// ProjectConfigFile is the name of the project-level config file
const ProjectConfigFile = "solvergen.yaml"

// Config represents the complete compiler configuration
type Config struct {
	Compile CompileConfig `yaml:"compile"`
	Cache   CacheConfig   `yaml:"cache"`
	Output  OutputConfig  `yaml:"output"`
}

// CompileConfig configures the compilation pipeline
type CompileConfig struct {
	// Outputs are the predicates echoed to the generated solver's output
	Outputs []string `yaml:"outputs"`
	// Diagnostics is "fail-fast" (stop at the first invalid rule) or "accumulate"
	Diagnostics string `yaml:"diagnostics"`
}

// CacheConfig configures plan caching
type CacheConfig struct {
	// Dir is the artifact store directory (empty = no persistent cache)
	Dir string `yaml:"dir"`
	// Size is the number of plans kept in memory
	Size int `yaml:"size"`
	// TTL is how long a cached plan or artifact stays valid
	TTL time.Duration `yaml:"ttl"`
}

// OutputConfig configures how results are rendered
type OutputConfig struct {
	// Format is "yaml" or "table"
	Format string `yaml:"format"`
	// Verbose prints compilation annotations to stderr
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Compile: CompileConfig{
			Outputs:     nil,
			Diagnostics: ingest.FailFast.String(),
		},
		Cache: CacheConfig{
			Dir:  "", // Memory only
			Size: 128,
			TTL:  24 * time.Hour,
		},
		Output: OutputConfig{
			Format:  "yaml",
			Verbose: false,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.Compile.Mode(); err != nil {
		return err
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	switch c.Output.Format {
	case "yaml", "table":
	default:
		return fmt.Errorf("output.format must be yaml or table, got %q", c.Output.Format)
	}
	for _, name := range c.Compile.Outputs {
		if name == "" {
			return fmt.Errorf("compile.outputs contains an empty predicate name")
		}
	}
	return nil
}

// Mode returns the diagnostic mode named by Diagnostics
func (c CompileConfig) Mode() (ingest.DiagnosticMode, error) {
	switch c.Diagnostics {
	case "", ingest.FailFast.String():
		return ingest.FailFast, nil
	case ingest.Accumulate.String():
		return ingest.Accumulate, nil
	}
	return 0, fmt.Errorf("compile.diagnostics must be %q or %q, got %q",
		ingest.FailFast, ingest.Accumulate, c.Diagnostics)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Compile
	if len(other.Compile.Outputs) > 0 {
		c.Compile.Outputs = other.Compile.Outputs
	}
	if other.Compile.Diagnostics != "" {
		c.Compile.Diagnostics = other.Compile.Diagnostics
	}

	// Cache
	if other.Cache.Dir != "" {
		c.Cache.Dir = other.Cache.Dir
	}
	if other.Cache.Size != 0 {
		c.Cache.Size = other.Cache.Size
	}
	if other.Cache.TTL != 0 {
		c.Cache.TTL = other.Cache.TTL
	}

	// Output
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Verbose {
		c.Output.Verbose = true
	}
}

// FindProjectConfig searches for solvergen.yaml in dir and its parents.
// It returns "" when none exists.
func FindProjectConfig(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load returns the defaults merged with path, or with the nearest project
// config when path is empty. The result is validated.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			path = FindProjectConfig(cwd)
		}
	}
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		config.Merge(loaded)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
